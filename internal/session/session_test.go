package session

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestFromTokenValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{
		"sub": "user-42",
		"exp": now.Add(time.Hour).Unix(),
	})

	sess := FromToken(token, func() time.Time { return now })
	if !sess.Authenticated() {
		t.Fatalf("expected authenticated session")
	}
	if sess.UserID != "user-42" {
		t.Fatalf("expected user-42, got %q", sess.UserID)
	}
	if sess.ChannelKey() != "cart:user-42" {
		t.Fatalf("unexpected channel key %q", sess.ChannelKey())
	}
}

func TestFromTokenExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{
		"sub": "user-42",
		"exp": now.Add(-time.Minute).Unix(),
	})

	sess := FromToken(token, func() time.Time { return now })
	if sess.Authenticated() {
		t.Fatalf("expected expired token to yield anonymous session")
	}
}

func TestFromTokenGarbage(t *testing.T) {
	sess := FromToken("not-a-jwt", time.Now)
	if sess.Authenticated() {
		t.Fatalf("expected anonymous session for malformed token")
	}
}

func TestFromTokenEmpty(t *testing.T) {
	sess := FromToken("   ", time.Now)
	if sess.Authenticated() {
		t.Fatalf("expected anonymous session for empty token")
	}
	if sess.ChannelKey() != "cart:anonymous" {
		t.Fatalf("unexpected channel key %q", sess.ChannelKey())
	}
}

func TestFromRequest(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{
		"sub": "user-7",
		"exp": now.Add(time.Hour).Unix(),
	})

	r, _ := http.NewRequest(http.MethodGet, "/cart", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	sess := FromRequest(r, func() time.Time { return now })
	if !sess.Authenticated() || sess.UserID != "user-7" {
		t.Fatalf("expected authenticated user-7, got %+v", sess)
	}

	r2, _ := http.NewRequest(http.MethodGet, "/cart", nil)
	if FromRequest(r2, nil).Authenticated() {
		t.Fatalf("expected anonymous session without header")
	}

	r3, _ := http.NewRequest(http.MethodGet, "/cart", nil)
	r3.Header.Set("Authorization", "Basic abc")
	if FromRequest(r3, nil).Authenticated() {
		t.Fatalf("expected anonymous session for non-bearer scheme")
	}
}
