// Package session models the ambient storefront credential as an explicit
// value passed into every sync operation, so authentication gating is a pure
// function of (mutation, session) rather than hidden global state.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session carries the per-request credential state consulted by the sync
// engine. The token itself stays opaque; the engine never verifies it (that is
// the remote service's job), it only inspects the claims it can read locally
// to decide whether remote calls are worth attempting.
type Session struct {
	UserID        string
	Token         string
	authenticated bool
}

// Anonymous returns the unauthenticated session: all cart mutations stay
// local-only and no remote call is attempted.
func Anonymous() Session {
	return Session{}
}

// ForUser builds an authenticated session from already-validated parts.
// Mainly useful for wiring and tests; request paths go through FromRequest.
func ForUser(userID, token string) Session {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous()
	}
	return Session{UserID: strings.TrimSpace(userID), Token: token, authenticated: true}
}

// FromToken builds a session from a bearer token. The token is parsed without
// signature verification; a token that fails to parse or is already expired
// yields an anonymous session, since the remote would reject it anyway.
func FromToken(token string, now func() time.Time) Session {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous()
	}
	if now == nil {
		now = time.Now
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Anonymous()
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if !exp.After(now().UTC()) {
			return Anonymous()
		}
	}

	sess := Session{Token: token, authenticated: true}
	if sub, err := claims.GetSubject(); err == nil {
		sess.UserID = strings.TrimSpace(sub)
	}
	return sess
}

// FromRequest derives the session from the request's Authorization header.
// A missing or malformed header yields an anonymous session, not an error.
func FromRequest(r *http.Request, now func() time.Time) Session {
	if r == nil {
		return Anonymous()
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return Anonymous()
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Anonymous()
	}
	return FromToken(parts[1], now)
}

// Authenticated reports whether remote sync calls may be attempted.
func (s Session) Authenticated() bool {
	return s.authenticated
}

// ChannelKey returns the debounce channel key for this session.
func (s Session) ChannelKey() string {
	if s.UserID != "" {
		return "cart:" + s.UserID
	}
	return "cart:anonymous"
}
