package domain

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ServiceRef carries the heterogeneous identifying fields a catalog entry may
// expose. Any subset may be populated; NormalizeKey picks the most stable one.
type ServiceRef struct {
	ServiceID string
	LegacyID  string
	ID        string
	Name      string
	Price     string
	Category  string
}

// NormalizeKey derives the canonical cart item key for a service reference.
// Precedence: explicit service id, then legacy id, then generic id, then a
// composite slug built from descriptive fields. When no stable signal exists a
// random ulid-based key is returned; callers treat that path as degraded and
// log it, since two identical inputs then map to distinct keys.
func NormalizeKey(ref ServiceRef) string {
	if id := strings.TrimSpace(ref.ServiceID); id != "" {
		return id
	}
	if id := strings.TrimSpace(ref.LegacyID); id != "" {
		return id
	}
	if id := strings.TrimSpace(ref.ID); id != "" {
		return id
	}
	if key := compositeKey(ref); key != "" {
		return key
	}
	return "svc-" + strings.ToLower(ulid.Make().String())
}

// HasStableKey reports whether NormalizeKey would return a deterministic key
// for the reference, i.e. whether the random fallback is avoided.
func HasStableKey(ref ServiceRef) bool {
	if strings.TrimSpace(ref.ServiceID) != "" || strings.TrimSpace(ref.LegacyID) != "" || strings.TrimSpace(ref.ID) != "" {
		return true
	}
	return compositeKey(ref) != ""
}

func compositeKey(ref ServiceRef) string {
	name := slugify(ref.Name)
	price := strings.TrimSpace(ref.Price)
	category := slugify(ref.Category)
	if name == "" && price == "" && category == "" {
		return ""
	}
	return fmt.Sprintf("svc-%s-%s-%s", name, price, category)
}

func slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	lastDash := true
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
