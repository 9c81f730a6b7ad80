package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servana/storefront/internal/domain"
	"github.com/servana/storefront/internal/platform/requestctx"
	"github.com/servana/storefront/internal/session"
)

const maxBodySize = 16 * 1024

var errBodyTooLarge = errors.New("request body exceeds allowed size")

// SessionMiddleware derives the caller's session from the Authorization
// header and stores it on the request context. Missing, malformed or expired
// tokens degrade to an anonymous session rather than an error.
func SessionMiddleware(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromRequest(r, clock)
			ctx := requestctx.WithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(body) > maxBodySize {
		return errBodyTooLarge
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

type cartItemPayload struct {
	ID            string          `json:"id"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Image         string          `json:"image,omitempty"`
	Duration      string          `json:"duration,omitempty"`
	Category      string          `json:"category,omitempty"`
	ServiceKind   string          `json:"service_kind,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	AddedAt       time.Time       `json:"added_at"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}

type cartSummaryPayload struct {
	TotalServices int             `json:"total_services"`
	TotalItems    int             `json:"total_items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
}

type syncStatePayload struct {
	LastLocalChangeAt *time.Time `json:"last_local_change_at,omitempty"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	PendingSync       bool       `json:"pending_sync"`
}

type cartPayload struct {
	Items   []cartItemPayload  `json:"items"`
	Summary cartSummaryPayload `json:"summary"`
	Sync    syncStatePayload   `json:"sync"`
}

func buildCartPayload(cart domain.Cart, state domain.SyncState) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemPayload{
			ID:            item.ID,
			ReferenceID:   item.ReferenceID,
			Name:          item.DisplayName,
			Description:   item.Description,
			Image:         item.ImageRef,
			Duration:      item.DurationLabel,
			Category:      item.Category,
			ServiceKind:   item.ServiceKind,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			Subtotal:      item.Subtotal,
			AddedAt:       item.AddedAt,
			LastUpdatedAt: item.LastModifiedAt,
		})
	}

	payload := cartPayload{
		Items: items,
		Summary: cartSummaryPayload{
			TotalServices: cart.Summary.TotalServices,
			TotalItems:    cart.Summary.TotalItems,
			Subtotal:      cart.Summary.Subtotal,
			TaxAmount:     cart.Summary.TaxAmount,
			Total:         cart.Summary.Total,
		},
		Sync: syncStatePayload{PendingSync: state.PendingSync},
	}
	if !state.LastLocalChangeAt.IsZero() {
		ts := state.LastLocalChangeAt
		payload.Sync.LastLocalChangeAt = &ts
	}
	if !state.LastSyncedAt.IsZero() {
		ts := state.LastSyncedAt
		payload.Sync.LastSyncedAt = &ts
	}
	return payload
}
