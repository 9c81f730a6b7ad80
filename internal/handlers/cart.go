package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/servana/storefront/internal/cart"
	"github.com/servana/storefront/internal/domain"
	"github.com/servana/storefront/internal/platform/httpx"
	"github.com/servana/storefront/internal/platform/requestctx"
	enginesync "github.com/servana/storefront/internal/sync"
)

// CartHandlers exposes the session cart and its sync operations.
type CartHandlers struct {
	orch  *enginesync.Orchestrator
	store *cart.Store
}

// NewCartHandlers constructs handlers over the orchestrator and its store.
func NewCartHandlers(orch *enginesync.Orchestrator, store *cart.Store) *CartHandlers {
	return &CartHandlers{orch: orch, store: store}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemKey}", h.setQuantity)
	r.Post("/items/{itemKey}/increment", h.incrementItem)
	r.Post("/items/{itemKey}/decrement", h.decrementItem)
	r.Delete("/items/{itemKey}", h.removeItem)
	r.Post("/sync", h.flush)
	r.Post("/refresh", h.refresh)
}

type addItemRequest struct {
	ServiceID   string `json:"service_id"`
	LegacyID    string `json:"legacy_id"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Duration    string `json:"duration"`
	Category    string `json:"category"`
	ServiceKind string `json:"service_kind"`
	UnitPrice   string `json:"unit_price"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	h.armSession(r)
	writeJSON(w, http.StatusOK, buildCartPayload(h.store.Snapshot(), h.store.SyncState()))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.armSession(r)

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "name is required", http.StatusBadRequest))
		return
	}

	price := decimal.Zero
	if trimmed := strings.TrimSpace(req.UnitPrice); trimmed != "" {
		parsed, err := decimal.NewFromString(trimmed)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unit_price must be a decimal number", http.StatusBadRequest))
			return
		}
		price = parsed
	}

	input := cart.AddInput{
		Ref: domain.ServiceRef{
			ServiceID: req.ServiceID,
			LegacyID:  req.LegacyID,
			ID:        req.ID,
			Name:      req.Name,
			Price:     price.String(),
			Category:  req.Category,
		},
		DisplayName:   req.Name,
		Description:   req.Description,
		ImageRef:      req.Image,
		DurationLabel: req.Duration,
		Category:      req.Category,
		ServiceKind:   req.ServiceKind,
		UnitPrice:     price,
	}

	snapshot, err := h.orch.AddItem(ctx, input)
	h.respondMutation(w, r, snapshot, err, http.StatusCreated)
}

func (h *CartHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.armSession(r)

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	snapshot, err := h.orch.SetQuantity(ctx, chi.URLParam(r, "itemKey"), *req.Quantity)
	h.respondMutation(w, r, snapshot, err, http.StatusOK)
}

func (h *CartHandlers) incrementItem(w http.ResponseWriter, r *http.Request) {
	h.armSession(r)
	snapshot, err := h.orch.IncrementQuantity(r.Context(), chi.URLParam(r, "itemKey"))
	h.respondMutation(w, r, snapshot, err, http.StatusOK)
}

func (h *CartHandlers) decrementItem(w http.ResponseWriter, r *http.Request) {
	h.armSession(r)
	snapshot, err := h.orch.DecrementQuantity(r.Context(), chi.URLParam(r, "itemKey"))
	h.respondMutation(w, r, snapshot, err, http.StatusOK)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	h.armSession(r)
	snapshot, err := h.orch.RemoveItem(r.Context(), chi.URLParam(r, "itemKey"))
	h.respondMutation(w, r, snapshot, err, http.StatusOK)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	h.armSession(r)
	snapshot, err := h.orch.Clear(r.Context())
	h.respondMutation(w, r, snapshot, err, http.StatusOK)
}

func (h *CartHandlers) flush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.armSession(r)
	if err := h.orch.Flush(ctx); err != nil {
		httpx.WriteError(ctx, w, httpx.FromFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, buildCartPayload(h.store.Snapshot(), h.store.SyncState()))
}

func (h *CartHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.armSession(r)
	snapshot, err := h.orch.Refresh(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.FromFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, buildCartPayload(snapshot, h.store.SyncState()))
}

// armSession keeps the orchestrator's session aligned with the caller,
// triggering the local-to-remote re-arm on the first authenticated request.
func (h *CartHandlers) armSession(r *http.Request) {
	h.orch.SetSession(r.Context(), requestctx.Session(r.Context()))
}

// respondMutation reports the post-mutation cart. The snapshot is returned
// even when the remote rejected the change, since compensation has already
// settled the local state; the rejection rides along in the envelope.
func (h *CartHandlers) respondMutation(w http.ResponseWriter, r *http.Request, snapshot domain.Cart, err error, okStatus int) {
	ctx := r.Context()
	if err != nil {
		httpErr := httpx.FromFailure(err)
		details := map[string]any{"cart": buildCartPayload(snapshot, h.store.SyncState())}
		for k, v := range httpErr.Details {
			details[k] = v
		}
		httpErr = httpErr.WithDetails(details)
		httpx.WriteError(ctx, w, httpErr)
		return
	}
	writeJSON(w, okStatus, buildCartPayload(snapshot, h.store.SyncState()))
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, errBodyTooLarge) {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
}
