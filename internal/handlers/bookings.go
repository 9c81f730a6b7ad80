package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/servana/storefront/internal/booking"
	"github.com/servana/storefront/internal/domain"
	"github.com/servana/storefront/internal/platform/httpx"
	"github.com/servana/storefront/internal/platform/pagination"
	"github.com/servana/storefront/internal/platform/requestctx"
	"github.com/servana/storefront/internal/remote"
)

// BookingHandlers exposes booking reads and server-gated mutations.
type BookingHandlers struct {
	bookings *booking.Service
}

// NewBookingHandlers constructs handlers over the booking service.
func NewBookingHandlers(bookings *booking.Service) *BookingHandlers {
	return &BookingHandlers{bookings: bookings}
}

// Routes wires the /bookings endpoints onto the provided router.
func (h *BookingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Get("/stats", h.stats)
	r.Get("/upcoming", h.upcoming)
	r.Get("/slots", h.slots)
	r.Get("/{bookingID}", h.get)
	r.Get("/{bookingID}/mutations/{kind}", h.mutationState)
	r.Post("/{bookingID}/cancel", h.cancel)
	r.Post("/{bookingID}/reschedule", h.reschedule)
	r.Post("/{bookingID}/payment", h.completePayment)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewSlot string `json:"new_slot"`
	Reason  string `json:"reason"`
}

type paymentRequest struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
	ProviderRef   string `json:"provider_ref"`
}

func (h *BookingHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := pagination.Parse(r.URL.Query(), pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := remote.BookingListFilter{
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
		FromDate: strings.TrimSpace(r.URL.Query().Get("from")),
		ToDate:   strings.TrimSpace(r.URL.Query().Get("to")),
		Page:     params.Page,
		PageSize: params.PageSize,
	}

	page, err := h.bookings.List(ctx, requestctx.Session(ctx), filter)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookings":  buildBookingPayloads(page.Bookings),
		"page":      page.Page,
		"page_size": page.PageSize,
		"total":     page.Total,
	})
}

func (h *BookingHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entity, err := h.bookings.Get(ctx, requestctx.Session(ctx), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": buildBookingPayload(entity)})
}

func (h *BookingHandlers) mutationState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := booking.MutationKind(chi.URLParam(r, "kind"))
	switch kind {
	case booking.MutationCancel, booking.MutationReschedule, booking.MutationPayment:
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown mutation kind", http.StatusBadRequest))
		return
	}

	state := h.bookings.Store().Mutation(chi.URLParam(r, "bookingID"), kind)
	payload := map[string]any{"phase": string(state.Phase)}
	if state.Err != nil {
		payload["error"] = map[string]any{
			"code":            state.Err.Code,
			"message":         state.Err.Message,
			"support_contact": state.Err.SupportContact,
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *BookingHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	entity, refund, err := h.bookings.Cancel(ctx, requestctx.Session(ctx), chi.URLParam(r, "bookingID"), req.Reason)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"booking":         buildBookingPayload(entity),
		"refund_eligible": refund.Eligible,
		"refund_amount":   refund.Amount,
	})
}

func (h *BookingHandlers) reschedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if strings.TrimSpace(req.NewDate) == "" || strings.TrimSpace(req.NewSlot) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "new_date and new_slot are required", http.StatusBadRequest))
		return
	}

	entity, remaining, err := h.bookings.Reschedule(ctx, requestctx.Session(ctx), chi.URLParam(r, "bookingID"), req.NewDate, req.NewSlot, req.Reason)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"booking":               buildBookingPayload(entity),
		"remaining_reschedules": remaining,
	})
}

func (h *BookingHandlers) completePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	method := domain.PaymentMethod(strings.TrimSpace(req.Method))
	switch method {
	case domain.PaymentMethodOnline, domain.PaymentMethodCash:
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "method must be online or cod", http.StatusBadRequest))
		return
	}

	entity, err := h.bookings.CompletePayment(ctx, requestctx.Session(ctx), chi.URLParam(r, "bookingID"), method, req.TransactionID, req.ProviderRef)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": buildBookingPayload(entity)})
}

func (h *BookingHandlers) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.bookings.Stats(ctx, requestctx.Session(ctx))
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     stats.Total,
		"upcoming":  stats.Upcoming,
		"completed": stats.Completed,
		"cancelled": stats.Cancelled,
	})
}

func (h *BookingHandlers) upcoming(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entities, err := h.bookings.Upcoming(ctx, requestctx.Session(ctx))
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": buildBookingPayloads(entities)})
}

func (h *BookingHandlers) slots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "date is required", http.StatusBadRequest))
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "date must be formatted YYYY-MM-DD", http.StatusBadRequest))
		return
	}

	slots, err := h.bookings.AvailableSlots(ctx, requestctx.Session(ctx), date)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	payloads := make([]map[string]any, 0, len(slots))
	for _, slot := range slots {
		payloads = append(payloads, map[string]any{"slot": slot.Slot, "available": slot.Available})
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": payloads})
}

func (h *BookingHandlers) writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, booking.ErrAuthenticationRequired) {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	httpx.WriteError(ctx, w, httpx.FromFailure(err))
}

type bookingPayload struct {
	ID                 string           `json:"id"`
	Status             string           `json:"status"`
	PaymentStatus      string           `json:"payment_status"`
	PaymentMethod      string           `json:"payment_method,omitempty"`
	Services           []map[string]any `json:"services"`
	ScheduledDate      string           `json:"scheduled_date"`
	ScheduledSlot      string           `json:"scheduled_slot"`
	TotalAmount        string           `json:"total_amount"`
	RescheduleCount    int              `json:"reschedule_count"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func buildBookingPayload(entity domain.Booking) bookingPayload {
	services := make([]map[string]any, 0, len(entity.Services))
	for _, svc := range entity.Services {
		services = append(services, map[string]any{
			"name":         svc.Name,
			"reference_id": svc.ReferenceID,
		})
	}
	return bookingPayload{
		ID:                 entity.ID,
		Status:             string(entity.Status),
		PaymentStatus:      string(entity.PaymentStatus),
		PaymentMethod:      string(entity.PaymentMethod),
		Services:           services,
		ScheduledDate:      entity.ScheduledDate,
		ScheduledSlot:      entity.ScheduledSlot,
		TotalAmount:        entity.TotalAmount.String(),
		RescheduleCount:    entity.RescheduleCount,
		CancellationReason: entity.CancellationReason,
		CreatedAt:          entity.CreatedAt,
		UpdatedAt:          entity.UpdatedAt,
	}
}

func buildBookingPayloads(entities []domain.Booking) []bookingPayload {
	out := make([]bookingPayload, 0, len(entities))
	for _, entity := range entities {
		out = append(out, buildBookingPayload(entity))
	}
	return out
}
