package booking

import (
	"context"
	"errors"

	"github.com/servana/storefront/internal/domain"
	"github.com/servana/storefront/internal/remote"
	"github.com/servana/storefront/internal/session"
)

var (
	errServiceBackendRequired = errors.New("booking service: backend is required")
	errServiceStoreRequired   = errors.New("booking service: store is required")

	// ErrAuthenticationRequired is returned when a booking operation is
	// attempted without an authenticated session.
	ErrAuthenticationRequired = errors.New("booking service: authentication required")
)

// Backend is the remote surface for booking reads and mutations.
type Backend interface {
	ListBookings(ctx context.Context, sess session.Session, filter remote.BookingListFilter) (remote.BookingPage, error)
	GetBooking(ctx context.Context, sess session.Session, bookingID string) (domain.Booking, error)
	CancelBooking(ctx context.Context, sess session.Session, bookingID, reason string) (domain.Booking, domain.RefundInfo, error)
	RescheduleBooking(ctx context.Context, sess session.Session, bookingID, newDate, newSlot, reason string) (domain.Booking, int, error)
	CompletePayment(ctx context.Context, sess session.Session, bookingID string, method domain.PaymentMethod, transactionID, providerRef string) (domain.Booking, error)
	FetchStats(ctx context.Context, sess session.Session) (domain.BookingStats, error)
	FetchUpcoming(ctx context.Context, sess session.Session) ([]domain.Booking, error)
	FetchAvailableSlots(ctx context.Context, sess session.Session, date string) ([]domain.AvailableSlot, error)
}

// ServiceDeps wires the booking service's collaborators.
type ServiceDeps struct {
	Backend Backend
	Store   *Store
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

// Service drives booking reads and mutations. Mutations are never applied
// optimistically: a booking's transition is gated by server-side business
// rules the engine cannot evaluate, so the cache changes only when the remote
// confirms and returns the updated entity.
type Service struct {
	backend Backend
	store   *Store
	logger  func(context.Context, string, map[string]any)
}

// NewService constructs a Service enforcing dependency validation.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Backend == nil {
		return nil, errServiceBackendRequired
	}
	if deps.Store == nil {
		return nil, errServiceStoreRequired
	}
	if deps.Logger == nil {
		deps.Logger = func(context.Context, string, map[string]any) {}
	}
	return &Service{backend: deps.Backend, store: deps.Store, logger: deps.Logger}, nil
}

// Store exposes the cache for read access by callers.
func (s *Service) Store() *Store { return s.store }

// List fetches a booking page and refreshes the cached list.
func (s *Service) List(ctx context.Context, sess session.Session, filter remote.BookingListFilter) (remote.BookingPage, error) {
	if !sess.Authenticated() {
		return remote.BookingPage{}, ErrAuthenticationRequired
	}
	page, err := s.backend.ListBookings(ctx, sess, filter)
	if err != nil {
		return remote.BookingPage{}, err
	}
	s.store.SetList(page.Bookings)
	return page, nil
}

// Get fetches one booking and caches its detail entity.
func (s *Service) Get(ctx context.Context, sess session.Session, bookingID string) (domain.Booking, error) {
	if !sess.Authenticated() {
		return domain.Booking{}, ErrAuthenticationRequired
	}
	booking, err := s.backend.GetBooking(ctx, sess, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	s.store.SetDetail(booking)
	return booking, nil
}

// Cancel requests cancellation of a booking. On fulfilment the returned
// entity replaces the cached copy; on rejection the cache keeps the previous
// entity and the structured rejection is stored for display.
func (s *Service) Cancel(ctx context.Context, sess session.Session, bookingID, reason string) (domain.Booking, domain.RefundInfo, error) {
	if !sess.Authenticated() {
		return domain.Booking{}, domain.RefundInfo{}, ErrAuthenticationRequired
	}

	s.store.BeginMutation(bookingID, MutationCancel)
	booking, refund, err := s.backend.CancelBooking(ctx, sess, bookingID, reason)
	if err != nil {
		s.reject(ctx, bookingID, MutationCancel, err)
		return domain.Booking{}, domain.RefundInfo{}, err
	}

	s.store.FulfillMutation(MutationCancel, booking)
	s.logger(ctx, "booking.cancelled", map[string]any{
		"booking_id":      bookingID,
		"refund_eligible": refund.Eligible,
	})
	return booking, refund, nil
}

// Reschedule moves a booking to a new date and slot.
func (s *Service) Reschedule(ctx context.Context, sess session.Session, bookingID, newDate, newSlot, reason string) (domain.Booking, int, error) {
	if !sess.Authenticated() {
		return domain.Booking{}, 0, ErrAuthenticationRequired
	}

	s.store.BeginMutation(bookingID, MutationReschedule)
	booking, remaining, err := s.backend.RescheduleBooking(ctx, sess, bookingID, newDate, newSlot, reason)
	if err != nil {
		s.reject(ctx, bookingID, MutationReschedule, err)
		return domain.Booking{}, 0, err
	}

	s.store.FulfillMutation(MutationReschedule, booking)
	s.logger(ctx, "booking.rescheduled", map[string]any{
		"booking_id":            bookingID,
		"new_date":              newDate,
		"remaining_reschedules": remaining,
	})
	return booking, remaining, nil
}

// CompletePayment finalises payment for a booking.
func (s *Service) CompletePayment(ctx context.Context, sess session.Session, bookingID string, method domain.PaymentMethod, transactionID, providerRef string) (domain.Booking, error) {
	if !sess.Authenticated() {
		return domain.Booking{}, ErrAuthenticationRequired
	}

	s.store.BeginMutation(bookingID, MutationPayment)
	booking, err := s.backend.CompletePayment(ctx, sess, bookingID, method, transactionID, providerRef)
	if err != nil {
		s.reject(ctx, bookingID, MutationPayment, err)
		return domain.Booking{}, err
	}

	s.store.FulfillMutation(MutationPayment, booking)
	s.logger(ctx, "booking.payment_completed", map[string]any{
		"booking_id": bookingID,
		"method":     string(method),
	})
	return booking, nil
}

// Stats fetches and caches the aggregate booking figures.
func (s *Service) Stats(ctx context.Context, sess session.Session) (domain.BookingStats, error) {
	if !sess.Authenticated() {
		return domain.BookingStats{}, ErrAuthenticationRequired
	}
	stats, err := s.backend.FetchStats(ctx, sess)
	if err != nil {
		return domain.BookingStats{}, err
	}
	s.store.SetStats(stats)
	return stats, nil
}

// Upcoming fetches the user's upcoming bookings.
func (s *Service) Upcoming(ctx context.Context, sess session.Session) ([]domain.Booking, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthenticationRequired
	}
	return s.backend.FetchUpcoming(ctx, sess)
}

// AvailableSlots fetches bookable slots for a date.
func (s *Service) AvailableSlots(ctx context.Context, sess session.Session, date string) ([]domain.AvailableSlot, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthenticationRequired
	}
	return s.backend.FetchAvailableSlots(ctx, sess, date)
}

func (s *Service) reject(ctx context.Context, bookingID string, kind MutationKind, cause error) {
	rejection := MutationError{Message: cause.Error()}
	if remoteErr, ok := remote.AsError(cause); ok {
		rejection = MutationError{
			Code:           remoteErr.Code,
			Message:        remoteErr.Message,
			SupportContact: remoteErr.SupportContact,
		}
	}
	s.store.RejectMutation(bookingID, kind, rejection)
	s.logger(ctx, "booking.mutation_rejected", map[string]any{
		"booking_id": bookingID,
		"kind":       string(kind),
		"code":       rejection.Code,
	})
}
