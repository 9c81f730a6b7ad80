package booking

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servana/storefront/internal/domain"
	"github.com/servana/storefront/internal/remote"
	"github.com/servana/storefront/internal/session"
)

type stubBackend struct {
	listPage  remote.BookingPage
	listErr   error
	getResult domain.Booking
	getErr    error

	cancelResult domain.Booking
	cancelRefund domain.RefundInfo
	cancelErr    error

	rescheduleResult    domain.Booking
	rescheduleRemaining int
	rescheduleErr       error

	paymentResult domain.Booking
	paymentErr    error

	stats    domain.BookingStats
	upcoming []domain.Booking
	slots    []domain.AvailableSlot
}

func (b *stubBackend) ListBookings(context.Context, session.Session, remote.BookingListFilter) (remote.BookingPage, error) {
	return b.listPage, b.listErr
}

func (b *stubBackend) GetBooking(context.Context, session.Session, string) (domain.Booking, error) {
	return b.getResult, b.getErr
}

func (b *stubBackend) CancelBooking(context.Context, session.Session, string, string) (domain.Booking, domain.RefundInfo, error) {
	return b.cancelResult, b.cancelRefund, b.cancelErr
}

func (b *stubBackend) RescheduleBooking(context.Context, session.Session, string, string, string, string) (domain.Booking, int, error) {
	return b.rescheduleResult, b.rescheduleRemaining, b.rescheduleErr
}

func (b *stubBackend) CompletePayment(context.Context, session.Session, string, domain.PaymentMethod, string, string) (domain.Booking, error) {
	return b.paymentResult, b.paymentErr
}

func (b *stubBackend) FetchStats(context.Context, session.Session) (domain.BookingStats, error) {
	return b.stats, nil
}

func (b *stubBackend) FetchUpcoming(context.Context, session.Session) ([]domain.Booking, error) {
	return b.upcoming, nil
}

func (b *stubBackend) FetchAvailableSlots(context.Context, session.Session, string) ([]domain.AvailableSlot, error) {
	return b.slots, nil
}

func newTestService(t *testing.T, backend *stubBackend) (*Service, *Store) {
	t.Helper()
	store := NewStore()
	service, err := NewService(ServiceDeps{Backend: backend, Store: store})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service, store
}

func authSession() session.Session {
	return session.ForUser("user-1", "token-abc")
}

func confirmedBooking(id string) domain.Booking {
	return domain.Booking{
		ID:            id,
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPending,
		ScheduledDate: "2025-06-10",
		ScheduledSlot: "10:00",
		TotalAmount:   decimal.NewFromInt(1180),
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUnauthenticatedOperationsAreRefused(t *testing.T) {
	service, _ := newTestService(t, &stubBackend{})
	anon := session.Anonymous()

	if _, err := service.List(context.Background(), anon, remote.BookingListFilter{}); err != ErrAuthenticationRequired {
		t.Fatalf("List: expected ErrAuthenticationRequired, got %v", err)
	}
	if _, _, err := service.Cancel(context.Background(), anon, "bk-1", ""); err != ErrAuthenticationRequired {
		t.Fatalf("Cancel: expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestMutationStartsIdle(t *testing.T) {
	_, store := newTestService(t, &stubBackend{})
	if state := store.Mutation("bk-1", MutationCancel); state.Phase != PhaseIdle || state.Err != nil {
		t.Fatalf("expected idle state, got %+v", state)
	}
}

func TestFulfilledCancelCommitsServerEntity(t *testing.T) {
	original := confirmedBooking("bk-1")
	cancelled := original
	cancelled.Status = domain.BookingStatusCancelled
	cancelled.CancellationReason = "changed plans"

	backend := &stubBackend{
		cancelResult: cancelled,
		cancelRefund: domain.RefundInfo{Eligible: true, Amount: decimal.NewFromInt(1180)},
	}
	service, store := newTestService(t, backend)
	store.SetList([]domain.Booking{original})
	store.SetDetail(original)

	booking, refund, err := service.Cancel(context.Background(), authSession(), "bk-1", "changed plans")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if booking.Status != domain.BookingStatusCancelled {
		t.Fatalf("expected cancelled entity returned, got %q", booking.Status)
	}
	if !refund.Eligible {
		t.Fatal("expected refund eligibility carried through")
	}

	if state := store.Mutation("bk-1", MutationCancel); state.Phase != PhaseFulfilled {
		t.Fatalf("expected fulfilled phase, got %+v", state)
	}
	if list := store.List(); list[0].Status != domain.BookingStatusCancelled {
		t.Fatalf("expected list entry replaced, got %q", list[0].Status)
	}
	detail, _ := store.Detail("bk-1")
	if detail.CancellationReason != "changed plans" {
		t.Fatalf("expected detail replaced, got %+v", detail)
	}
}

func TestRejectedCancelKeepsEntityAndStoresError(t *testing.T) {
	original := confirmedBooking("bk-1")
	backend := &stubBackend{
		cancelErr: &remote.Error{
			Kind:           remote.KindBusinessRule,
			Code:           "cancellation_window_closed",
			Message:        "cancellation window has closed",
			HTTPStatus:     http.StatusConflict,
			SupportContact: "support@servana.example",
		},
	}
	service, store := newTestService(t, backend)
	store.SetList([]domain.Booking{original})
	store.SetDetail(original)

	_, _, err := service.Cancel(context.Background(), authSession(), "bk-1", "")
	if !remote.IsBusinessRule(err) {
		t.Fatalf("expected business rule error, got %v", err)
	}

	state := store.Mutation("bk-1", MutationCancel)
	if state.Phase != PhaseRejected || state.Err == nil {
		t.Fatalf("expected rejected phase with error, got %+v", state)
	}
	if state.Err.Code != "cancellation_window_closed" || state.Err.SupportContact != "support@servana.example" {
		t.Fatalf("unexpected rejection %+v", state.Err)
	}

	if list := store.List(); list[0].Status != domain.BookingStatusConfirmed {
		t.Fatalf("expected list entry untouched, got %q", list[0].Status)
	}
	detail, _ := store.Detail("bk-1")
	if detail.Status != domain.BookingStatusConfirmed {
		t.Fatalf("expected detail untouched, got %q", detail.Status)
	}
}

func TestRetryAfterRejectionClearsPreviousError(t *testing.T) {
	backend := &stubBackend{
		cancelErr: &remote.Error{Kind: remote.KindBusinessRule, Code: "too_late", Message: "too late"},
	}
	service, store := newTestService(t, backend)
	store.SetList([]domain.Booking{confirmedBooking("bk-1")})

	if _, _, err := service.Cancel(context.Background(), authSession(), "bk-1", ""); err == nil {
		t.Fatal("expected first cancel to fail")
	}

	cancelled := confirmedBooking("bk-1")
	cancelled.Status = domain.BookingStatusCancelled
	backend.cancelErr = nil
	backend.cancelResult = cancelled

	if _, _, err := service.Cancel(context.Background(), authSession(), "bk-1", ""); err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if state := store.Mutation("bk-1", MutationCancel); state.Phase != PhaseFulfilled || state.Err != nil {
		t.Fatalf("expected fulfilled with cleared error, got %+v", state)
	}
}

func TestRescheduleFulfilmentUpdatesScheduleFields(t *testing.T) {
	original := confirmedBooking("bk-2")
	moved := original
	moved.ScheduledDate = "2025-06-15"
	moved.ScheduledSlot = "14:00"
	moved.RescheduleCount = 1

	backend := &stubBackend{rescheduleResult: moved, rescheduleRemaining: 1}
	service, store := newTestService(t, backend)
	store.SetList([]domain.Booking{original})

	booking, remaining, err := service.Reschedule(context.Background(), authSession(), "bk-2", "2025-06-15", "14:00", "conflict")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if booking.RescheduleCount != 1 || remaining != 1 {
		t.Fatalf("unexpected result %+v remaining=%d", booking, remaining)
	}
	if list := store.List(); list[0].ScheduledDate != "2025-06-15" {
		t.Fatalf("expected list entry moved, got %q", list[0].ScheduledDate)
	}
}

func TestMutationKindsTrackIndependently(t *testing.T) {
	paid := confirmedBooking("bk-3")
	paid.PaymentStatus = domain.PaymentStatusPaid

	backend := &stubBackend{
		paymentResult: paid,
		cancelErr:     &remote.Error{Kind: remote.KindBusinessRule, Code: "too_late", Message: "too late"},
	}
	service, store := newTestService(t, backend)
	store.SetList([]domain.Booking{confirmedBooking("bk-3")})

	if _, _, err := service.Cancel(context.Background(), authSession(), "bk-3", ""); err == nil {
		t.Fatal("expected cancel to fail")
	}
	if _, err := service.CompletePayment(context.Background(), authSession(), "bk-3", domain.PaymentMethodOnline, "txn-1", ""); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}

	if state := store.Mutation("bk-3", MutationCancel); state.Phase != PhaseRejected {
		t.Fatalf("expected cancel rejected, got %+v", state)
	}
	if state := store.Mutation("bk-3", MutationPayment); state.Phase != PhaseFulfilled {
		t.Fatalf("expected payment fulfilled, got %+v", state)
	}
	if list := store.List(); list[0].PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected payment status from server entity, got %q", list[0].PaymentStatus)
	}
}

func TestListRefreshesCache(t *testing.T) {
	backend := &stubBackend{
		listPage: remote.BookingPage{
			Bookings: []domain.Booking{confirmedBooking("bk-1"), confirmedBooking("bk-2")},
			Page:     1, PageSize: 10, Total: 2,
		},
	}
	service, store := newTestService(t, backend)

	page, err := service.List(context.Background(), authSession(), remote.BookingListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if cached := store.List(); len(cached) != 2 {
		t.Fatalf("expected 2 cached bookings, got %d", len(cached))
	}
}
