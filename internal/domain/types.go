package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem stores a single bookable service entry within the session cart.
// Exactly one item exists per normalised key; quantity is always >= 1 while
// the item exists, and Subtotal is derived from UnitPrice and Quantity on
// every mutation.
type CartItem struct {
	ID             string
	ReferenceID    string
	DisplayName    string
	Description    string
	ImageRef       string
	DurationLabel  string
	Category       string
	ServiceKind    string
	UnitPrice      decimal.Decimal
	Quantity       int
	Subtotal       decimal.Decimal
	AddedAt        time.Time
	LastModifiedAt time.Time
}

// CartSummary aggregates derived figures over the current item list. It is a
// pure function of the items and is never mutated independently of them.
type CartSummary struct {
	TotalServices int
	TotalItems    int
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
}

// Cart packages the item list with its derived summary for callers.
type Cart struct {
	Items   []CartItem
	Summary CartSummary
}

// SyncState tracks process-local bookkeeping about the cart's relation to the
// remote authoritative copy. It is never persisted remotely.
type SyncState struct {
	LastLocalChangeAt time.Time
	LastSyncedAt      time.Time
	PendingSync       bool
}

// BookingStatus enumerates valid lifecycle states for bookings. Transitions
// are decided server-side only; the engine never invents a status locally.
type BookingStatus string

const (
	// BookingStatusPending indicates the booking awaits confirmation.
	BookingStatusPending BookingStatus = "pending"
	// BookingStatusConfirmed indicates the provider accepted the booking.
	BookingStatusConfirmed BookingStatus = "confirmed"
	// BookingStatusInProgress indicates the service is being delivered.
	BookingStatusInProgress BookingStatus = "in_progress"
	// BookingStatusCompleted indicates the service was delivered.
	BookingStatusCompleted BookingStatus = "completed"
	// BookingStatusCancelled indicates the booking was cancelled.
	BookingStatusCancelled BookingStatus = "cancelled"
	// BookingStatusNoShow indicates the customer did not show up.
	BookingStatusNoShow BookingStatus = "no_show"
)

// PaymentStatus enumerates payment states attached to a booking.
type PaymentStatus string

const (
	// PaymentStatusPending indicates payment has not been collected yet.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates payment has been collected.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusCompleted indicates payment has been collected and settled.
	PaymentStatusCompleted PaymentStatus = "completed"
	// PaymentStatusFailed indicates the payment attempt failed.
	PaymentStatusFailed PaymentStatus = "failed"
)

// PaymentMethod enumerates how a booking is paid for.
type PaymentMethod string

const (
	// PaymentMethodOnline indicates payment through the online gateway.
	PaymentMethodOnline PaymentMethod = "online"
	// PaymentMethodCash indicates cash on delivery/at service time.
	PaymentMethodCash PaymentMethod = "cod"
)

// BookedService names one service line attached to a booking.
type BookedService struct {
	Name        string
	ReferenceID string
}

// Booking mirrors the remote entity. Bookings are created remotely only and
// cached here on fetch; status, schedule, payment and reschedule fields change
// locally only when a fulfilled remote mutation returns the updated entity.
type Booking struct {
	ID                 string
	Status             BookingStatus
	PaymentStatus      PaymentStatus
	PaymentMethod      PaymentMethod
	Services           []BookedService
	ScheduledDate      string
	ScheduledSlot      string
	TotalAmount        decimal.Decimal
	RescheduleCount    int
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BookingStats aggregates per-user booking figures returned by the remote.
type BookingStats struct {
	Total     int
	Upcoming  int
	Completed int
	Cancelled int
}

// AvailableSlot is a bookable time slot for a given date.
type AvailableSlot struct {
	Slot      string
	Available bool
}

// RefundInfo reports refund eligibility decided server-side on cancellation.
type RefundInfo struct {
	Eligible bool
	Amount   decimal.Decimal
}
