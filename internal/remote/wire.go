package remote

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servana/storefront/internal/domain"
)

// Wire shapes mirror the booking service contract. Prices travel as decimal
// strings; timestamps as RFC3339.

type wireCartItem struct {
	ServiceID     string          `json:"service_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Image         string          `json:"image,omitempty"`
	Duration      string          `json:"duration,omitempty"`
	Category      string          `json:"category,omitempty"`
	ServiceKind   string          `json:"service_kind,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	AddedAt       *time.Time      `json:"added_at,omitempty"`
	LastUpdatedAt *time.Time      `json:"last_updated_at,omitempty"`
}

type wireCart struct {
	Items []wireCartItem `json:"items"`
}

type saveCartRequest struct {
	Items []wireCartItem `json:"items"`
}

type updateQuantityRequest struct {
	ServiceID string `json:"service_id"`
	Quantity  int    `json:"quantity"`
}

type wireBookedService struct {
	Name        string `json:"name"`
	ReferenceID string `json:"reference_id"`
}

type wireBooking struct {
	ID                 string              `json:"id"`
	Status             string              `json:"status"`
	PaymentStatus      string              `json:"payment_status"`
	PaymentMethod      string              `json:"payment_method"`
	Services           []wireBookedService `json:"services"`
	ScheduledDate      string              `json:"scheduled_date"`
	ScheduledSlot      string              `json:"scheduled_slot"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	RescheduleCount    int                 `json:"reschedule_count"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type bookingListResponse struct {
	Bookings []wireBooking `json:"bookings"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
}

type bookingResponse struct {
	Booking wireBooking `json:"booking"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type cancelBookingResponse struct {
	Booking        wireBooking     `json:"booking"`
	RefundEligible bool            `json:"refund_eligible"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
}

type rescheduleBookingRequest struct {
	NewDate string `json:"new_date"`
	NewSlot string `json:"new_slot"`
	Reason  string `json:"reason,omitempty"`
}

type rescheduleBookingResponse struct {
	Booking              wireBooking `json:"booking"`
	RemainingReschedules int         `json:"remaining_reschedules"`
}

type completePaymentRequest struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id,omitempty"`
	ProviderRef   string `json:"provider_ref,omitempty"`
}

type wireStats struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type wireSlot struct {
	Slot      string `json:"slot"`
	Available bool   `json:"available"`
}

type slotsResponse struct {
	Slots []wireSlot `json:"slots"`
}

type errorEnvelope struct {
	Error          string `json:"error"`
	Code           string `json:"code"`
	Message        string `json:"message"`
	SupportContact string `json:"support_contact"`
}

func toWireItem(item domain.CartItem) wireCartItem {
	wire := wireCartItem{
		ServiceID:   domain.NormalizeKey(domain.ServiceRef{ServiceID: item.ID}),
		Name:        item.DisplayName,
		Description: item.Description,
		Image:       item.ImageRef,
		Duration:    item.DurationLabel,
		Category:    item.Category,
		ServiceKind: item.ServiceKind,
		UnitPrice:   item.UnitPrice,
		Quantity:    item.Quantity,
	}
	if !item.AddedAt.IsZero() {
		ts := item.AddedAt.UTC()
		wire.AddedAt = &ts
	}
	if !item.LastModifiedAt.IsZero() {
		ts := item.LastModifiedAt.UTC()
		wire.LastUpdatedAt = &ts
	}
	return wire
}

func toWireItems(items []domain.CartItem) []wireCartItem {
	out := make([]wireCartItem, 0, len(items))
	for _, item := range items {
		out = append(out, toWireItem(item))
	}
	return out
}

func fromWireItem(wire wireCartItem) domain.CartItem {
	key := domain.NormalizeKey(domain.ServiceRef{
		ServiceID: wire.ServiceID,
		Name:      wire.Name,
		Price:     wire.UnitPrice.String(),
		Category:  wire.Category,
	})
	item := domain.CartItem{
		ID:            key,
		ReferenceID:   strings.TrimSpace(wire.ServiceID),
		DisplayName:   wire.Name,
		Description:   wire.Description,
		ImageRef:      wire.Image,
		DurationLabel: wire.Duration,
		Category:      wire.Category,
		ServiceKind:   wire.ServiceKind,
		UnitPrice:     wire.UnitPrice,
		Quantity:      wire.Quantity,
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	if wire.AddedAt != nil {
		item.AddedAt = wire.AddedAt.UTC()
	}
	if wire.LastUpdatedAt != nil {
		item.LastModifiedAt = wire.LastUpdatedAt.UTC()
	}
	return item
}

func fromWireItems(wires []wireCartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(wires))
	for _, wire := range wires {
		out = append(out, fromWireItem(wire))
	}
	return out
}

func fromWireBooking(wire wireBooking) domain.Booking {
	services := make([]domain.BookedService, 0, len(wire.Services))
	for _, svc := range wire.Services {
		services = append(services, domain.BookedService{
			Name:        svc.Name,
			ReferenceID: svc.ReferenceID,
		})
	}
	return domain.Booking{
		ID:                 wire.ID,
		Status:             domain.BookingStatus(wire.Status),
		PaymentStatus:      domain.PaymentStatus(wire.PaymentStatus),
		PaymentMethod:      domain.PaymentMethod(wire.PaymentMethod),
		Services:           services,
		ScheduledDate:      wire.ScheduledDate,
		ScheduledSlot:      wire.ScheduledSlot,
		TotalAmount:        wire.TotalAmount,
		RescheduleCount:    wire.RescheduleCount,
		CancellationReason: wire.CancellationReason,
		CreatedAt:          wire.CreatedAt,
		UpdatedAt:          wire.UpdatedAt,
	}
}

func fromWireBookings(wires []wireBooking) []domain.Booking {
	out := make([]domain.Booking, 0, len(wires))
	for _, wire := range wires {
		out = append(out, fromWireBooking(wire))
	}
	return out
}
