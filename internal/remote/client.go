// Package remote implements the stateless request/response client for the
// booking service. Functions translate local entities to wire shapes, perform
// the HTTP call, and surface typed failures; they never touch local state.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/servana/storefront/internal/domain"
	"github.com/servana/storefront/internal/session"
)

const (
	defaultTimeout   = 10 * time.Second
	maxErrorBodySize = 32 * 1024
)

var errClientBaseURLRequired = errors.New("remote client: base url is required")

// ClientDeps wires the transport and hooks for the remote client.
type ClientDeps struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// Client issues authenticated requests against the booking service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  func(context.Context, string, map[string]any)
}

// NewClient constructs a Client enforcing dependency validation.
func NewClient(deps ClientDeps) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/")
	if base == "" {
		return nil, errClientBaseURLRequired
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("remote client: invalid base url: %w", err)
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		timeout := deps.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &Client{baseURL: base, http: httpClient, logger: logger}, nil
}

// FetchCart pulls the full authoritative cart. Only the item list is
// returned; the caller recomputes the summary rather than trusting a
// persisted aggregate.
func (c *Client) FetchCart(ctx context.Context, sess session.Session) ([]domain.CartItem, error) {
	var resp wireCart
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/cart", nil, &resp); err != nil {
		return nil, err
	}
	return fromWireItems(resp.Items), nil
}

// SaveCart replaces the remote cart with the full local item list.
func (c *Client) SaveCart(ctx context.Context, sess session.Session, items []domain.CartItem) error {
	return c.do(ctx, sess, http.MethodPut, "/api/v1/cart", saveCartRequest{Items: toWireItems(items)}, nil)
}

// AddItem pushes a single new item.
func (c *Client) AddItem(ctx context.Context, sess session.Session, item domain.CartItem) error {
	return c.do(ctx, sess, http.MethodPost, "/api/v1/cart/items", toWireItem(item), nil)
}

// UpdateItemQuantity sets the absolute target quantity for one item. The
// payload always carries the freshly computed quantity, never a delta, so
// out-of-order acknowledgements cannot compound.
func (c *Client) UpdateItemQuantity(ctx context.Context, sess session.Session, key string, quantity int) error {
	body := updateQuantityRequest{ServiceID: key, Quantity: quantity}
	return c.do(ctx, sess, http.MethodPatch, "/api/v1/cart/items/"+url.PathEscape(key), body, nil)
}

// RemoveItem deletes a single item remotely.
func (c *Client) RemoveItem(ctx context.Context, sess session.Session, key string) error {
	return c.do(ctx, sess, http.MethodDelete, "/api/v1/cart/items/"+url.PathEscape(key), nil, nil)
}

// ClearCart empties the remote cart.
func (c *Client) ClearCart(ctx context.Context, sess session.Session) error {
	return c.do(ctx, sess, http.MethodDelete, "/api/v1/cart", nil, nil)
}

// BookingListFilter narrows booking list queries.
type BookingListFilter struct {
	Status   string
	FromDate string
	ToDate   string
	Page     int
	PageSize int
}

// BookingPage packages a booking list result with its pagination figures.
type BookingPage struct {
	Bookings []domain.Booking
	Page     int
	PageSize int
	Total    int
}

// ListBookings fetches the user's bookings with optional filters.
func (c *Client) ListBookings(ctx context.Context, sess session.Session, filter BookingListFilter) (BookingPage, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.FromDate != "" {
		query.Set("from", filter.FromDate)
	}
	if filter.ToDate != "" {
		query.Set("to", filter.ToDate)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(filter.PageSize))
	}

	path := "/api/v1/bookings"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp bookingListResponse
	if err := c.do(ctx, sess, http.MethodGet, path, nil, &resp); err != nil {
		return BookingPage{}, err
	}
	return BookingPage{
		Bookings: fromWireBookings(resp.Bookings),
		Page:     resp.Page,
		PageSize: resp.PageSize,
		Total:    resp.Total,
	}, nil
}

// GetBooking fetches one booking by id.
func (c *Client) GetBooking(ctx context.Context, sess session.Session, bookingID string) (domain.Booking, error) {
	var resp bookingResponse
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/bookings/"+url.PathEscape(bookingID), nil, &resp); err != nil {
		return domain.Booking{}, err
	}
	return fromWireBooking(resp.Booking), nil
}

// CancelBooking requests cancellation; refund eligibility is decided
// server-side and returned alongside the updated entity.
func (c *Client) CancelBooking(ctx context.Context, sess session.Session, bookingID string, reason string) (domain.Booking, domain.RefundInfo, error) {
	var resp cancelBookingResponse
	body := cancelBookingRequest{Reason: reason}
	if err := c.do(ctx, sess, http.MethodPost, "/api/v1/bookings/"+url.PathEscape(bookingID)+"/cancel", body, &resp); err != nil {
		return domain.Booking{}, domain.RefundInfo{}, err
	}
	refund := domain.RefundInfo{Eligible: resp.RefundEligible, Amount: resp.RefundAmount}
	return fromWireBooking(resp.Booking), refund, nil
}

// RescheduleBooking moves a booking to a new date/slot; the remaining
// reschedule quota is returned alongside the updated entity.
func (c *Client) RescheduleBooking(ctx context.Context, sess session.Session, bookingID string, newDate, newSlot, reason string) (domain.Booking, int, error) {
	var resp rescheduleBookingResponse
	body := rescheduleBookingRequest{NewDate: newDate, NewSlot: newSlot, Reason: reason}
	if err := c.do(ctx, sess, http.MethodPost, "/api/v1/bookings/"+url.PathEscape(bookingID)+"/reschedule", body, &resp); err != nil {
		return domain.Booking{}, 0, err
	}
	return fromWireBooking(resp.Booking), resp.RemainingReschedules, nil
}

// CompletePayment finalises payment for a booking.
func (c *Client) CompletePayment(ctx context.Context, sess session.Session, bookingID string, method domain.PaymentMethod, transactionID, providerRef string) (domain.Booking, error) {
	var resp bookingResponse
	body := completePaymentRequest{Method: string(method), TransactionID: transactionID, ProviderRef: providerRef}
	if err := c.do(ctx, sess, http.MethodPost, "/api/v1/bookings/"+url.PathEscape(bookingID)+"/payment", body, &resp); err != nil {
		return domain.Booking{}, err
	}
	return fromWireBooking(resp.Booking), nil
}

// FetchStats pulls aggregate booking figures.
func (c *Client) FetchStats(ctx context.Context, sess session.Session) (domain.BookingStats, error) {
	var resp wireStats
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/bookings/stats", nil, &resp); err != nil {
		return domain.BookingStats{}, err
	}
	return domain.BookingStats{
		Total:     resp.Total,
		Upcoming:  resp.Upcoming,
		Completed: resp.Completed,
		Cancelled: resp.Cancelled,
	}, nil
}

// FetchUpcoming pulls the user's upcoming bookings.
func (c *Client) FetchUpcoming(ctx context.Context, sess session.Session) ([]domain.Booking, error) {
	var resp bookingListResponse
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/bookings/upcoming", nil, &resp); err != nil {
		return nil, err
	}
	return fromWireBookings(resp.Bookings), nil
}

// FetchAvailableSlots pulls bookable slots for a date.
func (c *Client) FetchAvailableSlots(ctx context.Context, sess session.Session, date string) ([]domain.AvailableSlot, error) {
	query := url.Values{}
	query.Set("date", date)
	var resp slotsResponse
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/slots?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	slots := make([]domain.AvailableSlot, 0, len(resp.Slots))
	for _, slot := range resp.Slots {
		slots = append(slots, domain.AvailableSlot{Slot: slot.Slot, Available: slot.Available})
	}
	return slots, nil
}

func (c *Client) do(ctx context.Context, sess session.Session, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote client: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(sess.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger(ctx, "remote.transport_failure", map[string]any{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return transportError(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return transportError(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	return c.decodeFailure(ctx, method, path, resp)
}

func (c *Client) decodeFailure(ctx context.Context, method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	var envelope errorEnvelope
	_ = json.Unmarshal(raw, &envelope)

	message := strings.TrimSpace(envelope.Message)
	if message == "" {
		message = strings.TrimSpace(envelope.Error)
	}
	if message == "" {
		message = genericFailureMessage
	}
	code := strings.TrimSpace(envelope.Code)
	if code == "" {
		code = strings.TrimSpace(envelope.Error)
	}

	kind := KindTransport
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = KindAuthentication
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = KindBusinessRule
	}

	c.logger(ctx, "remote.request_rejected", map[string]any{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
		"kind":   string(kind),
		"code":   code,
	})

	return &Error{
		Kind:           kind,
		Code:           code,
		Message:        message,
		HTTPStatus:     resp.StatusCode,
		SupportContact: strings.TrimSpace(envelope.SupportContact),
	}
}
