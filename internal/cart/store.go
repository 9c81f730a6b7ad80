package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servana/storefront/internal/domain"
)

var errStoreTaxRateNegative = errors.New("cart store: tax rate must be non-negative")

// AddInput carries the catalog data required to construct a new cart item.
// The identity key is derived from Ref; presentation fields are opaque here.
type AddInput struct {
	Ref           domain.ServiceRef
	DisplayName   string
	Description   string
	ImageRef      string
	DurationLabel string
	Category      string
	ServiceKind   string
	UnitPrice     decimal.Decimal
}

// StoreDeps wires the configuration and hooks for the local cart store.
type StoreDeps struct {
	TaxRate decimal.Decimal
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

// Store holds the authoritative-for-the-session cart: the item list, its
// derived summary and the sync bookkeeping. All mutations are synchronous,
// recompute the summary from the item list, and stamp LastLocalChangeAt.
// Mutations never fail for normal input; malformed values are clamped.
type Store struct {
	mu      sync.Mutex
	items   []domain.CartItem
	summary domain.CartSummary
	sync    domain.SyncState
	taxRate decimal.Decimal
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewStore constructs a Store enforcing dependency validation.
func NewStore(deps StoreDeps) (*Store, error) {
	if deps.TaxRate.IsNegative() {
		return nil, errStoreTaxRateNegative
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	store := &Store{
		items:   []domain.CartItem{},
		taxRate: deps.TaxRate,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
	}
	store.summary = Summarize(store.items, store.taxRate)
	return store, nil
}

// AddItem merges the service into the cart: an existing item with the same
// normalised key gains quantity 1, otherwise a new item is created with
// quantity 1. Returns the item key and the post-mutation cart.
func (s *Store) AddItem(ctx context.Context, input AddInput) (string, domain.Cart) {
	key := domain.NormalizeKey(input.Ref)
	if !domain.HasStableKey(input.Ref) {
		s.logger(ctx, "identity.fallback_key", map[string]any{
			"key":  key,
			"name": input.DisplayName,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	price := input.UnitPrice
	if price.IsNegative() {
		price = decimal.Zero
	}

	if idx := s.indexOf(key); idx >= 0 {
		s.items[idx].Quantity++
		s.items[idx].Subtotal = lineSubtotal(s.items[idx].UnitPrice, s.items[idx].Quantity)
		s.items[idx].LastModifiedAt = now
	} else {
		item := domain.CartItem{
			ID:             key,
			ReferenceID:    firstNonEmpty(input.Ref.ServiceID, input.Ref.LegacyID, input.Ref.ID),
			DisplayName:    input.DisplayName,
			Description:    input.Description,
			ImageRef:       input.ImageRef,
			DurationLabel:  input.DurationLabel,
			Category:       input.Category,
			ServiceKind:    input.ServiceKind,
			UnitPrice:      price,
			Quantity:       1,
			Subtotal:       lineSubtotal(price, 1),
			AddedAt:        now,
			LastModifiedAt: now,
		}
		s.items = append(s.items, item)
	}

	s.recompute(now)
	return key, s.snapshotLocked()
}

// RemoveItem deletes the item if present; removing an absent key is a no-op.
func (s *Store) RemoveItem(key string) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(key); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	s.recompute(s.now())
	return s.snapshotLocked()
}

// SetQuantity clamps the requested quantity to >= 0; zero removes the item.
// Setting a quantity on an absent key is a no-op.
func (s *Store) SetQuantity(key string, quantity int) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 0 {
		quantity = 0
	}
	idx := s.indexOf(key)
	if idx < 0 {
		s.recompute(s.now())
		return s.snapshotLocked()
	}
	now := s.now()
	if quantity == 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	} else {
		s.items[idx].Quantity = quantity
		s.items[idx].Subtotal = lineSubtotal(s.items[idx].UnitPrice, quantity)
		s.items[idx].LastModifiedAt = now
	}
	s.recompute(now)
	return s.snapshotLocked()
}

// IncrementQuantity adjusts the item's quantity by exactly +1.
func (s *Store) IncrementQuantity(key string) domain.Cart {
	return s.adjustQuantity(key, 1)
}

// DecrementQuantity adjusts the item's quantity by exactly -1; reaching zero
// removes the item.
func (s *Store) DecrementQuantity(key string) domain.Cart {
	return s.adjustQuantity(key, -1)
}

func (s *Store) adjustQuantity(key string, delta int) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	idx := s.indexOf(key)
	if idx < 0 {
		s.recompute(now)
		return s.snapshotLocked()
	}
	target := s.items[idx].Quantity + delta
	if target <= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	} else {
		s.items[idx].Quantity = target
		s.items[idx].Subtotal = lineSubtotal(s.items[idx].UnitPrice, target)
		s.items[idx].LastModifiedAt = now
	}
	s.recompute(now)
	return s.snapshotLocked()
}

// Clear empties the item list; the summary resets to all-zero values.
func (s *Store) Clear() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []domain.CartItem{}
	s.recompute(s.now())
	return s.snapshotLocked()
}

// ReplaceItems swaps the whole item list for the authoritative remote copy,
// used when committing a reconciling re-fetch.
func (s *Store) ReplaceItems(items []domain.CartItem) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	dup := make([]domain.CartItem, len(items))
	copy(dup, items)
	s.items = dup
	s.recompute(s.now())
	return s.snapshotLocked()
}

// RestoreItem reinstates the captured pre-mutation state for a key: a nil
// previous item removes the key, otherwise the item is put back exactly as it
// was. Used by the sync compensation path.
func (s *Store) RestoreItem(key string, prev *domain.CartItem) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(key)
	switch {
	case prev == nil && idx >= 0:
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	case prev != nil && idx >= 0:
		s.items[idx] = *prev
	case prev != nil && idx < 0:
		s.items = append(s.items, *prev)
	}
	s.recompute(s.now())
	return s.snapshotLocked()
}

// Item returns a copy of the item for the key when present.
func (s *Store) Item(key string) (domain.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(key); idx >= 0 {
		return s.items[idx], true
	}
	return domain.CartItem{}, false
}

// Snapshot returns a copy of the current cart state.
func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SyncState returns the current sync bookkeeping.
func (s *Store) SyncState() domain.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync
}

// MarkSyncPending records that a sync attempt is scheduled or in flight.
func (s *Store) MarkSyncPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.PendingSync = true
}

// MarkSynced records a successfully acknowledged remote sync.
func (s *Store) MarkSynced(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.LastSyncedAt = at.UTC()
	s.sync.PendingSync = false
}

// MarkSyncFailed clears the pending flag without advancing LastSyncedAt.
func (s *Store) MarkSyncFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.PendingSync = false
}

func (s *Store) indexOf(key string) int {
	for i, item := range s.items {
		if item.ID == key {
			return i
		}
	}
	return -1
}

func (s *Store) recompute(now time.Time) {
	s.summary = Summarize(s.items, s.taxRate)
	s.sync.LastLocalChangeAt = now
}

func (s *Store) snapshotLocked() domain.Cart {
	items := make([]domain.CartItem, len(s.items))
	copy(items, s.items)
	return domain.Cart{Items: items, Summary: s.summary}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
