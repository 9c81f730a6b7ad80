package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servana/storefront/internal/domain"
)

var testTaxRate = decimal.NewFromFloat(0.18)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	store, err := NewStore(StoreDeps{
		TaxRate: testTaxRate,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing store: %v", err)
	}
	return store
}

func addInput(serviceID string, price int64) AddInput {
	return AddInput{
		Ref:         domain.ServiceRef{ServiceID: serviceID},
		DisplayName: "Service " + serviceID,
		UnitPrice:   decimal.NewFromInt(price),
	}
}

func TestNewStoreRejectsNegativeTaxRate(t *testing.T) {
	_, err := NewStore(StoreDeps{TaxRate: decimal.NewFromFloat(-0.01)})
	if err == nil {
		t.Fatalf("expected error for negative tax rate")
	}
}

func TestAddItemScenario(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, cart := store.AddItem(ctx, addInput("svc-1", 1000))
	if key != "svc-1" {
		t.Fatalf("expected key svc-1, got %q", key)
	}
	if cart.Summary.TotalServices != 1 || cart.Summary.TotalItems != 1 {
		t.Fatalf("expected 1 service / 1 item, got %d / %d", cart.Summary.TotalServices, cart.Summary.TotalItems)
	}
	if !cart.Summary.Subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected subtotal 1000, got %s", cart.Summary.Subtotal)
	}
	if !cart.Summary.TaxAmount.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected tax 180, got %s", cart.Summary.TaxAmount)
	}
	if !cart.Summary.Total.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("expected total 1180, got %s", cart.Summary.Total)
	}

	cart = store.IncrementQuantity("svc-1")
	if !cart.Summary.Subtotal.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected subtotal 2000, got %s", cart.Summary.Subtotal)
	}
	if !cart.Summary.TaxAmount.Equal(decimal.NewFromInt(360)) {
		t.Fatalf("expected tax 360, got %s", cart.Summary.TaxAmount)
	}
	if !cart.Summary.Total.Equal(decimal.NewFromInt(2360)) {
		t.Fatalf("expected total 2360, got %s", cart.Summary.Total)
	}
}

func TestAddItemSameKeyMerges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 500))
	_, cart := store.AddItem(ctx, addInput("svc-1", 500))

	if len(cart.Items) != 1 {
		t.Fatalf("expected exactly one item, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", cart.Items[0].Quantity)
	}
	if !cart.Items[0].Subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected item subtotal 1000, got %s", cart.Items[0].Subtotal)
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 500))
	cart := store.SetQuantity("svc-1", 0)

	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}
	if cart.Summary.TotalItems != 0 || !cart.Summary.Total.IsZero() {
		t.Fatalf("expected zero summary, got %+v", cart.Summary)
	}
}

func TestSetQuantityClampsNegative(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 500))
	cart := store.SetQuantity("svc-1", -4)
	if len(cart.Items) != 0 {
		t.Fatalf("expected negative quantity to clamp to removal, got %d items", len(cart.Items))
	}
}

func TestSetQuantityIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 250))
	first := store.SetQuantity("svc-1", 3)
	second := store.SetQuantity("svc-1", 3)

	if !first.Summary.Total.Equal(second.Summary.Total) {
		t.Fatalf("expected identical totals, got %s and %s", first.Summary.Total, second.Summary.Total)
	}
	if first.Items[0].Quantity != second.Items[0].Quantity {
		t.Fatalf("expected identical quantities")
	}
}

func TestDecrementToZeroRemoves(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 500))
	cart := store.DecrementQuantity("svc-1")
	if len(cart.Items) != 0 {
		t.Fatalf("expected item removed at quantity zero, got %d items", len(cart.Items))
	}
}

func TestRemoveAbsentKeyIsNoop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 500))
	cart := store.RemoveItem("missing")
	if len(cart.Items) != 1 {
		t.Fatalf("expected untouched cart, got %d items", len(cart.Items))
	}
}

func TestClearResetsSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 500))
	store.AddItem(ctx, addInput("svc-2", 300))
	cart := store.Clear()

	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart")
	}
	if cart.Summary.TotalServices != 0 || cart.Summary.TotalItems != 0 {
		t.Fatalf("expected zero counts, got %+v", cart.Summary)
	}
	if !cart.Summary.Subtotal.IsZero() || !cart.Summary.TaxAmount.IsZero() || !cart.Summary.Total.IsZero() {
		t.Fatalf("expected zero amounts, got %+v", cart.Summary)
	}
}

func TestRestoreItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 500))
	prev, ok := store.Item("svc-1")
	if !ok {
		t.Fatalf("expected item present")
	}

	store.IncrementQuantity("svc-1")
	cart := store.RestoreItem("svc-1", &prev)
	if cart.Items[0].Quantity != 1 {
		t.Fatalf("expected restored quantity 1, got %d", cart.Items[0].Quantity)
	}

	cart = store.RestoreItem("svc-1", nil)
	if len(cart.Items) != 0 {
		t.Fatalf("expected nil restore to remove item")
	}
}

func TestSummaryInvariantsOverMixedSequence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 199))
	store.AddItem(ctx, addInput("svc-2", 350))
	store.AddItem(ctx, addInput("svc-2", 350))
	store.SetQuantity("svc-1", 5)
	store.RemoveItem("svc-3")
	store.DecrementQuantity("svc-2")
	cart := store.Snapshot()

	var wantSubtotal decimal.Decimal
	var wantItems int
	for _, item := range cart.Items {
		wantSubtotal = wantSubtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		wantItems += item.Quantity
	}
	if !cart.Summary.Subtotal.Equal(wantSubtotal) {
		t.Fatalf("subtotal drifted: summary %s, items %s", cart.Summary.Subtotal, wantSubtotal)
	}
	if cart.Summary.TotalItems != wantItems {
		t.Fatalf("item count drifted: summary %d, items %d", cart.Summary.TotalItems, wantItems)
	}
	if !cart.Summary.Total.Equal(cart.Summary.Subtotal.Add(cart.Summary.TaxAmount)) {
		t.Fatalf("total != subtotal + tax: %+v", cart.Summary)
	}
}

func TestMutationStampsSyncState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddItem(ctx, addInput("svc-1", 100))
	state := store.SyncState()
	if state.LastLocalChangeAt.IsZero() {
		t.Fatalf("expected LastLocalChangeAt set")
	}

	store.MarkSyncPending()
	if !store.SyncState().PendingSync {
		t.Fatalf("expected pending sync")
	}
	syncedAt := time.Date(2025, 3, 14, 10, 5, 0, 0, time.UTC)
	store.MarkSynced(syncedAt)
	state = store.SyncState()
	if state.PendingSync {
		t.Fatalf("expected pending cleared")
	}
	if !state.LastSyncedAt.Equal(syncedAt) {
		t.Fatalf("expected LastSyncedAt %v, got %v", syncedAt, state.LastSyncedAt)
	}
}
