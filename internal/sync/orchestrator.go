// Package sync coordinates the local cart store with the remote booking
// service. Mutations apply locally first so the caller never waits on the
// network; the orchestrator then reconciles remotely, rolling the local state
// back when the remote rejects a change.
package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/servana/storefront/internal/cart"
	"github.com/servana/storefront/internal/debounce"
	"github.com/servana/storefront/internal/domain"
	"github.com/servana/storefront/internal/platform/metrics"
	"github.com/servana/storefront/internal/remote"
	"github.com/servana/storefront/internal/session"
)

// DefaultSaveDelay is the debounce window for batched cart uploads.
const DefaultSaveDelay = 2 * time.Second

var (
	errOrchestratorStoreRequired     = errors.New("sync orchestrator: cart store is required")
	errOrchestratorBackendRequired   = errors.New("sync orchestrator: cart backend is required")
	errOrchestratorSchedulerRequired = errors.New("sync orchestrator: scheduler is required")
)

// CartBackend is the remote surface the orchestrator reconciles against.
type CartBackend interface {
	FetchCart(ctx context.Context, sess session.Session) ([]domain.CartItem, error)
	SaveCart(ctx context.Context, sess session.Session, items []domain.CartItem) error
	AddItem(ctx context.Context, sess session.Session, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, sess session.Session, key string, quantity int) error
	RemoveItem(ctx context.Context, sess session.Session, key string) error
	ClearCart(ctx context.Context, sess session.Session) error
}

// OrchestratorDeps wires the orchestrator's collaborators.
type OrchestratorDeps struct {
	Store     *cart.Store
	Backend   CartBackend
	Scheduler *debounce.Scheduler
	SaveDelay time.Duration
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
	Metrics   *metrics.Set
}

// Orchestrator applies cart mutations optimistically and keeps the remote
// copy converging. All exported methods are safe for concurrent use.
type Orchestrator struct {
	store     *cart.Store
	backend   CartBackend
	scheduler *debounce.Scheduler
	saveDelay time.Duration
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
	metrics   *metrics.Set

	mu     stdsync.Mutex
	sess   session.Session
	closed bool
}

// NewOrchestrator constructs an Orchestrator enforcing dependency validation.
// The session starts anonymous; callers arm remote sync via SetSession.
func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, errOrchestratorStoreRequired
	}
	if deps.Backend == nil {
		return nil, errOrchestratorBackendRequired
	}
	if deps.Scheduler == nil {
		return nil, errOrchestratorSchedulerRequired
	}
	if deps.SaveDelay <= 0 {
		deps.SaveDelay = DefaultSaveDelay
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = func(context.Context, string, map[string]any) {}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	return &Orchestrator{
		store:     deps.Store,
		backend:   deps.Backend,
		scheduler: deps.Scheduler,
		saveDelay: deps.SaveDelay,
		now:       deps.Clock,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		sess:      session.Anonymous(),
	}, nil
}

// Session returns the current session.
func (o *Orchestrator) Session() session.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess
}

// SetSession swaps the active session. On the transition from anonymous to
// authenticated, locally accumulated items are pushed upstream before the
// authoritative cart is fetched back; only then do remote calls start flowing
// for subsequent mutations. Dropping back to anonymous cancels any pending
// upload.
func (o *Orchestrator) SetSession(ctx context.Context, sess session.Session) {
	o.mu.Lock()
	previous := o.sess
	o.sess = sess
	o.mu.Unlock()

	if previous.Authenticated() && !sess.Authenticated() {
		o.scheduler.Cancel(previous.ChannelKey())
		return
	}
	if previous.Authenticated() || !sess.Authenticated() {
		return
	}

	snapshot := o.store.Snapshot()
	if len(snapshot.Items) > 0 {
		if err := o.backend.SaveCart(ctx, sess, snapshot.Items); err != nil {
			o.store.MarkSyncFailed()
			o.logger(ctx, "cart_sync.rearm_upload_failed", map[string]any{"error": err.Error()})
			if remote.IsAuthentication(err) {
				o.dropSession(ctx, sess)
			}
			return
		}
	}
	if _, err := o.Refresh(ctx); err != nil {
		o.logger(ctx, "cart_sync.rearm_refresh_failed", map[string]any{"error": err.Error()})
		return
	}
	o.logger(ctx, "cart_sync.rearmed", map[string]any{
		"uploaded_items": len(snapshot.Items),
		"user_id":        sess.UserID,
	})
}

// AddItem adds or merges an item locally, then reconciles remotely.
func (o *Orchestrator) AddItem(ctx context.Context, input cart.AddInput) (domain.Cart, error) {
	var prev *domain.CartItem
	if domain.HasStableKey(input.Ref) {
		if existing, ok := o.store.Item(domain.NormalizeKey(input.Ref)); ok {
			prev = &existing
		}
	}

	key, snapshot := o.store.AddItem(ctx, input)
	item, _ := o.store.Item(key)

	return o.run(ctx, snapshot, compensation{
		operation: opAddItem,
		remote: func(ctx context.Context, sess session.Session) error {
			if prev != nil {
				// Merged into an existing line: the remote sees a quantity
				// update, not a duplicate item.
				return o.backend.UpdateItemQuantity(ctx, sess, key, item.Quantity)
			}
			return o.backend.AddItem(ctx, sess, item)
		},
		rollback: o.restoreRollback(key, prev),
	})
}

// RemoveItem removes an item locally, then reconciles remotely. Absent keys
// are a no-op with no remote call.
func (o *Orchestrator) RemoveItem(ctx context.Context, key string) (domain.Cart, error) {
	prev, ok := o.store.Item(key)
	if !ok {
		return o.store.Snapshot(), nil
	}

	snapshot := o.store.RemoveItem(key)
	return o.run(ctx, snapshot, compensation{
		operation: opRemoveItem,
		remote: func(ctx context.Context, sess session.Session) error {
			return o.backend.RemoveItem(ctx, sess, key)
		},
		rollback: o.restoreRollback(key, &prev),
	})
}

// SetQuantity sets an absolute quantity; zero or less removes the item.
func (o *Orchestrator) SetQuantity(ctx context.Context, key string, quantity int) (domain.Cart, error) {
	prev, ok := o.store.Item(key)
	if !ok {
		return o.store.Snapshot(), nil
	}

	snapshot := o.store.SetQuantity(key, quantity)
	return o.run(ctx, snapshot, compensation{
		operation: opSetQuantity,
		remote:    o.quantityCall(key),
		rollback:  o.restoreRollback(key, &prev),
	})
}

// IncrementQuantity raises an item's quantity by one.
func (o *Orchestrator) IncrementQuantity(ctx context.Context, key string) (domain.Cart, error) {
	prev, ok := o.store.Item(key)
	if !ok {
		return o.store.Snapshot(), nil
	}

	snapshot := o.store.IncrementQuantity(key)
	return o.run(ctx, snapshot, compensation{
		operation: opIncrement,
		remote:    o.quantityCall(key),
		rollback:  o.restoreRollback(key, &prev),
	})
}

// DecrementQuantity lowers an item's quantity by one; reaching zero removes
// the item.
func (o *Orchestrator) DecrementQuantity(ctx context.Context, key string) (domain.Cart, error) {
	prev, ok := o.store.Item(key)
	if !ok {
		return o.store.Snapshot(), nil
	}

	snapshot := o.store.DecrementQuantity(key)
	return o.run(ctx, snapshot, compensation{
		operation: opDecrement,
		remote:    o.quantityCall(key),
		rollback:  o.restoreRollback(key, &prev),
	})
}

// Clear empties the cart locally, then remotely.
func (o *Orchestrator) Clear(ctx context.Context) (domain.Cart, error) {
	prevItems := o.store.Snapshot().Items
	snapshot := o.store.Clear()

	return o.run(ctx, snapshot, compensation{
		operation: opClear,
		remote: func(ctx context.Context, sess session.Session) error {
			return o.backend.ClearCart(ctx, sess)
		},
		rollback: o.replaceRollback(prevItems),
	})
}

// Refresh replaces the local cart with the remote authoritative copy. For an
// anonymous session the local snapshot is returned untouched.
func (o *Orchestrator) Refresh(ctx context.Context) (domain.Cart, error) {
	sess := o.Session()
	if !sess.Authenticated() {
		return o.store.Snapshot(), nil
	}

	o.metrics.ReconcileFetch()
	items, err := o.backend.FetchCart(ctx, sess)
	if err != nil {
		o.store.MarkSyncFailed()
		if remote.IsAuthentication(err) {
			o.dropSession(ctx, sess)
		}
		return o.store.Snapshot(), err
	}

	snapshot := o.store.ReplaceItems(items)
	o.store.MarkSynced(o.now())
	return snapshot, nil
}

// Flush cancels any pending debounced upload and pushes the full cart
// synchronously. Used before checkout-critical transitions.
func (o *Orchestrator) Flush(ctx context.Context) error {
	sess := o.Session()
	if !sess.Authenticated() {
		return nil
	}

	o.scheduler.Cancel(sess.ChannelKey())
	o.metrics.DebounceFlush("forced")
	return o.uploadCart(ctx, sess)
}

// Close tears the orchestrator down, dropping any pending upload.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	sess := o.sess
	o.closed = true
	o.mu.Unlock()

	o.scheduler.Cancel(sess.ChannelKey())
}

// run executes the remote half of an optimistic mutation. Anonymous sessions
// stay local-only. On a business-rule or transport rejection the rollback is
// applied and a reconciling re-fetch is attempted; an authentication rejection
// keeps the optimistic state and downgrades the session instead.
func (o *Orchestrator) run(ctx context.Context, snapshot domain.Cart, comp compensation) (domain.Cart, error) {
	o.mu.Lock()
	sess := o.sess
	closed := o.closed
	o.mu.Unlock()

	if closed || !sess.Authenticated() {
		o.metrics.SyncAttempt(comp.operation, metrics.OutcomeLocalOnly)
		return snapshot, nil
	}

	o.store.MarkSyncPending()
	if err := comp.remote(ctx, sess); err != nil {
		return o.compensate(ctx, sess, comp, err)
	}

	o.store.MarkSynced(o.now())
	o.metrics.SyncAttempt(comp.operation, metrics.OutcomeFulfilled)
	o.scheduleSave(sess)
	return snapshot, nil
}

func (o *Orchestrator) compensate(ctx context.Context, sess session.Session, comp compensation, cause error) (domain.Cart, error) {
	o.store.MarkSyncFailed()

	if remote.IsAuthentication(cause) {
		o.metrics.SyncAttempt(comp.operation, metrics.OutcomeAuthRejected)
		o.logger(ctx, "cart_sync.auth_rejected", map[string]any{
			"operation": comp.operation,
			"error":     cause.Error(),
		})
		o.dropSession(ctx, sess)
		return o.store.Snapshot(), cause
	}

	snapshot := comp.rollback()
	o.metrics.Rollback()
	o.metrics.SyncAttempt(comp.operation, metrics.OutcomeRolledBack)
	o.logger(ctx, "cart_sync.rolled_back", map[string]any{
		"operation": comp.operation,
		"error":     cause.Error(),
	})

	// A reversed partial mutation cannot be trusted to match server truth,
	// so always follow a rollback with a full re-fetch.
	if refreshed, err := o.Refresh(ctx); err == nil {
		snapshot = refreshed
	} else {
		o.logger(ctx, "cart_sync.reconcile_failed", map[string]any{"error": err.Error()})
	}
	return snapshot, cause
}

// quantityCall builds the remote call for a quantity mutation. The absolute
// post-mutation quantity is read at call time; a quantity that reached zero
// turns into a removal.
func (o *Orchestrator) quantityCall(key string) func(ctx context.Context, sess session.Session) error {
	return func(ctx context.Context, sess session.Session) error {
		item, ok := o.store.Item(key)
		if !ok {
			return o.backend.RemoveItem(ctx, sess, key)
		}
		return o.backend.UpdateItemQuantity(ctx, sess, key, item.Quantity)
	}
}

// scheduleSave (re)arms the debounced whole-cart upload. Every mutation within
// the window pushes the deadline out; only the latest schedule fires.
func (o *Orchestrator) scheduleSave(sess session.Session) {
	o.scheduler.Schedule(sess.ChannelKey(), o.saveDelay, func() {
		o.metrics.DebounceFlush("timer")
		if err := o.uploadCart(context.Background(), sess); err != nil {
			o.logger(context.Background(), "cart_sync.batch_upload_failed", map[string]any{"error": err.Error()})
		}
	})
}

func (o *Orchestrator) uploadCart(ctx context.Context, sess session.Session) error {
	items := o.store.Snapshot().Items
	if err := o.backend.SaveCart(ctx, sess, items); err != nil {
		o.store.MarkSyncFailed()
		if remote.IsAuthentication(err) {
			o.dropSession(ctx, sess)
		}
		return err
	}
	o.store.MarkSynced(o.now())
	return nil
}

// dropSession downgrades to anonymous after a fatal authentication rejection.
// The optimistic local state is kept; no compensation applies because every
// remote call for this session would fail the same way.
func (o *Orchestrator) dropSession(ctx context.Context, rejected session.Session) {
	o.mu.Lock()
	if o.sess.Token == rejected.Token {
		o.sess = session.Anonymous()
	}
	o.mu.Unlock()

	o.scheduler.Cancel(rejected.ChannelKey())
	o.logger(ctx, "cart_sync.session_dropped", map[string]any{"user_id": rejected.UserID})
}
