package sync

import (
	"context"

	"github.com/servana/storefront/internal/domain"
	"github.com/servana/storefront/internal/session"
)

// Operation names for logging and metrics labels.
const (
	opAddItem     = "add_item"
	opRemoveItem  = "remove_item"
	opSetQuantity = "set_quantity"
	opIncrement   = "increment_quantity"
	opDecrement   = "decrement_quantity"
	opClear       = "clear"
)

// compensation binds one optimistic mutation to its remote call and the exact
// inverse that undoes it locally. Every immediate-path operation builds one
// of these before touching the network: an entry cannot exist without a
// rollback, so no remote rejection can leave the optimistic change stranded.
type compensation struct {
	operation string
	remote    func(ctx context.Context, sess session.Session) error
	rollback  func() domain.Cart
}

// restoreRollback returns a rollback that reinstates the captured pre-mutation
// item state. A nil prev means the item did not exist before the mutation and
// is removed outright.
func (o *Orchestrator) restoreRollback(key string, prev *domain.CartItem) func() domain.Cart {
	return func() domain.Cart {
		return o.store.RestoreItem(key, prev)
	}
}

// replaceRollback returns a rollback that reinstates a full pre-mutation item
// list, used by whole-cart mutations.
func (o *Orchestrator) replaceRollback(items []domain.CartItem) func() domain.Cart {
	return func() domain.Cart {
		return o.store.ReplaceItems(items)
	}
}
