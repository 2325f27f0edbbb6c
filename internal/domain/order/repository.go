package order

import "context"

// Repository persists orders. Transition is the single write path for
// lifecycle changes; it loads the row under a write lock so concurrent
// confirmation paths serialize and the loser observes the updated state.
type Repository interface {
	// Create persists a new order with its lines. It atomically enforces at
	// most one active order per cart session and returns
	// shared.ErrCheckoutInProgress when another active order exists.
	Create(ctx context.Context, o *Order) error

	// FindByOrderNumber returns an order with its lines
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByPaymentRef returns the order attached to an external payment ref
	FindByPaymentRef(ctx context.Context, paymentRef string) (*Order, error)

	// FindBySession returns all orders for a cart session, newest first
	FindBySession(ctx context.Context, sessionID string) ([]Order, error)

	// ExistsOrderNumber reports whether an order number is already taken
	ExistsOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// ExistsActiveForSession reports whether the session already has an order
	// in a non-terminal state
	ExistsActiveForSession(ctx context.Context, sessionID string) (bool, error)

	// Transition loads the order by number under a row lock, applies fn and
	// saves the result in one transaction. fn returning an error rolls back.
	Transition(ctx context.Context, orderNumber string, fn func(o *Order) error) (*Order, error)

	// Update saves non-lifecycle field changes
	Update(ctx context.Context, o *Order) error
}
