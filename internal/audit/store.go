package audit

import "context"

// Store is an append-only audit sink. Events are never updated or deleted.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCustomer(ctx context.Context, customerID string) ([]Event, error)
}
