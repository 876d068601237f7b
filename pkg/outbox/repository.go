package outbox

import "context"

// Repository stores outbox events until the publisher has relayed them
type Repository interface {
	// Append stores events written alongside an aggregate change
	Append(ctx context.Context, events []*OutboxEvent) error

	// Pending returns undelivered events still below their retry budget, oldest first
	Pending(ctx context.Context, limit int) ([]*OutboxEvent, error)

	MarkPublished(ctx context.Context, eventID string) error
	RecordFailure(ctx context.Context, eventID, reason string) error
}
