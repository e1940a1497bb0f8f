package queue

import "context"

// Client enqueues notification messages for the delivery worker. Implementations
// must be safe for concurrent use; the API handlers share one client.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
