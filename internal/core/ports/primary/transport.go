package primary

import (
	"context"

	"gitlab.com/judge-dispatch.net/internal/domain"
)

// Peer is one live worker connection as seen by event handlers and publishers
type Peer interface {
	ConnectionID() string
	JudgeClient() *domain.JudgeClient
	// Context is cancelled once the connection is torn down
	Context() context.Context
	Emit(event string, args ...interface{}) error
	// Request emits an event the peer must acknowledge with id
	Request(event string, id uint64, args ...interface{}) error
	// Reply answers the peer's request id
	Reply(id uint64, args ...interface{}) error
	// Track records task as in flight and returns the delivery id the ack must carry.
	// ok is false once the connection is closing.
	Track(task *domain.Task) (deliveryID uint64, ok bool)
	Acknowledge(deliveryID uint64) (*domain.Task, bool)
	Close(reason string)
}

// EventHandler handles one inbound worker event
type EventHandler interface {
	HandleEvent(ctx context.Context, peer Peer, id uint64, args []interface{}) error
}

// TaskPublisher delivers one consumed task to a worker slot
type TaskPublisher interface {
	PublishTask(ctx context.Context, peer Peer, slotID interface{}, task *domain.Task) error
}
