// Package queue specifies the message-bus contract Disaggregation publishes
// to and Worker subscribes from, plus a default in-process implementation
// suitable for `cif serve` without external infrastructure.
package queue

import (
	"context"
	"errors"
)

// ErrStopped is returned by Publish once a queue's Stop has been called.
var ErrStopped = errors.New("queue: stopped")

// Message is one delivered envelope: an opaque payload (the JSON-encoded
// models.Message) plus the bus's own delivery bookkeeping.
type Message struct {
	ID              int64
	Payload         []byte
	DeliveryAttempt int
}

// Publisher publishes opaque payloads to the work topic.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// Handler processes one delivered Message. A non-nil error causes the bus
// to retry delivery (up to its configured attempt limit); a nil error acks.
type Handler func(ctx context.Context, msg Message) error

// Subscriber consumes messages from the work topic until ctx is cancelled
// or Stop is called, invoking handler for each delivery with at most
// maxMessages handlers in flight concurrently.
type Subscriber interface {
	Subscribe(ctx context.Context, maxMessages int, handler Handler) error
	// Stop requests the subscription loop to drain in-flight handlers and
	// return; it does not interrupt a handler already running.
	Stop()
}
