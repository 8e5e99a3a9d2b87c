package mq

import (
	"context"
	"errors"
)

// Handler processes one delivered message body.
//
// Return value drives acknowledgment:
//   - nil: the message is acked and removed from the queue.
//   - an error wrapped by Permanent: the message is acked and discarded,
//     redelivery cannot fix it.
//   - any other error: the message is nacked with requeue and will be
//     redelivered until it succeeds.
type Handler func(ctx context.Context, body []byte) error

// Publisher publishes a message to a topic routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Consumer binds a durable queue to a routing key and feeds deliveries
// to a handler under bounded prefetch.
type Consumer interface {
	Consume(queue, routingKey string, handler Handler) error
}

// ErrNotConnected is returned by Publish when no channel is currently
// open. The caller owns retry policy; the bus does not retry publishes.
var ErrNotConnected = errors.New("mq: not connected")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as a permanent handler failure: the message
// is structurally beyond repair and must be dropped, not redelivered.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the permanent-failure mark.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
