package mq

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryBus is an in-process bus with the same ack/drop/requeue
// contract as the AMQP bus. Dispatch is synchronous; transiently failed
// messages accumulate until Redeliver is called, so tests drive
// redelivery explicitly.
type MemoryBus struct {
	mu       sync.Mutex
	bindings []binding
	requeued []requeuedMessage
	dropped  int
	acked    int
}

type requeuedMessage struct {
	routingKey string
	body       []byte
}

// NewMemoryBus constructs an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Consume registers a handler for a routing key.
func (b *MemoryBus) Consume(queue, routingKey string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings = append(b.bindings, binding{queue: queue, routingKey: routingKey, handler: handler})
	return nil
}

// Publish delivers the message synchronously to every matching handler.
func (b *MemoryBus) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	bindings := append([]binding(nil), b.bindings...)
	b.mu.Unlock()

	if !json.Valid(body) {
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		return nil
	}

	for _, bind := range bindings {
		if bind.routingKey != routingKey {
			continue
		}
		err := bind.handler(ctx, body)
		b.mu.Lock()
		switch {
		case err == nil:
			b.acked++
		case IsPermanent(err):
			b.dropped++
		default:
			b.requeued = append(b.requeued, requeuedMessage{routingKey: routingKey, body: body})
		}
		b.mu.Unlock()
	}
	return nil
}

// Redeliver replays all requeued messages once and returns how many
// were attempted.
func (b *MemoryBus) Redeliver(ctx context.Context) int {
	b.mu.Lock()
	pending := b.requeued
	b.requeued = nil
	b.mu.Unlock()

	for _, msg := range pending {
		_ = b.Publish(ctx, msg.routingKey, msg.body)
	}
	return len(pending)
}

// Counts reports acked, dropped, and currently requeued totals.
func (b *MemoryBus) Counts() (acked, dropped, requeued int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acked, b.dropped, len(b.requeued)
}
