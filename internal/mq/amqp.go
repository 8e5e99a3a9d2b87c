package mq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the durable topic exchange carrying telemetry events.
const DefaultExchange = "telemetry.exchange"

// AMQPBus is the RabbitMQ-backed event bus. It owns one connection and
// one channel, reconnects with backoff when the broker drops, and
// re-establishes consumer bindings after each reconnect. Publishes are
// persistent; durability is broker-side once Publish returns nil.
type AMQPBus struct {
	url      string
	exchange string
	cfg      ConsumerConfig
	logger   *log.Logger

	mu       sync.RWMutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	bindings []binding
	closed   bool
	done     chan struct{}

	attemptMu sync.Mutex
	attempts  map[string]int
}

type binding struct {
	queue      string
	routingKey string
	handler    Handler
}

// NewAMQPBus constructs a bus for the given broker URL and exchange.
func NewAMQPBus(url, exchange string, cfg ConsumerConfig, logger *log.Logger) (*AMQPBus, error) {
	if url == "" {
		return nil, errors.New("mq: empty broker url")
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = log.Default()
	}
	cfg = cfg.withDefaults()
	return &AMQPBus{
		url:      url,
		exchange: exchange,
		cfg:      cfg,
		logger:   logger,
		done:     make(chan struct{}),
		attempts: make(map[string]int),
	}, nil
}

// Connect dials the broker, declares the exchange, and starts the
// reconnect monitor. Blocks until the first connection succeeds or the
// context is cancelled.
func (b *AMQPBus) Connect(ctx context.Context) error {
	backoff := b.cfg.ReconnectMin
	for {
		err := b.dial()
		if err == nil {
			go b.monitor()
			return nil
		}
		b.logger.Printf("mq: connect failed: %v (retrying in %s)", err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > b.cfg.ReconnectMax {
			backoff = b.cfg.ReconnectMax
		}
	}
}

func (b *AMQPBus) dial() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return err
	}

	b.mu.Lock()
	b.conn = conn
	b.ch = ch
	bindings := append([]binding(nil), b.bindings...)
	b.mu.Unlock()

	for _, bind := range bindings {
		if err := b.startConsumer(ch, bind); err != nil {
			return err
		}
	}
	b.logger.Printf("mq: connected exchange=%s", b.exchange)
	return nil
}

// monitor waits for the connection to drop and redials with backoff.
// Transparent to publishers and consumers.
func (b *AMQPBus) monitor() {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return
	}
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-b.done:
		return
	case err := <-closeCh:
		if err != nil {
			b.logger.Printf("mq: disconnected: %v", err)
		}
	}

	b.mu.Lock()
	b.conn = nil
	b.ch = nil
	b.mu.Unlock()

	backoff := b.cfg.ReconnectMin
	for {
		select {
		case <-b.done:
			return
		case <-time.After(backoff):
		}
		if err := b.dial(); err == nil {
			go b.monitor()
			return
		} else {
			b.logger.Printf("mq: reconnect failed: %v (retrying in %s)", err, backoff)
		}
		backoff *= 2
		if backoff > b.cfg.ReconnectMax {
			backoff = b.cfg.ReconnectMax
		}
	}
}

// Publish sends a persistent JSON message to the topic exchange. It
// errors only when no channel is open; retry policy belongs to the
// caller.
func (b *AMQPBus) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.RLock()
	ch := b.ch
	b.mu.RUnlock()
	if ch == nil {
		return ErrNotConnected
	}
	return ch.PublishWithContext(ctx, b.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Consume binds a durable queue to the routing key and starts handling
// deliveries. The binding survives reconnects.
func (b *AMQPBus) Consume(queue, routingKey string, handler Handler) error {
	if queue == "" || routingKey == "" || handler == nil {
		return errors.New("mq: invalid consumer binding")
	}
	bind := binding{queue: queue, routingKey: routingKey, handler: handler}

	b.mu.Lock()
	b.bindings = append(b.bindings, bind)
	ch := b.ch
	b.mu.Unlock()

	if ch == nil {
		return ErrNotConnected
	}
	return b.startConsumer(ch, bind)
}

func (b *AMQPBus) startConsumer(ch *amqp.Channel, bind binding) error {
	if _, err := ch.QueueDeclare(bind.queue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(bind.queue, bind.routingKey, b.exchange, false, nil); err != nil {
		return err
	}
	// Prefetch bounds unacked in-flight messages and provides
	// backpressure against a slow store.
	if err := ch.Qos(b.cfg.Prefetch, 0, false); err != nil {
		return err
	}
	deliveries, err := ch.Consume(bind.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	go func() {
		for delivery := range deliveries {
			go b.handle(bind, delivery)
		}
	}()
	b.logger.Printf("mq: consumer bound queue=%s rk=%s prefetch=%d", bind.queue, bind.routingKey, b.cfg.Prefetch)
	return nil
}

func (b *AMQPBus) handle(bind binding, delivery amqp.Delivery) {
	ctx := context.Background()

	// Transport-level guard: a body that is not JSON at all can never
	// become valid by redelivery.
	if !json.Valid(delivery.Body) {
		b.logger.Printf("mq: drop undecodable body queue=%s bytes=%d", bind.queue, len(delivery.Body))
		_ = delivery.Ack(false)
		return
	}

	if b.overRedeliveryLimit(delivery) {
		b.logger.Printf("mq: drop after redelivery limit queue=%s message_id=%s", bind.queue, delivery.MessageId)
		_ = delivery.Ack(false)
		return
	}

	err := bind.handler(ctx, delivery.Body)
	switch {
	case err == nil:
		_ = delivery.Ack(false)
	case IsPermanent(err):
		b.logger.Printf("mq: drop permanent failure queue=%s err=%v", bind.queue, err)
		_ = delivery.Ack(false)
	default:
		_ = delivery.Nack(false, true)
	}
}

// overRedeliveryLimit applies the optional per-process redelivery cap.
// Counting is keyed by message id and is best effort: another consumer
// instance keeps its own count. Limit 0 means unlimited, matching the
// default at-least-once policy.
func (b *AMQPBus) overRedeliveryLimit(delivery amqp.Delivery) bool {
	if b.cfg.RedeliveryLimit <= 0 || delivery.MessageId == "" {
		return false
	}
	if !delivery.Redelivered {
		return false
	}
	b.attemptMu.Lock()
	defer b.attemptMu.Unlock()
	b.attempts[delivery.MessageId]++
	if b.attempts[delivery.MessageId] > b.cfg.RedeliveryLimit {
		delete(b.attempts, delivery.MessageId)
		return true
	}
	return false
}

// Close shuts the bus down and stops the reconnect monitor.
func (b *AMQPBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
