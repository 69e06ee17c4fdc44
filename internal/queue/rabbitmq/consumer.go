// Package rabbitmq implements internal/queue.Queue and internal/queue.Publisher
// on top of RabbitMQ: manual ack/nack, Qos prefetch=1, and an
// exponential-backoff reconnect loop.
package rabbitmq

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	amqplib "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/queue"
)

const (
	submissionsQueue = "submissions"

	maxReconnectDelay  = 30 * time.Second
	baseReconnectDelay = 1 * time.Second
)

var _ queue.Queue = (*Consumer)(nil)

// Consumer pulls submission messages one at a time (prefetch=1) and hands
// them to the worker pool wrapped with Ack/Nack closures bound to the
// underlying delivery tag. One consume session is opened per connection and
// shared across every worker goroutine's Pull call; Pull never registers a
// new AMQP consumer.
type Consumer struct {
	url    string
	logger *zap.Logger

	mu         sync.Mutex
	conn       *amqplib.Connection
	channel    *amqplib.Channel
	deliveries <-chan amqplib.Delivery
	closed     bool

	reconnectMu sync.Mutex
}

// NewConsumer dials url, declares the durable submissions queue, and opens
// the single consume session Pull will read from.
func NewConsumer(url string, logger *zap.Logger) (*Consumer, error) {
	c := &Consumer{url: url, logger: logger}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) connect() error {
	conn, err := amqplib.Dial(c.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: qos: %w", err)
	}

	_, err = ch.QueueDeclare(submissionsQueue, true, false, false, false, amqplib.Table{
		"x-queue-type":              "quorum",
		"x-dead-letter-exchange":    "dlx.submissions",
		"x-dead-letter-routing-key": "submissions.dlq",
	})
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}

	deliveries, err := ch.Consume(submissionsQueue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.deliveries = deliveries
	c.mu.Unlock()
	return nil
}

// Pull blocks for the next delivery from the shared consume session,
// reconnecting with exponential backoff on connection loss. A nil message
// with nil error means the session was lost and has been re-established or
// is being re-established (caller should back off and retry).
func (c *Consumer) Pull(ctx context.Context) (*domain.JobMessage, error) {
	c.mu.Lock()
	ch := c.channel
	deliveries := c.deliveries
	c.mu.Unlock()
	if ch == nil || deliveries == nil {
		return nil, fmt.Errorf("rabbitmq: channel is nil")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case delivery, ok := <-deliveries:
		if !ok {
			c.reconnectWithBackoff(ctx, ch)
			return nil, nil
		}

		tag := delivery.DeliveryTag
		localCh := ch
		body := delivery.Body
		return &domain.JobMessage{
			Body: body,
			Ack:  func() error { return localCh.Ack(tag, false) },
			Nack: func(requeue bool) error { return localCh.Nack(tag, false, requeue) },
		}, nil
	}
}

// reconnectWithBackoff re-establishes the connection and consume session.
// staleCh is the channel the caller observed closed; reconnectMu serializes
// attempts across concurrently-pulling workers so only the first caller to
// notice the loss redials, and the rest no-op once c.channel has moved on.
func (c *Consumer) reconnectWithBackoff(ctx context.Context, staleCh *amqplib.Channel) {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	c.mu.Lock()
	current := c.channel
	c.mu.Unlock()
	if current != staleCh {
		return
	}

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delay := time.Duration(math.Min(
			float64(baseReconnectDelay)*math.Pow(2, float64(attempt)),
			float64(maxReconnectDelay),
		))
		c.logger.Warn("rabbitmq connection lost, reconnecting", zap.Int("attempt", attempt+1), zap.Duration("delay", delay))
		time.Sleep(delay)

		if err := c.connect(); err != nil {
			c.logger.Error("rabbitmq reconnect failed", zap.Error(err))
			continue
		}
		c.logger.Info("rabbitmq reconnected")
		return
	}
}

// Close shuts the channel and connection down.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
