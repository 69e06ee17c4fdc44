package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqplib "github.com/rabbitmq/amqp091-go"

	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/queue"
)

var _ queue.Publisher = (*Publisher)(nil)

// Publisher publishes submissions to the durable queue from cmd/api.
type Publisher struct {
	mu      sync.Mutex
	conn    *amqplib.Connection
	channel *amqplib.Channel
}

// NewPublisher dials url and declares the submissions queue.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqplib.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel: %w", err)
	}
	_, err = ch.QueueDeclare(submissionsQueue, true, false, false, false, amqplib.Table{
		"x-queue-type":              "quorum",
		"x-dead-letter-exchange":    "dlx.submissions",
		"x-dead-letter-routing-key": "submissions.dlq",
	})
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	return &Publisher{conn: conn, channel: ch}, nil
}

// Publish enqueues the submission as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, sub *domain.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPublishFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, "", submissionsQueue, false, false, amqplib.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqplib.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPublishFailed, err)
	}
	return nil
}

// Close shuts the channel and connection down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
