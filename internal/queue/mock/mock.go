// Package mock provides in-memory recorder-struct test doubles for internal/queue.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/queue"
)

var _ queue.Queue = (*Queue)(nil)
var _ queue.Publisher = (*Queue)(nil)

// Queue is a channel-backed in-memory queue usable as both a Queue and a
// Publisher in tests.
type Queue struct {
	mu       sync.Mutex
	messages chan *domain.JobMessage

	AckedCount  int
	NackedCount int

	PullFn func(ctx context.Context) (*domain.JobMessage, error)
}

// New creates a Queue with the given buffer size.
func New(buffer int) *Queue {
	return &Queue{messages: make(chan *domain.JobMessage, buffer)}
}

// Enqueue JSON-encodes sub and pushes it, wrapping Ack/Nack to record calls.
func (q *Queue) Enqueue(sub *domain.Submission) {
	body, _ := json.Marshal(sub)
	q.EnqueueRaw(body)
}

// EnqueueRaw pushes a raw, possibly malformed payload (for poison-pill tests).
func (q *Queue) EnqueueRaw(body []byte) {
	q.messages <- &domain.JobMessage{
		Body: body,
		Ack: func() error {
			q.mu.Lock()
			q.AckedCount++
			q.mu.Unlock()
			return nil
		},
		Nack: func(requeue bool) error {
			q.mu.Lock()
			q.NackedCount++
			q.mu.Unlock()
			return nil
		},
	}
}

// Pull returns the next enqueued message, or nil/nil if empty.
func (q *Queue) Pull(ctx context.Context) (*domain.JobMessage, error) {
	if q.PullFn != nil {
		return q.PullFn(ctx)
	}
	select {
	case msg := <-q.messages:
		return msg, nil
	default:
		return nil, nil
	}
}

// Publish enqueues sub through Enqueue, so its Ack/Nack calls are recorded
// like any other message (cmd/api usage).
func (q *Queue) Publish(ctx context.Context, sub *domain.Submission) error {
	q.Enqueue(sub)
	return nil
}

// Close is a no-op for the in-memory queue.
func (q *Queue) Close() error { return nil }
