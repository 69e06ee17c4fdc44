// Package queue abstracts the durable work-queue the worker pool consumes
// from: publish/pull with at-least-once delivery and exactly one
// in-flight unacked message per consumer. The core worker pool is
// written against this interface, not against any particular broker client.
package queue

import (
	"context"

	"github.com/oj-platform/judge-executor/internal/domain"
)

// Queue is the durable work-queue contract the worker pool consumes.
type Queue interface {
	// Pull blocks until a message is delivered, ctx is cancelled, or an
	// error occurs. A nil message with a nil error signals a momentarily
	// empty queue — callers should back off and retry.
	Pull(ctx context.Context) (*domain.JobMessage, error)

	// Close releases the underlying connection.
	Close() error
}

// Publisher is the intake-side half of the contract (used by cmd/api, not
// by the worker pool).
type Publisher interface {
	Publish(ctx context.Context, sub *domain.Submission) error
	Close() error
}
