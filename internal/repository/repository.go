// Package repository abstracts persistence of submission rows, shared
// between the HTTP intake and the worker pipeline.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/oj-platform/judge-executor/internal/domain"
)

// SubmissionRepository stores submissions and records their final results.
type SubmissionRepository interface {
	// Insert creates a new submission row in StatusInQueue and returns its id.
	Insert(ctx context.Context, sub *domain.Submission) (uuid.UUID, error)

	// UpdateStatus advances a submission's lifecycle status without
	// touching its verdict fields (e.g. in_queue -> processing).
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error

	// UpdateResult persists a completed submission's verdict fields and
	// advances its Status to StatusDone. Idempotent at the row level.
	UpdateResult(ctx context.Context, id uuid.UUID, result domain.Result) error

	// Get returns the submission row, including any recorded result fields.
	Get(ctx context.Context, id uuid.UUID) (*domain.Submission, *domain.Result, error)
}
