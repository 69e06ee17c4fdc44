// Package mock is a recorder-style test double for repository.SubmissionRepository.
package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/repository"
)

var _ repository.SubmissionRepository = (*SubmissionRepository)(nil)

// SubmissionRepository records calls and supports per-call override hooks.
type SubmissionRepository struct {
	mu sync.Mutex

	InsertFn       func(ctx context.Context, sub *domain.Submission) (uuid.UUID, error)
	UpdateStatusFn func(ctx context.Context, id uuid.UUID, status domain.Status) error
	UpdateResultFn func(ctx context.Context, id uuid.UUID, result domain.Result) error

	Inserted      []*domain.Submission
	StatusUpdates []domain.Status
	Updates       []ResultUpdate
}

// ResultUpdate records one UpdateResult call for assertions.
type ResultUpdate struct {
	ID     uuid.UUID
	Result domain.Result
}

func (m *SubmissionRepository) Insert(ctx context.Context, sub *domain.Submission) (uuid.UUID, error) {
	m.mu.Lock()
	sub.Status = domain.StatusInQueue
	m.Inserted = append(m.Inserted, sub)
	m.mu.Unlock()
	if m.InsertFn != nil {
		return m.InsertFn(ctx, sub)
	}
	return uuid.New(), nil
}

func (m *SubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	m.mu.Lock()
	m.StatusUpdates = append(m.StatusUpdates, status)
	m.mu.Unlock()
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *SubmissionRepository) UpdateResult(ctx context.Context, id uuid.UUID, result domain.Result) error {
	m.mu.Lock()
	m.Updates = append(m.Updates, ResultUpdate{ID: id, Result: result})
	m.mu.Unlock()
	if m.UpdateResultFn != nil {
		return m.UpdateResultFn(ctx, id, result)
	}
	return nil
}

func (m *SubmissionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Submission, *domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.Inserted {
		if sub.ID == id {
			return sub, nil, nil
		}
	}
	return nil, nil, domain.ErrSubmissionNotFound
}
