package idempotency

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

var _ Locker = (*MockLocker)(nil)

// MockLocker is an in-process test double for Locker.
type MockLocker struct {
	mu sync.Mutex

	AcquireFn func(ctx context.Context, id uuid.UUID) (bool, error)
	held      map[uuid.UUID]bool
}

func (m *MockLocker) Acquire(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = make(map[uuid.UUID]bool)
	}
	if m.held[id] {
		return false, nil
	}
	m.held[id] = true
	return true, nil
}

func (m *MockLocker) Release(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, id)
	return nil
}
