// Package boxpool implements the process-wide box-id allocator: a monotonic
// counter that wraps at a configured maximum and skips ids currently
// outstanding.
package boxpool

import (
	"fmt"
	"sync"
)

// Allocator hands out box-ids to concurrent workers, guaranteeing no two
// concurrently-live sandboxes share an id.
type Allocator struct {
	mu          sync.Mutex
	max         uint32
	next        uint32
	outstanding map[uint32]struct{}
}

// New builds an Allocator cycling through [0, max]. max must be >= 1.
func New(max uint32) *Allocator {
	return &Allocator{
		max:         max,
		outstanding: make(map[uint32]struct{}),
	}
}

// Acquire returns the next free box-id and marks it outstanding. It probes
// forward past any id currently held by another worker, wrapping at max.
// Returns an error only if every id in [0, max] is outstanding.
func (a *Allocator) Acquire() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := uint32(0); i <= a.max; i++ {
		candidate := a.next
		a.next = (a.next + 1) % (a.max + 1)

		if _, taken := a.outstanding[candidate]; !taken {
			a.outstanding[candidate] = struct{}{}
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("boxpool: all %d box-ids are outstanding", a.max+1)
}

// Release marks id as free again. Safe to call on an id that isn't
// outstanding (a no-op), so cleanup paths can call it unconditionally.
func (a *Allocator) Release(id uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.outstanding, id)
}

// Outstanding reports how many ids are currently held, for metrics.
func (a *Allocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outstanding)
}
