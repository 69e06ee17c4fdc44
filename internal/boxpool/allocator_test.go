package boxpool

import (
	"sync"
	"testing"
)

func TestAllocator_AcquireMonotonic(t *testing.T) {
	a := New(2) // ids 0,1,2

	first, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	second, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first == second {
		t.Errorf("expected distinct ids, got %d twice", first)
	}
}

func TestAllocator_WrapsAtMax(t *testing.T) {
	a := New(1) // ids 0,1

	ids := make([]uint32, 0, 4)
	for i := 0; i < 2; i++ {
		id, err := a.Acquire()
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		ids = append(ids, id)
		a.Release(id)
	}

	id, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire after wrap: %v", err)
	}
	if id > 1 {
		t.Errorf("expected id within [0,1], got %d", id)
	}
}

func TestAllocator_SkipsOutstandingIDs(t *testing.T) {
	a := New(1) // ids 0,1

	first, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	second, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first == second {
		t.Fatalf("expected two distinct outstanding ids")
	}

	// Both ids are now outstanding; a third acquire must fail.
	if _, err := a.Acquire(); err == nil {
		t.Error("expected error when every id is outstanding")
	}

	a.Release(first)
	third, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if third != first {
		t.Errorf("expected reused id %d, got %d", first, third)
	}
}

func TestAllocator_ReleaseIsIdempotent(t *testing.T) {
	a := New(5)
	a.Release(3) // never acquired — must not panic
	id, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	a.Release(id)
	a.Release(id) // double release — must not panic
}

func TestAllocator_ConcurrentAcquireNoCollisions(t *testing.T) {
	a := New(63)
	const workers = 32

	var wg sync.WaitGroup
	results := make(chan uint32, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := a.Acquire()
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			results <- id
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint32]bool)
	for id := range results {
		if seen[id] {
			t.Errorf("box-id %d acquired twice concurrently", id)
		}
		seen[id] = true
	}
}

func TestAllocator_OutstandingCount(t *testing.T) {
	a := New(10)
	if a.Outstanding() != 0 {
		t.Fatalf("expected 0 outstanding initially, got %d", a.Outstanding())
	}
	id, _ := a.Acquire()
	if a.Outstanding() != 1 {
		t.Errorf("expected 1 outstanding, got %d", a.Outstanding())
	}
	a.Release(id)
	if a.Outstanding() != 0 {
		t.Errorf("expected 0 outstanding after release, got %d", a.Outstanding())
	}
}
