package render

import (
	"errors"
	"sync/atomic"
	"testing"
)

// TestNewPool tests worker pool creation
func TestNewPool(t *testing.T) {
	pool := NewPool(4)

	if pool == nil {
		t.Fatal("Pool should not be nil")
	}

	if pool.Workers() != 4 {
		t.Errorf("Expected 4 workers, got %d", pool.Workers())
	}
}

// TestPoolDefaultWorkers tests default worker count
func TestPoolDefaultWorkers(t *testing.T) {
	pool := NewPool(0)

	if pool.Workers() <= 0 {
		t.Error("Worker pool should have at least 1 worker")
	}
}

// TestPoolMaxWorkers tests max worker cap
func TestPoolMaxWorkers(t *testing.T) {
	pool := NewPool(100)

	if pool.Workers() > 16 {
		t.Errorf("Worker pool should cap at 16 workers, got %d", pool.Workers())
	}
}

// TestPoolStartStop tests starting and stopping the pool
func TestPoolStartStop(t *testing.T) {
	pool := NewPool(2)

	if pool.IsRunning() {
		t.Error("Pool should not be running initially")
	}

	pool.Start()
	pool.Start()
	if !pool.IsRunning() {
		t.Error("Pool should be running after Start()")
	}

	pool.Stop()
	pool.Stop()
	if pool.IsRunning() {
		t.Error("Pool should not be running after Stop()")
	}
}

// TestPoolRunVisitsEveryIndexOnce tests parallel fan-out
func TestPoolRunVisitsEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name  string
		start bool
		n     int
	}{
		{"parallel", true, 21600},
		{"small job", true, 10},
		{"stopped pool", false, 500},
		{"empty", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(4)
			if tt.start {
				pool.Start()
				defer pool.Stop()
			}

			hits := make([]int32, tt.n)
			var total atomic.Int64
			err := pool.Run(tt.n, func(i int) error {
				atomic.AddInt32(&hits[i], 1)
				total.Add(1)
				return nil
			})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if total.Load() != int64(tt.n) {
				t.Errorf("Expected %d calls, got %d", tt.n, total.Load())
			}
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("Index %d visited %d times", i, h)
				}
			}
		})
	}
}

// TestPoolRunReturnsError tests error propagation from workers
func TestPoolRunReturnsError(t *testing.T) {
	boom := errors.New("boom")

	for _, start := range []bool{true, false} {
		pool := NewPool(4)
		if start {
			pool.Start()
		}

		err := pool.Run(1000, func(i int) error {
			if i == 777 {
				return boom
			}
			return nil
		})
		if !errors.Is(err, boom) {
			t.Errorf("Expected boom (started=%v), got %v", start, err)
		}

		pool.Stop()
	}
}
