package utils

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunParallel(t *testing.T) {
	boom := errors.New("boom")

	errs := RunParallel(
		func() error { return nil },
		func() error { return boom },
		func() error { return nil },
	)

	if len(errs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(errs))
	}
	if errs[0] != nil || errs[2] != nil {
		t.Errorf("expected nil errors for successful tasks, got %v", errs)
	}
	if !errors.Is(errs[1], boom) {
		t.Errorf("expected boom at index 1, got %v", errs[1])
	}
}

func TestWorkerPool(t *testing.T) {
	t.Run("runs every task", func(t *testing.T) {
		pool := NewWorkerPool(4)
		defer pool.Close()

		var n atomic.Int64
		for i := 0; i < 100; i++ {
			pool.Submit(func() error {
				n.Add(1)
				return nil
			})
		}

		if err := pool.Wait(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n.Load() != 100 {
			t.Errorf("expected 100 tasks run, got %d", n.Load())
		}
	})

	t.Run("collects errors", func(t *testing.T) {
		pool := NewWorkerPool(2)
		defer pool.Close()

		boom := errors.New("boom")
		for i := 0; i < 5; i++ {
			fail := i%2 == 0
			pool.Submit(func() error {
				if fail {
					return boom
				}
				return nil
			})
		}

		err := pool.Wait()
		if !errors.Is(err, boom) {
			t.Errorf("expected joined error containing boom, got %v", err)
		}
	})

	t.Run("zero workers is clamped", func(t *testing.T) {
		pool := NewWorkerPool(0)
		defer pool.Close()
		pool.Submit(func() error { return nil })
		if err := pool.Wait(); err != nil {
			t.Fatal(err)
		}
	})
}
