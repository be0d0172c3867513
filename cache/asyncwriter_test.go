package cache

import (
	"sync"
	"testing"
	"time"
)

func TestAsyncWriter_RunsJobsInSubmissionOrder(t *testing.T) {
	w := NewAsyncWriter("test", nil)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		w.Submit(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
			return nil
		})
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestAsyncWriter_ShutdownDrainsPending(t *testing.T) {
	w := NewAsyncWriter("test", nil)
	ran := false
	w.Submit(func() error { ran = true; return nil })
	if err := w.Shutdown(time.Second); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if !ran {
		t.Error("expected submitted job to run before shutdown returned")
	}
}
