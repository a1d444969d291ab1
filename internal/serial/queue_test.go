package serial

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestQueueRunsTasksInOrder(t *testing.T) {
	q := New(nil)
	defer q.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		q.Submit(func() { got = append(got, i) })
	}
	if err := q.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("do: %v", err)
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran out of order (got %d)", i, v)
		}
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 tasks, got %d", len(got))
	}
}

func TestQueueLinearizesConcurrentSubmitters(t *testing.T) {
	q := New(nil)
	defer q.Close()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = q.Do(context.Background(), func() { counter++ })
			}
		}()
	}
	wg.Wait()

	if counter != 3200 {
		t.Fatalf("expected 3200, got %d", counter)
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	var recovered any
	q := New(func(r any) { recovered = r })
	defer q.Close()

	q.Submit(func() { panic("boom") })
	ran := false
	if err := q.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if !ran || recovered != "boom" {
		t.Fatalf("expected worker to survive panic, ran=%v recovered=%v", ran, recovered)
	}
}

func TestQueueClosedRejects(t *testing.T) {
	q := New(nil)
	q.Close()
	q.Close()

	if q.Submit(func() {}) {
		t.Fatal("expected submit to fail after close")
	}
	if err := q.Do(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
