package core

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestLazy_ForceCachesValue(t *testing.T) {
	calls := 0
	cell := NewLazy(func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	if cell.Resolved() {
		t.Error("Resolved() = true before first Force()")
	}

	for i := 0; i < 3; i++ {
		value, err := cell.Force(context.Background())
		if err != nil {
			t.Fatalf("Force() error = %v", err)
		}
		if value != 42 {
			t.Errorf("Force() = %d, expected 42", value)
		}
	}

	if calls != 1 {
		t.Errorf("computation ran %d times, expected 1", calls)
	}
}

func TestLazy_ErrorDoesNotResolve(t *testing.T) {
	attempt := 0
	cell := NewLazy(func(ctx context.Context) (string, error) {
		attempt++
		if attempt < 3 {
			return "", errors.New("not yet")
		}
		return "ready", nil
	})

	for i := 0; i < 2; i++ {
		if _, err := cell.Force(context.Background()); err == nil {
			t.Fatal("Force() expected error")
		}
		if cell.Resolved() {
			t.Fatal("Resolved() = true after failed attempt")
		}
	}

	value, err := cell.Force(context.Background())
	if err != nil {
		t.Fatalf("Force() error = %v", err)
	}
	if value != "ready" {
		t.Errorf("Force() = %q, expected %q", value, "ready")
	}
	if attempt != 3 {
		t.Errorf("computation ran %d times, expected 3", attempt)
	}
}

func TestLazy_ConcurrentForce(t *testing.T) {
	calls := 0
	cell := NewLazy(func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	})

	const goroutines = 10
	results := make([]int, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			value, err := cell.Force(context.Background())
			if err != nil {
				t.Errorf("Force() error = %v", err)
				return
			}
			results[idx] = value
		}(i)
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("computation ran %d times under concurrency, expected 1", calls)
	}
	for i, value := range results {
		if value != 1 {
			t.Errorf("goroutine %d observed %d, expected 1", i, value)
		}
	}
}

func TestLazy_Peek(t *testing.T) {
	cell := NewLazy(func(ctx context.Context) (string, error) {
		return "computed", nil
	})

	if _, ok := cell.Peek(); ok {
		t.Error("Peek() reported a value before Force()")
	}

	if _, err := cell.Force(context.Background()); err != nil {
		t.Fatalf("Force() error = %v", err)
	}

	value, ok := cell.Peek()
	if !ok {
		t.Fatal("Peek() reported no value after Force()")
	}
	if value != "computed" {
		t.Errorf("Peek() = %q, expected %q", value, "computed")
	}
}
