package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coinkeeper/internal/core"
	"coinkeeper/internal/storage/memory"
)

type countingStore struct {
	*memory.Store
	calls atomic.Int32
	delay time.Duration
}

func (s *countingStore) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return s.Store.ListCategories(ctx, kind)
}

func TestCatalogCachesPerKind(t *testing.T) {
	store := &countingStore{Store: memory.NewSeeded()}
	c := New(store, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.List(ctx, core.KindExpense); err != nil {
			t.Fatalf("List: %v", err)
		}
	}
	if _, err := c.List(ctx, core.KindIncome); err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := store.calls.Load(); got != 2 {
		t.Fatalf("store calls = %d, want 2", got)
	}

	c.Invalidate()
	if _, err := c.List(ctx, core.KindExpense); err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := store.calls.Load(); got != 3 {
		t.Fatalf("store calls after invalidate = %d, want 3", got)
	}
}

func TestCatalogCollapsesConcurrentLoads(t *testing.T) {
	store := &countingStore{Store: memory.NewSeeded(), delay: 20 * time.Millisecond}
	c := New(store, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.List(context.Background(), core.KindIncome); err != nil {
				t.Errorf("List: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.calls.Load(); got != 1 {
		t.Fatalf("store calls = %d, want 1", got)
	}
}

func TestCatalogFindIsKindScoped(t *testing.T) {
	c := New(memory.NewSeeded(), 0)
	ctx := context.Background()

	cat, err := c.Find(ctx, core.KindExpense, 3)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if cat.Name != "Transport" || cat.Kind != core.KindExpense {
		t.Fatalf("unexpected category %+v", cat)
	}
	if _, err := c.Find(ctx, core.KindIncome, 11); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expense-only id, got %v", err)
	}
	if _, err := c.List(ctx, core.Kind("loan")); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestCatalogDoesNotCacheErrors(t *testing.T) {
	store := memory.NewSeeded()
	c := New(store, 0)
	ctx := context.Background()

	store.FailWith(errors.New("db down"))
	if _, err := c.List(ctx, core.KindIncome); err == nil {
		t.Fatal("expected error")
	}
	store.FailWith(nil)
	cats, err := c.List(ctx, core.KindIncome)
	if err != nil || len(cats) == 0 {
		t.Fatalf("List after recovery = %v, %v", cats, err)
	}
}
