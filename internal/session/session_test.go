package session

import (
	"sync"
	"testing"
	"time"

	"coinkeeper/internal/core"
)

func TestStoreLoadUnknownIsIdle(t *testing.T) {
	s := NewStore(10, time.Minute)
	sess := s.Load(5)
	if !sess.IsIdle() || sess.UserID != 5 {
		t.Fatalf("unexpected session %+v", sess)
	}
	if s.Len() != 0 {
		t.Fatalf("Load must not create entries, Len() = %d", s.Len())
	}
}

func TestStoreSaveAndReset(t *testing.T) {
	s := NewStore(10, time.Minute)

	sess := s.Load(1)
	sess.Begin(FlowEntry, AwaitingAmount)
	sess.Draft.Kind = core.KindExpense
	s.Save(sess)

	got := s.Load(1)
	if got.State != AwaitingAmount || got.Draft.Kind != core.KindExpense || got.Flow != FlowEntry {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not stamped")
	}

	got.Reset()
	s.Save(got)
	if s.Len() != 0 {
		t.Fatalf("idle session must be forgotten, Len() = %d", s.Len())
	}
}

func TestBeginDiscardsPreviousFlow(t *testing.T) {
	sess := New(1)
	sess.Begin(FlowEntry, AwaitingAmount)
	amount := core.Money{Cents: 100}
	sess.Draft.Amount = &amount
	sess.Name = "leftover"

	sess.Begin(FlowRange, AwaitingRange)
	if sess.Draft.Amount != nil || sess.Name != "" || sess.Flow != FlowRange || sess.UserID != 1 {
		t.Fatalf("Begin kept residue: %+v", sess)
	}
}

func TestStoreExpiresDrafts(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var expired []int64
	s := NewStore(10, 30*time.Minute,
		WithClock(func() time.Time { return now }),
		OnExpire(func(sess Session) { expired = append(expired, sess.UserID) }))

	sess := s.Load(9)
	sess.Begin(FlowEntry, AwaitingDescription)
	s.Save(sess)

	now = now.Add(31 * time.Minute)
	if n := s.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if !s.Load(9).IsIdle() {
		t.Fatal("expired draft must load as idle")
	}
	if len(expired) != 1 || expired[0] != 9 {
		t.Fatalf("expired = %v, want [9]", expired)
	}
}

func TestStoreSeparatesExpiryFromEviction(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var expired, evicted []int64
	s := NewStore(2, 30*time.Minute,
		WithClock(func() time.Time { return now }),
		OnExpire(func(sess Session) { expired = append(expired, sess.UserID) }),
		OnEvict(func(sess Session) { evicted = append(evicted, sess.UserID) }))

	for _, id := range []int64{1, 2, 3} {
		sess := s.Load(id)
		sess.Begin(FlowEntry, AwaitingAmount)
		s.Save(sess)
	}
	if len(evicted) != 1 || evicted[0] != 1 {
		t.Fatalf("evicted = %v, want [1]", evicted)
	}
	if len(expired) != 0 {
		t.Fatalf("capacity eviction counted as expiry: %v", expired)
	}

	now = now.Add(time.Hour)
	if n := s.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired() = %d, want 2", n)
	}
	if len(expired) != 2 || len(evicted) != 1 {
		t.Fatalf("expired = %v, evicted = %v", expired, evicted)
	}
}

func TestLocksSerializePerUser(t *testing.T) {
	locks := NewLocks()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(1)
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if locks.Len() != 0 {
		t.Fatalf("lock entries leaked: %d", locks.Len())
	}
}

func TestLocksIndependentUsers(t *testing.T) {
	locks := NewLocks()
	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(2)
		unlock()
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for user 2 blocked by user 1")
	}
}
