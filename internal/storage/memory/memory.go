// Package memory provides an in-process ledger store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"coinkeeper/internal/core"
	"coinkeeper/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu         sync.Mutex
	users      []core.User
	categories map[core.Kind][]core.Category
	txs        map[core.Kind][]core.Transaction
	nextID     map[core.Kind]int64
	failWith   error
}

// New returns a store seeded with the given category names per kind.
func New(seed map[core.Kind][]string) *Store {
	s := &Store{
		categories: make(map[core.Kind][]core.Category),
		txs:        make(map[core.Kind][]core.Transaction),
		nextID:     make(map[core.Kind]int64),
	}
	for kind, names := range seed {
		for i, name := range dedupe(names) {
			s.categories[kind] = append(s.categories[kind], core.Category{ID: int64(i + 1), Kind: kind, Name: name})
		}
	}
	return s
}

// NewSeeded returns a store with the default category set.
func NewSeeded() *Store {
	return New(storage.SeedCategories)
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *Store) FindUser(_ context.Context, externalID int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.User{}, s.failWith
	}
	for _, u := range s.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %d: %w", externalID, core.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	for _, existing := range s.users {
		if existing.ExternalID == u.ExternalID {
			return fmt.Errorf("user %d: %w", u.ExternalID, core.ErrAlreadyExists)
		}
	}
	u.ID = int64(len(s.users) + 1)
	u.CreatedAt = time.Now()
	s.users = append(s.users, *u)
	return nil
}

func (s *Store) AdjustBalance(_ context.Context, userID int64, delta core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	_, err := s.adjust(userID, delta)
	return err
}

func (s *Store) adjust(userID int64, delta core.Money) (core.User, error) {
	for i := range s.users {
		if s.users[i].ID == userID {
			s.users[i].Balance = s.users[i].Balance.Add(delta)
			return s.users[i], nil
		}
	}
	return core.User{}, fmt.Errorf("user id %d: %w", userID, core.ErrNotFound)
}

func (s *Store) FindCategory(_ context.Context, kind core.Kind, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Category{}, s.failWith
	}
	return s.category(kind, id)
}

func (s *Store) category(kind core.Kind, id int64) (core.Category, error) {
	for _, c := range s.categories[kind] {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("%s category %d: %w", kind, id, core.ErrNotFound)
}

func (s *Store) ListCategories(_ context.Context, kind core.Kind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return append([]core.Category(nil), s.categories[kind]...), nil
}

func (s *Store) CreateTransaction(_ context.Context, t *core.Transaction) (core.User, error) {
	if err := t.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.User{}, s.failWith
	}
	cat, err := s.category(t.Kind, t.CategoryID)
	if err != nil {
		return core.User{}, err
	}
	user, err := s.adjust(t.UserID, t.Kind.Signed(t.Amount))
	if err != nil {
		return core.User{}, err
	}
	s.nextID[t.Kind]++
	t.ID = s.nextID[t.Kind]
	t.CategoryName = cat.Name
	t.CreatedAt = time.Now()
	s.txs[t.Kind] = append(s.txs[t.Kind], *t)
	return user, nil
}

func (s *Store) GetTransaction(_ context.Context, kind core.Kind, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Transaction{}, s.failWith
	}
	for _, t := range s.txs[kind] {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, userID int64, kind core.Kind, w core.Window) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.inWindow(userID, kind, w), nil
}

func (s *Store) inWindow(userID int64, kind core.Kind, w core.Window) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.txs[kind] {
		if t.UserID == userID && w.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) SumByCategory(_ context.Context, userID int64, kind core.Kind, w core.Window) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return sumByCategory(s.inWindow(userID, kind, w)), nil
}

func (s *Store) Activity(_ context.Context, userID int64, kind core.Kind, w core.Window) (storage.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return storage.Activity{}, s.failWith
	}
	txs := s.inWindow(userID, kind, w)
	return storage.Activity{Sums: sumByCategory(txs), Transactions: txs}, nil
}

func sumByCategory(txs []core.Transaction) []core.CategoryAmount {
	sums := make(map[string]core.Money)
	for _, t := range txs {
		sums[t.CategoryName] = sums[t.CategoryName].Add(t.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) Close() error { return nil }

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
