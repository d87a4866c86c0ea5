package session

import (
	"strconv"
	"time"

	"coinkeeper/internal/cache"
)

// Store holds non-idle sessions in an LRU with TTL. Idle sessions are not
// stored; loading an unknown user yields a fresh idle session.
type Store struct {
	sessions *cache.LRUCache[Session]
	locks    *Locks
	now      func() time.Time
}

type Option func(*storeOptions)

type storeOptions struct {
	now      func() time.Time
	onExpire func(Session)
	onEvict  func(Session)
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) { o.now = now }
}

// OnExpire is called for every session dropped after its TTL.
func OnExpire(fn func(Session)) Option {
	return func(o *storeOptions) { o.onExpire = fn }
}

// OnEvict is called for every session pushed out by the size bound.
func OnEvict(fn func(Session)) Option {
	return func(o *storeOptions) { o.onEvict = fn }
}

func NewStore(maxSize int, ttl time.Duration, opts ...Option) *Store {
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	cacheOpts := []cache.Option[Session]{cache.WithClock[Session](o.now)}
	if o.onExpire != nil || o.onEvict != nil {
		onExpire, onEvict := o.onExpire, o.onEvict
		cacheOpts = append(cacheOpts, cache.WithEvictCallback(func(_ string, s Session, reason cache.EvictReason) {
			switch {
			case reason == cache.EvictExpired && onExpire != nil:
				onExpire(s)
			case reason == cache.EvictCapacity && onEvict != nil:
				onEvict(s)
			}
		}))
	}

	return &Store{
		sessions: cache.NewLRUCache(maxSize, ttl, cacheOpts...),
		locks:    NewLocks(),
		now:      o.now,
	}
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Lock serializes event handling for one user.
func (s *Store) Lock(userID int64) (unlock func()) {
	return s.locks.Lock(userID)
}

func (s *Store) Load(userID int64) Session {
	if sess, ok := s.sessions.Get(key(userID)); ok {
		return sess
	}
	return New(userID)
}

// Save stores sess, or forgets it when it is idle.
func (s *Store) Save(sess Session) {
	if sess.IsIdle() {
		s.sessions.Delete(key(sess.UserID))
		return
	}
	sess.UpdatedAt = s.now()
	s.sessions.Set(key(sess.UserID), sess)
}

func (s *Store) Clear(userID int64) {
	s.sessions.Delete(key(userID))
}

// CleanExpired lets a cache.Manager sweep abandoned drafts.
func (s *Store) CleanExpired() int {
	return s.sessions.CleanExpired()
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	return s.sessions.Size()
}
