package session

import "sync"

// Locks is a keyed mutex. Entries are dropped once no goroutine holds or
// waits for them, so the map only holds users with in-flight events.
type Locks struct {
	mu sync.Mutex
	m  map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{m: make(map[int64]*lockEntry)}
}

// Lock blocks until key is free and returns the matching unlock.
func (l *Locks) Lock(key int64) (unlock func()) {
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &lockEntry{}
		l.m[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.m, key)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
