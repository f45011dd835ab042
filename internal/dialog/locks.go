package dialog

import (
	"sync"

	"github.com/thebtf/notekeeper/pkg/models"
)

// Locks serializes work per owner. Handlers for the same owner run one at a
// time in lock-acquisition order; different owners never block each other.
type Locks struct {
	mu    sync.Mutex
	locks map[models.OwnerID]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[models.OwnerID]*ownerLock)}
}

// Lock blocks until owner's lock is held and returns its release func.
func (l *Locks) Lock(owner models.OwnerID) func() {
	l.mu.Lock()
	ol, ok := l.locks[owner]
	if !ok {
		ol = &ownerLock{}
		l.locks[owner] = ol
	}
	ol.refs++
	l.mu.Unlock()

	ol.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ol.mu.Unlock()
			l.mu.Lock()
			ol.refs--
			if ol.refs == 0 {
				delete(l.locks, owner)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of owners with a held or awaited lock.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
