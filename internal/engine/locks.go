package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// lockArena hands out one lock per poll id so contention stays scoped to a
// single poll. Locks are 1-buffered channels, which allows a bounded wait
// on acquisition where sync.Mutex cannot.
type lockArena struct {
	mu    sync.Mutex
	locks map[uuid.UUID]chan struct{}
}

func newLockArena() *lockArena {
	return &lockArena{locks: make(map[uuid.UUID]chan struct{})}
}

func (a *lockArena) lock(pollID uuid.UUID) chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.locks[pollID]
	if !ok {
		l = make(chan struct{}, 1)
		a.locks[pollID] = l
	}
	return l
}

// Acquire takes the poll's lock, waiting at most wait. It reports whether
// the lock was obtained.
func (a *lockArena) Acquire(pollID uuid.UUID, wait time.Duration) bool {
	l := a.lock(pollID)

	select {
	case l <- struct{}{}:
		return true
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (a *lockArena) Release(pollID uuid.UUID) {
	<-a.lock(pollID)
}
