package reservation

import (
	"context"
	"sync"
)

// calendarLocks hands out one lock per calendar identifier.
// Entries are never removed; there is one per configured space at most.
type calendarLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newCalendarLocks() *calendarLocks {
	return &calendarLocks{locks: make(map[string]chan struct{})}
}

// lock waits until calendarID is free or ctx is done, and returns the matching unlock func.
func (l *calendarLocks) lock(ctx context.Context, calendarID string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.locks[calendarID]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[calendarID] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
