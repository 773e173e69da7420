package queue

import "sync"

// eventLocks serializes queue operations per event. Two concurrent joins on
// one event must not both read the same queue size, and renumbering must not
// race an in-flight allocation; different events stay fully independent.
//
// Locks are reference counted and dropped from the map once the last holder
// releases, so the map only holds events with operations in flight.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*eventLock
}

type eventLock struct {
	mu   sync.Mutex
	refs int
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[string]*eventLock)}
}

// acquire locks the event's critical section and returns the unlock func.
func (l *eventLocks) acquire(eventID string) func() {
	l.mu.Lock()
	el, ok := l.locks[eventID]
	if !ok {
		el = &eventLock{}
		l.locks[eventID] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()
	return func() {
		el.mu.Unlock()

		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, eventID)
		}
		l.mu.Unlock()
	}
}
