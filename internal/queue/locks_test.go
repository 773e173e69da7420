package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLocks_SerializesSameEvent(t *testing.T) {
	locks := newEventLocks()

	const goroutines = 20
	var counter, max int
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			release := locks.acquire("event-1")
			defer release()
			counter++
			if counter > max {
				max = counter
			}
			counter--
		}()
	}
	wg.Wait()

	// Only one holder at a time inside the critical section.
	assert.Equal(t, 1, max)
}

func TestEventLocks_EvictsIdleEntries(t *testing.T) {
	locks := newEventLocks()

	release := locks.acquire("event-1")
	locks.mu.Lock()
	held := len(locks.locks)
	locks.mu.Unlock()
	require.Equal(t, 1, held)

	release()

	// Released locks leave the map so it never grows with event history.
	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}

func TestEventLocks_EvictsAfterContention(t *testing.T) {
	locks := newEventLocks()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire("event-1")
			release()
		}()
	}
	wg.Wait()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
