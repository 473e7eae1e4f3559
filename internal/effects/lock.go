package effects

import (
	"context"
	"sync"
)

// Lock is a FIFO mutual-exclusion guard. At most one holder at a time;
// Release always wakes the longest-waiting acquirer. It serializes effect
// toggle batches so a "remove all cover" sweep can never interleave with a
// concurrent "enable cover", which would leave a token with two cover
// effects or none.
type Lock struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// Acquire blocks until the caller holds the lock or ctx is done. On context
// cancellation the queued slot is abandoned and ctx.Err() returned.
func (l *Lock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	grant := make(chan struct{})
	l.waiters = append(l.waiters, grant)
	l.mu.Unlock()

	select {
	case <-grant:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range l.waiters {
			if w == grant {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		l.mu.Unlock()
		// The grant raced the cancellation: we already hold the lock, so
		// pass it straight to the next waiter.
		l.Release()
		return ctx.Err()
	}
}

// Release hands the lock to the head of the queue, or frees it when nobody
// waits. Calling Release without holding the lock is a programming error and
// simply frees it.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.waiters) > 0 {
		grant := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(grant) // holder count stays at one
		return
	}
	l.held = false
}
