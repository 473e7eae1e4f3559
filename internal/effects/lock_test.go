package effects

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueLen reads the waiter count under the lock's own mutex.
func queueLen(l *Lock) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

func waitForQueueLen(t *testing.T, l *Lock, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for queueLen(l) != n {
		if time.Now().After(deadline) {
			t.Fatalf("queue never reached length %d (at %d)", n, queueLen(l))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLockMutualExclusion(t *testing.T) {
	t.Parallel()
	var l Lock
	var holders, maxHolders int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Acquire(context.Background()))
			mu.Lock()
			holders++
			if holders > maxHolders {
				maxHolders = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			l.Release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxHolders)
}

func TestLockFIFO(t *testing.T) {
	t.Parallel()
	var l Lock
	require.NoError(t, l.Acquire(context.Background()))

	const n = 5
	order := make(chan int, n)
	var wg sync.WaitGroup
	// Queue waiters one at a time so arrival order is deterministic.
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, l.Acquire(context.Background()))
			order <- i
			l.Release()
		}(i)
		waitForQueueLen(t, &l, i+1)
	}

	l.Release()
	wg.Wait()
	close(order)

	got := make([]int, 0, n)
	for i := range order {
		got = append(got, i)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLockAcquireCancelled(t *testing.T) {
	t.Parallel()
	var l Lock
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Acquire(ctx) }()
	waitForQueueLen(t, &l, 1)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, 0, queueLen(&l))

	// The abandoned slot must not wedge the lock for later acquirers.
	l.Release()
	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
}

func TestLockImmediateAcquireIgnoresDoneContext(t *testing.T) {
	t.Parallel()
	var l Lock
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Uncontended acquisition succeeds without consulting the context.
	require.NoError(t, l.Acquire(ctx))
	l.Release()
}
