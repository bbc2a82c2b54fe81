package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentProgressIncrementProperty tests that read-modify-write
// increments of one user's counter under WithLockContext never lose an update.
// *For any* number of concurrent increments, the final value equals the
// sequential sum.
func TestConcurrentProgressIncrementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 1000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 30).Draw(t, "numOps")
		delta := rapid.Int64Range(1, 10).Draw(t, "delta")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		ul := NewUserLock()
		progress := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = ul.WithLockContext(context.Background(), userID, time.Second, func() error {
					current := progress
					progress = current + delta
					return nil
				})
			}()
		}
		wg.Wait()

		expected := initial + int64(numOps)*delta
		if progress != expected {
			t.Fatalf("progress mismatch: expected %d, got %d", expected, progress)
		}
	})
}

// TestMultipleUsersIndependentLocksProperty tests that locks for different
// users are independent.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		ul := NewUserLock()
		counters := make([]int64, numUsers+1)

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for uid := 1; uid <= numUsers; uid++ {
			for j := 0; j < opsPerUser; j++ {
				go func(uid int) {
					defer wg.Done()
					_ = ul.WithLockContext(context.Background(), int64(uid), time.Second, func() error {
						counters[uid]++
						return nil
					})
				}(uid)
			}
		}
		wg.Wait()

		for uid := 1; uid <= numUsers; uid++ {
			if counters[uid] != int64(opsPerUser) {
				t.Fatalf("user %d: expected %d, got %d", uid, opsPerUser, counters[uid])
			}
		}
	})
}

// TestExclusiveHolderProperty tests that at most one caller runs inside the
// lock at any moment and that idle entries are dropped afterwards.
func TestExclusiveHolderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		numCallers := rapid.IntRange(2, 20).Draw(t, "numCallers")

		ul := NewUserLock()

		var holders, maxHolders atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numCallers)
		start := make(chan struct{})

		for i := 0; i < numCallers; i++ {
			go func() {
				defer wg.Done()
				<-start
				_ = ul.WithLockContext(context.Background(), userID, time.Second, func() error {
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					return nil
				})
			}()
		}
		close(start)
		wg.Wait()

		if maxHolders.Load() > 1 {
			t.Fatalf("lock held by %d goroutines at once", maxHolders.Load())
		}
		if n := idleEntries(ul); n != 0 {
			t.Fatalf("expected idle mutexes to be dropped, %d remain", n)
		}
	})
}

func idleEntries(ul *UserLock) int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}

// hold takes the user's lock until the returned func is called.
func hold(t *testing.T, ul *UserLock, userID int64) func() {
	t.Helper()
	m, err := ul.wait(context.Background(), userID, time.Second)
	require.NoError(t, err)
	return func() { ul.unlock(userID, m) }
}

func TestUserLock_Timeout(t *testing.T) {
	ul := NewUserLock()
	release := hold(t, ul, 1)

	called := false
	err := ul.WithLockContext(context.Background(), 1, 20*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)

	release()
	require.NoError(t, ul.WithLockContext(context.Background(), 1, 20*time.Millisecond, func() error { return nil }))
	assert.Zero(t, idleEntries(ul))
}

func TestUserLock_WithLockContextCancelled(t *testing.T) {
	ul := NewUserLock()
	release := hold(t, ul, 1)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := ul.WithLockContext(ctx, 1, time.Second, func() error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called)
}

func TestUserLock_WithLockContextReturnsFnError(t *testing.T) {
	ul := NewUserLock()
	want := errors.New("boom")

	err := ul.WithLockContext(context.Background(), 5, time.Second, func() error { return want })
	assert.ErrorIs(t, err, want)
	assert.Zero(t, idleEntries(ul))
}
