// Package lock provides per-user locking for balance and progress updates.
// UserLock serializes callers inside one process; RedisLock extends the same
// contract across instances sharing a Redis server.
package lock

import (
	"context"
	"sync"
	"time"
)

// userMutex is a one-slot semaphore so waiters can give up on timeout or
// cancellation without leaking a goroutine.
type userMutex struct {
	sem      chan struct{}
	refCount int
}

// UserLock provides per-user locking to prevent lost updates on a
// user's balance and task progress.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[int64]*userMutex)}
}

// acquire returns the mutex for userID with its reference held.
func (ul *UserLock) acquire(userID int64) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{sem: make(chan struct{}, 1)}
		ul.locks[userID] = m
	}
	m.refCount++
	return m
}

// release drops a reference and forgets idle mutexes.
func (ul *UserLock) release(userID int64, m *userMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m.refCount--
	if m.refCount == 0 {
		delete(ul.locks, userID)
	}
}

// unlock releases the user's lock and drops the caller's reference.
func (ul *UserLock) unlock(userID int64, m *userMutex) {
	<-m.sem
	ul.release(userID, m)
}

// wait blocks up to timeout for the user's lock. It returns ErrLockTimeout
// when the wait expires and ctx.Err() when ctx ends first.
func (ul *UserLock) wait(ctx context.Context, userID int64, timeout time.Duration) (*userMutex, error) {
	m := ul.acquire(userID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m.sem <- struct{}{}:
		return m, nil
	case <-timer.C:
		ul.release(userID, m)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		ul.release(userID, m)
		return nil, ctx.Err()
	}
}

// WithLockContext executes fn while holding the user's lock, waiting at
// most timeout to obtain it.
func (ul *UserLock) WithLockContext(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	m, err := ul.wait(ctx, userID, timeout)
	if err != nil {
		return err
	}
	defer ul.unlock(userID, m)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}
