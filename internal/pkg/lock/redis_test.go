package lock

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestRedis starts a Redis container and returns a connected client.
// Skips the test if Docker is not available.
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, opts.Addr, opts.Password, opts.DB, 10)
	require.NoError(t, err)

	cleanup := func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}
	return client, cleanup
}

func TestRedisLock_SerializesHolders(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	rl := NewRedisLock(client, 5*time.Second)
	ctx := context.Background()

	const workers = 10
	counter := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := rl.WithLockContext(ctx, 42, 5*time.Second, func() error {
				current := counter
				time.Sleep(2 * time.Millisecond)
				counter = current + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)

	n, err := client.Exists(ctx, redisKey(42)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisLock_Timeout(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	rl := NewRedisLock(client, 5*time.Second)
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = rl.WithLockContext(ctx, 7, time.Second, func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	err := rl.WithLockContext(ctx, 7, 50*time.Millisecond, func() error { return nil })
	assert.ErrorIs(t, err, ErrLockTimeout)
	close(release)
}

func TestRedisLock_ReleaseOnlyOwnToken(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	rl := NewRedisLock(client, 5*time.Second)
	ctx := context.Background()

	token, err := rl.lock(ctx, 9, time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, rl.unlock(ctx, 9, "someone-else"), ErrLockLost)

	n, err := client.Exists(ctx, redisKey(9)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, rl.unlock(ctx, 9, token))
}
