package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisKeyPrefix    = "coinchat:lock:user:"
	redisRetryBackoff = 25 * time.Millisecond
)

// releaseScript deletes the key only if this owner still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a per-user lock shared by every instance using the same
// Redis database. Each hold expires after ttl so a crashed holder cannot
// block a user forever.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLock creates a RedisLock. ttl must exceed the longest expected
// critical section.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLock{client: client, ttl: ttl}
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db, poolSize int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("addr", addr).Int("db", db).Msg("Connected to Redis")
	return client, nil
}

func redisKey(userID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, userID)
}

// lock polls SET NX until it wins, the timeout expires or ctx ends.
// It returns the owner token needed for release.
func (rl *RedisLock) lock(ctx context.Context, userID int64, timeout time.Duration) (string, error) {
	key := redisKey(userID)
	token := uuid.NewString()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		ok, err := rl.client.SetNX(ctx, key, token, rl.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("failed to acquire redis lock: %w", err)
		}
		if ok {
			return token, nil
		}

		select {
		case <-deadline.C:
			return "", ErrLockTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(redisRetryBackoff):
		}
	}
}

func (rl *RedisLock) unlock(ctx context.Context, userID int64, token string) error {
	n, err := releaseScript.Run(ctx, rl.client, []string{redisKey(userID)}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release redis lock: %w", err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// WithLockContext executes fn while holding the user's lock, waiting at
// most timeout to obtain it. A lock that expired during fn is logged; fn's
// own error takes precedence.
func (rl *RedisLock) WithLockContext(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	token, err := rl.lock(ctx, userID, timeout)
	if err != nil {
		return err
	}

	fnErr := fn()

	// Release even if the request context was cancelled meanwhile.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := rl.unlock(releaseCtx, userID, token); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Redis lock release failed")
	}

	return fnErr
}
