package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotAcquired = errors.New("schedule lock not acquired")

// Locker guards the booking critical section for one physician and date.
// Different physicians or dates never contend.
type Locker interface {
	WithScheduleLock(ctx context.Context, physicianID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error
}

type redisScheduleLocker struct {
	client   *redis.Client
	ttl      time.Duration
	attempts int
	backoff  time.Duration
}

// NewRedisScheduleLocker creates a locker backed by a per physician+date
// Redis key. Acquisition is retried a bounded number of times with a short
// backoff before giving up with ErrNotAcquired.
func NewRedisScheduleLocker(client *redis.Client, ttl time.Duration, attempts int) Locker {
	if attempts < 1 {
		attempts = 1
	}
	return &redisScheduleLocker{
		client:   client,
		ttl:      ttl,
		attempts: attempts,
		backoff:  50 * time.Millisecond,
	}
}

func lockKey(physicianID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("lock:schedule:%s:%s", physicianID.String(), date.Format("2006-01-02"))
}

func (l *redisScheduleLocker) WithScheduleLock(ctx context.Context, physicianID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := lockKey(physicianID, date)
	token := uuid.NewString()

	acquired := false
	for i := 0; i < l.attempts; i++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire schedule lock: %w", err)
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	if !acquired {
		return ErrNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// The token check keeps one process from deleting a lock that already
// expired and was re-acquired by another.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisScheduleLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock: %w", err)
	}
	return nil
}
