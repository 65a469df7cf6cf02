package redislock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker serializes critical sections per physician+date with plain
// mutexes. It blocks instead of failing, so every caller eventually runs its
// section. Single-process deployments, tests, and the simulator use it.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MemoryLocker) WithScheduleLock(ctx context.Context, physicianID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := lockKey(physicianID, date)

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
