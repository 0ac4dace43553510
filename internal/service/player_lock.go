package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// DefaultLockWait bounds how long a caller waits for a player's critical
// section before giving up with domain.ErrConcurrency.
const DefaultLockWait = 250 * time.Millisecond

// PlayerLocker serialises favor mutations per player. The returned unlock
// func is safe to call more than once.
type PlayerLocker interface {
	Lock(ctx context.Context, playerID string) (unlock func(), err error)
}

// LocalLocker keeps one weighted semaphore per player in process memory.
type LocalLocker struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
	wait time.Duration
}

var _ PlayerLocker = (*LocalLocker)(nil)

// NewLocalLocker returns a LocalLocker that waits at most wait per attempt.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &LocalLocker{sems: make(map[string]*semaphore.Weighted), wait: wait}
}

func (l *LocalLocker) sem(playerID string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[playerID]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.sems[playerID] = s
	}
	return s
}

// Lock implements PlayerLocker.
func (l *LocalLocker) Lock(ctx context.Context, playerID string) (func(), error) {
	return l.lockUntil(ctx, playerID, time.Now().Add(l.wait))
}

func (l *LocalLocker) lockUntil(ctx context.Context, playerID string, deadline time.Time) (func(), error) {
	s := l.sem(playerID)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	if err := s.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("player %s busy: %w", playerID, domain.ErrConcurrency)
	}
	var once sync.Once
	return func() { once.Do(func() { s.Release(1) }) }, nil
}

// DistributedLocker takes the per-player critical section through a shared
// domain.LockManager so several processes can run against one ledger. It
// also holds the local lock, so goroutines in this process queue locally
// instead of polling the remote lock.
type DistributedLocker struct {
	local *LocalLocker
	locks domain.LockManager
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

var _ PlayerLocker = (*DistributedLocker)(nil)

// NewDistributedLocker wraps locks. ttl bounds how long a crashed holder can
// keep the lock.
func NewDistributedLocker(locks domain.LockManager, ttl, wait time.Duration) *DistributedLocker {
	if wait <= 0 {
		wait = DefaultLockWait
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &DistributedLocker{
		local: NewLocalLocker(wait),
		locks: locks,
		ttl:   ttl,
		wait:  wait,
		retry: 10 * time.Millisecond,
	}
}

// Lock implements PlayerLocker. The local queue and the remote lock share
// one wait budget.
func (d *DistributedLocker) Lock(ctx context.Context, playerID string) (func(), error) {
	deadline := time.Now().Add(d.wait)
	unlockLocal, err := d.local.lockUntil(ctx, playerID, deadline)
	if err != nil {
		return nil, err
	}

	key := "favor:" + playerID
	for {
		release, err := d.locks.Acquire(ctx, key, d.ttl)
		if err == nil {
			var once sync.Once
			return func() {
				once.Do(func() {
					release()
					unlockLocal()
				})
			}, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			unlockLocal()
			return nil, fmt.Errorf("player %s lock: %w", playerID, err)
		}
		if time.Now().After(deadline) {
			unlockLocal()
			return nil, fmt.Errorf("player %s busy: %w", playerID, domain.ErrConcurrency)
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-time.After(min(d.retry, time.Until(deadline))):
		}
	}
}
