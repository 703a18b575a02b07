package service

import (
	"context"
	"log"
	"time"

	"tripdesk/internal/redis"
)

const lockRetryInterval = 25 * time.Millisecond

// LockConfig controls per-trip locking.
type LockConfig struct {
	TTL  time.Duration // How long a lock lives if its holder dies.
	Wait time.Duration // How long to retry before reporting ErrTripBusy.
}

// DefaultLockConfig is used when a zero LockConfig is supplied.
var DefaultLockConfig = LockConfig{TTL: 10 * time.Second, Wait: 2 * time.Second}

type tripLocker struct {
	locks redis.LockStoreInterface
	cfg   LockConfig
}

func newTripLocker(locks redis.LockStoreInterface, cfg LockConfig) tripLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultLockConfig.TTL
	}
	if cfg.Wait < 0 {
		cfg.Wait = 0
	}
	return tripLocker{locks: locks, cfg: cfg}
}

// acquire takes the per-trip lock, retrying until cfg.Wait elapses.
func (l tripLocker) acquire(ctx context.Context, tripID string) (*redis.Lock, error) {
	deadline := time.Now().Add(l.cfg.Wait)
	for {
		lock, err := l.locks.AcquireTripLock(ctx, tripID, l.cfg.TTL)
		if err != nil {
			return nil, err
		}
		if lock != nil {
			return lock, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrTripBusy
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l tripLocker) release(lock *redis.Lock) {
	// Release even if the request context is already done.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.locks.Release(ctx, lock); err != nil {
		log.Printf("failed to release lock %s: %v", lock.Key(), err)
	}
}
