package redis

import (
	"context"
	"time"

	"tripdesk/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (*Lock, error)
	AcquireReconcileLock(ctx context.Context, ttl time.Duration) (*Lock, error)
	Release(ctx context.Context, lock *Lock) error
}

// TripCacheInterface defines the interface for the trip read cache.
type TripCacheInterface interface {
	GetTrip(ctx context.Context, tripID string) (*domain.Trip, error)
	// SetTrip keeps an already cached entry of the same or newer version.
	SetTrip(ctx context.Context, trip *domain.Trip) error
	InvalidateTrip(ctx context.Context, tripID string) error
}

// NewTestLock builds a lock handle for use by in-memory LockStoreInterface
// implementations in tests.
func NewTestLock(key string) *Lock {
	return &Lock{key: key, token: key}
}

// Key returns the redis key the lock guards.
func (l *Lock) Key() string {
	return l.key
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface = (*LockStore)(nil)
	_ TripCacheInterface = (*CacheStore)(nil)
	_ ResponseStore      = (*IdempotencyStore)(nil)
)
