package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tripLockPrefix = "lock:trip:"
	reconcileLock  = "lock:reconcile"
)

// releaseScript deletes a lock only if it still holds our token, so a lock
// that expired and was re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held lock. Release it exactly once.
type Lock struct {
	key   string
	token string
}

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireTripLock attempts to lock a single trip for a read-modify-write.
// Returns nil without error if the lock is already held.
func (s *LockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (*Lock, error) {
	return s.acquire(ctx, tripLockPrefix+tripID, ttl)
}

// AcquireReconcileLock attempts to take the cluster-wide reconciliation lock.
func (s *LockStore) AcquireReconcileLock(ctx context.Context, ttl time.Duration) (*Lock, error) {
	return s.acquire(ctx, reconcileLock, ttl)
}

// Release frees a lock previously returned by an Acquire call.
func (s *LockStore) Release(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}
	return releaseScript.Run(ctx, s.client, []string{lock.key}, lock.token).Err()
}

func (s *LockStore) acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	return &Lock{key: key, token: token}, nil
}
