package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tripdesk/internal/clock"
	"tripdesk/internal/domain"
	"tripdesk/internal/redis"
	"tripdesk/internal/repository"
	"tripdesk/internal/service"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is an in-memory TripRepository with version checks.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	CreateCallCount   int32
	SaveCallCount     int32
	SaveManyCallCount int32

	// Error injection
	CreateError   error
	SaveError     error
	SaveManyError error
	GetManyError  error

	// SaveDelay widens the read-modify-write window in concurrency tests.
	SaveDelay time.Duration
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trip.Version == 0 {
		trip.Version = 1
	}
	m.trips[trip.ID] = trip.Clone()
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.trips[trip.ID]; exists {
		return ErrMockDBConstraint
	}
	trip.Version = 1
	m.trips[trip.ID] = trip.Clone()
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	return trip.Clone(), nil
}

func (m *MockTripRepository) GetMany(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	if m.GetManyError != nil {
		return nil, m.GetManyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make(map[string]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = true
	}
	statuses := make(map[domain.TripStatus]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses[st] = true
	}

	result := make([]*domain.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		switch {
		case len(ids) > 0 && !ids[t.ID]:
			continue
		case len(statuses) > 0 && !statuses[t.Status]:
			continue
		case filter.ExcludeStatus != "" && t.Status == filter.ExcludeStatus:
			continue
		case !filter.DateFrom.IsZero() && t.Date.Before(clock.CivilDate(filter.DateFrom)):
			continue
		case !filter.DateTo.IsZero() && t.Date.After(clock.CivilDate(filter.DateTo)):
			continue
		case filter.CreatedBy != "" && t.CreatedBy != filter.CreatedBy:
			continue
		case filter.IsSettled != nil && t.IsSettled != *filter.IsSettled:
			continue
		}
		result = append(result, t.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			if filter.SortDesc {
				return a.Date.After(b.Date)
			}
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*domain.Trip{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockTripRepository) Save(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	if m.SaveDelay > 0 {
		time.Sleep(m.SaveDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != trip.Version {
		return repository.ErrVersionConflict
	}
	trip.Version++
	m.trips[trip.ID] = trip.Clone()
	return nil
}

// SaveMany applies every trip or none, checking all versions first.
func (m *MockTripRepository) SaveMany(ctx context.Context, trips []*domain.Trip) error {
	atomic.AddInt32(&m.SaveManyCallCount, 1)
	if m.SaveManyError != nil {
		return m.SaveManyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, trip := range trips {
		stored, ok := m.trips[trip.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Version != trip.Version {
			return repository.ErrVersionConflict
		}
	}
	for _, trip := range trips {
		trip.Version++
		m.trips[trip.ID] = trip.Clone()
	}
	return nil
}

// SetStatus changes a stored trip behind the service's back, simulating a
// concurrent writer.
func (m *MockTripRepository) SetStatus(id string, status domain.TripStatus, settled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trips[id]; ok {
		t.Status = status
		t.IsSettled = settled
		t.Version++
	}
}

// GetTrip returns a copy of a stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil
	}
	return t.Clone()
}

// CountTrips returns the number of stored trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// ──────────────────────────────────────────────
// MOCK AUDIT REPOSITORY
// ──────────────────────────────────────────────

// MockAuditRepository records audit entries in memory.
type MockAuditRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry

	// Error injection
	RecordError error
}

// NewMockAuditRepository creates a new mock audit repository.
func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	if m.RecordError != nil {
		return m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns the recorded entries with the given action.
func (m *MockAuditRepository) Entries(action domain.AuditAction) []*domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditEntry
	for _, e := range m.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of recorded entries.
func (m *MockAuditRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu      sync.Mutex
	locks   map[string]time.Time
	holders map[string]int
	maxHeld map[string]int

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks:   make(map[string]time.Time),
		holders: make(map[string]int),
		maxHeld: make(map[string]int),
	}
}

func (m *MockLockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (*redis.Lock, error) {
	return m.acquire("lock:trip:"+tripID, ttl)
}

func (m *MockLockStore) AcquireReconcileLock(ctx context.Context, ttl time.Duration) (*redis.Lock, error) {
	return m.acquire("lock:reconcile", ttl)
}

func (m *MockLockStore) Release(ctx context.Context, lock *redis.Lock) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if lock == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lock.Key())
	if m.holders[lock.Key()] > 0 {
		m.holders[lock.Key()]--
	}
	return nil
}

func (m *MockLockStore) acquire(key string, ttl time.Duration) (*redis.Lock, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return nil, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return nil, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	m.holders[key]++
	if m.holders[key] > m.maxHeld[key] {
		m.maxHeld[key] = m.holders[key]
	}
	return redis.NewTestLock(key), nil
}

// Hold takes a lock on behalf of another writer (for test setup).
func (m *MockLockStore) Hold(key string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[key] = time.Now().Add(ttl)
}

// Free drops a lock taken with Hold.
func (m *MockLockStore) Free(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
}

// IsLocked checks if a key is locked (for test assertions).
func (m *MockLockStore) IsLocked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[key]
	return exists && time.Now().Before(expiry)
}

// MaxConcurrentHolders returns the highest number of simultaneous holders
// seen for key.
func (m *MockLockStore) MaxConcurrentHolders(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxHeld[key]
}

// ──────────────────────────────────────────────
// MOCK TRIP CACHE
// ──────────────────────────────────────────────

// MockTripCache is an in-memory TripCacheInterface.
type MockTripCache struct {
	mu    sync.Mutex
	trips map[string]*domain.Trip

	GetCallCount        int32
	InvalidateCallCount int32
}

// NewMockTripCache creates a new mock trip cache.
func NewMockTripCache() *MockTripCache {
	return &MockTripCache{trips: make(map[string]*domain.Trip)}
}

func (m *MockTripCache) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (m *MockTripCache) SetTrip(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.trips[trip.ID]; ok && cached.Version >= trip.Version {
		return nil
	}
	m.trips[trip.ID] = trip.Clone()
	return nil
}

func (m *MockTripCache) InvalidateTrip(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, tripID)
	return nil
}

// Has reports whether tripID is cached.
func (m *MockTripCache) Has(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.trips[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION SENDER
// ──────────────────────────────────────────────

// MockSender records delivered notifications.
type MockSender struct {
	mu   sync.Mutex
	sent []service.Notification

	// Control behavior
	SendError error
	Delay     time.Duration
}

// NewMockSender creates a new mock sender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(ctx context.Context, n service.Notification) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.SendError != nil {
		return m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns the notifications of the given type.
func (m *MockSender) Sent(typ service.NotificationType) []service.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []service.Notification
	for _, n := range m.sent {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)

// Ensure mocks implement interfaces.
var (
	_ repository.TripRepository  = (*MockTripRepository)(nil)
	_ repository.AuditRepository = (*MockAuditRepository)(nil)
	_ redis.LockStoreInterface   = (*MockLockStore)(nil)
	_ redis.TripCacheInterface   = (*MockTripCache)(nil)
	_ service.Sender             = (*MockSender)(nil)
)
