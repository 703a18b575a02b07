package tests

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tripdesk/internal/clock"
	"tripdesk/internal/domain"
	"tripdesk/internal/service"
)

var (
	today     = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	yesterday = today.AddDate(0, 0, -1)
	tomorrow  = today.AddDate(0, 0, 1)

	employee = domain.Actor{ID: "emp-1", Role: domain.RoleEmployee}
	manager  = domain.Actor{ID: "mgr-1", Role: domain.RoleManager}
)

// testEnv wires the services against in-memory collaborators.
type testEnv struct {
	trips  *MockTripRepository
	locks  *MockLockStore
	cache  *MockTripCache
	audit  *MockAuditRepository
	sender *MockSender
	notify *service.NotificationService

	tripService *service.TripService
	bulkService *service.BulkService
	reconciler  *service.Reconciler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLock(t, service.LockConfig{TTL: 5 * time.Second, Wait: 2 * time.Second})
}

func newTestEnvWithLock(t *testing.T, lockCfg service.LockConfig) *testEnv {
	t.Helper()

	env := &testEnv{
		trips:  NewMockTripRepository(),
		locks:  NewMockLockStore(),
		cache:  NewMockTripCache(),
		audit:  NewMockAuditRepository(),
		sender: NewMockSender(),
	}
	env.notify = service.NewNotificationService(time.Second, nil, env.sender)

	deps := service.TripServiceDeps{
		Trips:         env.trips,
		Locks:         env.locks,
		Cache:         env.cache,
		Clock:         clock.Fixed{Day: today},
		Audit:         env.audit,
		Notifications: env.notify,
		Lock:          lockCfg,
	}
	env.tripService = service.NewTripService(deps)
	env.bulkService = service.NewBulkService(env.tripService, env.audit, nil, 4)
	env.reconciler = service.NewReconciler(deps)
	return env
}

// addTrip stores a trip with sane financials.
func (e *testEnv) addTrip(id string, date time.Time, status domain.TripStatus, settled bool) {
	e.trips.AddTrip(&domain.Trip{
		ID:              id,
		Date:            clock.CivilDate(date),
		Status:          status,
		IsSettled:       settled,
		CommercialPrice: decimal.NewFromInt(800),
		TripPrice:       decimal.NewFromInt(1000),
		Collection:      decimal.NewFromInt(600),
		Quantity:        2,
		CreatedBy:       employee.ID,
	})
}

func validCreateRequest(date time.Time) service.CreateTripRequest {
	return service.CreateTripRequest{
		Date:            date,
		CommercialPrice: decimal.NewFromInt(800),
		TripPrice:       decimal.NewFromInt(1000),
		PaidAmount:      decimal.NewFromInt(500),
		Collection:      decimal.NewFromInt(600),
		Commission:      decimal.NewFromInt(50),
		Quantity:        3,
		CustomerName:    " Acme Tours ",
		SupplierName:    "Coach Co",
		Destination:     "Luxor",
	}
}
