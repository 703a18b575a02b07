package app

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"tripdesk/internal/clock"
	"tripdesk/internal/config"
	"tripdesk/internal/metrics"
	"tripdesk/internal/redis"
	"tripdesk/internal/repository/postgres"
	"tripdesk/internal/service"
)

// Services groups the wired application services shared by the server and
// the admin CLI.
type Services struct {
	Trips         *service.TripService
	Bulk          *service.BulkService
	Reconciler    *service.Reconciler
	Notifications *service.NotificationService
	Clock         *clock.System
	Metrics       *metrics.Metrics
}

// NewServices wires repositories, Redis stores and services. reg may be nil.
func NewServices(db *sql.DB, redisClient *goredis.Client, reg prometheus.Registerer, cfg *config.Config) (*Services, error) {
	clk, err := clock.NewSystem(cfg.Lifecycle.Timezone)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	senders := []service.Sender{service.LogSender{}}
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, service.NewWebhookSender(cfg.Notify.WebhookURL))
		log.Printf("notifications: webhook delivery enabled")
	}
	notifications := service.NewNotificationService(cfg.Lifecycle.NotifyTimeout, m, senders...)

	deps := service.TripServiceDeps{
		Trips:         postgres.NewTripRepository(db),
		Locks:         redis.NewLockStore(redisClient),
		Cache:         redis.NewCacheStore(redisClient),
		Clock:         clk,
		Audit:         postgres.NewAuditRepository(db),
		Notifications: notifications,
		Metrics:       m,
		Lock: service.LockConfig{
			TTL:  cfg.Lifecycle.LockTTL,
			Wait: cfg.Lifecycle.LockWait,
		},
	}
	trips := service.NewTripService(deps)

	return &Services{
		Trips:         trips,
		Bulk:          service.NewBulkService(trips, deps.Audit, m, cfg.Lifecycle.BulkConcurrency),
		Reconciler:    service.NewReconciler(deps),
		Notifications: notifications,
		Clock:         clk,
		Metrics:       m,
	}, nil
}
