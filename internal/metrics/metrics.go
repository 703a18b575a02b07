package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "tripdesk_"

// Result labels.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultNoop     = "noop"
	ResultError    = "error"
	ResultSuccess  = "success"
	ResultSkipped  = "skipped"
)

// Metrics bundles trip lifecycle metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	SettlementTotal    *prometheus.CounterVec
	BulkItemsTotal     *prometheus.CounterVec
	ReconcileRunsTotal *prometheus.CounterVec
	ReconcileUpdated   prometheus.Counter
	ReconcileDuration  prometheus.Histogram
	NotificationsTotal *prometheus.CounterVec
}

// New constructs metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "trip_transitions_total",
				Help: "Manual trip status transitions by target status and result",
			},
			[]string{"to", "result"},
		),
		SettlementTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "trip_settlement_changes_total",
				Help: "Settlement flag changes by result",
			},
			[]string{"result"},
		),
		BulkItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bulk_items_total",
				Help: "Items processed by bulk operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		ReconcileRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_runs_total",
				Help: "Reconciliation passes by result",
			},
			[]string{"result"},
		),
		ReconcileUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "reconcile_updated_trips_total",
			Help: "Trips whose status was corrected by reconciliation",
		}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "reconcile_duration_seconds",
			Help:    "Reconciliation pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notification deliveries by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		m.TransitionsTotal,
		m.SettlementTotal,
		m.BulkItemsTotal,
		m.ReconcileRunsTotal,
		m.ReconcileUpdated,
		m.ReconcileDuration,
		m.NotificationsTotal,
	)
	return m
}

func (m *Metrics) ObserveTransition(to, result string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(to, result).Inc()
}

func (m *Metrics) ObserveSettlement(result string) {
	if m == nil {
		return
	}
	m.SettlementTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveBulkItem(operation, result string) {
	if m == nil {
		return
	}
	m.BulkItemsTotal.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveReconcile(result string, updated int, took time.Duration) {
	if m == nil {
		return
	}
	m.ReconcileRunsTotal.WithLabelValues(result).Inc()
	m.ReconcileUpdated.Add(float64(updated))
	m.ReconcileDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveNotification(result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}
