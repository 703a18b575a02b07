package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripdesk/internal/domain"
	"tripdesk/internal/lifecycle"
	"tripdesk/internal/metrics"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTripCancelled   NotificationType = "TRIP_CANCELLED"
	NotificationTripCompleted   NotificationType = "TRIP_COMPLETED"
	NotificationReconcileReport NotificationType = "RECONCILE_REPORT"
)

// Recipient addresses either a role or a single actor.
type Recipient struct {
	Role    string
	ActorID string
}

func (r Recipient) String() string {
	if r.ActorID != "" {
		return "actor:" + r.ActorID
	}
	return "role:" + r.Role
}

// Notification represents a notification to be sent.
type Notification struct {
	ID        string
	Type      NotificationType
	Recipient Recipient
	Title     string
	Message   string
	Data      map[string]any
	CreatedAt time.Time
}

// Sender delivers a notification through one channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the process log.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, n Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		n.Type, n.Recipient, n.Title, n.Message)
	return nil
}

// NotificationService fans notifications out asynchronously. Delivery is
// best effort: failures are logged and counted, never returned.
type NotificationService struct {
	senders []Sender
	timeout time.Duration
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(timeout time.Duration, m *metrics.Metrics, senders ...Sender) *NotificationService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationService{senders: senders, timeout: timeout, metrics: m}
}

// NotifyTripCancelled tells managers, and the booking employee if someone
// else cancelled, that a trip was cancelled.
func (s *NotificationService) NotifyTripCancelled(trip *domain.Trip, actorID string) {
	data := map[string]any{
		"trip_id":      trip.ID,
		"date":         trip.Date.Format(time.DateOnly),
		"cancelled_by": actorID,
		"settlement":   lifecycle.SettlementValue(trip).StringFixed(2),
	}
	msg := fmt.Sprintf("Trip %s on %s to %s was cancelled", trip.ID, trip.Date.Format(time.DateOnly), trip.Destination)

	s.dispatch(Notification{
		Type:      NotificationTripCancelled,
		Recipient: Recipient{Role: string(domain.RoleManager)},
		Title:     "Trip Cancelled",
		Message:   msg,
		Data:      data,
	})
	if trip.CreatedBy != "" && trip.CreatedBy != actorID {
		s.dispatch(Notification{
			Type:      NotificationTripCancelled,
			Recipient: Recipient{ActorID: trip.CreatedBy},
			Title:     "Trip Cancelled",
			Message:   msg,
			Data:      data,
		})
	}
}

// NotifyTripCompleted tells the booking employee the trip is completed and
// its settlement is due.
func (s *NotificationService) NotifyTripCompleted(trip *domain.Trip) {
	settlement := lifecycle.SettlementValue(trip)
	recipient := Recipient{ActorID: trip.CreatedBy}
	if trip.CreatedBy == "" {
		recipient = Recipient{Role: string(domain.RoleManager)}
	}

	s.dispatch(Notification{
		Type:      NotificationTripCompleted,
		Recipient: recipient,
		Title:     "Trip Completed",
		Message: fmt.Sprintf("Trip %s on %s is completed. Settlement: %s (%s)",
			trip.ID, trip.Date.Format(time.DateOnly), settlement.StringFixed(2), lifecycle.SettlementDirection(settlement)),
		Data: map[string]any{
			"trip_id":    trip.ID,
			"settlement": settlement.StringFixed(2),
			"is_settled": trip.IsSettled,
		},
	})
}

// NotifyReconcileReport summarises a reconciliation pass for managers.
func (s *NotificationService) NotifyReconcileReport(result ReconcileResult) {
	if len(result.Updated) == 0 {
		return
	}
	s.dispatch(Notification{
		Type:      NotificationReconcileReport,
		Recipient: Recipient{Role: string(domain.RoleManager)},
		Title:     "Trip Statuses Updated",
		Message:   fmt.Sprintf("Reconciliation on %s updated %d trip(s)", result.Today.Format(time.DateOnly), len(result.Updated)),
		Data: map[string]any{
			"updated": result.Updated,
		},
	})
}

// Wait blocks until all dispatched notifications finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) dispatch(n Notification) {
	if s == nil || len(s.senders) == 0 {
		return
	}
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	for _, sender := range s.senders {
		s.wg.Add(1)
		go func(sender Sender) {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("notification sender panic: type=%s recipient=%s panic=%v", n.Type, n.Recipient, r)
					s.metrics.ObserveNotification(metrics.ResultError)
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if err := sender.Send(ctx, n); err != nil {
				log.Printf("notification failed: type=%s recipient=%s err=%v", n.Type, n.Recipient, err)
				s.metrics.ObserveNotification(metrics.ResultError)
				return
			}
			s.metrics.ObserveNotification(metrics.ResultSuccess)
		}(sender)
	}
}
