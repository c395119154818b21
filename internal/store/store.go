package store

import (
	"context"
	"errors"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

// Store is the persistence interface consumed by the monitor loop, the
// auto-scheduler, and the API server.
type Store interface {
	// Areas
	CreateArea(ctx context.Context, a model.Area) (model.Area, error)
	GetArea(ctx context.Context, id string) (model.Area, error)
	ListAreas(ctx context.Context) ([]model.Area, error)
	UpdateArea(ctx context.Context, a model.Area) (model.Area, error)
	DeleteArea(ctx context.Context, id string) error

	// Bins
	CreateBin(ctx context.Context, b model.Bin) (model.Bin, error)
	GetBin(ctx context.Context, id string) (model.Bin, error)
	ListBins(ctx context.Context, f model.BinFilter) ([]model.Bin, error)
	UpdateBin(ctx context.Context, b model.Bin) (model.Bin, error)
	DeleteBin(ctx context.Context, id string) error

	// Collectors
	CreateCollector(ctx context.Context, c model.Collector) (model.Collector, error)
	GetCollector(ctx context.Context, id string) (model.Collector, error)
	ListCollectors(ctx context.Context, f model.CollectorFilter) ([]model.Collector, error)
	UpdateCollector(ctx context.Context, c model.Collector) (model.Collector, error)
	DeleteCollector(ctx context.Context, id string) error

	// Schedules
	CreateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error)
	GetSchedule(ctx context.Context, id string) (model.Schedule, error)
	ListSchedules(ctx context.Context, f model.ScheduleFilter) ([]model.Schedule, error)
	UpdateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error)

	// Alerts
	CreateAlert(ctx context.Context, a model.Alert) (model.Alert, error)
	GetAlert(ctx context.Context, id string) (model.Alert, error)
	ListAlerts(ctx context.Context, f model.AlertFilter) ([]model.Alert, error)
	UpdateAlert(ctx context.Context, a model.Alert) (model.Alert, error)
	// FindUnreadAlert returns the UNREAD alert for (type, subject), or
	// ErrNotFound. The ledger invariant guarantees at most one exists.
	FindUnreadAlert(ctx context.Context, typ model.AlertType, subject string) (model.Alert, error)

	// Settings (singleton row)
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error

	// Notification subscriptions and delivery queue
	CreateSubscription(ctx context.Context, sub model.Subscription) (model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	EnqueueNotification(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueNotifications(ctx context.Context, limit int) ([]NotificationDelivery, error)
	MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailNotification(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
}

// NotificationDelivery is one queued webhook delivery attempt.
type NotificationDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var ErrNotFound = errors.New("not found")
