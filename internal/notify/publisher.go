// Package notify delivers alert and schedule events to subscribed webhook
// endpoints. Events are fanned out to a persistent queue and delivered
// asynchronously with retry.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

// Event types carried in the envelope and matched against subscription
// filters.
const (
	EventAlertRaised     = "alert.raised"
	EventAlertResolved   = "alert.resolved"
	EventScheduleCreated = "schedule.created"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit enqueues one delivery per matching subscription. Emission respects the
// global notifications toggle and never fails the caller: a hotspot must be
// scheduled whether or not its webhook goes out.
func (p *Publisher) Emit(ctx context.Context, eventType string, data any) {
	settings, err := p.Store.GetSettings(ctx)
	if err != nil || !settings.NotificationsEnabled {
		return
	}
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, eventType)
	if err != nil || len(subs) == 0 {
		return
	}
	envelope := map[string]any{
		"id":   fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, _ := json.Marshal(envelope)
	for _, s := range subs {
		_, _ = p.Store.EnqueueNotification(ctx, s.ID, eventType, s.URL, s.Secret, body)
	}
}
