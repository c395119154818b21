package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set. It backs
// the unit tests and local development.
type Memory struct {
	mu         sync.Mutex
	areas      map[string]model.Area
	bins       map[string]model.Bin
	collectors map[string]model.Collector
	schedules  map[string]model.Schedule
	alerts     map[string]model.Alert
	settings   *model.Settings
	subs       map[string]model.Subscription
	deliveries map[string]*memDelivery
}

// memDelivery augments NotificationDelivery with scheduling state.
type memDelivery struct {
	NotificationDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

func NewMemory() *Memory {
	return &Memory{
		areas:      map[string]model.Area{},
		bins:       map[string]model.Bin{},
		collectors: map[string]model.Collector{},
		schedules:  map[string]model.Schedule{},
		alerts:     map[string]model.Alert{},
		subs:       map[string]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

// Areas

func (m *Memory) CreateArea(ctx context.Context, a model.Area) (model.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	m.areas[a.ID] = a
	return a, nil
}

func (m *Memory) GetArea(ctx context.Context, id string) (model.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.areas[id]
	if !ok {
		return model.Area{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) ListAreas(ctx context.Context) ([]model.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Area, 0, len(m.areas))
	for _, a := range m.areas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateArea(ctx context.Context, a model.Area) (model.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.areas[a.ID]; !ok {
		return model.Area{}, ErrNotFound
	}
	m.areas[a.ID] = a
	return a, nil
}

func (m *Memory) DeleteArea(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.areas[id]; !ok {
		return ErrNotFound
	}
	delete(m.areas, id)
	return nil
}

// Bins

func (m *Memory) CreateBin(ctx context.Context, b model.Bin) (model.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.FillLevel = model.ClampFill(b.FillLevel)
	m.bins[b.ID] = b
	return b, nil
}

func (m *Memory) GetBin(ctx context.Context, id string) (model.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bins[id]
	if !ok {
		return model.Bin{}, ErrNotFound
	}
	return b, nil
}

func (m *Memory) ListBins(ctx context.Context, f model.BinFilter) ([]model.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Bin{}
	for _, b := range m.bins {
		if f.AreaID != "" && b.AreaID != f.AreaID {
			continue
		}
		if f.WasteType != "" && b.WasteType != f.WasteType {
			continue
		}
		if len(f.Statuses) > 0 && !containsBinStatus(f.Statuses, b.Status) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateBin(ctx context.Context, b model.Bin) (model.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.bins[b.ID]
	if !ok {
		return model.Bin{}, ErrNotFound
	}
	b.CreatedAt = prev.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	b.FillLevel = model.ClampFill(b.FillLevel)
	m.bins[b.ID] = b
	return b, nil
}

func (m *Memory) DeleteBin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bins[id]; !ok {
		return ErrNotFound
	}
	delete(m.bins, id)
	return nil
}

// Collectors

func (m *Memory) CreateCollector(ctx context.Context, c model.Collector) (model.Collector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.CollectorActive
	}
	m.collectors[c.ID] = c
	return c, nil
}

func (m *Memory) GetCollector(ctx context.Context, id string) (model.Collector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collectors[id]
	if !ok {
		return model.Collector{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) ListCollectors(ctx context.Context, f model.CollectorFilter) ([]model.Collector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Collector{}
	for _, c := range m.collectors {
		if f.AreaID != "" && c.AreaID != f.AreaID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateCollector(ctx context.Context, c model.Collector) (model.Collector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collectors[c.ID]; !ok {
		return model.Collector{}, ErrNotFound
	}
	m.collectors[c.ID] = c
	return c, nil
}

func (m *Memory) DeleteCollector(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collectors[id]; !ok {
		return ErrNotFound
	}
	delete(m.collectors, id)
	return nil
}

// Schedules

func (m *Memory) CreateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = model.ScheduleScheduled
	}
	m.schedules[s.ID] = s
	return s, nil
}

func (m *Memory) GetSchedule(ctx context.Context, id string) (model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return model.Schedule{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListSchedules(ctx context.Context, f model.ScheduleFilter) ([]model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Schedule{}
	for _, s := range m.schedules {
		if f.AreaID != "" && s.AreaID != f.AreaID {
			continue
		}
		if f.WasteType != "" && s.WasteType != f.WasteType {
			continue
		}
		if len(f.Statuses) > 0 && !containsScheduleStatus(f.Statuses, s.Status) {
			continue
		}
		if !f.DateFrom.IsZero() && s.Date.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && s.Date.After(f.DateTo) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) UpdateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.schedules[s.ID]
	if !ok {
		return model.Schedule{}, ErrNotFound
	}
	s.CreatedAt = prev.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	m.schedules[s.ID] = s
	return s, nil
}

// Alerts

func (m *Memory) CreateAlert(ctx context.Context, a model.Alert) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = model.AlertUnread
	}
	m.alerts[a.ID] = a
	return a, nil
}

func (m *Memory) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return model.Alert{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) ListAlerts(ctx context.Context, f model.AlertFilter) ([]model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Alert{}
	for _, a := range m.alerts {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Subject != "" && a.Subject != f.Subject {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateAlert(ctx context.Context, a model.Alert) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[a.ID]; !ok {
		return model.Alert{}, ErrNotFound
	}
	m.alerts[a.ID] = a
	return a, nil
}

func (m *Memory) FindUnreadAlert(ctx context.Context, typ model.AlertType, subject string) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.Type == typ && a.Subject == subject && a.Status == model.AlertUnread {
			return a, nil
		}
	}
	return model.Alert{}, ErrNotFound
}

// Settings

func (m *Memory) GetSettings(ctx context.Context) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return model.DefaultSettings(), nil
	}
	return *m.settings, nil
}

func (m *Memory) SaveSettings(ctx context.Context, s model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &s
	return nil
}

// Subscriptions and notification queue

func (m *Memory) CreateSubscription(ctx context.Context, sub model.Subscription) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	m.subs[sub.ID] = sub
	return sub, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) EnqueueNotification(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		NotificationDelivery: NotificationDelivery{
			ID:             id,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        payload,
			Status:         "pending",
		},
		NextAttemptAt: time.Now().UTC(),
	}
	return id, nil
}

func (m *Memory) FetchDueNotifications(ctx context.Context, limit int) ([]NotificationDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now().UTC()
	out := []NotificationDelivery{}
	for _, d := range m.deliveries {
		if d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.NotificationDelivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailNotification(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func containsBinStatus(list []model.BinStatus, s model.BinStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsScheduleStatus(list []model.ScheduleStatus, s model.ScheduleStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
