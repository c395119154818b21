// Package alerts maintains the deduplicated alert ledger: at most one UNREAD
// alert per (type, subject) at any time.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

// Subject key constructors. Keys are structured and kind-prefixed so no two
// subject kinds can collide, and an area subject can never be a prefix of
// another (ids are UUIDs, the separator is not part of the alphabet).

func BinSubject(binID string) string { return "bin:" + binID }

// AreaSubject identifies an (area, wasteType) aggregate. An empty waste type
// means the area's overall average across all waste types.
func AreaSubject(areaID string, wt model.WasteType) string {
	if wt == "" {
		return fmt.Sprintf("area:%s:ALL", areaID)
	}
	return fmt.Sprintf("area:%s:%s", areaID, wt)
}

func ScheduleSubject(scheduleID string) string { return "schedule:" + scheduleID }

// Ledger wraps the store with the upsert/resolve protocol.
type Ledger struct {
	Store store.Store
	// OnRaised fires when an alert is created or refreshed; OnResolved when
	// one is marked read. Wiring attaches event publication and metrics.
	OnRaised   func(a model.Alert, created bool)
	OnResolved func(a model.Alert)
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{Store: s}
}

// Upsert creates an UNREAD alert for (type, subject) or updates the existing
// one in place. An ongoing condition is not a new event: the original
// createdAt is preserved on update. Returns the alert and whether it was
// newly created.
func (l *Ledger) Upsert(ctx context.Context, typ model.AlertType, subject string, severity model.AlertSeverity, title, description string) (model.Alert, bool, error) {
	existing, err := l.Store.FindUnreadAlert(ctx, typ, subject)
	if err == nil {
		existing.Severity = severity
		existing.Title = title
		existing.Description = description
		updated, err := l.Store.UpdateAlert(ctx, existing)
		if err != nil {
			return model.Alert{}, false, fmt.Errorf("alert ledger: update %s/%s: %w", typ, subject, err)
		}
		if l.OnRaised != nil {
			l.OnRaised(updated, false)
		}
		return updated, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Alert{}, false, fmt.Errorf("alert ledger: lookup %s/%s: %w", typ, subject, err)
	}

	created, err := l.Store.CreateAlert(ctx, model.Alert{
		Type:        typ,
		Severity:    severity,
		Status:      model.AlertUnread,
		Subject:     subject,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return model.Alert{}, false, fmt.Errorf("alert ledger: create %s/%s: %w", typ, subject, err)
	}
	if l.OnRaised != nil {
		l.OnRaised(created, true)
	}
	return created, true, nil
}

// Resolve marks the UNREAD alert for (type, subject) as READ. Callers invoke
// it only once the condition has fallen below the warning threshold. A
// missing alert is a no-op, which keeps re-running a cycle safe.
func (l *Ledger) Resolve(ctx context.Context, typ model.AlertType, subject string) error {
	a, err := l.Store.FindUnreadAlert(ctx, typ, subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("alert ledger: lookup %s/%s: %w", typ, subject, err)
	}
	now := time.Now().UTC()
	a.Status = model.AlertRead
	a.ReadAt = &now
	resolved, err := l.Store.UpdateAlert(ctx, a)
	if err != nil {
		return fmt.Errorf("alert ledger: resolve %s/%s: %w", typ, subject, err)
	}
	if l.OnResolved != nil {
		l.OnResolved(resolved)
	}
	return nil
}
