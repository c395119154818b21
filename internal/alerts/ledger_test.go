package alerts

import (
	"context"
	"testing"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

func TestSubjectKeysAreDistinct(t *testing.T) {
	keys := map[string]bool{}
	for _, k := range []string{
		BinSubject("x"),
		AreaSubject("x", model.WasteGeneral),
		AreaSubject("x", model.WasteOrganic),
		AreaSubject("x", ""),
		ScheduleSubject("x"),
	} {
		if keys[k] {
			t.Fatalf("duplicate subject key %q", k)
		}
		keys[k] = true
	}
}

func TestUpsertCreatesThenUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemory())
	subject := BinSubject("bin-1")

	first, created, err := l.Upsert(ctx, model.AlertBinFillLevel, subject, model.SeverityHigh, "Bin critically full", "95%")
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}

	second, created, err := l.Upsert(ctx, model.AlertBinFillLevel, subject, model.SeverityHigh, "Bin critically full", "96%")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatal("ongoing condition reported as a new alert")
	}
	if second.ID != first.ID {
		t.Fatalf("update spawned a new alert: %s vs %s", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("createdAt not preserved on update")
	}
	if second.Description != "96%" {
		t.Fatalf("description not refreshed: %q", second.Description)
	}

	unread, _ := l.Store.ListAlerts(ctx, model.AlertFilter{Status: model.AlertUnread})
	if len(unread) != 1 {
		t.Fatalf("expected exactly one UNREAD alert, got %d", len(unread))
	}
}

func TestUpsertSeparateSubjectsSeparateAlerts(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemory())
	_, _, _ = l.Upsert(ctx, model.AlertBinFillLevel, BinSubject("a"), model.SeverityHigh, "t", "")
	_, _, _ = l.Upsert(ctx, model.AlertBinFillLevel, BinSubject("b"), model.SeverityHigh, "t", "")
	_, _, _ = l.Upsert(ctx, model.AlertAreaFillLevel, AreaSubject("area", model.WasteGeneral), model.SeverityMedium, "t", "")

	unread, _ := l.Store.ListAlerts(ctx, model.AlertFilter{Status: model.AlertUnread})
	if len(unread) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(unread))
	}
}

func TestResolveMarksRead(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemory())
	subject := AreaSubject("area-1", model.WasteGeneral)
	a, _, _ := l.Upsert(ctx, model.AlertAreaFillLevel, subject, model.SeverityMedium, "t", "")

	if err := l.Resolve(ctx, model.AlertAreaFillLevel, subject); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, _ := l.Store.GetAlert(ctx, a.ID)
	if got.Status != model.AlertRead || got.ReadAt == nil {
		t.Fatalf("alert not marked read: %+v", got)
	}

	// A fresh condition after resolution starts a new alert.
	again, created, _ := l.Upsert(ctx, model.AlertAreaFillLevel, subject, model.SeverityHigh, "t", "")
	if !created || again.ID == a.ID {
		t.Fatalf("expected a new alert after resolution, got created=%v id=%s", created, again.ID)
	}
}

func TestResolveMissingIsNoop(t *testing.T) {
	l := NewLedger(store.NewMemory())
	if err := l.Resolve(context.Background(), model.AlertBinFillLevel, BinSubject("nope")); err != nil {
		t.Fatalf("resolve of absent alert should be a no-op, got %v", err)
	}
}

func TestLedgerHooks(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemory())
	var raised, resolved int
	l.OnRaised = func(model.Alert, bool) { raised++ }
	l.OnResolved = func(model.Alert) { resolved++ }

	subject := BinSubject("bin-1")
	_, _, _ = l.Upsert(ctx, model.AlertBinFillLevel, subject, model.SeverityHigh, "t", "")
	_, _, _ = l.Upsert(ctx, model.AlertBinFillLevel, subject, model.SeverityHigh, "t", "")
	_ = l.Resolve(ctx, model.AlertBinFillLevel, subject)
	if raised != 2 || resolved != 1 {
		t.Fatalf("hooks: raised=%d resolved=%d", raised, resolved)
	}
}
