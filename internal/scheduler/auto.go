// Package scheduler creates collection schedules in response to critical
// area findings.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/alerts"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/routing"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

var (
	ErrNoEligibleBins = errors.New("no eligible bins in area")
	ErrNoCollector    = errors.New("no active collector assigned to area")
)

// dedupWindowDays bounds the lookahead for an existing schedule covering the
// same hotspot.
const dedupWindowDays = 7

// startHour is the local hour collection runs begin.
const startHour = 8

// AutoScheduler builds and persists a schedule for a critical
// (area, wasteType) hotspot. Persistence happens only after every prior step
// succeeds; any failure aborts with no partial schedule.
type AutoScheduler struct {
	Store     store.Store
	Assembler *routing.Assembler
	Ledger    *alerts.Ledger
	// OnScheduled fires after a schedule is persisted. Wiring publishes the
	// event and records metrics.
	OnScheduled func(s model.Schedule)
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// EnsureSchedule returns the schedule covering (area, wasteType) in the
// upcoming window, creating one when none exists. The boolean reports
// whether a new schedule was created. Re-running for an already-addressed
// hotspot is a no-op returning the existing schedule.
func (s *AutoScheduler) EnsureSchedule(ctx context.Context, areaID string, wt model.WasteType) (model.Schedule, bool, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	windowEnd := tomorrow.AddDate(0, 0, dedupWindowDays)

	// Step 1: idempotency check against the pending window.
	existing, err := s.Store.ListSchedules(ctx, model.ScheduleFilter{
		AreaID:    areaID,
		WasteType: wt,
		Statuses:  []model.ScheduleStatus{model.ScheduleScheduled, model.ScheduleInProgress},
		DateFrom:  tomorrow,
		DateTo:    windowEnd,
	})
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("auto-schedule: list schedules: %w", err)
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}

	// Step 2: eligible bins.
	bins, err := s.Store.ListBins(ctx, model.BinFilter{
		AreaID:    areaID,
		WasteType: wt,
		Statuses:  []model.BinStatus{model.BinActive, model.BinMaintenance},
	})
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("auto-schedule: list bins: %w", err)
	}
	if len(bins) == 0 {
		return model.Schedule{}, false, fmt.Errorf("auto-schedule area %s %s: %w", areaID, wt, ErrNoEligibleBins)
	}

	area, err := s.Store.GetArea(ctx, areaID)
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("auto-schedule: get area %s: %w", areaID, err)
	}

	// Step 3: an active collector for the area.
	collectors, err := s.Store.ListCollectors(ctx, model.CollectorFilter{
		AreaID: areaID,
		Status: model.CollectorActive,
	})
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("auto-schedule: list collectors: %w", err)
	}
	if len(collectors) == 0 {
		return model.Schedule{}, false, fmt.Errorf("auto-schedule area %s: %w", areaID, ErrNoCollector)
	}

	// Step 4: route assembly over the eligible bins.
	plan, err := s.Assembler.Assemble(ctx, area, bins)
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("auto-schedule: assemble route: %w", err)
	}

	// Step 5: persist, then raise the advisory alert.
	start := tomorrow.Add(startHour * time.Hour)
	end := start.Add(time.Duration(plan.DurationMin) * time.Minute)
	sched, err := s.Store.CreateSchedule(ctx, model.Schedule{
		AreaID:      areaID,
		CollectorID: collectors[0].ID,
		WasteType:   wt,
		Date:        tomorrow,
		StartTime:   &start,
		EndTime:     &end,
		Status:      model.ScheduleScheduled,
		BinIDs:      plan.BinOrder,
		Path:        plan.Path,
		DistanceKm:  plan.DistanceKm,
		DurationMin: plan.DurationMin,
		Notes:       fmt.Sprintf("Auto-scheduled: %s fill critical in %s", wt, area.Name),
	})
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("auto-schedule: create schedule: %w", err)
	}

	// The alert is informational; a failure here leaves a valid schedule
	// without its advisory, which is acceptable.
	if s.Ledger != nil {
		_, _, err = s.Ledger.Upsert(ctx, model.AlertAutoSchedule, alerts.ScheduleSubject(sched.ID), model.SeverityLow,
			fmt.Sprintf("Collection auto-scheduled for %s", area.Name),
			fmt.Sprintf("%d %s bins on %s, est. %.2f km / %d min", len(bins), wt, tomorrow.Format("2006-01-02"), plan.DistanceKm, plan.DurationMin))
		if err != nil {
			return sched, true, nil
		}
	}
	if s.OnScheduled != nil {
		s.OnScheduled(sched)
	}
	return sched, true, nil
}
