package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/alerts"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/scheduler"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

// DefaultInterval between monitoring cycles.
const DefaultInterval = 15 * time.Minute

// cycleTimeout bounds one full cycle including external calls.
const cycleTimeout = 5 * time.Minute

// Loop drives the control cycle: threshold evaluation, ledger
// reconciliation, auto-scheduling for newly critical hotspots, and the
// missed-collection sweep. Cycles never overlap; the guard skips a tick if
// the previous cycle is somehow still running.
type Loop struct {
	Store    store.Store
	Monitor  *Monitor
	Ledger   *alerts.Ledger
	Auto     *scheduler.AutoScheduler
	Interval time.Duration
	// OnCycle fires after each completed cycle with its duration. Wiring
	// records metrics.
	OnCycle func(d time.Duration)

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// Start runs one cycle immediately, then one per interval until Stop.
func (l *Loop) Start() {
	if l.Interval <= 0 {
		l.Interval = DefaultInterval
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		l.tick()
		ticker := time.NewTicker(l.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				l.tick()
			}
		}
	}()
}

// Stop cancels the timer and waits for an in-flight cycle to finish.
func (l *Loop) Stop() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.done
}

func (l *Loop) tick() {
	// Re-entrancy guard: the interval normally exceeds cycle duration, but a
	// stalled external call must not let cycles pile up.
	if !l.running.CompareAndSwap(false, true) {
		log.Printf("monitor loop: previous cycle still running, skipping tick")
		return
	}
	defer l.running.Store(false)

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()
	if err := l.RunCycle(ctx); err != nil {
		log.Printf("monitor loop: cycle error: %v", err)
	}
	if l.OnCycle != nil {
		l.OnCycle(time.Since(start))
	}
}

// RunCycle executes one full cycle. Errors are returned for logging but
// never halt subsequent cycles; a panic in one cycle is recovered.
func (l *Loop) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, fmt.Errorf("monitor: cycle panic: %v", r))
		}
	}()

	settings, err := l.Store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("monitor: load settings: %w", err)
	}

	findings, err := l.Monitor.Evaluate(ctx, settings)
	if err != nil {
		return err
	}

	var errs []error
	for _, f := range findings {
		if f.Resolved {
			if rerr := l.Ledger.Resolve(ctx, f.Type, f.Subject); rerr != nil {
				errs = append(errs, rerr)
			}
			continue
		}
		if _, _, uerr := l.Ledger.Upsert(ctx, f.Type, f.Subject, f.Severity, f.Title, f.Description); uerr != nil {
			errs = append(errs, uerr)
			continue
		}
		// A critical (area, wasteType) finding triggers auto-scheduling
		// whether new or ongoing; the schedule dedup window makes repeated
		// triggers idempotent.
		if l.Auto != nil && f.Type == model.AlertAreaFillLevel && f.Severity == model.SeverityHigh && f.WasteType != "" {
			if _, _, aerr := l.Auto.EnsureSchedule(ctx, f.AreaID, f.WasteType); aerr != nil {
				log.Printf("monitor loop: auto-schedule %s/%s: %v", f.AreaID, f.WasteType, aerr)
			}
		}
	}

	if serr := l.sweepMissed(ctx); serr != nil {
		errs = append(errs, serr)
	}
	return errors.Join(errs...)
}

// sweepMissed flags overdue schedules. A run is missed once its end window
// (or, without one, its whole day) has passed while still scheduled or
// in-progress.
func (l *Loop) sweepMissed(ctx context.Context) error {
	now := time.Now()
	pending, err := l.Store.ListSchedules(ctx, model.ScheduleFilter{
		Statuses: []model.ScheduleStatus{model.ScheduleScheduled, model.ScheduleInProgress},
	})
	if err != nil {
		return fmt.Errorf("monitor: missed sweep: list schedules: %w", err)
	}
	var errs []error
	for _, s := range pending {
		deadline := s.Date.AddDate(0, 0, 1)
		if s.EndTime != nil {
			deadline = *s.EndTime
		}
		if !deadline.Before(now) {
			continue
		}
		_, _, uerr := l.Ledger.Upsert(ctx, model.AlertMissedCollection, alerts.ScheduleSubject(s.ID), model.SeverityMedium,
			"Collection run missed",
			"Schedule for "+s.Date.Format("2006-01-02")+" was not completed")
		if uerr != nil {
			errs = append(errs, uerr)
		}
	}
	return errors.Join(errs...)
}
