// Package monitor evaluates fill-level telemetry against the configured
// thresholds and drives the periodic control loop.
package monitor

import (
	"context"
	"fmt"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/alerts"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

// Finding is one evaluation result for a subject. Resolved findings signal
// that the condition has cleared below the warning threshold and any open
// alert should be marked read.
type Finding struct {
	Type        model.AlertType
	Subject     string
	Severity    model.AlertSeverity
	Resolved    bool
	Title       string
	Description string
	AreaID      string
	WasteType   model.WasteType
}

// Monitor computes findings from current bin state. It is read-only; all
// writes go through the alert ledger.
type Monitor struct {
	Store store.Store
	// Labeler turns a coordinate into a readable place name for alert text.
	// Optional; nil falls back to coordinate strings.
	Labeler func(ctx context.Context, pt model.GeoPoint) string
}

// monitoredStatuses: bins out of service or awaiting installation do not
// produce fill findings and are excluded from area averages.
var monitoredStatuses = []model.BinStatus{model.BinActive, model.BinMaintenance}

// Evaluate runs one read-only pass: per-bin criticals, per (area, wasteType)
// averages, and per-area overall averages. Thresholds come from the settings
// passed in, never from globals.
func (m *Monitor) Evaluate(ctx context.Context, settings model.Settings) ([]Finding, error) {
	bins, err := m.Store.ListBins(ctx, model.BinFilter{Statuses: monitoredStatuses})
	if err != nil {
		return nil, fmt.Errorf("monitor: list bins: %w", err)
	}
	areas, err := m.Store.ListAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: list areas: %w", err)
	}
	areaNames := make(map[string]string, len(areas))
	for _, a := range areas {
		areaNames[a.ID] = a.Name
	}

	var findings []Finding

	// Per-bin stream: critical fill raises HIGH; a reading back under the
	// warning threshold clears the subject.
	for _, b := range bins {
		switch {
		case b.FillLevel >= settings.CriticalThreshold:
			findings = append(findings, Finding{
				Type:        model.AlertBinFillLevel,
				Subject:     alerts.BinSubject(b.ID),
				Severity:    model.SeverityHigh,
				Title:       "Bin critically full",
				Description: fmt.Sprintf("Bin at %s is at %.0f%% capacity", m.label(ctx, b.Location), b.FillLevel),
			})
		case b.FillLevel < settings.WarningThreshold:
			findings = append(findings, Finding{
				Type:     model.AlertBinFillLevel,
				Subject:  alerts.BinSubject(b.ID),
				Resolved: true,
			})
		}
	}

	// Area aggregates: one stream per (area, wasteType) with at least one
	// bin of that type, plus an independent overall stream per area.
	type bucket struct {
		sum   float64
		count int
	}
	byType := map[string]map[model.WasteType]*bucket{}
	overall := map[string]*bucket{}
	for _, b := range bins {
		if b.AreaID == "" {
			continue
		}
		if byType[b.AreaID] == nil {
			byType[b.AreaID] = map[model.WasteType]*bucket{}
		}
		if byType[b.AreaID][b.WasteType] == nil {
			byType[b.AreaID][b.WasteType] = &bucket{}
		}
		byType[b.AreaID][b.WasteType].sum += b.FillLevel
		byType[b.AreaID][b.WasteType].count++
		if overall[b.AreaID] == nil {
			overall[b.AreaID] = &bucket{}
		}
		overall[b.AreaID].sum += b.FillLevel
		overall[b.AreaID].count++
	}

	for _, a := range areas {
		for _, wt := range model.WasteTypes {
			bk := byType[a.ID][wt]
			if bk == nil || bk.count == 0 {
				continue
			}
			avg := bk.sum / float64(bk.count)
			findings = append(findings, m.areaFinding(settings, a, wt, avg, bk.count))
		}
		if bk := overall[a.ID]; bk != nil && bk.count > 0 {
			avg := bk.sum / float64(bk.count)
			findings = append(findings, m.areaFinding(settings, a, "", avg, bk.count))
		}
	}
	return findings, nil
}

func (m *Monitor) areaFinding(settings model.Settings, a model.Area, wt model.WasteType, avg float64, count int) Finding {
	f := Finding{
		Type:      model.AlertAreaFillLevel,
		Subject:   alerts.AreaSubject(a.ID, wt),
		AreaID:    a.ID,
		WasteType: wt,
	}
	scope := "overall"
	if wt != "" {
		scope = string(wt)
	}
	switch {
	case avg >= settings.CriticalThreshold:
		f.Severity = model.SeverityHigh
		f.Title = fmt.Sprintf("Area %s %s fill critical", a.Name, scope)
	case avg >= settings.WarningThreshold:
		f.Severity = model.SeverityMedium
		f.Title = fmt.Sprintf("Area %s %s fill elevated", a.Name, scope)
	default:
		f.Resolved = true
		return f
	}
	f.Description = fmt.Sprintf("Average fill across %d %s bins in %s is %.0f%%", count, scope, a.Name, avg)
	return f
}

func (m *Monitor) label(ctx context.Context, pt model.GeoPoint) string {
	if m.Labeler != nil {
		return m.Labeler(ctx, pt)
	}
	return fmt.Sprintf("%.5f, %.5f", pt.Lat, pt.Lng)
}
