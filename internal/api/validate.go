package api

import (
	"fmt"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/geo"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

func validateBin(b *model.Bin) error {
	if !b.WasteType.Valid() {
		return fmt.Errorf("invalid wasteType: %q", b.WasteType)
	}
	if b.Status == "" {
		b.Status = model.BinActive
	}
	if !b.Status.Valid() {
		return fmt.Errorf("invalid status: %q", b.Status)
	}
	if b.Location.Lat < -90 || b.Location.Lat > 90 || b.Location.Lng < -180 || b.Location.Lng > 180 {
		return fmt.Errorf("location out of range: %.5f, %.5f", b.Location.Lat, b.Location.Lng)
	}
	b.FillLevel = model.ClampFill(b.FillLevel)
	return nil
}

func validateArea(a *model.Area) error {
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := geo.ValidatePolygon(a.Boundary); err != nil {
		return err
	}
	if !geo.Contains(a.Boundary, a.StartPoint) {
		return fmt.Errorf("startPoint lies outside the boundary")
	}
	if !geo.Contains(a.Boundary, a.EndPoint) {
		return fmt.Errorf("endPoint lies outside the boundary")
	}
	return nil
}

func validateCollector(c *model.Collector) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Status == "" {
		c.Status = model.CollectorActive
	}
	switch c.Status {
	case model.CollectorActive, model.CollectorOnLeave, model.CollectorInactive:
		return nil
	}
	return fmt.Errorf("invalid status: %q", c.Status)
}

func validateScheduleCreate(s *model.Schedule) error {
	if s.AreaID == "" {
		return fmt.Errorf("areaId is required")
	}
	if s.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if s.WasteType != "" && !s.WasteType.Valid() {
		return fmt.Errorf("invalid wasteType: %q", s.WasteType)
	}
	if s.Status == "" {
		s.Status = model.ScheduleScheduled
	}
	if s.Status != model.ScheduleScheduled {
		return fmt.Errorf("new schedules must start in %q", model.ScheduleScheduled)
	}
	return nil
}
