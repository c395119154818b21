package model

import (
	"fmt"
	"time"
)

// WasteType classifies what a bin collects.
type WasteType string

const (
	WasteGeneral   WasteType = "GENERAL"
	WasteOrganic   WasteType = "ORGANIC"
	WasteHazardous WasteType = "HAZARDOUS"
	WasteRecycle   WasteType = "RECYCLE"
)

// WasteTypes lists every valid waste type in a stable order.
var WasteTypes = []WasteType{WasteGeneral, WasteOrganic, WasteHazardous, WasteRecycle}

func (w WasteType) Valid() bool {
	switch w {
	case WasteGeneral, WasteOrganic, WasteHazardous, WasteRecycle:
		return true
	}
	return false
}

type BinStatus string

const (
	BinActive              BinStatus = "ACTIVE"
	BinMaintenance         BinStatus = "MAINTENANCE"
	BinInactive            BinStatus = "INACTIVE"
	BinPendingInstallation BinStatus = "PENDING_INSTALLATION"
)

func (s BinStatus) Valid() bool {
	switch s {
	case BinActive, BinMaintenance, BinInactive, BinPendingInstallation:
		return true
	}
	return false
}

type ScheduleStatus string

const (
	ScheduleScheduled  ScheduleStatus = "scheduled"
	ScheduleInProgress ScheduleStatus = "in-progress"
	ScheduleCompleted  ScheduleStatus = "completed"
	ScheduleCancelled  ScheduleStatus = "cancelled"
)

// CanTransition reports whether a schedule may move from one status to
// another. Forward-only through the lifecycle; cancelled is reachable from
// any non-terminal state.
func CanTransition(from, to ScheduleStatus) bool {
	switch from {
	case ScheduleScheduled:
		return to == ScheduleInProgress || to == ScheduleCancelled
	case ScheduleInProgress:
		return to == ScheduleCompleted || to == ScheduleCancelled
	}
	return false
}

type AlertType string

const (
	AlertBinFillLevel     AlertType = "BIN_FILL_LEVEL"
	AlertAreaFillLevel    AlertType = "AREA_FILL_LEVEL"
	AlertMissedCollection AlertType = "MISSED_COLLECTION"
	AlertAutoSchedule     AlertType = "AUTO_SCHEDULE"
)

type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "LOW"
	SeverityMedium AlertSeverity = "MEDIUM"
	SeverityHigh   AlertSeverity = "HIGH"
)

type AlertStatus string

const (
	AlertUnread AlertStatus = "UNREAD"
	AlertRead   AlertStatus = "READ"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is a closed ring: the first vertex repeated as the last.
type Polygon []GeoPoint

// Bin is a physical collection point. AreaID is empty when the bin lies
// outside every area boundary.
type Bin struct {
	ID            string     `json:"id"`
	Location      GeoPoint   `json:"location"`
	FillLevel     float64    `json:"fillLevel"`
	WasteType     WasteType  `json:"wasteType"`
	AreaID        string     `json:"areaId,omitempty"`
	Status        BinStatus  `json:"status"`
	LastCollected *time.Time `json:"lastCollected,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ClampFill bounds a fill level reading to [0,100].
func ClampFill(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Area is a geofenced collection area with depot points for the truck.
type Area struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Boundary   Polygon  `json:"boundary"`
	StartPoint GeoPoint `json:"startPoint"`
	EndPoint   GeoPoint `json:"endPoint"`
}

type CollectorStatus string

const (
	CollectorActive   CollectorStatus = "active"
	CollectorOnLeave  CollectorStatus = "on-leave"
	CollectorInactive CollectorStatus = "inactive"
)

// Collector is a driver/truck operator assigned to an area.
type Collector struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	AreaID string          `json:"areaId,omitempty"`
	Status CollectorStatus `json:"status"`
}

// Schedule is a planned collection run for one area.
type Schedule struct {
	ID          string         `json:"id"`
	AreaID      string         `json:"areaId"`
	CollectorID string         `json:"collectorId,omitempty"`
	WasteType   WasteType      `json:"wasteType,omitempty"`
	Date        time.Time      `json:"date"`
	StartTime   *time.Time     `json:"startTime,omitempty"`
	EndTime     *time.Time     `json:"endTime,omitempty"`
	Status      ScheduleStatus `json:"status"`
	BinIDs      []string       `json:"binIds"`
	Path        []GeoPoint     `json:"path"`
	DistanceKm  float64        `json:"distanceKm"`
	DurationMin int            `json:"durationMin"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Alert is a deduplicated operational notification. Subject is the structured
// dedup identity; see the alerts package for key construction.
type Alert struct {
	ID          string        `json:"id"`
	Type        AlertType     `json:"type"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`
	Subject     string        `json:"subject"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	ReadAt      *time.Time    `json:"readAt,omitempty"`
}

// Settings is the singleton monitoring configuration. It is loaded per cycle
// and passed explicitly into the monitor and ledger, never held as globals.
type Settings struct {
	NotificationsEnabled bool    `json:"notificationsEnabled"`
	WarningThreshold     float64 `json:"warningThreshold"`
	CriticalThreshold    float64 `json:"criticalThreshold"`
}

func (s Settings) Validate() error {
	if s.WarningThreshold < 0 || s.WarningThreshold > 100 {
		return fmt.Errorf("warningThreshold must be in [0,100], got %v", s.WarningThreshold)
	}
	if s.CriticalThreshold < 0 || s.CriticalThreshold > 100 {
		return fmt.Errorf("criticalThreshold must be in [0,100], got %v", s.CriticalThreshold)
	}
	if s.WarningThreshold >= s.CriticalThreshold {
		return fmt.Errorf("warningThreshold (%v) must be below criticalThreshold (%v)", s.WarningThreshold, s.CriticalThreshold)
	}
	return nil
}

// DefaultSettings matches the thresholds the system ships with.
func DefaultSettings() Settings {
	return Settings{NotificationsEnabled: true, WarningThreshold: 70, CriticalThreshold: 90}
}

// RoutePlan is an assembled route: the visiting order of bins, the full
// waypoint path, and the computed metrics.
type RoutePlan struct {
	BinOrder    []string   `json:"binOrder"`
	Path        []GeoPoint `json:"path"`
	DistanceKm  float64    `json:"distanceKm"`
	DurationMin int        `json:"durationMin"`
}

// BinFilter narrows ListBins. Zero values mean "any".
type BinFilter struct {
	AreaID    string
	WasteType WasteType
	Statuses  []BinStatus
}

// CollectorFilter narrows ListCollectors.
type CollectorFilter struct {
	AreaID string
	Status CollectorStatus
}

// ScheduleFilter narrows ListSchedules. DateFrom/DateTo are inclusive bounds
// on the schedule date; zero times leave the bound open.
type ScheduleFilter struct {
	AreaID    string
	WasteType WasteType
	Statuses  []ScheduleStatus
	DateFrom  time.Time
	DateTo    time.Time
}

// AlertFilter narrows ListAlerts.
type AlertFilter struct {
	Type    AlertType
	Status  AlertStatus
	Subject string
}

// Subscription registers a webhook endpoint for alert and schedule events.
type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
