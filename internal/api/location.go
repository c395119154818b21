package api

import (
	"sync"
)

// LatestLocation is the most recent reported position of a collector.
type LatestLocation struct {
	CollectorID string  `json:"collectorId"`
	AreaID      string  `json:"areaId,omitempty"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TS          string  `json:"ts"`
}

// LocationCache keeps live collector positions. Positions are ephemeral
// telemetry and deliberately never persisted.
type LocationCache struct {
	mu sync.Mutex
	m  map[string]LatestLocation
}

func NewLocationCache() *LocationCache { return &LocationCache{m: map[string]LatestLocation{}} }

func (c *LocationCache) Upsert(loc LatestLocation) {
	if loc.CollectorID == "" {
		return
	}
	c.mu.Lock()
	c.m[loc.CollectorID] = loc
	c.mu.Unlock()
}

// List returns positions, optionally filtered to one area.
func (c *LocationCache) List(areaID string) []LatestLocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []LatestLocation{}
	for _, v := range c.m {
		if areaID != "" && v.AreaID != areaID {
			continue
		}
		out = append(out, v)
	}
	return out
}
