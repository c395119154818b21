package routing

import (
	"context"
	"errors"
	"log"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/geo"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

// DirectionsProvider enriches a waypoint sequence with road-following
// geometry. Optional: assembly degrades to straight waypoint legs when the
// provider fails or is absent.
type DirectionsProvider interface {
	PathGeometry(ctx context.Context, waypoints []model.GeoPoint) ([]model.GeoPoint, error)
}

var ErrNoStops = errors.New("route assembly requires at least one bin")

// Assembler builds the full route for an area: visiting order from the
// sequencer, the waypoint path between the area's depots, and metrics from
// the cost model. Provider-reported distance and duration are never used;
// the cost model's figures always win.
type Assembler struct {
	Sequencer  *Sequencer
	Directions DirectionsProvider
	Cost       CostModel
}

// Assemble orders bins between the area's start and end depots and computes
// route metrics weighted by each bin's fill level.
func (a *Assembler) Assemble(ctx context.Context, area model.Area, bins []model.Bin) (model.RoutePlan, error) {
	return a.assemble(ctx, area, bins, false)
}

// AssembleOptimized is Assemble plus a 2-opt refinement pass over the
// sequenced order. Only the manual route preview uses it; scheduled routes
// stay on the plain sequencer output so reruns are deterministic.
func (a *Assembler) AssembleOptimized(ctx context.Context, area model.Area, bins []model.Bin) (model.RoutePlan, error) {
	return a.assemble(ctx, area, bins, true)
}

func (a *Assembler) assemble(ctx context.Context, area model.Area, bins []model.Bin, refine bool) (model.RoutePlan, error) {
	if len(bins) == 0 {
		return model.RoutePlan{}, ErrNoStops
	}
	if err := geo.ValidatePolygon(area.Boundary); err != nil {
		return model.RoutePlan{}, err
	}

	points := make([]model.GeoPoint, len(bins))
	for i, b := range bins {
		points[i] = b.Location
	}
	order := a.Sequencer.Sequence(ctx, area.StartPoint, points, area.EndPoint)
	if refine {
		order = Improve2Opt(area.StartPoint, points, area.EndPoint, order, 2)
	}

	orderedBins := make([]model.Bin, len(order))
	binIDs := make([]string, len(order))
	waypoints := make([]model.GeoPoint, 0, len(order)+2)
	waypoints = append(waypoints, area.StartPoint)
	for i, idx := range order {
		orderedBins[i] = bins[idx]
		binIDs[i] = bins[idx].ID
		waypoints = append(waypoints, bins[idx].Location)
	}
	waypoints = append(waypoints, area.EndPoint)

	path := waypoints
	if a.Directions != nil {
		if geom, err := a.Directions.PathGeometry(ctx, waypoints); err != nil {
			log.Printf("route assembler: directions provider failed, using straight legs: %v", err)
		} else if len(geom) >= 2 {
			path = geom
		}
	}

	m := a.Cost.RouteMetrics(path, orderedBins)
	return model.RoutePlan{
		BinOrder:    binIDs,
		Path:        path,
		DistanceKm:  m.DistanceKm,
		DurationMin: m.DurationMin,
	}, nil
}
