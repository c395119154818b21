// Package geo implements polygon validation and point-in-polygon containment
// used to keep bin→area assignments current.
package geo

import (
	"context"
	"fmt"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

// AreaLister is the slice of the store the resolver needs.
type AreaLister interface {
	ListAreas(ctx context.Context) ([]model.Area, error)
}

// ValidatePolygon checks that a boundary is a closed, non-degenerate ring:
// at least 3 distinct vertices with the first point repeated as the last.
func ValidatePolygon(p model.Polygon) error {
	if len(p) < 4 {
		return fmt.Errorf("polygon must have at least 3 vertices plus a closing point, got %d points", len(p))
	}
	if p[0] != p[len(p)-1] {
		return fmt.Errorf("polygon ring is not closed: first and last points differ")
	}
	distinct := map[model.GeoPoint]struct{}{}
	for _, pt := range p[:len(p)-1] {
		distinct[pt] = struct{}{}
	}
	if len(distinct) < 3 {
		return fmt.Errorf("polygon is degenerate: only %d distinct vertices", len(distinct))
	}
	return nil
}

// Contains reports whether pt lies inside the closed ring using the even-odd
// ray-casting rule. Points exactly on an edge may land on either side; callers
// treat boundary placement as undefined.
func Contains(p model.Polygon, pt model.GeoPoint) bool {
	inside := false
	// Walk edges of the ring; the closing point duplicates the first, so
	// iterating j = i-1 over all points covers every edge exactly once.
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, yj := p[i].Lat, p[j].Lat
		xi, xj := p[i].Lng, p[j].Lng
		if (yi > pt.Lat) != (yj > pt.Lat) &&
			pt.Lng < (xj-xi)*(pt.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// ResolveArea assigns a coordinate to the first enclosing area, or returns
// the empty string when no area contains it. An unassigned result is not an
// error: bins legitimately sit outside every boundary.
func ResolveArea(ctx context.Context, areas AreaLister, pt model.GeoPoint) (string, error) {
	list, err := areas.ListAreas(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve area: list areas: %w", err)
	}
	for _, a := range list {
		if ValidatePolygon(a.Boundary) != nil {
			continue
		}
		if Contains(a.Boundary, pt) {
			return a.ID, nil
		}
	}
	return "", nil
}
