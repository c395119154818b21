package routing

import (
	"context"
	"log"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

// VRPSolver orders stop visits between fixed start and end points. It returns
// the visiting order as indices into the submitted stop slice.
type VRPSolver interface {
	Sequence(ctx context.Context, start model.GeoPoint, stops []model.GeoPoint, end model.GeoPoint) ([]int, error)
}

// Sequencer picks the visiting order for a set of stops. It delegates to an
// external solver when one is configured and falls back to the local
// nearest-neighbor heuristic when the solver is unavailable, errors, or
// returns anything other than a full permutation.
type Sequencer struct {
	Solver VRPSolver
	// OnFallback is invoked with a short reason whenever the solver result
	// is discarded. Wiring uses it for logging and metrics.
	OnFallback func(reason string)
}

// Sequence returns a permutation of [0..len(stops)-1].
func (s *Sequencer) Sequence(ctx context.Context, start model.GeoPoint, stops []model.GeoPoint, end model.GeoPoint) []int {
	if len(stops) == 0 {
		return []int{}
	}
	if s.Solver != nil {
		order, err := s.Solver.Sequence(ctx, start, stops, end)
		if err != nil {
			s.fallback("solver error: " + err.Error())
		} else if !isPermutation(order, len(stops)) {
			// A partial plan silently truncates the route; treat it the
			// same as an outage.
			s.fallback("solver returned incomplete plan")
		} else {
			return order
		}
	}
	return NearestNeighborOrder(start, stops)
}

func (s *Sequencer) fallback(reason string) {
	if s.OnFallback != nil {
		s.OnFallback(reason)
		return
	}
	log.Printf("route sequencer: falling back to nearest-neighbor: %s", reason)
}

// NearestNeighborOrder greedily visits the closest unvisited stop starting
// from start. Ties break toward the lowest input index. O(n^2), fine for
// per-area stop counts.
func NearestNeighborOrder(start model.GeoPoint, stops []model.GeoPoint) []int {
	n := len(stops)
	order := make([]int, 0, n)
	visited := make([]bool, n)
	current := start
	for len(order) < n {
		best := -1
		bestDist := 0.0
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			d := Haversine(current, stops[i])
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		visited[best] = true
		order = append(order, best)
		current = stops[best]
	}
	return order
}

// isPermutation checks that order contains every index in [0,n) exactly once.
func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
