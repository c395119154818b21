package routing

import "github.com/GaruVA/wctsystem-backend-sub000/internal/model"

// Improve2Opt applies a 2-opt pass to an existing stop order, keeping the
// start and end depots fixed. Used by the optimized route preview to refine
// the sequencer's output; the monitor's fallback path stays plain
// nearest-neighbor so its output is deterministic.
func Improve2Opt(start model.GeoPoint, stops []model.GeoPoint, end model.GeoPoint, order []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	n := len(order)
	// Reversing a 2-stop open path is a legal improving move, so only a
	// single stop is a trivial tour.
	if n < 2 {
		return order
	}
	best := append([]int(nil), order...)
	bestDist := tourDistance(start, stops, end, best)
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				d := tourDistance(start, stops, end, cand)
				if d+1e-9 < bestDist {
					best = cand
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// twoOptSwap reverses order[i..k].
func twoOptSwap(order []int, i, k int) []int {
	out := make([]int, len(order))
	copy(out, order[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = order[j]
		pos++
	}
	copy(out[pos:], order[k+1:])
	return out
}

func tourDistance(start model.GeoPoint, stops []model.GeoPoint, end model.GeoPoint, order []int) float64 {
	total := 0.0
	current := start
	for _, idx := range order {
		total += Haversine(current, stops[idx])
		current = stops[idx]
	}
	total += Haversine(current, end)
	return total
}
