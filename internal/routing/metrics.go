// Package routing turns an area's bins into an ordered route with realistic
// collection metrics.
package routing

import (
	"math"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

const earthRadiusKm = 6371.0

// Metric floors: a route is never reported shorter than 10 m or faster than
// one minute.
const (
	minDistanceKm  = 0.01
	minDurationMin = 1
)

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b model.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// PathDistanceKm sums Haversine distances over consecutive path points.
func PathDistanceKm(path []model.GeoPoint) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += Haversine(path[i-1], path[i])
	}
	return total
}

// CostModel converts a path and its stops into distance and duration.
// Speed models stop-and-go collection driving, not free-flow traffic, which
// is why these figures always override a routing provider's estimates.
type CostModel struct {
	SpeedKmh       float64
	BaseServiceMin float64
	PerPercentMin  float64
}

// DefaultCostModel returns the fleet-calibrated defaults: 10 km/h average
// collection speed, 5 min base service per stop, plus 0.02 min per fill
// percent (a full bin takes ~2 min longer to empty).
func DefaultCostModel() CostModel {
	return CostModel{SpeedKmh: 10, BaseServiceMin: 5, PerPercentMin: 0.02}
}

// Metrics is the computed route cost.
type Metrics struct {
	DistanceKm  float64 `json:"distanceKm"`
	DurationMin int     `json:"durationMin"`
}

// RouteMetrics computes distance and duration for a path with known stops.
// Service time is weighted by each bin's fill level.
func (c CostModel) RouteMetrics(path []model.GeoPoint, stops []model.Bin) Metrics {
	service := 0.0
	for _, b := range stops {
		service += c.BaseServiceMin + model.ClampFill(b.FillLevel)*c.PerPercentMin
	}
	return c.finish(PathDistanceKm(path), service)
}

// RouteMetricsForStopCount approximates metrics when stop objects are not
// available, charging the base service time per stop.
func (c CostModel) RouteMetricsForStopCount(path []model.GeoPoint, stopCount int) Metrics {
	return c.finish(PathDistanceKm(path), float64(stopCount)*c.BaseServiceMin)
}

func (c CostModel) finish(distKm, serviceMin float64) Metrics {
	speed := c.SpeedKmh
	if speed <= 0 {
		speed = DefaultCostModel().SpeedKmh
	}
	travelMin := distKm / speed * 60

	dist := math.Round(distKm*100) / 100
	if dist < minDistanceKm {
		dist = minDistanceKm
	}
	dur := int(math.Round(travelMin + serviceMin))
	if dur < minDurationMin {
		dur = minDurationMin
	}
	return Metrics{DistanceKm: dist, DurationMin: dur}
}
