// Package directions is the HTTP client for the external directions and
// geocoding provider (an openrouteservice-compatible API). Callers treat
// every failure as a degrade signal: routes fall back to straight waypoint
// legs, labels fall back to coordinate strings.
package directions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

var ErrUnavailable = errors.New("directions provider unavailable")

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

func New(baseURL, apiKey string, timeout time.Duration, ratePerSec float64) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
		Limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// directionsResponse is the GeoJSON shape returned by
// POST /v2/directions/driving-car/geojson.
type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lng, lat]
		} `json:"geometry"`
	} `json:"features"`
}

// PathGeometry returns road-following geometry through the ordered
// waypoints. Only the geometry is consumed; provider distance and duration
// summaries are ignored by design.
func (c *Client) PathGeometry(ctx context.Context, waypoints []model.GeoPoint) ([]model.GeoPoint, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("need at least 2 waypoints, got %d", len(waypoints))
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	coords := make([][]float64, len(waypoints))
	for i, p := range waypoints {
		coords[i] = []float64{p.Lng, p.Lat}
	}
	body, err := json.Marshal(map[string]any{"coordinates": coords})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v2/directions/driving-car/geojson", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(out.Features) == 0 || len(out.Features[0].Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("%w: empty geometry", ErrUnavailable)
	}

	path := make([]model.GeoPoint, 0, len(out.Features[0].Geometry.Coordinates))
	for _, c := range out.Features[0].Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		path = append(path, model.GeoPoint{Lat: c[1], Lng: c[0]})
	}
	return path, nil
}

type reverseResponse struct {
	Features []struct {
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// ReverseLabel returns a human-readable label for a point via
// GET /geocode/reverse.
func (c *Client) ReverseLabel(ctx context.Context, pt model.GeoPoint) (string, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	q := url.Values{}
	q.Set("point.lat", fmt.Sprintf("%f", pt.Lat))
	q.Set("point.lon", fmt.Sprintf("%f", pt.Lng))
	q.Set("size", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/geocode/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(out.Features) == 0 || out.Features[0].Properties.Label == "" {
		return "", fmt.Errorf("%w: no label", ErrUnavailable)
	}
	return out.Features[0].Properties.Label, nil
}

// Label resolves a point to a readable label, degrading to the coordinate
// string when the provider is down or c is nil.
func Label(ctx context.Context, c *Client, pt model.GeoPoint) string {
	if c != nil {
		if label, err := c.ReverseLabel(ctx, pt); err == nil {
			return label
		}
	}
	return fmt.Sprintf("%.5f, %.5f", pt.Lat, pt.Lng)
}
