// Package solver is the HTTP client for the external single-vehicle VRP
// solver. Every failure mode — network error, non-2xx, partial plan — is
// reported to the caller, which falls back to the local heuristic.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

// ErrUnavailable marks any solver failure. The sequencer treats it as a
// signal to fall back, never as a user-facing error.
var ErrUnavailable = errors.New("vrp solver unavailable")

const vehicleID = "truck-1"

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// New builds a client with a bounded request timeout. The limiter caps
// outbound solver calls; bursts of monitor cycles must not hammer the
// provider.
func New(baseURL string, timeout time.Duration, ratePerSec float64) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
		Limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

type solveRequest struct {
	Vehicle vehicle `json:"vehicle"`
	Jobs    []job   `json:"jobs"`
}

type vehicle struct {
	ID    string         `json:"id"`
	Start model.GeoPoint `json:"start"`
	End   model.GeoPoint `json:"end"`
}

type job struct {
	ID       int            `json:"id"`
	Location model.GeoPoint `json:"location"`
}

type solveResponse struct {
	Routes []struct {
		Vehicle string `json:"vehicle"`
		Jobs    []int  `json:"jobs"`
	} `json:"routes"`
	Unassigned []int `json:"unassigned"`
}

// Sequence submits one job per stop with a fixed start/end vehicle and
// parses the returned visiting order. A plan that does not cover every job
// exactly once is an upstream failure, not a shorter route.
func (c *Client) Sequence(ctx context.Context, start model.GeoPoint, stops []model.GeoPoint, end model.GeoPoint) ([]int, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req := solveRequest{Vehicle: vehicle{ID: vehicleID, Start: start, End: end}}
	for i, s := range stops {
		req.Jobs = append(req.Jobs, job{ID: i, Location: s})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/solve", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(out.Unassigned) > 0 {
		return nil, fmt.Errorf("%w: %d stops unassigned", ErrUnavailable, len(out.Unassigned))
	}
	if len(out.Routes) != 1 {
		return nil, fmt.Errorf("%w: expected one route, got %d", ErrUnavailable, len(out.Routes))
	}
	order := out.Routes[0].Jobs
	if len(order) != len(stops) {
		return nil, fmt.Errorf("%w: plan covers %d of %d stops", ErrUnavailable, len(order), len(stops))
	}
	return order, nil
}
