package solver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
)

func testStops() []model.GeoPoint {
	return []model.GeoPoint{{Lat: 1, Lng: 0}, {Lat: 2, Lng: 0}, {Lat: 3, Lng: 0}}
}

func TestSequenceParsesVisitingOrder(t *testing.T) {
	var gotJobs int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Vehicle struct {
				ID string `json:"id"`
			} `json:"vehicle"`
			Jobs []struct {
				ID int `json:"id"`
			} `json:"jobs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotJobs = len(req.Jobs)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"routes": []map[string]any{{"vehicle": req.Vehicle.ID, "jobs": []int{2, 0, 1}}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second, 100)
	order, err := c.Sequence(context.Background(), model.GeoPoint{}, testStops(), model.GeoPoint{})
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	if gotJobs != 3 {
		t.Fatalf("expected one job per stop, got %d", gotJobs)
	}
	if len(order) != 3 || order[0] != 2 || order[1] != 0 || order[2] != 1 {
		t.Fatalf("order: %v", order)
	}
}

func TestSequencePartialPlanIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"routes": []map[string]any{{"vehicle": "truck-1", "jobs": []int{0, 1}}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second, 100)
	if _, err := c.Sequence(context.Background(), model.GeoPoint{}, testStops(), model.GeoPoint{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("partial plan should be ErrUnavailable, got %v", err)
	}
}

func TestSequenceUnassignedStopsAreFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"routes":     []map[string]any{{"vehicle": "truck-1", "jobs": []int{0, 1, 2}}},
			"unassigned": []int{2},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second, 100)
	if _, err := c.Sequence(context.Background(), model.GeoPoint{}, testStops(), model.GeoPoint{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unassigned stops should be ErrUnavailable, got %v", err)
	}
}

func TestSequenceServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second, 100)
	if _, err := c.Sequence(context.Background(), model.GeoPoint{}, testStops(), model.GeoPoint{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("502 should be ErrUnavailable, got %v", err)
	}
}

func TestSequenceConnectionRefusedIsFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", 500*time.Millisecond, 100)
	if _, err := c.Sequence(context.Background(), model.GeoPoint{}, testStops(), model.GeoPoint{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("connection failure should be ErrUnavailable, got %v", err)
	}
}
