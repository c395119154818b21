package directions

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

func TestPathGeometryDecodesGeoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/directions/driving-car/geojson" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"features": []map[string]any{{
				"geometry": map[string]any{
					// GeoJSON is [lng, lat]
					"coordinates": [][]float64{{79.86, 6.91}, {79.87, 6.92}, {79.88, 6.93}},
				},
			}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", 2*time.Second, 100)
	path, err := c.PathGeometry(context.Background(), []model.GeoPoint{{Lat: 6.91, Lng: 79.86}, {Lat: 6.93, Lng: 79.88}})
	if err != nil {
		t.Fatalf("path geometry: %v", err)
	}
	if len(path) != 3 || path[0].Lat != 6.91 || path[0].Lng != 79.86 {
		t.Fatalf("lat/lng swapped or truncated: %v", path)
	}
}

func TestPathGeometryErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "key", 2*time.Second, 100)
	_, err := c.PathGeometry(context.Background(), []model.GeoPoint{{Lat: 1}, {Lat: 2}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestReverseLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"features": []map[string]any{{
				"properties": map[string]any{"label": "Galle Road, Colombo"},
			}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", 2*time.Second, 100)
	label, err := c.ReverseLabel(context.Background(), model.GeoPoint{Lat: 6.9, Lng: 79.85})
	if err != nil || label != "Galle Road, Colombo" {
		t.Fatalf("label: %q err: %v", label, err)
	}
}

func TestLabelDegradesToCoordinates(t *testing.T) {
	got := Label(context.Background(), nil, model.GeoPoint{Lat: 6.9271, Lng: 79.8612})
	if got != "6.92710, 79.86120" {
		t.Fatalf("coordinate fallback: %q", got)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := New(srv.URL, "key", time.Second, 100)
	got = Label(context.Background(), c, model.GeoPoint{Lat: 1.5, Lng: 2.5})
	if got != "1.50000, 2.50000" {
		t.Fatalf("coordinate fallback on provider error: %q", got)
	}
}
