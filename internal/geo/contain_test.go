package geo

import (
	"context"
	"testing"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

func squareRing(minLat, minLng, maxLat, maxLng float64) model.Polygon {
	return model.Polygon{
		{Lat: minLat, Lng: minLng},
		{Lat: minLat, Lng: maxLng},
		{Lat: maxLat, Lng: maxLng},
		{Lat: maxLat, Lng: minLng},
		{Lat: minLat, Lng: minLng},
	}
}

func TestValidatePolygon(t *testing.T) {
	if err := ValidatePolygon(squareRing(0, 0, 1, 1)); err != nil {
		t.Fatalf("valid square rejected: %v", err)
	}
	open := model.Polygon{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}}
	if err := ValidatePolygon(open); err == nil {
		t.Fatal("open ring accepted")
	}
	degenerate := model.Polygon{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 0}, {Lat: 0, Lng: 0}}
	if err := ValidatePolygon(degenerate); err == nil {
		t.Fatal("degenerate ring accepted")
	}
	if err := ValidatePolygon(nil); err == nil {
		t.Fatal("empty ring accepted")
	}
}

func TestContains(t *testing.T) {
	ring := squareRing(0, 0, 10, 10)
	inside := []model.GeoPoint{{Lat: 5, Lng: 5}, {Lat: 0.1, Lng: 0.1}, {Lat: 9.9, Lng: 9.9}}
	for _, pt := range inside {
		if !Contains(ring, pt) {
			t.Errorf("point %v should be inside", pt)
		}
	}
	outside := []model.GeoPoint{{Lat: -1, Lng: 5}, {Lat: 11, Lng: 5}, {Lat: 5, Lng: -0.5}, {Lat: 5, Lng: 10.5}}
	for _, pt := range outside {
		if Contains(ring, pt) {
			t.Errorf("point %v should be outside", pt)
		}
	}
}

func TestContainsConcave(t *testing.T) {
	// L-shape: the notch at the top right is outside.
	ring := model.Polygon{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 5, Lng: 10},
		{Lat: 5, Lng: 5},
		{Lat: 10, Lng: 5},
		{Lat: 10, Lng: 0},
		{Lat: 0, Lng: 0},
	}
	if !Contains(ring, model.GeoPoint{Lat: 2, Lng: 8}) {
		t.Error("point in the wide arm should be inside")
	}
	if !Contains(ring, model.GeoPoint{Lat: 8, Lng: 2}) {
		t.Error("point in the tall arm should be inside")
	}
	if Contains(ring, model.GeoPoint{Lat: 8, Lng: 8}) {
		t.Error("point in the notch should be outside")
	}
}

func TestResolveArea(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	a1, _ := st.CreateArea(ctx, model.Area{Name: "north", Boundary: squareRing(0, 0, 10, 10)})
	a2, _ := st.CreateArea(ctx, model.Area{Name: "south", Boundary: squareRing(20, 20, 30, 30)})

	id, err := ResolveArea(ctx, st, model.GeoPoint{Lat: 5, Lng: 5})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != a1.ID {
		t.Fatalf("expected area %s, got %q", a1.ID, id)
	}

	id, err = ResolveArea(ctx, st, model.GeoPoint{Lat: 25, Lng: 25})
	if err != nil || id != a2.ID {
		t.Fatalf("expected area %s, got %q (err %v)", a2.ID, id, err)
	}

	id, err = ResolveArea(ctx, st, model.GeoPoint{Lat: 50, Lng: 50})
	if err != nil {
		t.Fatalf("resolve outside: %v", err)
	}
	if id != "" {
		t.Fatalf("point outside every polygon should resolve to none, got %q", id)
	}
}

func TestResolveAreaSkipsMalformedBoundary(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_, _ = st.CreateArea(ctx, model.Area{Name: "broken", Boundary: model.Polygon{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}}})
	ok, _ := st.CreateArea(ctx, model.Area{Name: "good", Boundary: squareRing(0, 0, 10, 10)})

	id, err := ResolveArea(ctx, st, model.GeoPoint{Lat: 5, Lng: 5})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != ok.ID {
		t.Fatalf("expected the valid area %s, got %q", ok.ID, id)
	}
}
