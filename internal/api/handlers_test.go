package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/notify"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/routing"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := store.NewMemory()
	return &Server{
		Store:  s,
		Pub:    notify.NewPublisher(s),
		Broker: NewBroker(),
		Assembler: &routing.Assembler{
			Sequencer: &routing.Sequencer{},
			Cost:      routing.DefaultCostModel(),
		},
		Locations: NewLocationCache(),
	}
}

func do(t *testing.T, s *Server, h http.HandlerFunc, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return v
}

func createArea(t *testing.T, s *Server) model.Area {
	t.Helper()
	rr := do(t, s, s.AreasHandler, http.MethodPost, "/v1/areas", model.Area{
		Name: "North Ward",
		Boundary: model.Polygon{
			{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 0},
		},
		StartPoint: model.GeoPoint{Lat: 0.1, Lng: 0.1},
		EndPoint:   model.GeoPoint{Lat: 0.9, Lng: 0.9},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create area: %d %s", rr.Code, rr.Body.String())
	}
	return decode[model.Area](t, rr)
}

func createBin(t *testing.T, s *Server, lat, lng, fill float64) model.Bin {
	t.Helper()
	rr := do(t, s, s.BinsHandler, http.MethodPost, "/v1/bins", map[string]any{
		"location":  map[string]float64{"lat": lat, "lng": lng},
		"fillLevel": fill,
		"wasteType": "GENERAL",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create bin: %d %s", rr.Code, rr.Body.String())
	}
	return decode[model.Bin](t, rr)
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, s.HealthHandler, http.MethodGet, "/healthz", nil)
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = do(t, s, s.ReadyHandler, http.MethodGet, "/readyz", nil)
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestAreaCreateRejectsOpenRing(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, s.AreasHandler, http.MethodPost, "/v1/areas", model.Area{
		Name: "Bad",
		Boundary: model.Polygon{
			{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0},
		},
		StartPoint: model.GeoPoint{Lat: 0.5, Lng: 0.5},
		EndPoint:   model.GeoPoint{Lat: 0.5, Lng: 0.5},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("open ring accepted: %d", rr.Code)
	}
}

func TestBinCreateResolvesAreaAndClampsFill(t *testing.T) {
	s := newTestServer(t)
	area := createArea(t, s)

	inside := createBin(t, s, 0.5, 0.5, 150)
	if inside.AreaID != area.ID {
		t.Fatalf("bin inside boundary got area %q, want %q", inside.AreaID, area.ID)
	}
	if inside.FillLevel != 100 {
		t.Fatalf("fill not clamped: %v", inside.FillLevel)
	}

	outside := createBin(t, s, 5, 5, 10)
	if outside.AreaID != "" {
		t.Fatalf("bin outside every boundary got area %q", outside.AreaID)
	}
}

func TestBinReadingUpdatesFill(t *testing.T) {
	s := newTestServer(t)
	createArea(t, s)
	b := createBin(t, s, 0.5, 0.5, 10)

	rr := do(t, s, s.BinByIDHandler, http.MethodPost, "/v1/bins/"+b.ID+"/reading", map[string]float64{"fillLevel": -5})
	if rr.Code != http.StatusOK {
		t.Fatalf("reading: %d %s", rr.Code, rr.Body.String())
	}
	got := decode[model.Bin](t, rr)
	if got.FillLevel != 0 {
		t.Fatalf("negative reading not clamped to 0: %v", got.FillLevel)
	}
}

func TestBinInvalidWasteTypeRejected(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, s.BinsHandler, http.MethodPost, "/v1/bins", map[string]any{
		"location":  map[string]float64{"lat": 0, "lng": 0},
		"wasteType": "PLUTONIUM",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid waste type accepted: %d", rr.Code)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	s := newTestServer(t)
	area := createArea(t, s)
	bin := createBin(t, s, 0.5, 0.5, 80)

	rr := do(t, s, s.SchedulesHandler, http.MethodPost, "/v1/schedules", map[string]any{
		"areaId":    area.ID,
		"wasteType": "GENERAL",
		"date":      "2026-09-01",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create schedule: %d %s", rr.Code, rr.Body.String())
	}
	sched := decode[model.Schedule](t, rr)
	if len(sched.BinIDs) != 1 || sched.BinIDs[0] != bin.ID {
		t.Fatalf("schedule bin order: %v", sched.BinIDs)
	}
	if sched.DistanceKm <= 0 || sched.DurationMin <= 0 {
		t.Fatalf("schedule missing metrics: %+v", sched)
	}

	// scheduled -> completed is not a legal jump.
	rr = do(t, s, s.ScheduleByIDHandler, http.MethodPatch, "/v1/schedules/"+sched.ID+"/status", map[string]string{"status": "completed"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("illegal transition accepted: %d", rr.Code)
	}

	rr = do(t, s, s.ScheduleByIDHandler, http.MethodPatch, "/v1/schedules/"+sched.ID+"/status", map[string]string{"status": "in-progress"})
	if rr.Code != http.StatusOK {
		t.Fatalf("start run: %d %s", rr.Code, rr.Body.String())
	}
	started := decode[model.Schedule](t, rr)
	if started.StartTime == nil {
		t.Fatal("startTime not stamped")
	}

	rr = do(t, s, s.ScheduleByIDHandler, http.MethodPatch, "/v1/schedules/"+sched.ID+"/status", map[string]string{"status": "completed"})
	if rr.Code != http.StatusOK {
		t.Fatalf("complete run: %d %s", rr.Code, rr.Body.String())
	}

	// Completion resets the bin and stamps lastCollected.
	rr = do(t, s, s.BinByIDHandler, http.MethodGet, "/v1/bins/"+bin.ID, nil)
	got := decode[model.Bin](t, rr)
	if got.FillLevel != 0 || got.LastCollected == nil {
		t.Fatalf("bin not reset on completion: %+v", got)
	}
}

func TestRoutePreview(t *testing.T) {
	s := newTestServer(t)
	area := createArea(t, s)
	createBin(t, s, 0.2, 0.2, 50)
	createBin(t, s, 0.8, 0.8, 50)
	createBin(t, s, 0.5, 0.5, 50)

	rr := do(t, s, s.RoutePreviewHandler, http.MethodPost, "/v1/routes/preview", map[string]any{
		"areaId":    area.ID,
		"wasteType": "GENERAL",
		"optimize":  true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rr.Code, rr.Body.String())
	}
	plan := decode[model.RoutePlan](t, rr)
	if len(plan.BinOrder) != 3 {
		t.Fatalf("preview order: %v", plan.BinOrder)
	}
	// Path runs depot to depot around the ordered bins.
	if len(plan.Path) != 5 {
		t.Fatalf("preview path has %d points, want 5", len(plan.Path))
	}
	if plan.Path[0] != area.StartPoint || plan.Path[len(plan.Path)-1] != area.EndPoint {
		t.Fatalf("path does not run depot to depot: %v", plan.Path)
	}

	// Nothing persisted.
	rr = do(t, s, s.SchedulesHandler, http.MethodGet, "/v1/schedules", nil)
	list := decode[struct {
		Items []model.Schedule `json:"items"`
	}](t, rr)
	if len(list.Items) != 0 {
		t.Fatalf("preview persisted %d schedules", len(list.Items))
	}
}

func TestRoutePreviewOptimizeShortensRoute(t *testing.T) {
	s := newTestServer(t)
	// Out-and-back depot with one bin off to the side: nearest-neighbor
	// visits (0,3) -> (4,0) -> (5,0) and the 2-opt pass swaps the last two.
	rr := do(t, s, s.AreasHandler, http.MethodPost, "/v1/areas", model.Area{
		Name: "Depot Loop",
		Boundary: model.Polygon{
			{Lat: -1, Lng: -1}, {Lat: -1, Lng: 6}, {Lat: 6, Lng: 6}, {Lat: 6, Lng: -1}, {Lat: -1, Lng: -1},
		},
		StartPoint: model.GeoPoint{Lat: 0, Lng: 0},
		EndPoint:   model.GeoPoint{Lat: 0, Lng: 0},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create area: %d %s", rr.Code, rr.Body.String())
	}
	area := decode[model.Area](t, rr)
	createBin(t, s, 4, 0, 50)
	createBin(t, s, 0, 3, 50)
	createBin(t, s, 5, 0, 50)

	preview := func(optimize bool) model.RoutePlan {
		rr := do(t, s, s.RoutePreviewHandler, http.MethodPost, "/v1/routes/preview", map[string]any{
			"areaId":    area.ID,
			"wasteType": "GENERAL",
			"optimize":  optimize,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("preview optimize=%v: %d %s", optimize, rr.Code, rr.Body.String())
		}
		return decode[model.RoutePlan](t, rr)
	}

	plain := preview(false)
	optimized := preview(true)
	if optimized.DistanceKm >= plain.DistanceKm {
		t.Fatalf("optimized preview not shorter: %.2f km vs %.2f km", optimized.DistanceKm, plain.DistanceKm)
	}
	if optimized.DurationMin > plain.DurationMin {
		t.Fatalf("optimized preview slower: %d min vs %d min", optimized.DurationMin, plain.DurationMin)
	}
}

func TestRoutePreviewNoBins(t *testing.T) {
	s := newTestServer(t)
	area := createArea(t, s)
	rr := do(t, s, s.RoutePreviewHandler, http.MethodPost, "/v1/routes/preview", map[string]any{"areaId": area.ID})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty preview: %d", rr.Code)
	}
}

func TestAlertsMarkReadAndBadge(t *testing.T) {
	s := newTestServer(t)
	a, err := s.Store.CreateAlert(httptest.NewRequest("GET", "/", nil).Context(), model.Alert{
		Type: model.AlertBinFillLevel, Severity: model.SeverityHigh, Status: model.AlertUnread,
		Subject: "bin:x", Title: "Bin critically full",
	})
	if err != nil {
		t.Fatalf("seed alert: %v", err)
	}

	rr := do(t, s, s.AlertUnreadCountHandler, http.MethodGet, "/v1/alerts/unread-count", nil)
	count := decode[struct {
		Count int `json:"count"`
	}](t, rr)
	if count.Count != 1 {
		t.Fatalf("badge = %d, want 1", count.Count)
	}

	rr = do(t, s, s.AlertByIDHandler, http.MethodPost, "/v1/alerts/"+a.ID+"/read", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("mark read: %d %s", rr.Code, rr.Body.String())
	}
	got := decode[model.Alert](t, rr)
	if got.Status != model.AlertRead || got.ReadAt == nil {
		t.Fatalf("alert not marked read: %+v", got)
	}

	rr = do(t, s, s.AlertUnreadCountHandler, http.MethodGet, "/v1/alerts/unread-count", nil)
	count = decode[struct {
		Count int `json:"count"`
	}](t, rr)
	if count.Count != 0 {
		t.Fatalf("badge after read = %d, want 0", count.Count)
	}
}

func TestSettingsValidation(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, s.SettingsHandler, http.MethodPut, "/v1/settings", model.Settings{
		NotificationsEnabled: true, WarningThreshold: 95, CriticalThreshold: 90,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("warning above critical accepted: %d", rr.Code)
	}

	rr = do(t, s, s.SettingsHandler, http.MethodPut, "/v1/settings", model.Settings{
		NotificationsEnabled: false, WarningThreshold: 60, CriticalThreshold: 85,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("save settings: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, s, s.SettingsHandler, http.MethodGet, "/v1/settings", nil)
	got := decode[model.Settings](t, rr)
	if got.WarningThreshold != 60 || got.CriticalThreshold != 85 || got.NotificationsEnabled {
		t.Fatalf("settings round trip: %+v", got)
	}
}

func TestSubscriptionsCRUD(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, s.SubscriptionsHandler, http.MethodPost, "/v1/subscriptions", model.Subscription{
		URL: "http://example.invalid/hook", Events: []string{"alert.raised"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create subscription: %d %s", rr.Code, rr.Body.String())
	}
	sub := decode[model.Subscription](t, rr)

	rr = do(t, s, s.SubscriptionByIDHandler, http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete subscription: %d", rr.Code)
	}
}

func TestAdminEndpointsRejectNonAdmin(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(model.Area{Name: "X"})
	req := httptest.NewRequest(http.MethodPost, "/v1/areas", bytes.NewReader(body))
	req.Header.Set("X-Role", "collector")
	rr := httptest.NewRecorder()
	s.AreasHandler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("collector created an area: %d", rr.Code)
	}
}

func TestCollectorLocationFlow(t *testing.T) {
	s := newTestServer(t)
	area := createArea(t, s)
	rr := do(t, s, s.CollectorsHandler, http.MethodPost, "/v1/collectors", model.Collector{
		Name: "Driver One", AreaID: area.ID, Status: model.CollectorActive,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create collector: %d %s", rr.Code, rr.Body.String())
	}
	c := decode[model.Collector](t, rr)

	ch := s.Broker.Subscribe(TopicLocations)
	rr = do(t, s, s.CollectorByIDHandler, http.MethodPost,
		fmt.Sprintf("/v1/collectors/%s/location", c.ID), map[string]float64{"lat": 0.4, "lng": 0.6})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("location report: %d %s", rr.Code, rr.Body.String())
	}

	select {
	case evt := <-ch:
		if evt.Type != "collector.location" {
			t.Fatalf("event type = %q", evt.Type)
		}
	default:
		t.Fatal("no location event published")
	}

	rr = do(t, s, s.LocationsHandler, http.MethodGet, "/v1/locations?areaId="+area.ID, nil)
	list := decode[struct {
		Items []LatestLocation `json:"items"`
	}](t, rr)
	if len(list.Items) != 1 || list.Items[0].CollectorID != c.ID {
		t.Fatalf("location cache: %+v", list.Items)
	}
}
