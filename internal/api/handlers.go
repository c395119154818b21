package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/buildinfo"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/geo"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/notify"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/routing"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

// AreasHandler handles POST/GET /v1/areas.
func (s *Server) AreasHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var a model.Area
		if err := decodeJSON(r, &a); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateArea(&a); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid area", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.CreateArea(r.Context(), a)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create area failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		areas, err := s.Store.ListAreas(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List areas failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": areas})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// AreaByIDHandler handles GET/PUT/DELETE /v1/areas/{id}.
func (s *Server) AreaByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/areas/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		a, err := s.Store.GetArea(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, r, err, "area")
			return
		}
		writeJSON(w, http.StatusOK, a)
	case http.MethodPut:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var a model.Area
		if err := decodeJSON(r, &a); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		a.ID = id
		if err := validateArea(&a); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid area", err.Error(), r.URL.Path)
			return
		}
		updated, err := s.Store.UpdateArea(r.Context(), a)
		if err != nil {
			s.writeStoreError(w, r, err, "area")
			return
		}
		// Boundary changes can move bins in or out of the area.
		s.reassignBins(r, updated.ID)
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		if err := s.Store.DeleteArea(r.Context(), id); err != nil {
			s.writeStoreError(w, r, err, "area")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// reassignBins recomputes area membership for bins after a boundary change.
func (s *Server) reassignBins(r *http.Request, areaID string) {
	ctx := r.Context()
	bins, err := s.Store.ListBins(ctx, model.BinFilter{})
	if err != nil {
		return
	}
	for _, b := range bins {
		resolved, err := geo.ResolveArea(ctx, s.Store, b.Location)
		if err != nil || resolved == b.AreaID {
			continue
		}
		if resolved == areaID || b.AreaID == areaID {
			b.AreaID = resolved
			_, _ = s.Store.UpdateBin(ctx, b)
		}
	}
}

// BinsHandler handles POST/GET /v1/bins.
func (s *Server) BinsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var b model.Bin
		if err := decodeJSON(r, &b); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateBin(&b); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid bin", err.Error(), r.URL.Path)
			return
		}
		areaID, err := geo.ResolveArea(r.Context(), s.Store, b.Location)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Area resolution failed", err.Error(), r.URL.Path)
			return
		}
		b.AreaID = areaID
		created, err := s.Store.CreateBin(r.Context(), b)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create bin failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		f := model.BinFilter{
			AreaID:    r.URL.Query().Get("areaId"),
			WasteType: model.WasteType(r.URL.Query().Get("wasteType")),
		}
		if v := r.URL.Query().Get("status"); v != "" {
			f.Statuses = []model.BinStatus{model.BinStatus(v)}
		}
		bins, err := s.Store.ListBins(r.Context(), f)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List bins failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": bins})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// BinByIDHandler handles GET/PUT/DELETE /v1/bins/{id} and POST
// /v1/bins/{id}/reading for fill-level telemetry.
func (s *Server) BinByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/bins/")
	if id, ok := strings.CutSuffix(rest, "/reading"); ok {
		s.binReading(w, r, id)
		return
	}
	id := rest
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		b, err := s.Store.GetBin(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, r, err, "bin")
			return
		}
		writeJSON(w, http.StatusOK, b)
	case http.MethodPut:
		var b model.Bin
		if err := decodeJSON(r, &b); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		b.ID = id
		if err := validateBin(&b); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid bin", err.Error(), r.URL.Path)
			return
		}
		areaID, err := geo.ResolveArea(r.Context(), s.Store, b.Location)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Area resolution failed", err.Error(), r.URL.Path)
			return
		}
		b.AreaID = areaID
		updated, err := s.Store.UpdateBin(r.Context(), b)
		if err != nil {
			s.writeStoreError(w, r, err, "bin")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		if err := s.Store.DeleteBin(r.Context(), id); err != nil {
			s.writeStoreError(w, r, err, "bin")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// binReading handles POST /v1/bins/{id}/reading: a sensor fill-level update.
func (s *Server) binReading(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		FillLevel float64 `json:"fillLevel"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	b, err := s.Store.GetBin(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "bin")
		return
	}
	b.FillLevel = model.ClampFill(req.FillLevel)
	updated, err := s.Store.UpdateBin(r.Context(), b)
	if err != nil {
		s.writeStoreError(w, r, err, "bin")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// CollectorsHandler handles POST/GET /v1/collectors.
func (s *Server) CollectorsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var c model.Collector
		if err := decodeJSON(r, &c); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateCollector(&c); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid collector", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.CreateCollector(r.Context(), c)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create collector failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		f := model.CollectorFilter{
			AreaID: r.URL.Query().Get("areaId"),
			Status: model.CollectorStatus(r.URL.Query().Get("status")),
		}
		items, err := s.Store.ListCollectors(r.Context(), f)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List collectors failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// CollectorByIDHandler handles GET/PUT/DELETE /v1/collectors/{id} and POST
// /v1/collectors/{id}/location.
func (s *Server) CollectorByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/collectors/")
	if id, ok := strings.CutSuffix(rest, "/location"); ok {
		s.collectorLocation(w, r, id)
		return
	}
	id := rest
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		c, err := s.Store.GetCollector(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, r, err, "collector")
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var c model.Collector
		if err := decodeJSON(r, &c); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		c.ID = id
		if err := validateCollector(&c); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid collector", err.Error(), r.URL.Path)
			return
		}
		updated, err := s.Store.UpdateCollector(r.Context(), c)
		if err != nil {
			s.writeStoreError(w, r, err, "collector")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		if err := s.Store.DeleteCollector(r.Context(), id); err != nil {
			s.writeStoreError(w, r, err, "collector")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// collectorLocation handles POST /v1/collectors/{id}/location: live position
// reports from the truck app. Cached only, published to the locations topic.
func (s *Server) collectorLocation(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	c, err := s.Store.GetCollector(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "collector")
		return
	}
	loc := LatestLocation{
		CollectorID: c.ID,
		AreaID:      c.AreaID,
		Lat:         req.Lat,
		Lng:         req.Lng,
		TS:          time.Now().UTC().Format(time.RFC3339),
	}
	s.Locations.Upsert(loc)
	s.Broker.Publish(TopicLocations, Event{Type: "collector.location", Data: map[string]any{
		"collectorId": loc.CollectorID, "areaId": loc.AreaID, "lat": loc.Lat, "lng": loc.Lng, "ts": loc.TS,
	}})
	w.WriteHeader(http.StatusAccepted)
}

// LocationsHandler handles GET /v1/locations?areaId=.
func (s *Server) LocationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Locations.List(r.URL.Query().Get("areaId"))})
}

// SchedulesHandler handles POST/GET /v1/schedules.
func (s *Server) SchedulesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createSchedule(w, r)
	case http.MethodGet:
		f := model.ScheduleFilter{
			AreaID:    r.URL.Query().Get("areaId"),
			WasteType: model.WasteType(r.URL.Query().Get("wasteType")),
		}
		if v := r.URL.Query().Get("status"); v != "" {
			f.Statuses = []model.ScheduleStatus{model.ScheduleStatus(v)}
		}
		if v := r.URL.Query().Get("from"); v != "" {
			if t, err := time.Parse("2006-01-02", v); err == nil {
				f.DateFrom = t
			}
		}
		if v := r.URL.Query().Get("to"); v != "" {
			if t, err := time.Parse("2006-01-02", v); err == nil {
				f.DateTo = t
			}
		}
		items, err := s.Store.ListSchedules(r.Context(), f)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List schedules failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// createSchedule builds a manual schedule: dispatcher picks the area and
// optionally the bins; the route comes from the assembler.
func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AreaID      string          `json:"areaId"`
		CollectorID string          `json:"collectorId"`
		WasteType   model.WasteType `json:"wasteType"`
		Date        string          `json:"date"`
		BinIDs      []string        `json:"binIds"`
		Notes       string          `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", "expected YYYY-MM-DD", r.URL.Path)
		return
	}
	sched := model.Schedule{
		AreaID:      req.AreaID,
		CollectorID: req.CollectorID,
		WasteType:   req.WasteType,
		Date:        date,
		Notes:       req.Notes,
	}
	if err := validateScheduleCreate(&sched); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid schedule", err.Error(), r.URL.Path)
		return
	}
	area, err := s.Store.GetArea(r.Context(), req.AreaID)
	if err != nil {
		s.writeStoreError(w, r, err, "area")
		return
	}

	var bins []model.Bin
	if len(req.BinIDs) > 0 {
		for _, id := range req.BinIDs {
			b, err := s.Store.GetBin(r.Context(), id)
			if err != nil {
				s.writeStoreError(w, r, err, "bin")
				return
			}
			bins = append(bins, b)
		}
	} else {
		bins, err = s.Store.ListBins(r.Context(), model.BinFilter{
			AreaID:    req.AreaID,
			WasteType: req.WasteType,
			Statuses:  []model.BinStatus{model.BinActive, model.BinMaintenance},
		})
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List bins failed", err.Error(), r.URL.Path)
			return
		}
	}

	plan, err := s.Assembler.Assemble(r.Context(), area, bins)
	if err != nil {
		if errors.Is(err, routing.ErrNoStops) {
			writeProblem(w, http.StatusUnprocessableEntity, "No bins to collect", err.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Route assembly failed", err.Error(), r.URL.Path)
		return
	}
	sched.BinIDs = plan.BinOrder
	sched.Path = plan.Path
	sched.DistanceKm = plan.DistanceKm
	sched.DurationMin = plan.DurationMin

	created, err := s.Store.CreateSchedule(r.Context(), sched)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create schedule failed", err.Error(), r.URL.Path)
		return
	}
	s.Broker.Publish(TopicSchedules, Event{Type: notify.EventScheduleCreated, Data: map[string]any{"scheduleId": created.ID, "areaId": created.AreaID}})
	s.Pub.Emit(r.Context(), notify.EventScheduleCreated, created)
	writeJSON(w, http.StatusCreated, created)
}

// ScheduleByIDHandler handles GET /v1/schedules/{id} and PATCH
// /v1/schedules/{id}/status.
func (s *Server) ScheduleByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/schedules/")
	if id, ok := strings.CutSuffix(rest, "/status"); ok {
		s.scheduleStatus(w, r, id)
		return
	}
	id := rest
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sched, err := s.Store.GetSchedule(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "schedule")
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// scheduleStatus advances a schedule through its lifecycle. Completion stamps
// lastCollected on every bin of the run and zeroes their fill levels.
func (s *Server) scheduleStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Status model.ScheduleStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	sched, err := s.Store.GetSchedule(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "schedule")
		return
	}
	if !model.CanTransition(sched.Status, req.Status) {
		writeProblem(w, http.StatusConflict, "Invalid transition",
			string(sched.Status)+" -> "+string(req.Status), r.URL.Path)
		return
	}
	now := time.Now()
	sched.Status = req.Status
	switch req.Status {
	case model.ScheduleInProgress:
		sched.StartTime = &now
	case model.ScheduleCompleted:
		sched.EndTime = &now
	}
	updated, err := s.Store.UpdateSchedule(r.Context(), sched)
	if err != nil {
		s.writeStoreError(w, r, err, "schedule")
		return
	}
	if req.Status == model.ScheduleCompleted {
		s.markCollected(r, updated)
	}
	s.Broker.Publish(TopicSchedules, Event{Type: "schedule.status", Data: map[string]any{"scheduleId": updated.ID, "status": string(updated.Status)}})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) markCollected(r *http.Request, sched model.Schedule) {
	ctx := r.Context()
	now := time.Now().UTC()
	for _, binID := range sched.BinIDs {
		b, err := s.Store.GetBin(ctx, binID)
		if err != nil {
			continue
		}
		b.FillLevel = 0
		b.LastCollected = &now
		_, _ = s.Store.UpdateBin(ctx, b)
	}
}

// RoutePreviewHandler handles POST /v1/routes/preview: assemble a route
// without persisting anything. optimize=true applies a 2-opt pass on top of
// the sequenced order.
func (s *Server) RoutePreviewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		AreaID    string          `json:"areaId"`
		WasteType model.WasteType `json:"wasteType"`
		Optimize  bool            `json:"optimize"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	area, err := s.Store.GetArea(r.Context(), req.AreaID)
	if err != nil {
		s.writeStoreError(w, r, err, "area")
		return
	}
	bins, err := s.Store.ListBins(r.Context(), model.BinFilter{
		AreaID:    req.AreaID,
		WasteType: req.WasteType,
		Statuses:  []model.BinStatus{model.BinActive, model.BinMaintenance},
	})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List bins failed", err.Error(), r.URL.Path)
		return
	}
	assemble := s.Assembler.Assemble
	if req.Optimize {
		assemble = s.Assembler.AssembleOptimized
	}
	plan, err := assemble(r.Context(), area, bins)
	if err != nil {
		if errors.Is(err, routing.ErrNoStops) {
			writeProblem(w, http.StatusUnprocessableEntity, "No bins to collect", err.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Route assembly failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// AlertsHandler handles GET /v1/alerts.
func (s *Server) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	f := model.AlertFilter{
		Type:    model.AlertType(r.URL.Query().Get("type")),
		Status:  model.AlertStatus(r.URL.Query().Get("status")),
		Subject: r.URL.Query().Get("subject"),
	}
	items, err := s.Store.ListAlerts(r.Context(), f)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List alerts failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// AlertUnreadCountHandler handles GET /v1/alerts/unread-count, the badge
// counter for the dashboard.
func (s *Server) AlertUnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := s.Store.ListAlerts(r.Context(), model.AlertFilter{Status: model.AlertUnread})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Count alerts failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(items)})
}

// AlertByIDHandler handles GET /v1/alerts/{id} and POST /v1/alerts/{id}/read.
func (s *Server) AlertByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/alerts/")
	if id, ok := strings.CutSuffix(rest, "/read"); ok {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a, err := s.Store.GetAlert(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, r, err, "alert")
			return
		}
		if a.Status != model.AlertRead {
			now := time.Now().UTC()
			a.Status = model.AlertRead
			a.ReadAt = &now
			if a, err = s.Store.UpdateAlert(r.Context(), a); err != nil {
				s.writeStoreError(w, r, err, "alert")
				return
			}
		}
		writeJSON(w, http.StatusOK, a)
		return
	}
	id := rest
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	a, err := s.Store.GetAlert(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "alert")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// SettingsHandler handles GET/PUT /v1/settings.
func (s *Server) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.Store.GetSettings(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load settings failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var settings model.Settings
		if err := decodeJSON(r, &settings); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := settings.Validate(); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid settings", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveSettings(r.Context(), settings); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save settings failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var sub model.Subscription
		if err := decodeJSON(r, &sub); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if sub.URL == "" || len(sub.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		created, err := s.Store.CreateSubscription(r.Context(), sub)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		items, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err, "subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.GetSettings(r.Context()); err != nil && !errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusServiceUnavailable, "Store not ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found", r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
}
