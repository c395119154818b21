// Package api implements the HTTP surface of the collection service.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/config"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/directions"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/metrics"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/notify"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/routing"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/solver"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

type Server struct {
	Store      store.Store
	Pub        *notify.Publisher
	Broker     EventBroker
	Assembler  *routing.Assembler
	Directions *directions.Client
	Locations  *LocationCache
}

// NewServer wires the server from configuration. Without DATABASE_URL it runs
// on the in-memory store, which is the dev and test default.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := sp.Migrate(); err != nil {
			return nil, err
		}
		s = sp
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	var dir *directions.Client
	if cfg.Directions.URL != "" {
		dir = directions.New(cfg.Directions.URL, cfg.Directions.APIKey, cfg.Directions.Timeout, cfg.Directions.RatePerSec)
	}
	seq := &routing.Sequencer{
		OnFallback: func(string) { metrics.SolverFallbacks.Inc() },
	}
	if cfg.Solver.URL != "" {
		seq.Solver = solver.New(cfg.Solver.URL, cfg.Solver.Timeout, cfg.Solver.RatePerSec)
	}
	asm := &routing.Assembler{
		Sequencer:  seq,
		Directions: dir,
		Cost: routing.CostModel{
			SpeedKmh:       cfg.Routing.SpeedKmh,
			BaseServiceMin: cfg.Routing.BaseServiceMin,
			PerPercentMin:  cfg.Routing.PerPercentMin,
		},
	}

	return &Server{
		Store:      s,
		Pub:        notify.NewPublisher(s),
		Broker:     broker,
		Assembler:  asm,
		Directions: dir,
		Locations:  NewLocationCache(),
	}, nil
}

// Routes registers every handler on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/areas", s.AreasHandler)
	mux.HandleFunc("/v1/areas/", s.AreaByIDHandler)
	mux.HandleFunc("/v1/bins", s.BinsHandler)
	mux.HandleFunc("/v1/bins/", s.BinByIDHandler)
	mux.HandleFunc("/v1/collectors", s.CollectorsHandler)
	mux.HandleFunc("/v1/collectors/", s.CollectorByIDHandler)
	mux.HandleFunc("/v1/schedules", s.SchedulesHandler)
	mux.HandleFunc("/v1/schedules/", s.ScheduleByIDHandler)
	mux.HandleFunc("/v1/routes/preview", s.RoutePreviewHandler)
	mux.HandleFunc("/v1/alerts", s.AlertsHandler)
	mux.HandleFunc("/v1/alerts/unread-count", s.AlertUnreadCountHandler)
	mux.HandleFunc("/v1/alerts/", s.AlertByIDHandler)
	mux.HandleFunc("/v1/settings", s.SettingsHandler)
	mux.HandleFunc("/v1/subscriptions", s.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", s.SubscriptionByIDHandler)
	mux.HandleFunc("/v1/locations", s.LocationsHandler)
	mux.HandleFunc("/v1/events/stream", s.EventStreamHandler)
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
}

// WithMetrics wraps a handler with request counting and timing.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
