package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/alerts"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/api"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/config"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/directions"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/metrics"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/monitor"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/notify"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/scheduler"
)

func main() {
	// .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	metrics.RegisterDefault()

	srv, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	// Alert ledger: every raise/resolve hits metrics, the live stream, and
	// the webhook queue.
	ledger := alerts.NewLedger(srv.Store)
	ledger.OnRaised = func(a model.Alert, created bool) {
		metrics.AlertsRaised.WithLabelValues(string(a.Type), boolLabel(created)).Inc()
		srv.Broker.Publish(api.TopicAlerts, api.Event{Type: notify.EventAlertRaised, Data: map[string]any{
			"alertId": a.ID, "type": string(a.Type), "severity": string(a.Severity), "subject": a.Subject, "title": a.Title,
		}})
		if created {
			srv.Pub.Emit(context.Background(), notify.EventAlertRaised, a)
		}
	}
	ledger.OnResolved = func(a model.Alert) {
		metrics.AlertsResolved.WithLabelValues(string(a.Type)).Inc()
		srv.Broker.Publish(api.TopicAlerts, api.Event{Type: notify.EventAlertResolved, Data: map[string]any{
			"alertId": a.ID, "type": string(a.Type), "subject": a.Subject,
		}})
		srv.Pub.Emit(context.Background(), notify.EventAlertResolved, a)
	}

	auto := &scheduler.AutoScheduler{
		Store:     srv.Store,
		Assembler: srv.Assembler,
		Ledger:    ledger,
		OnScheduled: func(s model.Schedule) {
			metrics.SchedulesAutoCreated.Inc()
			srv.Broker.Publish(api.TopicSchedules, api.Event{Type: notify.EventScheduleCreated, Data: map[string]any{
				"scheduleId": s.ID, "areaId": s.AreaID, "wasteType": string(s.WasteType), "date": s.Date.Format("2006-01-02"),
			}})
			srv.Pub.Emit(context.Background(), notify.EventScheduleCreated, s)
		},
	}

	loop := &monitor.Loop{
		Store: srv.Store,
		Monitor: &monitor.Monitor{
			Store:   srv.Store,
			Labeler: labeler(srv.Directions),
		},
		Ledger:   ledger,
		Auto:     auto,
		Interval: cfg.Monitor.Interval,
		OnCycle: func(d time.Duration) {
			metrics.MonitorCycles.Inc()
			metrics.MonitorCycleDuration.Observe(d.Seconds())
		},
	}
	loop.Start()
	defer loop.Stop()

	worker := notify.NewWorker(srv.Store, cfg.Notify.MaxAttempts)
	worker.OnDelivery = func(success bool, latency time.Duration) {
		status := "failed"
		if success {
			status = "delivered"
		}
		metrics.NotifyDeliveries.WithLabelValues(status).Inc()
		metrics.NotifyLatency.WithLabelValues(status).Observe(float64(latency.Milliseconds()))
	}
	worker.Start()
	defer close(worker.Stop)

	mux := http.NewServeMux()
	srv.Routes(mux)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.WithMetrics(logMiddleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("API listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Print("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// labeler turns coordinates into place names for alert text when a directions
// service is configured.
func labeler(c *directions.Client) func(ctx context.Context, pt model.GeoPoint) string {
	if c == nil {
		return nil
	}
	return func(ctx context.Context, pt model.GeoPoint) string {
		return directions.Label(ctx, c, pt)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
