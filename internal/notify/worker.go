package notify

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

const fetchBatch = 50

// Worker drains the notification queue. Failed deliveries retry with
// exponential backoff until MaxAttempts, then move to the failed state.
type Worker struct {
	Store       store.Store
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int
	// OnDelivery reports each attempt's outcome and latency for metrics.
	OnDelivery func(success bool, latency time.Duration)
}

func NewWorker(s store.Store, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Worker{
		Store:       s,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		Stop:        make(chan struct{}),
		MaxAttempts: maxAttempts,
	}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items, err := w.Store.FetchDueNotifications(ctx, fetchBatch)
	if err != nil || len(items) == 0 {
		return
	}
	for _, it := range items {
		w.deliver(ctx, it)
	}
}

func (w *Worker) deliver(ctx context.Context, it store.NotificationDelivery) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
	if err != nil {
		_ = w.Store.FailNotification(ctx, it.ID, err.Error(), 0, 0)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", it.EventType)
	if it.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(it.Secret, it.Payload))
	}

	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := time.Since(start)
	code := 0
	success := false
	if err == nil && resp != nil {
		code = resp.StatusCode
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		success = code >= 200 && code < 300
	}
	if w.OnDelivery != nil {
		w.OnDelivery(success, latency)
	}

	lastErr := ""
	if !success && err != nil {
		lastErr = err.Error()
	}
	latencyMs := int(latency.Milliseconds())
	if !success && it.Attempts+1 >= w.MaxAttempts {
		_ = w.Store.FailNotification(ctx, it.ID, lastErr, code, latencyMs)
		return
	}
	next := time.Now().Add(nextBackoff(it.Attempts))
	_ = w.Store.MarkNotification(ctx, it.ID, success, &next, lastErr, code, latencyMs)
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	d := time.Second * time.Duration(1<<attempts)
	if d > time.Hour {
		d = time.Hour
	}
	return d
}
