package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/GaruVA/wctsystem-backend-sub000/internal/model"
	"github.com/GaruVA/wctsystem-backend-sub000/internal/store"
)

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []markRec
	fails []failRec
}

type markRec struct {
	ID      string
	Success bool
	Code    int
}

type failRec struct {
	ID   string
	Code int
}

func (r *recordStore) MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, markRec{ID: id, Success: success, Code: responseCode})
	r.mu.Unlock()
	return r.Memory.MarkNotification(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}

func (r *recordStore) FailNotification(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, failRec{ID: id, Code: responseCode})
	r.mu.Unlock()
	return r.Memory.FailNotification(ctx, id, lastError, responseCode, latencyMs)
}

func TestWorkerDeliversWithSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	payload := []byte(`{"id":"evt1"}`)
	id, err := rs.Memory.EnqueueNotification(context.Background(), "sub-1", EventAlertRaised, srv.URL, "secret", payload)
	if err != nil || id == "" {
		t.Fatalf("enqueue failed: %v", err)
	}

	w.processOnce()

	if gotType != EventAlertRaised {
		t.Fatalf("event type header = %q", gotType)
	}
	if gotSig != SignHMAC("secret", payload) {
		t.Fatalf("signature mismatch: %q", gotSig)
	}
	if !VerifyHMAC("secret", gotBody, gotSig) {
		t.Fatal("delivered body does not verify against signature")
	}
	if len(rs.marks) != 1 || !rs.marks[0].Success {
		t.Fatalf("expected one successful mark, got: %+v", rs.marks)
	}
}

func TestWorkerFailsAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 1}
	_, _ = rs.Memory.EnqueueNotification(context.Background(), "sub-1", EventAlertRaised, srv.URL, "", []byte(`{}`))
	w.processOnce()

	if len(rs.fails) != 1 {
		t.Fatalf("expected terminal failure, got marks=%+v fails=%+v", rs.marks, rs.fails)
	}
}

func TestPublisherRespectsNotificationsToggle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	_, _ = s.CreateSubscription(ctx, model.Subscription{URL: "http://example.invalid/hook", Events: []string{"*"}})

	settings := model.DefaultSettings()
	settings.NotificationsEnabled = false
	if err := s.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	p := NewPublisher(s)
	p.Emit(ctx, EventAlertRaised, map[string]string{"id": "a1"})
	due, _ := s.FetchDueNotifications(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("disabled notifications still enqueued %d deliveries", len(due))
	}

	settings.NotificationsEnabled = true
	_ = s.SaveSettings(ctx, settings)
	p.Emit(ctx, EventAlertRaised, map[string]string{"id": "a1"})
	due, _ = s.FetchDueNotifications(ctx, 10)
	if len(due) != 1 {
		t.Fatalf("expected 1 queued delivery, got %d", len(due))
	}
}

func TestPublisherMatchesEventFilter(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	if err := s.SaveSettings(ctx, model.DefaultSettings()); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	_, _ = s.CreateSubscription(ctx, model.Subscription{URL: "http://example.invalid/a", Events: []string{EventScheduleCreated}})
	_, _ = s.CreateSubscription(ctx, model.Subscription{URL: "http://example.invalid/b", Events: []string{"*"}})

	p := NewPublisher(s)
	p.Emit(ctx, EventAlertRaised, map[string]string{"id": "a1"})
	due, _ := s.FetchDueNotifications(ctx, 10)
	if len(due) != 1 {
		t.Fatalf("expected only the wildcard subscription to match, got %d", len(due))
	}
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(due[0].Payload, &envelope); err != nil || envelope.Type != EventAlertRaised {
		t.Fatalf("bad envelope: %s (%v)", due[0].Payload, err)
	}
}

func TestBackoffIsBoundedAndGrowing(t *testing.T) {
	if nextBackoff(0) != time.Second {
		t.Fatalf("first retry = %v", nextBackoff(0))
	}
	if nextBackoff(3) <= nextBackoff(1) {
		t.Fatal("backoff not growing")
	}
	if nextBackoff(40) > time.Hour {
		t.Fatalf("backoff unbounded: %v", nextBackoff(40))
	}
}
