package tsid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestValidateCallbackURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://example.com/callback"},
		{name: "localhost", url: "http://localhost:8000/callback/{run_id}"},
		{name: "invalid scheme", url: "ftp://example.com/callback", wantErr: true},
		{name: "missing host", url: "http:///callback", wantErr: true},
		{name: "relative", url: "/callback", wantErr: true},
		{name: "unparseable", url: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCallbackURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCallbackURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCallbackURL) {
				t.Errorf("expected ErrInvalidCallbackURL, got %v", err)
			}
		})
	}
}

func TestNotifierRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %s", r.Header.Get("Content-Type"))
		}
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(testCallbackConfig())
	payload := NotificationPayload{Run: RunRecord{ID: "r1", Status: StatusCompleted}, Timestamp: time.Now().UnixMilli()}
	if err := n.Send(context.Background(), srv.URL, payload); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestNotifierGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(testCallbackConfig())
	err := n.Send(context.Background(), srv.URL, NotificationPayload{Run: RunRecord{ID: "r2"}})
	if err == nil {
		t.Fatal("expected error after retries")
	}
	// first attempt plus MaxRetries
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestNotifierCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewNotifier(testCallbackConfig())
	if err := n.Send(ctx, srv.URL, NotificationPayload{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNotifyEmptyURL(t *testing.T) {
	n := NewNotifier(testCallbackConfig())
	n.Notify("", RunRecord{ID: "x"})
	n.Wait()
}
