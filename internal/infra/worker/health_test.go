package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func newTestHealthServer(addr string) *HealthServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return NewHealthServer(addr, logger)
}

func decodeHealthBody(t *testing.T, rec *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var response healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return response
}

func TestHealthServer_Liveness(t *testing.T) {
	server := newTestHealthServer(":9091")

	// Liveness must report 200 regardless of readiness.
	rec := httptest.NewRecorder()
	server.handleLiveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if response := decodeHealthBody(t, rec); response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
}

func TestHealthServer_Readiness_NotReady(t *testing.T) {
	server := newTestHealthServer(":9091")

	rec := httptest.NewRecorder()
	server.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	if response := decodeHealthBody(t, rec); response.Status != "not ready" {
		t.Errorf("expected status 'not ready', got '%s'", response.Status)
	}
}

func TestHealthServer_Readiness_Ready(t *testing.T) {
	server := newTestHealthServer(":9091")
	server.SetReady(true)

	rec := httptest.NewRecorder()
	server.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if response := decodeHealthBody(t, rec); response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
}

func TestHealthServer_Readiness_Transition(t *testing.T) {
	server := newTestHealthServer(":9091")

	probe := func() int {
		rec := httptest.NewRecorder()
		server.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		return rec.Code
	}

	if code := probe(); code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 initially, got %d", code)
	}

	server.SetReady(true)
	if code := probe(); code != http.StatusOK {
		t.Errorf("expected status 200 after SetReady(true), got %d", code)
	}

	server.SetReady(false)
	if code := probe(); code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 after SetReady(false), got %d", code)
	}
}

func TestHealthServer_GracefulShutdown(t *testing.T) {
	server := newTestHealthServer("localhost:19181")

	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	// Wait for the listener to come up.
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://localhost:19181/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server not running: %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Errorf("failed to close response body: %v", err)
	}

	cancel()

	select {
	case err := <-errChan:
		if err != http.ErrServerClosed {
			t.Errorf("expected http.ErrServerClosed, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown timeout")
	}

	if _, err := http.Get("http://localhost:19181/health"); err == nil {
		t.Error("expected connection error after shutdown, but got success")
	}
}

func TestNewHealthServer(t *testing.T) {
	server := newTestHealthServer(":9091")

	if server.addr != ":9091" {
		t.Errorf("expected addr ':9091', got '%s'", server.addr)
	}

	if server.logger == nil {
		t.Error("expected logger to be set")
	}

	// Should start as not ready
	if server.ready.Load() {
		t.Error("expected ready to be false initially")
	}
}

func TestSetReady(t *testing.T) {
	server := newTestHealthServer(":9091")

	if server.ready.Load() {
		t.Error("expected ready to be false initially")
	}

	server.SetReady(true)
	if !server.ready.Load() {
		t.Error("expected ready to be true after SetReady(true)")
	}

	server.SetReady(false)
	if server.ready.Load() {
		t.Error("expected ready to be false after SetReady(false)")
	}
}
