package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dailybrief/internal/delivery"
	pkgconfig "dailybrief/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status string `json:"status"`
}

// SenderHealthResponse reports every delivery sender with an overall
// healthy flag.
type SenderHealthResponse struct {
	Healthy bool           `json:"healthy"`
	Senders []SenderStatus `json:"senders"`
}

// SenderStatus is the wire shape of one sender's health.
type SenderStatus struct {
	Name          string     `json:"name"`
	Enabled       bool       `json:"enabled"`
	CoolingDown   bool       `json:"cooling_down"`
	DisabledUntil *time.Time `json:"disabled_until,omitempty"`
}

// startMetricsServer exposes Prometheus metrics plus liveness and
// sender-health probes on METRICS_PORT (default 9090). The server runs
// in the background and drains in-flight requests for up to five
// seconds once ctx is cancelled.
//
// Endpoints:
//
//	GET /metrics         Prometheus scrape target
//	GET /health          liveness, always 200
//	GET /health/senders  503 while any enabled sender is cooling down
func startMetricsServer(ctx context.Context, logger *slog.Logger, dispatcher *delivery.Dispatcher) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
	})
	mux.HandleFunc("/health/senders", func(w http.ResponseWriter, _ *http.Request) {
		report := senderReport(dispatcher.Health())
		status := http.StatusOK
		if !report.Healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", metricsPort(logger)),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
			return
		}
		logger.Info("metrics server stopped")
	}()

	return server
}

// senderReport converts dispatcher health into the wire shape. The
// report is unhealthy while any enabled sender is cooling down.
func senderReport(statuses []delivery.SenderStatus) SenderHealthResponse {
	report := SenderHealthResponse{
		Healthy: true,
		Senders: make([]SenderStatus, 0, len(statuses)),
	}
	for _, s := range statuses {
		report.Senders = append(report.Senders, SenderStatus{
			Name:          s.Name,
			Enabled:       s.Enabled,
			CoolingDown:   s.CoolingDown,
			DisabledUntil: s.DisabledUntil,
		})
		if s.Enabled && s.CoolingDown {
			report.Healthy = false
		}
	}
	return report
}

// metricsPort reads METRICS_PORT, falling back to 9090 for values
// outside the valid port range.
func metricsPort(logger *slog.Logger) int {
	result := pkgconfig.LoadEnvInt("METRICS_PORT", 9090, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 65535)
	})
	for _, warning := range result.Warnings {
		logger.Warn("metrics server configuration", slog.String("detail", warning))
	}
	return result.Value.(int)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
