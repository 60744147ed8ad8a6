package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rehber/rehber/internal/client"
	"github.com/rehber/rehber/internal/config"
	"github.com/rehber/rehber/internal/repository"
	"github.com/rehber/rehber/internal/util/logger"
)

var startTime = time.Now()

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      HealthStatus           `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Version     string                 `json:"version,omitempty"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Checks      map[string]CheckResult `json:"checks,omitempty"`
	Summary     HealthSummary          `json:"summary"`
}

// HealthSummary provides summary statistics
type HealthSummary struct {
	TotalChecks     int `json:"total_checks"`
	HealthyChecks   int `json:"healthy_checks"`
	DegradedChecks  int `json:"degraded_checks"`
	UnhealthyChecks int `json:"unhealthy_checks"`
}

// CheckResult represents individual health check results
type CheckResult struct {
	Status    HealthStatus   `json:"status"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Latency   string         `json:"latency,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HealthChecker interface for implementing health checks
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Readiness fails only when a check with this name is unhealthy.
const criticalCheck = "store"

// HealthHandler serves /health, /ready and /live.
type HealthHandler struct {
	config   *config.Config
	checkers []HealthChecker
	version  string
}

func NewHealthHandler(cfg *config.Config, version string, checkers ...HealthChecker) *HealthHandler {
	h := &HealthHandler{config: cfg, version: version}
	h.checkers = append(h.checkers, checkers...)
	h.checkers = append(h.checkers, &ApplicationHealthChecker{config: cfg})
	logger.Debugf("health handler initialized with %d checkers", len(h.checkers))
	return h
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Timestamp:   time.Now().UTC(),
		Version:     h.version,
		Environment: h.config.Env,
		Uptime:      time.Since(startTime).Round(time.Second).String(),
		Checks:      make(map[string]CheckResult, len(h.checkers)),
	}

	overall := HealthStatusHealthy
	var summary HealthSummary
	for _, checker := range h.checkers {
		checkStart := time.Now()
		result := checker.Check(r.Context())
		result.Latency = time.Since(checkStart).String()
		result.Timestamp = time.Now().UTC()
		response.Checks[checker.Name()] = result
		summary.TotalChecks++

		switch result.Status {
		case HealthStatusHealthy:
			summary.HealthyChecks++
		case HealthStatusDegraded:
			summary.DegradedChecks++
			if overall != HealthStatusUnhealthy {
				overall = HealthStatusDegraded
			}
		case HealthStatusUnhealthy:
			summary.UnhealthyChecks++
			overall = HealthStatusUnhealthy
		}
	}
	response.Status = overall
	response.Summary = summary

	status := http.StatusOK
	if overall == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, status, response)
}

// ReadinessHandler handles GET /ready
func (h *HealthHandler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	for _, checker := range h.checkers {
		if checker.Name() != criticalCheck {
			continue
		}
		if result := checker.Check(r.Context()); result.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "not ready - %s: %s\n", criticalCheck, result.Error)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ready")
}

// LivenessHandler handles GET /live
func (h *HealthHandler) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "live - uptime: %s\n", time.Since(startTime).Round(time.Second))
}

// StoreHealthChecker reads the contact store.
type StoreHealthChecker struct {
	Repo repository.ContactRepository
}

func (s *StoreHealthChecker) Name() string { return "store" }

func (s *StoreHealthChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	list, err := s.Repo.Load(ctx)
	meta := map[string]any{"path": s.Repo.Path()}
	switch {
	case errors.Is(err, repository.ErrCorruptStore):
		return CheckResult{Status: HealthStatusDegraded, Error: err.Error(), Metadata: meta}
	case err != nil:
		return CheckResult{Status: HealthStatusUnhealthy, Error: err.Error(), Metadata: meta}
	}
	meta["contacts"] = len(list)
	if fi, err := os.Stat(s.Repo.Path()); err == nil {
		meta["size_bytes"] = fi.Size()
		meta["modified"] = fi.ModTime().UTC()
	}
	return CheckResult{Status: HealthStatusHealthy, Message: "contact store readable", Metadata: meta}
}

// RedisHealthChecker pings the Redis instance backing the rate limiter.
// Redis is optional, so failures degrade rather than fail the service.
type RedisHealthChecker struct {
	Client *client.RedisClient
}

func (r *RedisHealthChecker) Name() string { return "redis" }

func (r *RedisHealthChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	meta := map[string]any{"circuit_breaker": r.Client.CircuitBreakerState()}
	if err := r.Client.HealthCheck(ctx); err != nil {
		return CheckResult{Status: HealthStatusDegraded, Error: err.Error(), Metadata: meta}
	}
	return CheckResult{Status: HealthStatusHealthy, Message: "redis connection successful", Metadata: meta}
}

// ApplicationHealthChecker reports the effective configuration.
type ApplicationHealthChecker struct {
	config *config.Config
}

func (a *ApplicationHealthChecker) Name() string { return "application" }

func (a *ApplicationHealthChecker) Check(context.Context) CheckResult {
	meta := map[string]any{
		"environment": a.config.Env,
		"data_dir":    a.config.DataDir,
		"log_level":   a.config.Logger.Level,
		"rate_limit":  a.config.RateLimit.Enabled,
		"kafka":       a.config.Telemetry.Kafka.Enabled,
	}
	if fi, err := os.Stat(a.config.DataDir); err != nil || !fi.IsDir() {
		return CheckResult{Status: HealthStatusUnhealthy, Message: "data directory missing", Metadata: meta}
	}
	return CheckResult{Status: HealthStatusHealthy, Message: "application configuration is valid", Metadata: meta}
}
