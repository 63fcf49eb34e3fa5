package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// defaultStaleAfter is how long without a measured page before the monitor is unhealthy
const defaultStaleAfter = 5 * time.Minute

// HealthServer provides a health check endpoint
type HealthServer struct {
	config *Config
	server *http.Server
	logger *slog.Logger
	now    func() time.Time

	mu           sync.RWMutex
	lastPageTime time.Time
	lastError    string
	pageCount    int64
	successCount int64
	failureCount int64
	reportCount  int64
	isHealthy    bool
}

// Config contains health check server configuration
type Config struct {
	Enabled       bool
	Port          int
	Path          string
	ListenAddress string

	// StaleAfter defaults to five minutes
	StaleAfter time.Duration
}

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	LastPageTime time.Time `json:"last_page_time,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	PageCount    int64     `json:"page_count"`
	SuccessCount int64     `json:"success_count"`
	FailureCount int64     `json:"failure_count"`
	ReportCount  int64     `json:"report_count"`
	Uptime       string    `json:"uptime"`
}

var startTime = time.Now()

// NewHealthServer creates a new health check server and starts serving it
func NewHealthServer(cfg *Config, logger *slog.Logger) (*HealthServer, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	h := newHealthServer(cfg, logger)

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, h.handleHealth)

	addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.Port)
	h.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		h.logger.Info("health check endpoint started", "addr", addr, "path", cfg.Path)
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health check server error", "error", err)
		}
	}()

	return h, nil
}

func newHealthServer(cfg *Config, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthServer{
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		isHealthy: true,
	}
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	statusCode := http.StatusOK

	staleAfter := h.config.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	// A monitor that measured once but stopped since is stuck
	if h.pageCount > 0 && h.now().Sub(h.lastPageTime) > staleAfter {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	if !h.isHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:       status,
		Timestamp:    h.now(),
		LastPageTime: h.lastPageTime,
		LastError:    h.lastError,
		PageCount:    h.pageCount,
		SuccessCount: h.successCount,
		FailureCount: h.failureCount,
		ReportCount:  h.reportCount,
		Uptime:       time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("error encoding health response", "error", err)
	}
}

// RecordPage records one measured page life
func (h *HealthServer) RecordPage(run *models.PageRun) {
	if h == nil || run == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastPageTime = h.now()
	h.pageCount++

	if run.Succeeded() {
		h.successCount++
	} else {
		h.failureCount++
		h.lastError = run.Error.ErrorType + ": " + run.Error.ErrorMessage
	}
}

// RecordReport counts one delivered metric report
func (h *HealthServer) RecordReport() {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.reportCount++
}

// SetHealthy sets the health status
func (h *HealthServer) SetHealthy(healthy bool) {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.isHealthy = healthy
}

// Stats is a point-in-time copy of the health counters
type Stats struct {
	PageCount    int64
	SuccessCount int64
	FailureCount int64
	ReportCount  int64
	LastPageTime time.Time
}

// GetStats returns current health statistics
func (h *HealthServer) GetStats() Stats {
	if h == nil {
		return Stats{}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	return Stats{
		PageCount:    h.pageCount,
		SuccessCount: h.successCount,
		FailureCount: h.failureCount,
		ReportCount:  h.reportCount,
		LastPageTime: h.lastPageTime,
	}
}

// Close shuts down the health check server
func (h *HealthServer) Close() error {
	if h == nil || h.server == nil {
		return nil
	}

	h.logger.Info("shutting down health check server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return h.server.Shutdown(ctx)
}
