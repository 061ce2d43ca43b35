// Package server implements the HTTP admin/webhook surface named in spec.md
// §6 and SPEC_FULL §6, grounded on the teacher's pkg/server.Server: a
// net/http.ServeMux with health, metrics, workflow execute/validate, and
// (new, for the automation scheduler) automation CRUD/trigger and webhook
// routes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowkit/engine/internal/automation"
	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/health"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/nodes"
	"github.com/flowkit/engine/internal/parser"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/storage"
	"github.com/flowkit/engine/internal/telemetry"
)

// Config holds server configuration, grounded on the teacher's
// pkg/server.Config.
type Config struct {
	Address            string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	EnableCORS         bool
}

// DefaultConfig returns the teacher's defaults.
func DefaultConfig() Config {
	return Config{
		Address:            ":8080",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024,
		EnableCORS:         true,
	}
}

// Server is the HTTP API server (spec §6: "external interfaces").
type Server struct {
	config     Config
	httpServer *http.Server

	reg        *registry.Registry
	eng        *engine.Engine
	store      storage.Store
	scheduler  *automation.Scheduler
	services   nodes.Services

	healthChecker *health.Checker
	telemetry     *telemetry.Provider
	logger        *logging.Logger
}

// New constructs a Server wired to reg/eng/store/scheduler. When its
// HTTPClient is set, services is injected into every direct
// /api/v1/workflows/execute run under the
// reserved "_services" key the same way the scheduler injects it for
// automation-triggered runs (spec §9). telemetryProvider is shared with the
// automation scheduler so automation-triggered and direct executions report
// to the same Prometheus registry; pass nil to have New create its own.
func New(cfg Config, reg *registry.Registry, eng *engine.Engine, store storage.Store, sched *automation.Scheduler, services nodes.Services, telemetryProvider *telemetry.Provider) (*Server, error) {
	logger := logging.New(logging.DefaultConfig())

	if telemetryProvider == nil {
		var err error
		telemetryProvider, err = telemetry.NewProvider(context.Background(), telemetry.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("server: creating telemetry provider: %w", err)
		}
	}

	healthChecker := health.NewChecker("flowkit-workflow-engine", "0.1.0")
	healthChecker.RegisterCheck("engine", func(ctx context.Context) error {
		return nil
	}, 5*time.Second, true)

	s := &Server{
		config:        cfg,
		reg:           reg,
		eng:           eng,
		store:         store,
		scheduler:     sched,
		services:      services,
		healthChecker: healthChecker,
		telemetry:     telemetryProvider,
		logger:        logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.middlewareChain(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.healthChecker.HTTPHandler())
	mux.HandleFunc("/health/live", s.healthChecker.LivenessHandler())
	mux.HandleFunc("/health/ready", s.healthChecker.ReadinessHandler())
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/workflows/execute", s.handleExecuteWorkflow)
	mux.HandleFunc("/api/v1/workflows/validate", s.handleValidateWorkflow)

	mux.HandleFunc("/api/v1/automations", s.handleAutomations)
	mux.HandleFunc("/api/v1/automations/", s.handleAutomationByID)
	mux.HandleFunc("/api/v1/webhooks/", s.handleWebhook)
}

func (s *Server) middlewareChain(handler http.Handler) http.Handler {
	if s.config.EnableCORS {
		handler = s.corsMiddleware(handler)
	}
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}

func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, "failed to read request body", http.StatusBadRequest, err)
		return
	}

	wf, err := parser.Parse(body, s.reg)
	if err != nil {
		s.writeError(w, "failed to parse workflow", http.StatusBadRequest, err)
		return
	}

	var overrides map[string]interface{}
	if s.services.HTTPClient != nil {
		overrides = map[string]interface{}{"_services": s.services}
	}

	start := time.Now()
	result, err := s.eng.Execute(r.Context(), wf, overrides)
	duration := time.Since(start)
	s.telemetry.RecordWorkflowExecution(r.Context(), wf.ID, duration, err == nil, 0)
	if err != nil {
		s.writeError(w, "workflow execution failed", http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"state":         result.State,
		"outcome":       result.Outcome,
		"executionId":   result.ExecutionID,
		"executionTime": duration.String(),
	})
}

func (s *Server) handleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, "failed to read request body", http.StatusBadRequest, err)
		return
	}

	if _, err := parser.Parse(body, s.reg); err != nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"valid": false, "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}

// handleAutomations serves GET (list) and POST (create) on
// /api/v1/automations.
func (s *Server) handleAutomations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tenantID := r.URL.Query().Get("tenantId")
		automations, err := s.scheduler.ListByTenant(r.Context(), tenantID)
		if err != nil {
			s.writeError(w, "failed to list automations", http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, automations)

	case http.MethodPost:
		var a automation.Automation
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			s.writeError(w, "invalid automation payload", http.StatusBadRequest, err)
			return
		}
		if err := s.scheduler.Create(r.Context(), &a); err != nil {
			s.writeError(w, "failed to create automation", http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, &a)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAutomationByID dispatches /api/v1/automations/{id}/enable|disable|trigger.
func (s *Server) handleAutomationByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/automations/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.scheduler.Delete(r.Context(), id); err != nil {
			s.writeError(w, "failed to delete automation", http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 2 && parts[1] == "enable" && r.Method == http.MethodPost:
		if err := s.scheduler.Enable(r.Context(), id); err != nil {
			s.writeError(w, "failed to enable automation", http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": true})

	case len(parts) == 2 && parts[1] == "disable" && r.Method == http.MethodPost:
		if err := s.scheduler.Disable(r.Context(), id); err != nil {
			s.writeError(w, "failed to disable automation", http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})

	case len(parts) == 2 && parts[1] == "trigger" && r.Method == http.MethodPost:
		s.executeNow(w, r, id)

	default:
		http.NotFound(w, r)
	}
}

// handleWebhook implements spec §4.5's webhook delivery:
// "the host HTTP layer calling executeNow with the inbound payload as
// triggerData".
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	automationID := strings.TrimPrefix(r.URL.Path, "/api/v1/webhooks/")
	s.executeNow(w, r, automationID)
}

func (s *Server) executeNow(w http.ResponseWriter, r *http.Request, automationID string) {
	var payload map[string]interface{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, "invalid trigger payload", http.StatusBadRequest, err)
			return
		}
	}
	exec, err := s.scheduler.ExecuteNow(r.Context(), automationID, payload)
	if err != nil && exec == nil {
		s.writeError(w, "failed to trigger automation", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exec)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int, err error) {
	s.logger.WithError(err).WithField("status_code", statusCode).Error(message)
	s.writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
		"details": err.Error(),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("address", s.config.Address).Info("starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and telemetry provider.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: telemetry shutdown: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.logger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": rw.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("http request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithField("error", fmt.Sprintf("%v", err)).
					WithField("path", r.URL.Path).
					Error("panic recovered")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
