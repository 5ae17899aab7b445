package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adamsih300u/bastion-sub008/pkg/graph"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
	"github.com/adamsih300u/bastion-sub008/pkg/store"
)

const (
	DefaultAddr          = ":8090"
	DefaultMaxIterations = 100000
)

// StoreInterface is the slice of the event store the API reads and writes.
type StoreInterface interface {
	AppendEvent(ctx context.Context, event *store.Event) error
	ReadRecentEvents(ctx context.Context, limit int) ([]*store.Event, error)
	QueryEvents(ctx context.Context, filter store.EventFilter) ([]*store.Event, error)
}

// SimulationService is implemented by *simulation.Service.
type SimulationService interface {
	Namespaces() []string
	DesignComponent(namespace string, spec graph.DesignSpec) simulation.DesignResponse
	SimulateFailure(ctx context.Context, namespace string, req simulation.SimulateRequest) simulation.SimulateResponse
	GetTopology(namespace string) simulation.TopologyResponse
	LatestResult(ctx context.Context, namespace string) (simulation.SimulateResponse, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Addr          string
	MaxIterations int
	LeaseTTL      time.Duration
	LockWait      time.Duration
	Logger        *slog.Logger
}

// Server encapsulates the HTTP API server
type Server struct {
	service       SimulationService
	store         StoreInterface
	guard         *NamespaceGuard
	validate      *validator.Validate
	maxIterations int
	logger        *slog.Logger
	server        *http.Server
}

// NewServer creates a new API server instance. st may be nil, in which case
// no events are recorded and the event and report endpoints are
// unavailable.
func NewServer(svc SimulationService, st StoreInterface, leases store.LeaseStore, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		service:       svc,
		store:         st,
		guard:         NewNamespaceGuard(leases, cfg.LeaseTTL, cfg.LockWait, logger),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		maxIterations: cfg.MaxIterations,
		logger:        logger,
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  15 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/namespaces", s.handleNamespaces)
	mux.HandleFunc("POST /v1/namespaces/{namespace}/components", s.handleDesign)
	mux.HandleFunc("POST /v1/namespaces/{namespace}/simulations", s.handleSimulate)
	mux.HandleFunc("GET /v1/namespaces/{namespace}/simulations/latest", s.handleLatest)
	mux.HandleFunc("GET /v1/namespaces/{namespace}/topology", s.handleTopology)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/reports", s.handleReports)

	// Middleware: Logging, Panic Recovery, Security Headers
	return withLogging(s.logger, withRecovery(s.logger, withSecureHeaders(mux)))
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	s.logger.Info("server_starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("server_stopping")
	return s.server.Shutdown(ctx)
}

// handleHealth returns simple status
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
