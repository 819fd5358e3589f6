package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
)

// StatusSource provides the live view served on /status.
type StatusSource interface {
	LastSnapshot() *domain.StateSnapshot
}

// EndpointSource provides RPC endpoint usage. Implemented by rpcpool.Pool.
type EndpointSource interface {
	States() []domain.EndpointState
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string                 `json:"status"`
	Uptime          string                 `json:"uptime"`
	SessionID       string                 `json:"sessionId,omitempty"`
	DryRun          bool                   `json:"dryRun"`
	Stats           domain.Stats           `json:"stats"`
	ActivePositions []domain.Position      `json:"activePositions"`
	UpdatedAt       int64                  `json:"updatedAt,omitempty"`
	Endpoints       []domain.EndpointState `json:"endpoints,omitempty"`
}

// Server serves /health, /metrics and /status.
type Server struct {
	router    *mux.Router
	srv       *http.Server
	metrics   *Metrics
	status    StatusSource
	endpoints EndpointSource // optional
	logger    *zap.Logger
	started   time.Time
}

// NewServer creates a status server listening on addr. endpoints may be nil.
func NewServer(addr string, m *Metrics, status StatusSource, endpoints EndpointSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router:    mux.NewRouter(),
		metrics:   m,
		status:    status,
		endpoints: endpoints,
		logger:    logger.Named("http"),
		started:   time.Now(),
	}
	s.setupRoutes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleStatus returns session status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:          "starting",
		Uptime:          time.Since(s.started).Round(time.Second).String(),
		ActivePositions: []domain.Position{},
	}
	if snap := s.status.LastSnapshot(); snap != nil {
		resp.Status = "stopped"
		if snap.Running {
			resp.Status = "running"
		}
		resp.SessionID = snap.SessionID
		resp.DryRun = snap.DryRun
		resp.Stats = snap.Stats
		resp.UpdatedAt = snap.UpdatedAt
		if snap.ActivePositions != nil {
			resp.ActivePositions = snap.ActivePositions
		}
	}
	if s.endpoints != nil {
		resp.Endpoints = redactEndpoints(s.endpoints.States())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("encode status", zap.Error(err))
	}
}

// redactEndpoints strips URLs down to their host so API keys carried in
// paths or query strings are not exposed.
func redactEndpoints(states []domain.EndpointState) []domain.EndpointState {
	out := make([]domain.EndpointState, len(states))
	for i, st := range states {
		st.URL = endpointLabel(st.URL)
		out[i] = st
	}
	return out
}
