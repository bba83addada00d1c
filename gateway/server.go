package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/piyushkb/WhastapWeb/auth"
	"github.com/piyushkb/WhastapWeb/engine"
	"github.com/piyushkb/WhastapWeb/errors"
	"github.com/piyushkb/WhastapWeb/message"
	"github.com/piyushkb/WhastapWeb/metric"
	"github.com/piyushkb/WhastapWeb/session"
)

// Dependencies are the collaborators the HTTP surface routes into.
type Dependencies struct {
	Keyring  *auth.Keyring
	Sessions *session.Orchestrator
	Messages *message.Gateway
	Registry *metric.Registry
	Engine   engine.Engine
	Logger   *slog.Logger
}

// Server is the HTTP surface of the gateway.
type Server struct {
	config   Config
	keyring  *auth.Keyring
	sessions *session.Orchestrator
	messages *message.Gateway
	registry *metric.Registry
	metrics  *metric.Metrics
	eng      engine.Engine
	logger   *slog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates the HTTP surface. All dependencies except Registry and
// Logger are required.
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Keyring == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("keyring is required"), "Server", "NewServer", "dependency check")
	}
	if deps.Sessions == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("session orchestrator is required"), "Server", "NewServer", "dependency check")
	}
	if deps.Messages == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("message gateway is required"), "Server", "NewServer", "dependency check")
	}
	if deps.Engine == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("engine is required"), "Server", "NewServer", "dependency check")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		keyring:  deps.Keyring,
		sessions: deps.Sessions,
		messages: deps.Messages,
		registry: deps.Registry,
		eng:      deps.Engine,
		logger:   logger,
	}
	if deps.Registry != nil {
		s.metrics = deps.Registry.Metrics
	}
	return s, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /sessions", s.route("/sessions", true, s.handleListSessions))
	mux.Handle("GET /sessions/get-session", s.route("/sessions/get-session", false, s.handleGetSession))
	mux.Handle("POST /sessions/start", s.route("/sessions/start", true, s.handleStartPost))
	mux.Handle("GET /sessions/start", s.route("/sessions/start", true, s.handleStartGet))
	mux.Handle("/sessions/logout", s.route("/sessions/logout", true, s.handleLogout))

	mux.Handle("POST /messages/send-text", s.route("/messages/send-text", true,
		s.handleSend(message.KindText)))
	mux.Handle("POST /messages/send-image", s.route("/messages/send-image", true,
		s.handleSend(message.KindImage)))
	mux.Handle("POST /messages/send-document", s.route("/messages/send-document", true,
		s.handleSend(message.KindDocument)))
	mux.Handle("POST /messages/send-video", s.route("/messages/send-video", true,
		s.handleSend(message.KindVideo)))

	mux.Handle("GET /health", s.route("/health", false, s.handleHealth))
	if s.registry != nil {
		mux.Handle("GET /metrics", s.registry.Handler())
	}

	return mux
}

// Start binds the listener and serves in the background. A bind failure is
// returned synchronously.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.WrapEngine(err, "Server", "Start", "listen")
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server terminated", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.WrapEngine(err, "Server", "Stop", "shutdown")
	}
	s.logger.Info("http server stopped")
	return nil
}

// route composes the per-request middleware chain: request id and
// instrumentation always, the access control gate when protected.
func (s *Server) route(name string, protected bool, h http.HandlerFunc) http.Handler {
	inner := h
	if protected {
		inner = s.requireKey(h)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		inner(rec, r)

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(name, r.Method, fmt.Sprintf("%d", rec.status), duration)
		s.logger.Info("http request",
			"route", name,
			"method", r.Method,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
			"request_id", requestID,
		)
	})
}

// requireKey is the access control gate. The key travels in the "key"
// header, with a query parameter fallback for browser-driven flows like the
// GET start page.
func (s *Server) requireKey(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("key")
		if key == "" {
			key = r.URL.Query().Get("key")
		}
		if err := s.keyring.Authorize(key); err != nil {
			s.writeError(w, err)
			return
		}
		h(w, r)
	}
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// readBody reads a bounded request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.Validation("gateway", "readBody",
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, errors.Validation("gateway", "readBody", "Request body must be valid JSON")
	}
	return body, nil
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error   string              `json:"error"`
	Status  int                 `json:"status"`
	Details []errors.FieldError `json:"details,omitempty"`
}

// writeError maps a classified error onto an HTTP response.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{
		Error:   publicMessage(err),
		Status:  status,
		Details: errors.Details(err),
	})
}

// statusFor maps the error classification onto an HTTP status code.
// Conflicts and absent sessions both answer 400, matching the contract the
// clients of this surface already depend on.
func statusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindUnauthorized:
		return http.StatusUnauthorized
	case errors.KindInvalid, errors.KindConflict, errors.KindNotFound:
		return http.StatusBadRequest
	case errors.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage selects the caller-facing message for an error. Sentinel
// conditions carry canonical messages; engine internals are never leaked.
func publicMessage(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrSessionExists):
		return "Session already exists"
	case stderrors.Is(err, errors.ErrSessionNotFound):
		return "Session does not exist"
	case stderrors.Is(err, errors.ErrSessionNameRequired):
		return "Session name is required"
	case stderrors.Is(err, errors.ErrStartTimeout):
		return "Session start timed out"
	case stderrors.Is(err, errors.ErrMissingAPIKey):
		return "API key is required"
	case stderrors.Is(err, errors.ErrInvalidAPIKey):
		return "Invalid API key"
	}

	switch errors.KindOf(err) {
	case errors.KindInvalid:
		return err.Error()
	case errors.KindUnauthorized:
		return "Invalid API key"
	case errors.KindTimeout:
		return "Request timed out"
	default:
		return "Internal server error"
	}
}
