// Package server exposes the task collection over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"streaktodo/internal/service"
	"streaktodo/internal/streak"
)

const (
	// maxRequestBody caps JSON request bodies.
	maxRequestBody = 1 << 20

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second

	// eventBuffer is the per-client SSE backlog. Events beyond it are
	// dropped for that client.
	eventBuffer = 16
)

// Server serves the task API.
type Server struct {
	svc    service.Service
	proxy  http.Handler
	goal   int
	logger *slog.Logger
	mux    *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithProxy mounts h at /api/whop/proxy.
func WithProxy(h http.Handler) Option {
	return func(s *Server) { s.proxy = h }
}

// WithGoal sets the streak goal used by the summary.
func WithGoal(goal int) Option {
	return func(s *Server) { s.goal = goal }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server over svc.
func New(svc service.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		goal:   streak.DefaultGoal,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	s.mux = s.routes()
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/tasks", s.handleList)
	mux.HandleFunc("POST /api/tasks", s.handleAdd)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/tasks/{id}/uncomplete", s.handleUncomplete)
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	if s.proxy != nil {
		mux.Handle("/api/whop/proxy", s.proxy)
	}
	return mux
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// Request contexts derive from ctx so open event streams end on shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// ctx is already cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// collection is the body of list and reload responses.
type collection struct {
	Tasks       []service.Task `json:"tasks"`
	LastSavedAt *time.Time     `json:"lastSavedAt"`
	Summary     streak.Summary `json:"summary"`
}

func (s *Server) collection() collection {
	tasks := s.svc.Tasks()
	states := make([]streak.State, len(tasks))
	for i, t := range tasks {
		states[i] = t.State
	}

	c := collection{
		Tasks:   tasks,
		Summary: streak.Summarize(states, s.goal),
	}
	if saved := s.svc.LastSavedAt(); !saved.IsZero() {
		c.LastSavedAt = &saved
	}
	return c
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collection())
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusCreated, s.svc.Add(req.Text))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	task, ok := s.svc.Get(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.Patch
	if err := decodeBody(r, &patch); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := patch.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, ok := s.svc.Update(r.PathValue("id"), patch)
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Delete(r.PathValue("id")) {
		writeNotFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	out, ok := s.svc.MarkComplete(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUncomplete(w http.ResponseWriter, r *http.Request) {
	task, ok := s.svc.MarkIncomplete(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	out, ok := s.svc.Toggle(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Reload() {
		s.logger.Warn("reload found no usable stored tasks")
	}
	writeJSON(w, http.StatusOK, s.collection())
}

// handleEvents streams store events as Server-Sent Events until the client
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events := make(chan service.Event, eventBuffer)
	unsubscribe := s.svc.Subscribe(func(ev service.Event) {
		select {
		case events <- ev:
		default:
			s.logger.Warn("dropping event for slow client", "kind", ev.Kind)
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := writeSSEEvent(w, string(ev.Kind), ev); err != nil {
				s.logger.Error("failed to write event", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeSSEEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeNotFound(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotFound, "task not found")
}
