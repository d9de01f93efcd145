// Package server exposes conversations over HTTP.
//
// Routes:
//
//	POST /api/chat                 run a conversation, streamed as server-sent events
//	GET  /api/conversations        list stored conversations, newest first
//	GET  /api/conversations/{id}   fetch one stored conversation
//	POST /api/stop                 cancel every running conversation
//	GET  /metrics                  Prometheus metrics
//	GET  /healthz                  liveness probe
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/metrics"
)

// Runner runs and reads back conversations. *roundtable.Roundtable
// implements it.
type Runner interface {
	Run(ctx context.Context, req roundtable.Request, sinks ...core.Emitter) (core.ConversationRecord, error)
	Conversations(ctx context.Context) ([]core.ConversationSummary, error)
	Conversation(ctx context.Context, id string) (core.ConversationRecord, error)
}

var _ Runner = (*roundtable.Roundtable)(nil)

// Options configures a Server.
type Options struct {
	Logger          logging.Logger
	Metrics         *metrics.Collector
	ShutdownTimeout time.Duration
}

// Server serves the HTTP surface and tracks running conversations so they
// can be stopped.
type Server struct {
	runner Runner
	opts   Options

	mu     sync.Mutex
	nextID uint64
	runs   map[uint64]context.CancelFunc
}

// New creates a Server for runner.
func New(runner Runner, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		ShutdownTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Server{runner: runner, opts: opts, runs: make(map[uint64]context.CancelFunc)}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/conversations", s.handleList)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleGet)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// ListenAndServe serves on addr until ctx is done, then stops running
// conversations and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("HTTP server started", "component", "server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.opts.Logger.Info("Starting graceful shutdown...", "component", "server")
	s.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// Active returns the number of running conversations.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// StopAll cancels every running conversation and returns how many were
// stopped.
func (s *Server) StopAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.runs)
	for id, cancel := range s.runs {
		cancel()
		delete(s.runs, id)
	}
	return n
}

func (s *Server) track(cancel context.CancelFunc) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.runs[id] = cancel
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.runs, id)
		s.mu.Unlock()
		cancel()
	}
}
