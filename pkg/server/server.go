// Package server exposes the pipeline over HTTP.
//
// # Routes
//
//	GET  /healthz             liveness check
//	GET  /v1/kinds            registered node kinds
//	POST /v1/refine           refine a model
//	POST /v1/copy             copy a model with canonical ids
//	POST /v1/compile          refine and compile a model
//	GET  /v1/models           list stored models
//	GET  /v1/models/{name}    fetch a stored model
//	PUT  /v1/models/{name}    store a model
//	DELETE /v1/models/{name}  delete a stored model
//	GET  /metrics             Prometheus metrics
//
// Transform requests carry either an inline document or the name of a
// stored model, plus pipeline options:
//
//	{"model": "norm", "options": {"max_iterations": 5, "formats": ["yaml"]}}
//
// Every response carries an X-Request-ID header. Errors are returned as
// {"error": "...", "code": "INVALID_INPUT", "request_id": "..."}.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowgraph/pkg/metrics"
	"github.com/matzehuels/flowgraph/pkg/pipeline"
	"github.com/matzehuels/flowgraph/pkg/store"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 4 << 20

// Options configures a Server. Runner and Store are required.
type Options struct {
	Runner  *pipeline.Runner
	Store   store.Store
	Logger  *log.Logger
	Metrics *metrics.Registry

	// Timeout bounds each request. Zero means one minute.
	Timeout time.Duration
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	runner  *pipeline.Runner
	store   store.Store
	logger  *log.Logger
	metrics *metrics.Registry
	router  chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.DefaultRegistry()
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Minute
	}
	s := &Server{
		runner:  opts.Runner,
		store:   opts.Store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(observe)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Timeout))
		r.Use(middleware.RequestSize(MaxBodyBytes))

		r.Get("/kinds", s.handleKinds)
		r.Post("/refine", s.handleTransform(pipeline.OpRefine, false))
		r.Post("/copy", s.handleTransform(pipeline.OpCopy, false))
		r.Post("/compile", s.handleTransform(pipeline.OpRefine, true))

		r.Get("/models", s.handleListModels)
		r.Get("/models/{name}", s.handleGetModel)
		r.Put("/models/{name}", s.handlePutModel)
		r.Delete("/models/{name}", s.handleDeleteModel)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
