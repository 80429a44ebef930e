// Package server exposes stored pipelines over HTTP.
package server

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/featurekit/dataio"
	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/internal/telemetry"
	"github.com/YuminosukeSato/featurekit/monitor"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/pkg/log"
	"github.com/YuminosukeSato/featurekit/store"
	"github.com/YuminosukeSato/featurekit/tabular"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 32 << 20

// Server serves transform, export and importance requests for the pipelines
// in a store. Pipelines are loaded on first use and cached together with a
// drift monitor over their numerical inputs.
type Server struct {
	store    store.Store
	logger   log.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
	adwin    []monitor.ADWINOption

	mu    sync.RWMutex
	cache map[string]*entry
}

type entry struct {
	pipeline *tabular.Pipeline
	monitor  *monitor.Monitor
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records pipeline and request metrics in m and serves g on
// /metrics.
func WithMetrics(m *telemetry.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithMonitorOptions configures the per-feature drift detectors.
func WithMonitorOptions(opts ...monitor.ADWINOption) Option {
	return func(s *Server) { s.adwin = opts }
}

// New returns a server backed by st.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		store:  st,
		logger: log.GetLoggerWithName("server"),
		cache:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/pipelines", func(r chi.Router) {
		r.Get("/", s.handle(s.listPipelines))
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handle(s.describePipeline))
			r.Delete("/", s.handle(s.deletePipeline))
			r.Get("/monitor", s.handle(s.monitorStatus))
			r.Post("/transform", s.handle(s.transform))
			r.Post("/vertex", s.handle(s.vertex))
			r.Post("/importance", s.handle(s.importance))
		})
	})
	return r
}

// Invalidate drops a cached pipeline so the next request reloads it.
func (s *Server) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errc:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) pipeline(ctx context.Context, name string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return e, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cache[name]; ok {
		return e, nil
	}
	opts := []tabular.PipelineOption{
		tabular.WithLogger(s.logger.With(log.EstimatorIDKey, name)),
	}
	if s.metrics != nil {
		opts = append(opts, tabular.WithObserver(s.metrics))
	}
	p, err := store.LoadPipeline(ctx, s.store, name, opts...)
	if err != nil {
		return nil, err
	}
	schema, err := p.Schema()
	if err != nil {
		return nil, err
	}
	e = &entry{pipeline: p, monitor: monitor.New(schema.Numerical, s.adwin...)}
	s.cache[name] = e
	s.logger.Info("pipeline loaded", log.EstimatorIDKey, name)
	return e, nil
}

// watch feeds a served batch to the pipeline's drift monitor.
func (s *Server) watch(name string, e *entry, in *frame.Frame) {
	for _, feature := range e.monitor.Observe(in) {
		s.logger.Warn("input drift detected",
			log.EstimatorIDKey, name,
			log.ColumnKey, feature,
		)
		if s.metrics != nil {
			s.metrics.ObserveDrift(name, feature)
		}
	}
}

// pipelineInput decodes the request body using the pipeline's fitted column
// kinds.
func pipelineInput(r *http.Request, p *tabular.Pipeline) (*frame.Frame, error) {
	schema, err := p.Schema()
	if err != nil {
		return nil, err
	}
	f, err := dataio.ReadJSONRecords(r.Body, schema.Kinds())
	if err != nil {
		return nil, badRequest(err)
	}
	return f, nil
}

type pipelineList struct {
	Pipelines []string `json:"pipelines"`
}

func (s *Server) listPipelines(r *http.Request) (int, any, error) {
	names, err := s.store.List(r.Context())
	if err != nil {
		return 0, nil, err
	}
	sort.Strings(names)
	return http.StatusOK, pipelineList{Pipelines: names}, nil
}

type pipelineInfo struct {
	Name   string         `json:"name"`
	Config tabular.Config `json:"config"`
	Schema tabular.Schema `json:"schema"`
}

func (s *Server) describePipeline(r *http.Request) (int, any, error) {
	name := chi.URLParam(r, "name")
	e, err := s.pipeline(r.Context(), name)
	if err != nil {
		return 0, nil, err
	}
	schema, err := e.pipeline.Schema()
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, pipelineInfo{Name: name, Config: e.pipeline.Config(), Schema: schema}, nil
}

type monitorResponse struct {
	Name     string                  `json:"name"`
	Features []monitor.FeatureStatus `json:"features"`
}

func (s *Server) monitorStatus(r *http.Request) (int, any, error) {
	name := chi.URLParam(r, "name")
	e, err := s.pipeline(r.Context(), name)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, monitorResponse{Name: name, Features: e.monitor.Status()}, nil
}

func (s *Server) deletePipeline(r *http.Request) (int, any, error) {
	name := chi.URLParam(r, "name")
	if err := store.ValidateName(name); err != nil {
		return 0, nil, err
	}
	if err := s.store.Delete(r.Context(), name); err != nil {
		return 0, nil, err
	}
	s.Invalidate(name)
	return http.StatusNoContent, nil, nil
}

type transformResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

func (s *Server) transform(r *http.Request) (int, any, error) {
	name := chi.URLParam(r, "name")
	e, err := s.pipeline(r.Context(), name)
	if err != nil {
		return 0, nil, err
	}
	in, err := pipelineInput(r, e.pipeline)
	if err != nil {
		return 0, nil, err
	}
	out, err := e.pipeline.Transform(in)
	if err != nil {
		return 0, nil, err
	}
	s.watch(name, e, in)
	return http.StatusOK, transformResponse{Columns: out.Names(), Rows: out.Records()}, nil
}

func (s *Server) vertex(r *http.Request) (int, any, error) {
	name := chi.URLParam(r, "name")
	e, err := s.pipeline(r.Context(), name)
	if err != nil {
		return 0, nil, err
	}
	in, err := pipelineInput(r, e.pipeline)
	if err != nil {
		return 0, nil, err
	}
	payload, err := e.pipeline.ToVertexAIFormat(in, r.URL.Query().Get("target"))
	if err != nil {
		return 0, nil, err
	}
	s.watch(name, e, in)
	return http.StatusOK, payload, nil
}

func (s *Server) importance(r *http.Request) (int, any, error) {
	target := r.URL.Query().Get("target")
	if target == "" {
		return 0, nil, errors.NewValidationError("target", "query parameter is required", target)
	}
	e, err := s.pipeline(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		return 0, nil, err
	}
	in, err := pipelineInput(r, e.pipeline)
	if err != nil {
		return 0, nil, err
	}
	scores, err := e.pipeline.FeatureImportance(in, target)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{"target": target, "scores": scores}, nil
}

// instrument counts requests by route pattern and status class.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, status)
		}
		s.logger.Debug("request served",
			"method", r.Method,
			"route", route,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	})
}
