// Package server exposes validation, roadmap queries, the Gantt chart and
// the JSON Schema over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nibzard/roadmap-go/internal/chart"
	"github.com/nibzard/roadmap-go/internal/lint"
	"github.com/nibzard/roadmap-go/internal/roadmap"
	"github.com/nibzard/roadmap-go/internal/schema"
	"github.com/nibzard/roadmap-go/internal/validate"
)

// RequestIDHeader carries the per-request ID.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds POST /api/validate bodies.
const maxBodyBytes = 10 << 20

// Config configures a Server.
type Config struct {
	Addr string
	// RoadmapFile is re-read on every query so edits show up immediately.
	RoadmapFile string
	Engine      lint.Engine
	// Strict selects the closed variant of the served schema.
	Strict     bool
	ChartTitle string
	Logger     *log.Logger
	// Now returns the reference date for delays and the chart. Defaults
	// to time.Now.
	Now func() time.Time
}

// Server is the roadmap HTTP server.
type Server struct {
	cfg     Config
	runner  *lint.Runner
	metrics *Metrics
	router  *mux.Router
	logger  *log.Logger
}

// New builds a Server and its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		cfg:     cfg,
		runner:  lint.NewRunner(cfg.Engine, cfg.Logger),
		metrics: NewMetrics(),
		logger:  cfg.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/schema.json", s.handleSchema).Methods(http.MethodGet)
	r.HandleFunc("/chart", s.handleChart).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	api.HandleFunc("/stations", s.handleStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{station}", s.handleStation).Methods(http.MethodGet)
	api.HandleFunc("/milestones", s.handleMilestones).Methods(http.MethodGet)
	api.HandleFunc("/delays", s.handleDelays).Methods(http.MethodGet)
	api.HandleFunc("/critical-path", s.handleCriticalPath).Methods(http.MethodGet)

	s.router = r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.cfg.Addr, "roadmap", s.cfg.RoadmapFile)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument assigns a request ID, logs the request and records metrics
// labelled with the route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.logger.Debug("request",
			"id", id,
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration", elapsed)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	data, err := schema.Document(s.cfg.Strict)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.Write(data)
}

type validateResponse struct {
	Valid      bool                 `json:"valid"`
	Violations []validate.Violation `json:"violations"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > maxBodyBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "document too large")
		return
	}

	result := s.runner.Bytes(body, requestFormat(r))
	s.metrics.ObserveValidation(result)

	violations := result.Violations
	if violations == nil {
		violations = []validate.Violation{}
	}
	s.writeJSON(w, http.StatusOK, validateResponse{Valid: result.Valid(), Violations: violations})
}

// requestFormat picks YAML from ?format=yaml or a YAML content type.
func requestFormat(r *http.Request) roadmap.Format {
	if f := r.URL.Query().Get("format"); f != "" {
		if strings.EqualFold(f, "yaml") || strings.EqualFold(f, "yml") {
			return roadmap.FormatYAML
		}
		return roadmap.FormatJSON
	}
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "yaml") {
		return roadmap.FormatYAML
	}
	return roadmap.FormatJSON
}

// load decodes the configured roadmap file once, validates that tree and
// builds the typed model from it. It writes the error response itself and
// returns nil on failure.
func (s *Server) load(w http.ResponseWriter) *roadmap.Roadmap {
	path := s.cfg.RoadmapFile
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("load roadmap", "file", path, "error", err)
		s.writeError(w, http.StatusInternalServerError, "roadmap file unavailable")
		return nil
	}

	result := &validate.Result{}
	doc, err := roadmap.Decode(data, roadmap.FormatFromPath(path))
	if err != nil {
		result.Add(nil, validate.RuleMalformed, "%s", err.Error())
	} else {
		result = s.cfg.Engine.Validate(doc)
	}
	if !result.Valid() {
		s.writeJSON(w, http.StatusUnprocessableEntity, validateResponse{Violations: result.Violations})
		return nil
	}

	rm, err := roadmap.FromTree(doc)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	return rm
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	rm := s.load(w)
	if rm == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"stations": rm.StationNames()})
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	rm := s.load(w)
	if rm == nil {
		return
	}
	summary, err := rm.StationStatus(mux.Vars(r)["station"])
	if errors.Is(err, roadmap.ErrStationNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := roadmap.ParseDate(q.Get("from"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := roadmap.ParseDate(q.Get("to"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}

	rm := s.load(w)
	if rm == nil {
		return
	}
	milestones := rm.MilestonesInRange(from, to)
	if milestones == nil {
		milestones = []roadmap.MilestoneRef{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"from":       q.Get("from"),
		"to":         q.Get("to"),
		"milestones": milestones,
	})
}

func (s *Server) handleDelays(w http.ResponseWriter, r *http.Request) {
	asOf, err := s.dateParam(r, "as_of")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rm := s.load(w)
	if rm == nil {
		return
	}
	delays := rm.Delays(asOf)
	if delays == nil {
		delays = []roadmap.Delay{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"as_of":  asOf.Format(roadmap.DateLayout),
		"delays": delays,
	})
}

func (s *Server) handleCriticalPath(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	rm := s.load(w)
	if rm == nil {
		return
	}
	stages := rm.LongestStages()
	if stages == nil {
		stages = []roadmap.StageSpan{}
	}
	if limit > 0 && limit < len(stages) {
		stages = stages[:limit]
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"stages": stages})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rm := s.load(w)
	if rm == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := chart.Render(w, rm, chart.Options{Title: s.cfg.ChartTitle, Today: s.cfg.Now()})
	if errors.Is(err, chart.ErrEmpty) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("render chart", "error", err)
	}
}

// dateParam parses a YYYY-MM-DD query parameter, defaulting to the
// current wall clock time.
func (s *Server) dateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return roadmap.WallClock(s.cfg.Now()), nil
	}
	t, err := roadmap.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("write response", "status", status, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
