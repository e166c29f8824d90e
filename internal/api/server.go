// Package api exposes the read-side HTTP surface: latest precomputed
// forecasts, the query registry listing, and controlled execution of
// allowlisted queries. Forecast computation never happens at request time.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"forecastd/internal/domain"
	"forecastd/internal/executor"
	"forecastd/internal/middleware"
	"forecastd/internal/queryfilter"
	"forecastd/internal/registry"
)

// Options configures the HTTP server.
type Options struct {
	QueryRowLimit      int
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// Server handles the read-side HTTP routes.
type Server struct {
	reader domain.ForecastReader
	runs   domain.ForecastRunRepository
	reg    *registry.Registry
	filter *queryfilter.Filter
	exec   *executor.Executor
	opts   Options
	logger *slog.Logger
}

// NewServer creates a Server wired with the given dependencies.
func NewServer(
	reader domain.ForecastReader,
	runs domain.ForecastRunRepository,
	reg *registry.Registry,
	filter *queryfilter.Filter,
	exec *executor.Executor,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.QueryRowLimit <= 0 {
		opts.QueryRowLimit = 500
	}
	return &Server{
		reader: reader,
		runs:   runs,
		reg:    reg,
		filter: filter,
		exec:   exec,
		opts:   opts,
		logger: logger,
	}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	if s.opts.RateLimitRPS > 0 {
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: s.opts.RateLimitRPS,
			Burst:             s.opts.RateLimitBurst,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/forecasts/{domain}/{seriesKey}", s.handleGetForecast)
		r.Get("/forecasts/{domain}/{seriesKey}/runs", s.handleListRuns)
		r.Get("/queries", s.handleListQueries)
		r.Post("/queries/execute", s.handleExecuteQuery)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "forecastd",
	})
}

// handleGetForecast serves the latest precomputed forecast for one slot.
// A read during or after a failed run still returns the last known-good
// run; only a slot that has never succeeded yields an error.
func (s *Server) handleGetForecast(w http.ResponseWriter, r *http.Request) {
	dom := chi.URLParam(r, "domain")
	seriesKey := chi.URLParam(r, "seriesKey")

	if !domain.ValidDomain(dom) {
		s.writeError(w, domain.ErrValidation("unknown forecast domain %q", dom))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, domain.ErrValidation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	latest, err := s.reader.GetLatest(r.Context(), dom, seriesKey, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, latest)
}

// handleListRuns exposes recent run history for a slot, newest first, for
// observability.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	dom := chi.URLParam(r, "domain")
	seriesKey := chi.URLParam(r, "seriesKey")

	if !domain.ValidDomain(dom) {
		s.writeError(w, domain.ErrValidation("unknown forecast domain %q", dom))
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.runs.ListRuns(r.Context(), dom, seriesKey, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	type runResponse struct {
		ID           string     `json:"run_id"`
		Status       string     `json:"status"`
		ModelVersion string     `json:"model_version"`
		GeneratedAt  time.Time  `json:"generated_at"`
		FinishedAt   *time.Time `json:"finished_at,omitempty"`
		ErrorMessage *string    `json:"error_message,omitempty"`
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = runResponse{
			ID:           run.ID,
			Status:       run.Status,
			ModelVersion: run.ModelVersion,
			GeneratedAt:  run.GeneratedAt,
			FinishedAt:   run.FinishedAt,
			ErrorMessage: run.ErrorMessage,
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"domain":     dom,
		"series_key": seriesKey,
		"runs":       out,
	})
}

// handleListQueries lists the allowlisted query definitions.
func (s *Server) handleListQueries(w http.ResponseWriter, _ *http.Request) {
	type queryResponse struct {
		QueryID        string   `json:"query_id"`
		Description    string   `json:"description"`
		RequiredParams []string `json:"required_params"`
		OptionalParams []string `json:"optional_params"`
	}

	defs := s.reg.List()
	out := make([]queryResponse, len(defs))
	for i, def := range defs {
		out[i] = queryResponse{
			QueryID:        def.QueryID,
			Description:    def.Description,
			RequiredParams: def.RequiredParams(),
			OptionalParams: def.OptionalParams(),
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"queries": out})
}

type executeQueryRequest struct {
	QueryID string         `json:"query_id"`
	Params  map[string]any `json:"params"`
	Limit   int            `json:"limit"`
}

// handleExecuteQuery runs one allowlisted query through the filter and
// executor. Rejections never reach the data source.
func (s *Server) handleExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req executeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	limit := req.Limit
	if limit <= 0 || limit > s.opts.QueryRowLimit {
		limit = s.opts.QueryRowLimit
	}

	bq, err := s.filter.Validate(req.QueryID, req.Params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows, err := s.exec.Execute(r.Context(), bq)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"query_id":     req.QueryID,
		"row_count":    len(rows),
		"generated_at": time.Now().UTC(),
		"rows":         rows,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
