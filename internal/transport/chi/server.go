package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/xsearch/internal/logger"
	"github.com/kailas-cloud/xsearch/internal/metrics"
	"github.com/kailas-cloud/xsearch/internal/repository/searchmetrics"
	healthuc "github.com/kailas-cloud/xsearch/internal/usecase/health"
)

// Throttled routes.
const (
	RouteSearch  = "search"
	RouteSuggest = "suggest"
)

const (
	maxBodyBytes      = 1 << 20
	defaultReportDays = 7
)

// SearchService is the search facade consumed by the HTTP layer.
type SearchService interface {
	Search(ctx context.Context, text string, opts query.Options) (result.Response, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
	Stats(ctx context.Context) (result.Stats, error)
	PopularQueries(ctx context.Context, limit int) ([]result.Popular, error)
	RealtimeMetrics(ctx context.Context) (searchmetrics.Realtime, error)
	HistoricalMetrics(ctx context.Context, from, to time.Time) ([]searchmetrics.DayReport, error)
	FlushCache(ctx context.Context, prefix string) (int, error)
	CleanupMetrics(ctx context.Context, retentionDays int) (int, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// RouteLimit is the throttle window of one route.
type RouteLimit struct {
	MaxAttempts int
	Window      time.Duration
}

// Options configure the router.
type Options struct {
	APIKeys   map[string]string
	AdminKeys []string
	// Limiter is nil when throttling is disabled.
	Limiter Limiter
	Limits  map[string]RouteLimit
	// TrustProxy enables chi's RealIP. Off, the throttle keys anonymous
	// callers by the TCP peer address.
	TrustProxy bool
}

// Server serves the search HTTP API.
type Server struct {
	search SearchService
	health HealthChecker
	logger *zap.Logger
	now    func() time.Time
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{search: search, health: health, logger: logger, now: time.Now}
}

// Routes builds the router with the full middleware chain.
func (s *Server) Routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	if opts.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(WideEvent(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(APIKeyMiddleware(opts.APIKeys, opts.AdminKeys))

		r.With(s.throttle(opts, RouteSearch)).Get("/search", s.SearchGet)
		r.With(s.throttle(opts, RouteSearch)).Post("/search", s.SearchPost)
		r.With(s.throttle(opts, RouteSuggest)).Get("/suggest", s.Suggest)
		r.Get("/stats", s.Stats)
		r.Get("/popular", s.PopularQueries)
		r.Get("/metrics/realtime", s.RealtimeMetrics)
		r.Get("/metrics/historical", s.HistoricalMetrics)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/cache/flush", s.FlushCache)
			r.Post("/metrics/cleanup", s.CleanupMetrics)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

func (s *Server) throttle(opts Options, route string) func(http.Handler) http.Handler {
	if opts.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	l, ok := opts.Limits[route]
	if !ok || l.MaxAttempts <= 0 || l.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return ThrottleMiddleware(opts.Limiter, route, l.MaxAttempts, l.Window)
}

// searchRequest is the body of POST /search.
type searchRequest struct {
	Query string `json:"q"`
	query.Options
}

// SearchGet handles GET /search?q=&per_page=&page=&types=a,b&filters={json}.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	var (
		opts query.Options
		err  error
	)
	if opts.PerPage, err = intParam(params.Get("per_page"), "per_page"); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if opts.Page, err = intParam(params.Get("page"), "page"); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if types := params.Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Types = append(opts.Types, t)
			}
		}
	}
	if raw := params.Get("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Filters); err != nil {
			s.handleDomainError(w, r, domain.NewValidationError("filters", "must be a JSON object of type -> field -> value"))
			return
		}
	}
	s.respondSearch(w, r, params.Get("q"), opts)
}

// SearchPost handles POST /search with a JSON body.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.respondSearch(w, r, req.Query, req.Options)
}

func (s *Server) respondSearch(w http.ResponseWriter, r *http.Request, text string, opts query.Options) {
	resp, err := s.search.Search(r.Context(), text, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if resp.Degraded() {
		w.Header().Set("X-Search-Degraded", "true")
	}
	writeJSON(w, http.StatusOK, resp)
}

// suggestResponse is the body of GET /suggest.
type suggestResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

// Suggest handles GET /suggest?q=&limit=.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out, err := s.search.Suggest(r.Context(), q, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{Query: strings.TrimSpace(q), Suggestions: out})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.search.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PopularQueries handles GET /popular?limit=.
func (s *Server) PopularQueries(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	top, err := s.search.PopularQueries(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": top})
}

// RealtimeMetrics handles GET /metrics/realtime.
func (s *Server) RealtimeMetrics(w http.ResponseWriter, r *http.Request) {
	rt, err := s.search.RealtimeMetrics(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

// HistoricalMetrics handles GET /metrics/historical?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Both default to the last seven days.
func (s *Server) HistoricalMetrics(w http.ResponseWriter, r *http.Request) {
	to := s.now().UTC()
	from := to.AddDate(0, 0, -(defaultReportDays - 1))
	var err error
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.DateOnly, v); err != nil {
			s.handleDomainError(w, r, domain.NewValidationError("to", "must be a YYYY-MM-DD date"))
			return
		}
		if r.URL.Query().Get("from") == "" {
			from = to.AddDate(0, 0, -(defaultReportDays - 1))
		}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.DateOnly, v); err != nil {
			s.handleDomainError(w, r, domain.NewValidationError("from", "must be a YYYY-MM-DD date"))
			return
		}
	}

	days, err := s.search.HistoricalMetrics(r.Context(), from, to)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from": from.Format(time.DateOnly),
		"to":   to.Format(time.DateOnly),
		"days": days,
	})
}

// FlushCache handles POST /admin/cache/flush with an optional {"prefix": "..."} body.
func (s *Server) FlushCache(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prefix string `json:"prefix"`
	}
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	n, err := s.search.FlushCache(r.Context(), req.Prefix)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// CleanupMetrics handles POST /admin/metrics/cleanup with an optional {"retention_days": n} body.
func (s *Server) CleanupMetrics(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RetentionDays int `json:"retention_days"`
	}
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	if req.RetentionDays < 0 {
		s.handleDomainError(w, r, domain.NewValidationError("retention_days", "must be positive"))
		return
	}
	n, err := s.search.CleanupMetrics(r.Context(), req.RetentionDays)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health. Degraded still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: report.Status, Checks: report.Checks})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	for _, h := range errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return false
	}
	return true
}

func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return false
	}
	return true
}
