package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fxrates/internal/cache"
	"fxrates/internal/core"
	"fxrates/internal/export"
	"fxrates/internal/log"
	"fxrates/internal/middleware/security"
	"fxrates/internal/middleware/trace"
	"fxrates/internal/services"
	"fxrates/internal/storage"
	appweb "fxrates/web"
)

const (
	defaultCacheSize    = 256
	defaultCacheTTL     = 10 * time.Minute
	defaultRateLimitRPM = 120
	cacheCleanupEvery   = 10 * time.Minute
	requestTimeout      = 30 * time.Second
	recentImportRuns    = 10
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the dashboard reads from. It never writes rates.
type Deps struct {
	Summaries  *services.SummaryService
	Analytics  *services.AnalyticsService
	Currencies *services.CurrencyService
	Stats      storage.StatsReader
	Journal    storage.ImportJournal
	Store      Pinger
}

// Options tune the dashboard.
type Options struct {
	BaseCurrency   string
	CoverageFrom   time.Time
	CoverageTo     time.Time
	VolatilityDays int
	CacheTTL       time.Duration
	CacheSize      int
	RateLimitRPM   int
	Logger         *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	deps      Deps
	opts      Options
	logger    *log.Logger
	sl        *log.StructuredLogger

	reports *cache.Loading[[]core.MonthReport]
	daily   *cache.Loading[[]core.TriangulatedRate]
	caches  *cache.Manager

	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if deps.Summaries == nil || deps.Currencies == nil {
		return nil, errors.New("http server: summary and currency services are required")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.RateLimitRPM <= 0 {
		opts.RateLimitRPM = defaultRateLimitRPM
	}
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = core.DefaultBaseCurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		deps:      deps,
		opts:      opts,
		logger:    logger,
		sl:        log.NewStructuredLogger(logger),
		reports:   cache.NewLoading[[]core.MonthReport]("summary_reports", opts.CacheSize, opts.CacheTTL),
		daily:     cache.NewLoading[[]core.TriangulatedRate]("daily_rates", opts.CacheSize, opts.CacheTTL),
		caches:    cache.NewManager(),
		started:   time.Now(),
		now:       time.Now,
	}
	s.caches.Register(s.reports)
	s.caches.Register(s.daily)
	s.caches.StartCleanup(cacheCleanupEvery)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	tracer := trace.NewMiddleware(extractClientIP, s.sl)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r.Use(
		chimiddleware.Recoverer,
		tracer.Middleware,
		log.Middleware(s.logger),
		log.RequestIDMiddleware(trace.RequestIDFromRequest),
		headers.Middleware,
	)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssetMiddleware(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(
			httprate.Limit(s.opts.RateLimitRPM, time.Minute,
				httprate.WithKeyFuncs(rateLimitKey),
				httprate.WithLimitHandler(s.handleRateLimited),
			),
			chimiddleware.Timeout(requestTimeout),
		)

		r.Get("/", s.handleIndex)
		r.Route("/ui", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentSummary))
			r.Get("/summary", s.handleSummary)
			r.Get("/charts", s.handleCharts)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/raw", s.handleRaw)
			r.Get("/config", s.handleConfig)
		})
		r.Route("/currencies", func(r chi.Router) {
			r.Post("/", s.handleAddCurrency)
			r.Post("/{code}/delete", s.handleRemoveCurrency)
		})
		r.Route("/export", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentExport), security.NoStore)
			r.Get("/summary.csv", s.handleExportSummary)
			r.Get("/onestream.csv", s.handleExportOneStream)
			r.Get("/analysis.xlsx", s.handleExportAnalysis)
		})
		r.Get("/api/summary", s.handleAPISummary)
	})

	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, extractClientIP(r),
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	ErrorFragment(http.StatusTooManyRequests, "Too many requests, try again in a minute").Write(w)
}

// InvalidateCache drops every cached summary. Called when an import
// notification arrives.
func (s *Server) InvalidateCache() {
	s.caches.PurgeAll()
	s.logger.Info("Summary cache invalidated")
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// selectionDefaults resolves what a request may omit: the latest complete
// month (or the current one when nothing is complete yet) and the
// application currencies.
func (s *Server) selectionDefaults(ctx context.Context) (SelectionDefaults, error) {
	def := SelectionDefaults{BaseCurrency: s.opts.BaseCurrency}

	ym, ok, err := s.deps.Summaries.LatestCompleteMonth(ctx)
	if err != nil {
		return def, err
	}
	if !ok {
		ym = core.YearMonthOf(s.now())
	}
	def.Month = ym

	codes, err := s.deps.Currencies.Codes(ctx)
	if err != nil {
		return def, err
	}
	def.Currencies = codes
	return def, nil
}

func (s *Server) parseSelection(r *http.Request) (Selection, error) {
	def, err := s.selectionDefaults(r.Context())
	if err != nil {
		return Selection{}, err
	}
	return ParseSelection(r.URL.Query(), def)
}

// monthReports returns the cached reports of sel.
func (s *Server) monthReports(ctx context.Context, sel Selection) ([]core.MonthReport, error) {
	return s.reports.GetOrLoad(sel.Key(), func() ([]core.MonthReport, error) {
		reports, err := s.deps.Summaries.RangeReports(ctx, sel.From, sel.To, sel.RateConfig(s.opts))
		if err != nil {
			return nil, err
		}
		for _, report := range reports {
			s.sl.LogSummaryErrors(ctx, report)
		}
		return reports, nil
	})
}

// dailyRates returns the cached triangulated daily rates of sel.
func (s *Server) dailyRates(ctx context.Context, sel Selection) ([]core.TriangulatedRate, error) {
	return s.daily.GetOrLoad(sel.Key(), func() ([]core.TriangulatedRate, error) {
		from := sel.From.FirstDay()
		to := sel.To.Next().FirstDay().AddDate(0, 0, -1)
		return s.deps.Summaries.DailyRates(ctx, from, to, sel.RateConfig(s.opts))
	})
}

// render executes a template, answering 500 with an HTML fragment on failure.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.sl.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		ErrorFragment(http.StatusInternalServerError, "Failed to render "+name).Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// fail answers a selection or service error with the matching status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if isSelectionError(err) {
		ErrorFragment(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	var invalid *export.InvalidDataError
	if errors.As(err, &invalid) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Export refused on invalid stored rates",
			log.FieldOperation, op,
			log.FieldError, err)
		ErrorFragment(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}
	s.sl.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
		log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
	ErrorFragment(http.StatusInternalServerError, "Something went wrong, see the server log").Write(w)
}
