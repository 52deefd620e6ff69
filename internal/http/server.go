package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"fincontrol/internal/backup"
	"fincontrol/internal/cache"
	"fincontrol/internal/core"
	"fincontrol/internal/log"
	"fincontrol/internal/middleware/ratelimit"
	"fincontrol/internal/middleware/security"
	"fincontrol/internal/middleware/trace"
	"fincontrol/internal/settings"
)

// Ledger is the record store behind the API.
type Ledger interface {
	Revision() uint64
	List(ctx context.Context, kind core.Kind) ([]core.Transaction, error)
	ListAll(ctx context.Context) []core.Transaction
	Get(ctx context.Context, kind core.Kind, id string) (core.Transaction, error)
	Create(ctx context.Context, kind core.Kind, fields core.Fields) (core.Transaction, error)
	Update(ctx context.Context, kind core.Kind, id string, patch core.Patch) error
	Delete(ctx context.Context, kind core.Kind, id string) error
	ClearAll(ctx context.Context) error
}

// Aggregator computes the dashboard views.
type Aggregator interface {
	Totals(ctx context.Context, r core.DateRange) core.Totals
	ByCategory(ctx context.Context) core.CategoryBreakdown
	ByMonth(ctx context.Context, year int, month time.Month) core.MonthSlice
	Monthly(ctx context.Context, year int) []core.MonthTotals
}

// Backups exports and restores the whole ledger.
type Backups interface {
	Export(ctx context.Context) backup.Document
	Encode(w io.Writer, doc backup.Document) error
	Restore(ctx context.Context, r io.Reader) error
}

// Reports renders downloadable reports.
type Reports interface {
	WriteCSV(ctx context.Context, w io.Writer) error
	WriteXLSX(ctx context.Context, w io.Writer) error
}

// Settings holds user preferences.
type Settings interface {
	Theme(ctx context.Context) settings.Theme
	SetTheme(ctx context.Context, t settings.Theme) error
	ToggleTheme(ctx context.Context) (settings.Theme, error)
}

// Display renders amounts for people.
type Display interface {
	Currency(d decimal.Decimal) string
}

// Dependencies wires the server to the application services.
type Dependencies struct {
	Ledger     Ledger
	Aggregator Aggregator
	Backups    Backups
	Reports    Reports
	Settings   Settings
	// Display, when set, adds locale-formatted amounts to the totals.
	Display Display
	// Ready reports whether the store can serve requests.
	Ready func(ctx context.Context) error

	Logger *log.Logger
	// Caches, when set, receives the month view cache for periodic cleanup.
	Caches *cache.Manager
}

// Options tune the server.
type Options struct {
	RateLimit     ratelimit.Config
	MonthCacheTTL time.Duration
	MonthCacheMax int
	// Now is the clock used for download file names.
	Now func() time.Time
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		RateLimit:     ratelimit.DefaultConfig(),
		MonthCacheTTL: 5 * time.Minute,
		MonthCacheMax: 100,
		Now:           time.Now,
	}
}

type Server struct {
	http.Server
	deps        Dependencies
	logger      *log.Logger
	now         func() time.Time
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	// Month views, dropped whenever the ledger revision moves.
	monthCache *cache.Versioned[core.MonthSlice]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Dependencies, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MonthCacheTTL <= 0 {
		opts.MonthCacheTTL = DefaultOptions().MonthCacheTTL
	}
	if opts.MonthCacheMax <= 0 {
		opts.MonthCacheMax = DefaultOptions().MonthCacheMax
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	lru := cache.NewLRUCache[core.MonthSlice](opts.MonthCacheMax, opts.MonthCacheTTL)
	if deps.Caches != nil {
		deps.Caches.Register(lru)
	}

	s := &Server{
		deps:        deps,
		logger:      logger,
		now:         opts.Now,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit, deps.Logger),
		detector:    security.NewDetector(),
		monthCache:  cache.NewVersioned[core.MonthSlice](lru, deps.Ledger.Revision),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(trace.Middleware)
	r.Use(log.AccessLog(s.deps.Logger, trace.FromRequest, s.detector.ExtractClientIP))
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w, r)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w, r)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/transactions", s.handleListAll)
		r.Delete("/transactions", s.handleClearAll)

		r.Get("/totals", s.handleTotals)
		r.Get("/categories", s.handleCategories)
		r.Get("/months/{year}/{month}", s.handleMonth)
		r.Get("/years/{year}", s.handleYear)

		r.Get("/backup", s.handleExport)
		r.Post("/backup", s.handleImport)
		r.Get("/reports/csv", s.handleReportCSV)
		r.Get("/reports/xlsx", s.handleReportXLSX)

		r.Get("/settings/theme", s.handleGetTheme)
		r.Put("/settings/theme", s.handleSetTheme)
		r.Post("/settings/theme/toggle", s.handleToggleTheme)

		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/{id}", s.handleGet)
			r.Patch("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
