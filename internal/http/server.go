package http

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"finboard/internal/export"
	applog "finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
	appweb "finboard/web"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	MaxReceiptBytes int64
	RateLimit       ratelimit.Config
	Logger          *applog.Logger
	// Clock defaults to time.Now; it sets form defaults such as today's date.
	Clock func() time.Time
}

// Server is the dashboard web UI and JSON API over a LedgerService.
type Server struct {
	http.Server
	templates  *template.Template
	ledger     *services.LedgerService
	exports    *export.Cache
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	logger     *applog.Logger
	maxReceipt int64
	now        func() time.Time
	started    time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server. Template parse failures are logged; pages then
// answer 500 while the JSON API and exports keep working.
func NewServer(cfg Config, ledger *services.LedgerService, exports *export.Cache) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if cfg.MaxReceiptBytes <= 0 {
		cfg.MaxReceiptBytes = 5 << 20
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if exports == nil {
		exports = export.NewCache(16, 10*time.Minute)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:     ledger,
		exports:    exports,
		limiter:    ratelimit.NewLimiter(cfg.RateLimit),
		detector:   security.NewDetector(),
		logger:     logger,
		maxReceipt: cfg.MaxReceiptBytes,
		now:        cfg.Clock,
		started:    time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := appweb.Templates(templateFuncs(ledger.Symbol()))
	if err != nil {
		logger.Warn("Failed parsing templates",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := appweb.Static(); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssets(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	// Pages
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/transactions", s.handleTransactions)
	mux.HandleFunc("/transactions/edit", s.handleEditTransaction)
	mux.HandleFunc("/transactions/delete", s.handleDeleteTransaction)
	mux.HandleFunc("/ledger/clear", s.handleClearLedger)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/history/view", s.handleHistoryView)
	mux.HandleFunc("/history/rename", s.handleHistoryRename)
	mux.HandleFunc("/history/restore", s.handleHistoryRestore)
	mux.HandleFunc("/budget", s.handleBudget)
	mux.HandleFunc("/budget/limit", s.handleBudgetLimit)
	mux.HandleFunc("/budget/category", s.handleBudgetCategory)
	mux.HandleFunc("/budget/save", s.handleBudgetSave)

	// JSON and downloads
	mux.HandleFunc("/api/metrics", s.handleAPIMetrics)
	mux.HandleFunc("/api/analytics", s.handleAPIAnalytics)
	mux.HandleFunc("/export/", s.handleExport)

	// Operations
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = s.detector.Middleware(logger)(h)
	h = s.tracer.Middleware(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	s.Handler = h

	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many changes. Please wait a minute and try again.").
		RetryAfter(time.Minute).
		TriggerErrorNotification("Too many changes. Please wait a minute and try again.").
		Write(w)
}

// Shutdown stops background goroutines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// render executes a page template, answering 500 when templates are missing.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}
