// Package http serves the ledger as a JSON and CSV API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bistro/internal/cache"
	"bistro/internal/insights"
	"bistro/internal/log"
	"bistro/internal/middleware/ratelimit"
	"bistro/internal/middleware/security"
	"bistro/internal/middleware/trace"
	"bistro/internal/services"
)

const (
	reportsCacheSize    = 8
	reportsCacheTTL     = 10 * time.Minute
	cacheCleanupEvery   = 5 * time.Minute
	insightsTimeout     = 60 * time.Second
	readyCheckTimeout   = 5 * time.Second
	defaultHistoryLimit = 20
)

// Dependencies are the services the API exposes. Analyzer may be nil, in
// which case the insights endpoint answers 503.
type Dependencies struct {
	Ledger    *services.LedgerService
	Backups   *services.BackupService
	Analyzer  insights.Analyzer
	Logger    *log.Logger
	RateLimit ratelimit.Config
}

type Server struct {
	*http.Server

	ledger   *services.LedgerService
	backups  *services.BackupService
	analyzer insights.Analyzer
	logger   *log.StructuredLogger
	baseLog  *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	reportsCache *cache.LRUCache[services.Reports]
	caches       *cache.Manager

	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware. It starts the cache and rate
// limiter cleanup goroutines; Shutdown stops them.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		ledger:       deps.Ledger,
		backups:      deps.Backups,
		analyzer:     deps.Analyzer,
		logger:       log.NewStructuredLogger(logger),
		baseLog:      logger,
		limiter:      ratelimit.NewLimiter(deps.RateLimit),
		detector:     security.NewDetector(),
		reportsCache: cache.NewLRUCache[services.Reports](reportsCacheSize, reportsCacheTTL),
		caches:       cache.NewManager(),
		started:      time.Now(),
		now:          time.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)
	s.caches.Register(s.reportsCache)
	s.caches.StartCleanup(cacheCleanupEvery)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/clear", s.handleClearTransactions)

	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/template", s.handleTemplate)

	mux.HandleFunc("GET /api/daily", s.handleDailyIncome)
	mux.HandleFunc("GET /api/vat", s.handleVATReturn)
	mux.HandleFunc("GET /api/vat/export", s.handleVATExport)
	mux.HandleFunc("GET /api/reports", s.handleReports)

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)
	mux.HandleFunc("POST /api/profile/import", s.handleImportProfile)
	mux.HandleFunc("GET /api/profile/export", s.handleExportProfile)
	mux.HandleFunc("GET /api/profile/template", s.handleProfileTemplate)

	mux.HandleFunc("POST /api/backup/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/backup/export", s.handleBackupExport)
	mux.HandleFunc("POST /api/backup/restore", s.handleRestore)
	mux.HandleFunc("POST /api/backup/restore-auto", s.handleRestoreAuto)
	mux.HandleFunc("GET /api/backup/history", s.handleBackupHistory)

	mux.HandleFunc("POST /api/insights", s.handleInsights)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the ledger is loaded and the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := map[string]any{}

	if s.ledger == nil {
		checks["ledger"] = "not_configured"
		status = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = map[string]any{"status": "ok", "revision": s.ledger.Revision()}
	}

	if s.backups != nil {
		if _, err := s.backups.History(ctx, 1); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["insights"] = "disabled"
	if s.analyzer != nil {
		checks["insights"] = "ok"
	}
	checks["cache"] = map[string]any{"reports_entries": s.reportsCache.Size()}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Hits(),
	}
	checks["requests"] = map[string]any{
		"total":      s.tracer.GetMetrics().TotalRequests,
		"suspicious": s.detector.SuspiciousRequests(),
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	NewResponse().Status(status).JSON(map[string]any{
		"status":    state,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// reports serves the dashboard figures from cache while the ledger
// revision is unchanged.
func (s *Server) reports(ctx context.Context) services.Reports {
	key := "rev:" + strconv.FormatUint(s.ledger.Revision(), 10)
	if rep, ok := s.reportsCache.Get(key); ok {
		log.FromContext(ctx).WithComponent(log.ComponentCache).DebugContext(ctx, "Reports cache hit", "key", key)
		return rep
	}
	rep := s.ledger.Reports()
	s.reportsCache.Set(key, rep)
	return rep
}
