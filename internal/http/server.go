package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"solde/internal/auth"
	applog "solde/internal/log"
	"solde/internal/middleware/ratelimit"
	"solde/internal/middleware/security"
	"solde/internal/middleware/trace"
	"solde/internal/report"
	"solde/internal/services"
	"solde/internal/store"
)

// Deps are the services the handlers call. Store backs account listing and
// the readiness probe.
type Deps struct {
	Auth         *auth.Service
	Transactions *services.TransactionService
	Goals        *services.GoalService
	Balances     *services.BalanceRecalculator
	Reports      *report.Service
	Store        store.Store
	Logger       *applog.Logger
}

type Options struct {
	CookieSecure       bool
	RateLimitPerMinute int
}

type appMetrics struct {
	uptime              time.Time
	transactionsCreated int64
	recomputeFailures   int64
}

type Server struct {
	http.Server

	auth         *auth.Service
	transactions *services.TransactionService
	goals        *services.GoalService
	balances     *services.BalanceRecalculator
	reports      *report.Service
	store        store.Store
	logger       *applog.Logger
	schemas      bodySchemas
	cookieSecure bool
	now          func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, fmt.Errorf("load request schemas: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		auth:             deps.Auth,
		transactions:     deps.Transactions,
		goals:            deps.Goals,
		balances:         deps.Balances,
		reports:          deps.Reports,
		store:            deps.Store,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		schemas:          schemas,
		cookieSecure:     opts.CookieSecure,
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/sign-up", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/sign-in", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/sign-out", s.handleSignOut)
	mux.HandleFunc("GET /api/me", s.requireUser(s.handleMe))

	mux.HandleFunc("GET /api/accounts", s.requireUser(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts/recompute", s.requireUser(s.handleRecompute))
	mux.HandleFunc("GET /api/transactions", s.requireUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireUser(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/goals", s.requireUser(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.requireUser(s.handleCreateGoal))
	mux.HandleFunc("GET /api/dashboard", s.requireUser(s.handleDashboard))
	mux.HandleFunc("GET /api/categories", s.requireUser(s.handleCategories))
	mux.HandleFunc("GET /api/reports/monthly", s.requireUser(s.handleMonthlyReport))
	mux.HandleFunc("GET /api/reports/transactions.pdf", s.requireUser(s.handleTransactionsPDF))

	// Outermost first: logger, trace, headers, probe filter, rate limit.
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: codeRateLimited})
}

// Shutdown stops background helpers and drains the HTTP server. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) recordTransactionCreated() {
	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
}

func (s *Server) recordRecomputeFailure() {
	atomic.AddInt64(&s.appMetrics.recomputeFailures, 1)
}
