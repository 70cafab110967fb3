package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ledgerbridge/internal/amqp"
	applog "ledgerbridge/internal/log"
	"ledgerbridge/internal/middleware/ratelimit"
	"ledgerbridge/internal/middleware/security"
	"ledgerbridge/internal/middleware/trace"
	"ledgerbridge/internal/services"
)

// HeaderServiceKey carries the automation platform's service key.
const HeaderServiceKey = "IFTTT-Service-Key"

// Pinger reports whether the state store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SyncRunner runs a sync cycle in-process. ran is false when a cycle was
// already in progress.
type SyncRunner interface {
	RunOnce(ctx context.Context) (report *services.CycleReport, ran bool, err error)
}

// SyncPublisher hands a sync request to the worker over the broker.
type SyncPublisher interface {
	PublishSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error
}

// Dependencies are the services behind the routes. Sync and Broker are
// optional; /cron/ynab publishes when Broker is set and runs Sync otherwise.
type Dependencies struct {
	Secrets  *services.SecretsProvider
	Triggers *services.TriggerService
	Options  *services.OptionsService
	Actions  *services.ActionService
	Store    Pinger
	Sync     SyncRunner
	Broker   SyncPublisher
	Logger   *applog.Logger

	RateLimitPerMinute int
	// CycleTimeout bounds an inline sync started from /cron/ynab.
	CycleTimeout time.Duration
}

type appMetrics struct {
	uptime         time.Time
	feedsServed    atomic.Int64
	actionsOK      atomic.Int64
	actionsSkipped atomic.Int64
	syncRequests   atomic.Int64
}

type Server struct {
	http.Server

	secrets  *services.SecretsProvider
	triggers *services.TriggerService
	options  *services.OptionsService
	actions  *services.ActionService
	store    Pinger
	sync     SyncRunner
	broker   SyncPublisher

	logger     *applog.Logger
	structured *applog.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware

	appMetrics   *appMetrics
	cycleTimeout time.Duration
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	cycleTimeout := deps.CycleTimeout
	if cycleTimeout <= 0 {
		cycleTimeout = 5 * time.Minute
	}

	limiterCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		secrets:          deps.Secrets,
		triggers:         deps.Triggers,
		options:          deps.Options,
		actions:          deps.Actions,
		store:            deps.Store,
		sync:             deps.Sync,
		broker:           deps.Broker,
		logger:           logger,
		structured:       applog.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(limiterCfg),
		securityDetector: security.NewDetector(),
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		appMetrics:       &appMetrics{uptime: time.Now()},
		cycleTimeout:     cycleTimeout,
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cycleTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /cron/ynab", s.handleCron)

	mux.Handle("GET /ifttt/v1/status", s.requireServiceKey(s.handleStatus))
	mux.Handle("POST /ifttt/v1/test/setup", s.requireServiceKey(s.handleTestSetup))

	for _, route := range triggerRoutes {
		base := "/ifttt/v1/triggers/" + route.slug
		mux.Handle("POST "+base, s.requireServiceKey(s.handleTrigger(route)))
		mux.Handle("DELETE "+base+"/trigger_identity/{id}", s.requireServiceKey(s.handleDeleteTrigger))
		if !route.defaultBudget {
			mux.Handle("POST "+base+"/fields/budget/options", s.requireServiceKey(s.handleBudgetOptions))
		} else {
			mux.Handle("POST "+base+"/fields/category/options", s.requireServiceKey(s.handleCategoryOptions(true)))
		}
	}

	for _, route := range actionRoutes {
		base := "/ifttt/v1/actions/" + route.slug
		mux.Handle("POST "+base, s.requireServiceKey(s.handleAction(route)))
		if route.defaultBudget {
			mux.Handle("POST "+base+"/fields/account/options", s.requireServiceKey(s.handleAccountOptions))
			mux.Handle("POST "+base+"/fields/category/options", s.requireServiceKey(s.handleCategoryOptions(false)))
		} else {
			mux.Handle("POST "+base+"/fields/budget/options", s.requireServiceKey(s.handleBudgetOptions))
		}
	}
}

// middleware wraps the mux, outermost first: tracing, request logger,
// security headers, probe rejection, rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded").Write(w)
	})(next)
	h = s.rejectProbes(h)
	h = s.headers.Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(s.logger)(h)
	return s.traceMiddleware.Middleware(h)
}

func (s *Server) rejectProbes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusNotFound, "Not found").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireServiceKey rejects requests whose service key header does not match
// the configured key. An unconfigured key rejects everything.
func (s *Server) requireServiceKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		secrets, err := s.secrets.Load(ctx)
		if err != nil {
			s.structured.LogError(ctx, "Loading secrets failed", err, "authenticate", nil)
			ErrorResponse(http.StatusInternalServerError, "Internal error").Write(w)
			return
		}
		given := r.Header.Get(HeaderServiceKey)
		if secrets.ServiceKey == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secrets.ServiceKey)) != 1 {
			applog.FromContext(ctx).WarnContext(ctx, "Invalid service key", applog.FieldPath, r.URL.Path)
			InvalidKeyError().Write(w)
			return
		}
		next(w, r)
	})
}

// Shutdown stops the background goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
