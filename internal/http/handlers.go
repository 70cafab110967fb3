package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ledgerbridge/internal/amqp"
	applog "ledgerbridge/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Raw(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the state store and reports credential and cache state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.store == nil {
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	// Missing credentials do not make the service unready: the admin tool
	// can still set them.
	if secrets, err := s.secrets.Load(ctx); err != nil {
		checks["credentials"] = fmt.Sprintf("failed: %v", err)
	} else {
		checks["credentials"] = map[string]any{
			"service_key":    secrets.ServiceKey != "",
			"access_token":   secrets.AccessToken != "",
			"default_budget": secrets.DefaultBudget != "",
		}
	}

	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}
	if s.options != nil {
		checks["options_cache"] = map[string]any{"entries": s.options.Cache().Size()}
	}

	NewJSONResponse().Status(httpStatus).Raw(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	optionEntries := 0
	if s.options != nil {
		optionEntries = s.options.Cache().Size()
	}

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_last_request_duration_ms", "gauge", "Duration of the most recent request", traceMetrics.LastDurationMs)
	metric("trigger_feeds_served_total", "counter", "Trigger polls answered with a change log", s.appMetrics.feedsServed.Load())
	metric("actions_succeeded_total", "counter", "Actions that created a transaction", s.appMetrics.actionsOK.Load())
	metric("actions_skipped_total", "counter", "Actions rejected with SKIP", s.appMetrics.actionsSkipped.Load())
	metric("sync_requests_total", "counter", "Sync cycles requested via /cron/ynab", s.appMetrics.syncRequests.Load())
	metric("option_cache_entries", "gauge", "Cached field option lists", optionEntries)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", s.rateLimiter.Hits())
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", s.rateLimiter.ActiveClients())
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("spoofed_forwarding_total", "counter", "Forwarding headers sent by untrusted peers", securityMetrics.SpoofedForwarding)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}

// handleCron starts a sync cycle. With a broker the request is queued for the
// sync worker; otherwise the cycle runs inline.
func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).With(applog.FieldOperation, applog.OpSync)
	s.appMetrics.syncRequests.Add(1)

	if s.broker != nil {
		msg := amqp.NewSyncRequestMessage("cron")
		err := s.broker.PublishSyncRequest(ctx, msg)
		if err == nil {
			s.structured.LogSyncRequest(ctx, msg.Source, msg.RequestID, true)
			NewJSONResponse().Status(http.StatusAccepted).Raw(map[string]any{
				"status":     "queued",
				"request_id": msg.RequestID,
			}).Write(w)
			return
		}
		if s.sync == nil {
			s.structured.LogError(ctx, "Queueing sync request failed", err, applog.OpSync, nil)
			ErrorResponse(http.StatusServiceUnavailable, "Sync unavailable").Write(w)
			return
		}
		logger.WarnContext(ctx, "Queueing sync request failed, running inline", applog.FieldError, err)
	}

	if s.sync == nil {
		ErrorResponse(http.StatusServiceUnavailable, "Sync unavailable").Write(w)
		return
	}

	// The cycle outlives a client that hangs up.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
	defer cancel()

	s.structured.LogSyncRequest(ctx, "cron", "", false)
	report, ran, err := s.sync.RunOnce(runCtx)
	if !ran {
		logger.InfoContext(ctx, "Sync already running")
		NewJSONResponse().Raw(map[string]any{"status": "skipped"}).Write(w)
		return
	}
	if err != nil {
		s.structured.LogError(ctx, "Sync cycle failed", err, applog.OpSync, nil)
		ErrorResponse(http.StatusInternalServerError, "Sync failed").Write(w)
		return
	}

	body := map[string]any{"status": "done"}
	if report != nil {
		body["budgets"] = len(report.Budgets)
		body["failed"] = report.Failed()
		body["notified"] = len(report.Notified)
	}
	NewJSONResponse().Raw(body).Write(w)
}
