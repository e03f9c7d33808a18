// Package server exposes the HTTP API: the upstream webhook intake, the
// subscription admin endpoints, health probes and metrics. It injects
// correlation IDs into request contexts for consistent logging.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/tba"
	"github.com/frc5881/tba-slackbot/telemetry"
)

// Pinger reports database liveness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Upstream is the part of the TBA client the HTTP layer needs.
type Upstream interface {
	Team(ctx context.Context, teamKey string) (*tba.Team, error)
	Status(ctx context.Context) (*tba.Status, error)
}

// Queue accepts raw webhook payloads for asynchronous processing.
type Queue interface {
	Submit(ctx context.Context, raw []byte) error
}

// Options wires the handlers to the rest of the service. Nil fields disable
// the routes or checks that need them.
type Options struct {
	DB            Pinger
	Subscriptions subscription.Store
	Upstream      Upstream
	Queue         Queue
	WebhookSecret string
}

// NewMux returns the HTTP handler with all routes.
// The provided context is used for rate limiter cleanup goroutines lifecycle.
func NewMux(ctx context.Context, opts Options) http.Handler {
	authCfg := loadAuthConfig()
	limiter := newIPRateLimiter(ctx, loadRateLimiterConfig())

	handlers := NewHandlers(opts)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", handlers.HandleHealthz)
	mux.HandleFunc("GET /readyz", handlers.HandleReadyz)

	mux.Handle("POST /webhooks/tba", verifyChecksum(http.HandlerFunc(handlers.HandleWebhook), opts.WebhookSecret))

	admin := http.NewServeMux()
	admin.HandleFunc("GET /admin/subscriptions", handlers.HandleListSubscriptions)
	admin.HandleFunc("POST /admin/subscriptions", handlers.HandleFollow)
	admin.HandleFunc("DELETE /admin/subscriptions", handlers.HandleUnfollow)
	mux.Handle("/admin/", adminAuth(rateLimitMiddleware(admin, limiter), authCfg))

	return withTracing(mux)
}

// withTracing reuses or generates a correlation id and wraps the request in a span.
func withTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
			telemetry.HTTPURLAttr(r.URL.String()),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		telemetry.SetSpanHTTPStatus(span, rec.statusCode)
		if rec.statusCode >= 400 {
			code, msg := telemetry.ErrorStatus(fmt.Sprintf("HTTP %d", rec.statusCode))
			span.SetStatus(code, msg)
		}
	})
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, addr string, opts Options) error {
	if strings.TrimSpace(addr) == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(ctx, opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
