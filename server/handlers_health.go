package server

import (
	"context"
	"errors"
	"net/http"
)

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.opts.DB != nil {
		if err := h.opts.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with the database and
// upstream datafeed checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"database", func(ctx context.Context) error {
			if h.opts.DB == nil {
				return nil
			}
			return h.opts.DB.PingContext(ctx)
		}},
		{"upstream", func(ctx context.Context) error {
			if h.opts.Upstream == nil {
				return nil
			}
			status, err := h.opts.Upstream.Status(ctx)
			if err != nil {
				return err
			}
			if status.IsDatafeedDown {
				return errors.New("upstream datafeed down")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
