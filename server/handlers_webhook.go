package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/telemetry"
)

// HandleWebhook queues an upstream webhook delivery. The body has already
// passed checksum verification.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.LoggerWithCorr(r.Context()).With(slog.String("component", "webhook"))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	var envelope struct {
		MessageType string          `json:"message_type"`
		MessageData json.RawMessage `json:"message_data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		telemetry.IncWebhookRejected("invalid_json")
		logger.Warn("webhook body is not json", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "invalid json")
		return
	}
	if envelope.MessageType == "" {
		telemetry.IncWebhookRejected("missing_type")
		writeError(w, http.StatusBadRequest, "missing message_type")
		return
	}

	if engine.Kind(envelope.MessageType) == engine.KindVerification {
		var v struct {
			Key string `json:"verification_key"`
		}
		_ = json.Unmarshal(envelope.MessageData, &v)
		logger.Info("webhook verification received", slog.String("verification_key", v.Key))
	}

	if h.opts.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "processing disabled")
		return
	}
	if err := h.opts.Queue.Submit(r.Context(), body); err != nil {
		if errors.Is(err, engine.ErrQueueFull) {
			telemetry.IncWebhookRejected("queue_full")
			logger.Warn("webhook queue full", slog.String("message_type", envelope.MessageType))
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusServiceUnavailable, "queue full")
			return
		}
		logger.Error("webhook submit failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}
	logger.Debug("webhook queued", slog.String("message_type", envelope.MessageType))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
