package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/frc5881/tba-slackbot/frc"
	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/telemetry"
)

// HandleListSubscriptions lists a channel's subscriptions.
// GET /admin/subscriptions?team_id=T&channel_id=C
func (h *Handlers) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	if h.opts.Subscriptions == nil {
		writeError(w, http.StatusServiceUnavailable, "subscriptions unavailable")
		return
	}
	teamID, channelID, ok := channelParams(w, r)
	if !ok {
		return
	}
	subs, err := h.opts.Subscriptions.ForChannel(r.Context(), teamID, channelID)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("list subscriptions failed", slog.Any("err", err), slog.String("component", "admin"))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if subs == nil {
		subs = []subscription.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// HandleFollow creates or updates a subscription after checking the team
// exists upstream.
// POST /admin/subscriptions {"team_id","channel_id","frc_team","level","subscribed_by"}
func (h *Handlers) HandleFollow(w http.ResponseWriter, r *http.Request) {
	if h.opts.Subscriptions == nil {
		writeError(w, http.StatusServiceUnavailable, "subscriptions unavailable")
		return
	}
	logger := telemetry.LoggerWithCorr(r.Context()).With(slog.String("component", "admin"))

	var sub subscription.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	sub.TeamID = strings.TrimSpace(sub.TeamID)
	sub.ChannelID = strings.TrimSpace(sub.ChannelID)
	if sub.TeamID == "" || sub.ChannelID == "" || sub.FRCTeam <= 0 {
		writeError(w, http.StatusBadRequest, "team_id, channel_id and frc_team are required")
		return
	}
	if !sub.Level.Valid() {
		writeError(w, http.StatusBadRequest, "level must be summary, result or all")
		return
	}

	if h.opts.Upstream != nil {
		if _, err := h.opts.Upstream.Team(r.Context(), frc.TeamKey(sub.FRCTeam)); err != nil {
			logger.Info("follow rejected, team lookup failed", slog.Int("frc_team", sub.FRCTeam), slog.Any("err", err))
			writeError(w, http.StatusUnprocessableEntity, "unknown team "+strconv.Itoa(sub.FRCTeam))
			return
		}
	}

	if err := h.opts.Subscriptions.Follow(r.Context(), sub); err != nil {
		logger.Error("follow failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "follow failed")
		return
	}
	logger.Info("team followed",
		slog.String("team_id", sub.TeamID),
		slog.String("channel_id", sub.ChannelID),
		slog.Int("frc_team", sub.FRCTeam),
		slog.String("level", sub.Level.String()))
	writeJSON(w, http.StatusOK, sub)
}

// HandleUnfollow removes a subscription.
// DELETE /admin/subscriptions?team_id=T&channel_id=C&frc_team=N
func (h *Handlers) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	if h.opts.Subscriptions == nil {
		writeError(w, http.StatusServiceUnavailable, "subscriptions unavailable")
		return
	}
	teamID, channelID, ok := channelParams(w, r)
	if !ok {
		return
	}
	frcTeam, err := strconv.Atoi(r.URL.Query().Get("frc_team"))
	if err != nil || frcTeam <= 0 {
		writeError(w, http.StatusBadRequest, "frc_team must be a positive integer")
		return
	}
	removed, err := h.opts.Subscriptions.Unfollow(r.Context(), teamID, channelID, frcTeam)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("unfollow failed", slog.Any("err", err), slog.String("component", "admin"))
		writeError(w, http.StatusInternalServerError, "unfollow failed")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not following")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func channelParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	teamID := strings.TrimSpace(q.Get("team_id"))
	channelID := strings.TrimSpace(q.Get("channel_id"))
	if teamID == "" || channelID == "" {
		writeError(w, http.StatusBadRequest, "team_id and channel_id are required")
		return "", "", false
	}
	return teamID, channelID, true
}
