package subscription

import (
	"context"
	"log/slog"
	"slices"

	"github.com/frc5881/tba-slackbot/telemetry"
)

// Decision is the merged interest of one channel in one inbound message.
type Decision struct {
	TeamID    string `json:"team_id"`
	ChannelID string `json:"channel_id"`
	Teams     []int  `json:"teams"`
	Level     Level  `json:"level"`
}

// Accepts reports whether the channel wants notices of topic.
func (d *Decision) Accepts(t Topic) bool { return d.Level.Accepts(t) }

// Resolver fans a set of teams out to subscribed channels.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver returns a Resolver reading from repo.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger.With(slog.String("component", "fanout"))}
}

// Resolve returns one Decision per channel following any of teams, keyed by
// channel id. A channel's teams are the union of its matching subscriptions
// and its level the most verbose of them. A lookup failure for one team is
// logged and that team is skipped.
func (r *Resolver) Resolve(ctx context.Context, teams []int) map[string]*Decision {
	out := make(map[string]*Decision)
	seen := make(map[int]struct{}, len(teams))
	for _, team := range teams {
		if _, dup := seen[team]; dup {
			continue
		}
		seen[team] = struct{}{}

		subs, err := r.repo.SubscriptionsForTeam(ctx, team)
		if err != nil {
			r.logger.Warn("subscription lookup failed", slog.Int("frc_team", team), slog.Any("err", err))
			continue
		}
		for _, s := range subs {
			d, ok := out[s.ChannelID]
			if !ok {
				d = &Decision{TeamID: s.TeamID, ChannelID: s.ChannelID}
				out[s.ChannelID] = d
			}
			if !slices.Contains(d.Teams, s.FRCTeam) {
				d.Teams = append(d.Teams, s.FRCTeam)
			}
			d.Level = d.Level.Merge(s.Level)
		}
	}
	for _, d := range out {
		slices.Sort(d.Teams)
	}
	if len(seen) > 0 {
		telemetry.ObserveFanout(len(out))
	}
	return out
}
