package engine

import (
	"context"
	"log/slog"

	"github.com/frc5881/tba-slackbot/frc"
	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/tba"
)

// Notification is everything a renderer needs to post one message to one
// channel. It carries data only; wording and layout live with the dispatcher.
type Notification struct {
	Kind      Kind                  `json:"kind"`
	Topic     subscription.Topic    `json:"topic"`
	Decision  subscription.Decision `json:"decision"`
	EventKey  string                `json:"event_key,omitempty"`
	EventName string                `json:"event_name,omitempty"`
	MatchKey  string                `json:"match_key,omitempty"`

	Event     *tba.Event         `json:"event,omitempty"`
	Match     *tba.Match         `json:"match,omitempty"`
	Winner    frc.Color          `json:"winner,omitempty"`
	Upcoming  *tba.UpcomingMatch `json:"upcoming,omitempty"`
	Alliances tba.EventAlliances `json:"alliances,omitempty"`
	Summaries []TeamSummary      `json:"summaries,omitempty"`
}

// Result is the winning alliance, or "unknown" for ties and undetermined
// outcomes.
func (n Notification) Result() string {
	if n.Winner == frc.None {
		return "unknown"
	}
	return string(n.Winner)
}

// TeamSummary is one followed team's showing at a finished event.
type TeamSummary struct {
	Team         int           `json:"team"`
	Rank         int           `json:"rank,omitempty"`
	RankedTeams  int           `json:"ranked_teams,omitempty"`
	Record       *tba.Record   `json:"record,omitempty"`
	HighestLevel frc.CompLevel `json:"highest_level"`
	Awards       []string      `json:"awards,omitempty"`
}

// Dispatcher delivers notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n Notification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogDispatcher writes notifications to a structured log.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		slog.String("kind", string(n.Kind)),
		slog.String("team_id", n.Decision.TeamID),
		slog.String("channel_id", n.Decision.ChannelID),
		slog.Any("frc_teams", n.Decision.Teams),
		slog.String("level", n.Decision.Level.String()),
	}
	if n.EventKey != "" {
		attrs = append(attrs, slog.String("event", n.EventKey))
	}
	if n.MatchKey != "" {
		attrs = append(attrs, slog.String("match", n.MatchKey))
	}
	if n.Topic == subscription.TopicMatchScore {
		attrs = append(attrs, slog.String("winner", n.Result()))
	}
	if len(n.Summaries) > 0 {
		attrs = append(attrs, slog.Int("summaries", len(n.Summaries)))
	}
	logger.InfoContext(ctx, "notification", attrs...)
	return nil
}
