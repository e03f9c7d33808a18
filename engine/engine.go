// Package engine turns inbound upstream messages into per-channel
// notifications: it expands the message through the API client, resolves
// match outcomes, fans out to subscribed channels and hands the result to a
// Dispatcher.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/frc5881/tba-slackbot/frc"
	"github.com/frc5881/tba-slackbot/score"
	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/tba"
	"github.com/frc5881/tba-slackbot/telemetry"
)

// Upstream is the part of the API client the engine reads through.
type Upstream interface {
	Match(ctx context.Context, matchKey string) (*tba.Match, error)
	Event(ctx context.Context, eventKey string) (*tba.Event, error)
	EventMatches(ctx context.Context, eventKey string) (*tba.Matches, error)
	TeamEventAwards(ctx context.Context, teamKey, eventKey string) ([]tba.Award, error)
}

// Fanout maps teams to interested channels.
type Fanout interface {
	Resolve(ctx context.Context, teams []int) map[string]*subscription.Decision
}

// Config wires an Engine.
type Config struct {
	API        Upstream
	Fanout     Fanout
	Dispatcher Dispatcher
	Resolver   *score.Resolver
	Logger     *slog.Logger
}

// Engine processes one inbound message at a time.
type Engine struct {
	api        Upstream
	fanout     Fanout
	dispatcher Dispatcher
	resolver   *score.Resolver
	logger     *slog.Logger
}

// New returns an Engine. A nil Dispatcher logs notifications; a nil Resolver
// uses the default season registry.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "engine"))
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = LogDispatcher{Logger: logger}
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = score.NewResolver(nil)
	}
	return &Engine{
		api:        cfg.API,
		fanout:     cfg.Fanout,
		dispatcher: dispatcher,
		resolver:   resolver,
		logger:     logger,
	}
}

// Process handles msg start to finish. Missing upstream data degrades the
// notifications rather than failing them; only dispatcher errors are returned.
func (e *Engine) Process(ctx context.Context, msg Message) error {
	ctx, span := telemetry.StartSpan(ctx, "engine", "engine.process", attribute.String("tba.message_type", string(msg.Kind())))
	defer span.End()
	telemetry.IncMessage(string(msg.Kind()))

	var notes []Notification
	telemetry.TimeFunc(telemetry.ProcessDuration, func() { notes = e.notifications(ctx, msg) })
	span.SetAttributes(attribute.Int("engine.notifications", len(notes)))

	if err := e.dispatch(ctx, notes); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *Engine) notifications(ctx context.Context, msg Message) []Notification {
	switch m := msg.(type) {
	case UpcomingMatch:
		return e.upcomingMatch(ctx, m)
	case MatchScore:
		return e.matchScore(ctx, m)
	case AllianceSelection:
		return e.allianceSelection(ctx, m)
	case AwardsPosted:
		return e.awardsPosted(ctx, m)
	case ScheduleUpdated:
		return e.scheduleUpdated(ctx, m)
	case StartingCompLevel:
		e.logger.Debug("comp level starting ignored", slog.String("event", m.EventKey), slog.String("level", m.CompLevel.String()))
	case Ping:
		e.logger.Info("ping received", slog.String("title", m.Title))
	case Notice:
		e.logger.Info("upstream notice", slog.String("kind", string(m.Kind())), slog.String("data", string(m.Data)))
	case Ignored:
		e.logger.Debug("message ignored", slog.String("kind", string(m.Kind())))
	case Unknown:
		e.logger.Warn("unknown message type", slog.String("type", m.Type), slog.String("data", string(m.Data)))
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, notes []Notification) error {
	var errs []error
	for _, n := range notes {
		if err := e.dispatcher.Dispatch(ctx, n); err != nil {
			telemetry.IncDispatchFailure()
			e.logger.Error("dispatch failed", slog.String("channel_id", n.Decision.ChannelID), slog.String("kind", string(n.Kind)), slog.Any("err", err))
			errs = append(errs, err)
			continue
		}
		telemetry.IncNotification(string(n.Topic))
	}
	return errors.Join(errs...)
}

// accepting returns the decisions interested in topic, ordered by channel.
func accepting(decisions map[string]*subscription.Decision, topic subscription.Topic) []*subscription.Decision {
	var out []*subscription.Decision
	for _, ch := range slices.Sorted(maps.Keys(decisions)) {
		if d := decisions[ch]; d.Accepts(topic) {
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) upcomingMatch(ctx context.Context, m UpcomingMatch) []Notification {
	decisions := accepting(e.fanout.Resolve(ctx, m.TeamNumbers()), subscription.TopicUpcomingMatch)
	if len(decisions) == 0 {
		return nil
	}
	match, _ := e.api.Match(ctx, m.MatchKey)
	upcoming := m.UpcomingMatch

	out := make([]Notification, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, Notification{
			Kind:      m.Kind(),
			Topic:     subscription.TopicUpcomingMatch,
			Decision:  *d,
			EventKey:  m.EventKey(),
			EventName: m.EventName,
			MatchKey:  m.MatchKey,
			Match:     match,
			Upcoming:  &upcoming,
		})
	}
	return out
}

func (e *Engine) matchScore(ctx context.Context, m MatchScore) []Notification {
	if m.Match == nil || m.Match.Key == "" {
		e.logger.Warn("match_score without match")
		return nil
	}
	match := m.Match
	if match.EventKey == "" {
		match.EventKey = frc.EventKeyFromMatchKey(match.Key)
	}
	decisions := accepting(e.fanout.Resolve(ctx, match.Alliances.Teams()), subscription.TopicMatchScore)
	if len(decisions) == 0 {
		return nil
	}
	winner := e.resolver.WinningAlliance(match.Outcome())
	event, _ := e.api.Event(ctx, match.EventKey)
	name := m.EventName
	if event != nil {
		name = event.DisplayName()
	}

	out := make([]Notification, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, Notification{
			Kind:      m.Kind(),
			Topic:     subscription.TopicMatchScore,
			Decision:  *d,
			EventKey:  match.EventKey,
			EventName: name,
			MatchKey:  match.Key,
			Event:     event,
			Match:     match,
			Winner:    winner,
		})
	}
	return out
}

func (e *Engine) allianceSelection(ctx context.Context, m AllianceSelection) []Notification {
	event := m.Event
	if event == nil && m.EventKey != "" {
		event, _ = e.api.Event(ctx, m.EventKey)
	}
	if event == nil {
		e.logger.Warn("alliance_selection without event", slog.String("event", m.EventKey))
		return nil
	}
	alliances := event.Alliances()
	decisions := accepting(e.fanout.Resolve(ctx, alliances.AllTeams()), subscription.TopicAllianceSelection)

	out := make([]Notification, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, Notification{
			Kind:      m.Kind(),
			Topic:     subscription.TopicAllianceSelection,
			Decision:  *d,
			EventKey:  event.Key,
			EventName: event.DisplayName(),
			Event:     event,
			Alliances: alliances,
		})
	}
	return out
}

// awardsPosted sends the end-of-event summary. Awards are posted more than
// once during an event; only the post after the last match counts.
func (e *Engine) awardsPosted(ctx context.Context, m AwardsPosted) []Notification {
	key := m.EventKey
	if key == "" && len(m.Awards) > 0 {
		key = m.Awards[0].EventKey
	}
	if key == "" {
		return nil
	}
	event, err := e.api.Event(ctx, key)
	if err != nil || event == nil {
		return nil
	}
	done, ok := event.AllMatchesComplete(ctx)
	if !ok || !done {
		e.logger.Debug("awards posted before event end", slog.String("event", key))
		return nil
	}
	decisions := accepting(e.fanout.Resolve(ctx, event.TeamNumbers(ctx)), subscription.TopicAwards)
	if len(decisions) == 0 {
		return nil
	}

	summaries := make(map[int]TeamSummary)
	out := make([]Notification, 0, len(decisions))
	for _, d := range decisions {
		n := Notification{
			Kind:      m.Kind(),
			Topic:     subscription.TopicAwards,
			Decision:  *d,
			EventKey:  event.Key,
			EventName: event.DisplayName(),
			Event:     event,
		}
		for _, team := range d.Teams {
			s, ok := summaries[team]
			if !ok {
				s = e.summarize(ctx, event, team)
				summaries[team] = s
			}
			n.Summaries = append(n.Summaries, s)
		}
		out = append(out, n)
	}
	return out
}

func (e *Engine) summarize(ctx context.Context, event *tba.Event, team int) TeamSummary {
	s := TeamSummary{Team: team}
	if rankings := event.Rankings(ctx); rankings != nil {
		if r := rankings.RankingForTeam(team); r != nil {
			s.Rank = r.Rank()
			s.RankedTeams = rankings.Count()
		}
	}
	if rec, ok := event.RecordForTeam(ctx, team); ok {
		s.Record = &rec
	}
	s.HighestLevel, _ = event.HighestCompLevelForTeam(ctx, team)
	awards, _ := e.api.TeamEventAwards(ctx, frc.TeamKey(team), event.Key)
	for _, a := range awards {
		s.Awards = append(s.Awards, a.Name)
	}
	return s
}

func (e *Engine) scheduleUpdated(ctx context.Context, m ScheduleUpdated) []Notification {
	if m.EventKey == "" {
		return nil
	}
	matches, err := e.api.EventMatches(ctx, m.EventKey)
	if err != nil || matches == nil {
		return nil
	}
	var teams []int
	for _, match := range matches.Incomplete() {
		teams = append(teams, match.Alliances.Teams()...)
	}
	decisions := accepting(e.fanout.Resolve(ctx, teams), subscription.TopicSchedule)

	out := make([]Notification, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, Notification{
			Kind:      m.Kind(),
			Topic:     subscription.TopicSchedule,
			Decision:  *d,
			EventKey:  m.EventKey,
			EventName: m.EventName,
		})
	}
	return out
}
