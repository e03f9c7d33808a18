package tba

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"go.trai.ch/zerr"

	"github.com/frc5881/tba-slackbot/frc"
)

// EventSource is what an Event needs to expand itself.
type EventSource interface {
	EventMatches(ctx context.Context, eventKey string) (*Matches, error)
	EventRankings(ctx context.Context, eventKey string) (*Rankings, error)
	EventTeams(ctx context.Context, eventKey string) ([]*Team, error)
}

// TeamSource is what a Team needs to expand itself.
type TeamSource interface {
	TeamEvents(ctx context.Context, teamKey string, year int) ([]*Event, error)
	TeamHistoryDistricts(ctx context.Context, teamKey string) (map[int]string, error)
	Districts(ctx context.Context, year int) ([]District, error)
}

// API is the full set of typed upstream lookups.
type API interface {
	EventSource
	TeamSource
	Status(ctx context.Context) (*Status, error)
	Team(ctx context.Context, teamKey string) (*Team, error)
	TeamEventAwards(ctx context.Context, teamKey, eventKey string) ([]Award, error)
	Event(ctx context.Context, eventKey string) (*Event, error)
	Match(ctx context.Context, matchKey string) (*Match, error)
}

var _ API = (*Client)(nil)

// getJSON fetches stub and decodes it into v. Failures are logged once here so
// callers can simply treat a nil result as unknown.
func (c *Client) getJSON(ctx context.Context, stub string, minFresh time.Duration, v any) error {
	body, err := c.Fetch(ctx, stub, minFresh)
	if err != nil {
		c.logger.Warn("tba fetch failed", slog.String("stub", stub), slog.Any("err", err))
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		err = zerr.With(zerr.Wrap(ErrMalformedPayload, err.Error()), "stub", stub)
		c.logger.Warn("tba payload decode failed", slog.String("stub", stub), slog.Any("err", err))
		return err
	}
	return nil
}

// Status returns the API status document.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.getJSON(ctx, "status", StatusMinFresh, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Team returns a team by key (frc5881).
func (c *Client) Team(ctx context.Context, teamKey string) (*Team, error) {
	var t Team
	if err := c.getJSON(ctx, "team/"+teamKey, c.minFresh, &t); err != nil {
		return nil, err
	}
	if t.Key == "" {
		return nil, zerr.With(zerr.Wrap(ErrMalformedPayload, "team without key"), "team", teamKey)
	}
	t.src = c
	return &t, nil
}

// TeamEvents returns a team's events for a season, ordered by start date.
func (c *Client) TeamEvents(ctx context.Context, teamKey string, year int) ([]*Event, error) {
	var events []*Event
	if err := c.getJSON(ctx, fmt.Sprintf("team/%s/%d/events", teamKey, year), c.minFresh, &events); err != nil {
		return nil, err
	}
	events = compact(events)
	for _, e := range events {
		e.src = c
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartDate < events[j].StartDate })
	return events, nil
}

// TeamEventAwards returns the awards a team won at an event.
func (c *Client) TeamEventAwards(ctx context.Context, teamKey, eventKey string) ([]Award, error) {
	var awards []Award
	if err := c.getJSON(ctx, fmt.Sprintf("team/%s/event/%s/awards", teamKey, eventKey), c.minFresh, &awards); err != nil {
		return nil, err
	}
	return awards, nil
}

// TeamHistoryDistricts maps season year to the district year key (2016pnw).
func (c *Client) TeamHistoryDistricts(ctx context.Context, teamKey string) (map[int]string, error) {
	var raw map[string]string
	if err := c.getJSON(ctx, "team/"+teamKey+"/history/districts", c.minFresh, &raw); err != nil {
		return nil, err
	}
	out := make(map[int]string, len(raw))
	for y, code := range raw {
		year, err := strconv.Atoi(y)
		if err != nil {
			continue
		}
		out[year] = code
	}
	return out, nil
}

// Districts returns the districts active in a season.
func (c *Client) Districts(ctx context.Context, year int) ([]District, error) {
	var districts []District
	if err := c.getJSON(ctx, "districts/"+strconv.Itoa(year), c.minFresh, &districts); err != nil {
		return nil, err
	}
	for i := range districts {
		districts[i].Year = year
	}
	return districts, nil
}

// Event returns an event by key (2016nytr).
func (c *Client) Event(ctx context.Context, eventKey string) (*Event, error) {
	var e Event
	if err := c.getJSON(ctx, "event/"+eventKey, c.minFresh, &e); err != nil {
		return nil, err
	}
	if e.Key == "" {
		return nil, zerr.With(zerr.Wrap(ErrMalformedPayload, "event without key"), "event", eventKey)
	}
	e.src = c
	return &e, nil
}

// EventMatches returns every match of an event.
func (c *Client) EventMatches(ctx context.Context, eventKey string) (*Matches, error) {
	var list []*Match
	if err := c.getJSON(ctx, "event/"+eventKey+"/matches", c.minFresh, &list); err != nil {
		return nil, err
	}
	return NewMatches(c.resolver, list), nil
}

// EventRankings returns the ranking table of an event.
func (c *Client) EventRankings(ctx context.Context, eventKey string) (*Rankings, error) {
	var r Rankings
	if err := c.getJSON(ctx, "event/"+eventKey+"/rankings", c.minFresh, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// EventTeams returns the teams attending an event.
func (c *Client) EventTeams(ctx context.Context, eventKey string) ([]*Team, error) {
	var teams []*Team
	if err := c.getJSON(ctx, "event/"+eventKey+"/teams", c.minFresh, &teams); err != nil {
		return nil, err
	}
	teams = compact(teams)
	for _, t := range teams {
		t.src = c
	}
	return teams, nil
}

// Match returns a single match by key (2016nytr_qm12).
func (c *Client) Match(ctx context.Context, matchKey string) (*Match, error) {
	var m Match
	if err := c.getJSON(ctx, "match/"+matchKey, c.minFresh, &m); err != nil {
		return nil, err
	}
	if m.Key == "" {
		return nil, zerr.With(zerr.Wrap(ErrMalformedPayload, "match without key"), "match", matchKey)
	}
	m.resolver = c.resolver
	if m.EventKey == "" {
		m.EventKey = frc.EventKeyFromMatchKey(m.Key)
	}
	return &m, nil
}

// compact drops null array entries.
func compact[T any](in []*T) []*T {
	out := in[:0]
	for _, v := range in {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
