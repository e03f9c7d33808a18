package tba

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/frc5881/tba-slackbot/frc"
)

// placeholderWebsite is what upstream reports for teams without a site.
const placeholderWebsite = "http://www.firstinspires.org/"

// Team is a team snapshot. Per-season event lists are fetched on first use
// and kept for the life of the value.
type Team struct {
	Key         string `json:"key"`
	TeamNumber  int    `json:"team_number"`
	Name        string `json:"name"`
	Nickname    string `json:"nickname"`
	RawWebsite  string `json:"website"`
	Locality    string `json:"locality"`
	Region      string `json:"region"`
	CountryName string `json:"country_name"`
	Location    string `json:"location"`
	RookieYear  int    `json:"rookie_year"`
	Motto       string `json:"motto"`

	src    TeamSource
	events map[int][]*Event
}

// ParseTeam decodes an upstream team payload bound to src.
func ParseTeam(src TeamSource, raw []byte) (*Team, error) {
	var t Team
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	t.src = src
	if t.TeamNumber == 0 {
		t.TeamNumber, _ = frc.ParseTeamKey(t.Key)
	}
	return &t, nil
}

// Website returns the team site with upstream placeholders and mangled
// schemes cleaned up.
func (t *Team) Website() string {
	switch {
	case t.RawWebsite == placeholderWebsite:
		return ""
	case strings.Contains(t.RawWebsite, ":///"):
		return strings.Replace(t.RawWebsite, ":///", "://", 1)
	}
	return t.RawWebsite
}

// Events returns the team's events for a season, or nil when they cannot be
// fetched.
func (t *Team) Events(ctx context.Context, year int) []*Event {
	if evs, ok := t.events[year]; ok {
		return evs
	}
	if t.src == nil {
		return nil
	}
	evs, err := t.src.TeamEvents(ctx, t.Key, year)
	if err != nil {
		return nil
	}
	if t.events == nil {
		t.events = make(map[int][]*Event)
	}
	t.events[year] = evs
	return evs
}

// NextEvent returns the earliest event starting after now.
func (t *Team) NextEvent(ctx context.Context, year int, now time.Time) *Event {
	var next *Event
	for _, e := range t.Events(ctx, year) {
		if e.IsFuture(now) && (next == nil || e.Start().Before(next.Start())) {
			next = e
		}
	}
	return next
}

// LastEvent returns the most recently finished event.
func (t *Team) LastEvent(ctx context.Context, year int, now time.Time) *Event {
	var last *Event
	for _, e := range t.Events(ctx, year) {
		if e.IsPast(now) && (last == nil || e.End().After(last.End())) {
			last = e
		}
	}
	return last
}

// ActiveEvent returns the event underway at now.
func (t *Team) ActiveEvent(ctx context.Context, year int, now time.Time) *Event {
	for _, e := range t.Events(ctx, year) {
		if e.IsUnderway(now) {
			return e
		}
	}
	return nil
}

// District returns the district the team competed in for a season.
func (t *Team) District(ctx context.Context, year int) *District {
	if t.src == nil {
		return nil
	}
	history, err := t.src.TeamHistoryDistricts(ctx, t.Key)
	if err != nil {
		return nil
	}
	code, ok := history[year]
	if !ok || code == "" {
		return nil
	}
	districts, err := t.src.Districts(ctx, year)
	if err != nil {
		return nil
	}
	for i := range districts {
		if districts[i].YearKey() == code {
			return &districts[i]
		}
	}
	return nil
}

// SeasonRecord splits a season's qualification record by event kind.
type SeasonRecord struct {
	Official               Record
	Unofficial             Record
	OfficialCompetitions   int
	UnofficialCompetitions int
}

// Total is the combined record.
func (s SeasonRecord) Total() Record { return s.Official.Add(s.Unofficial) }

// Competitions is the number of events that contributed.
func (s SeasonRecord) Competitions() int { return s.OfficialCompetitions + s.UnofficialCompetitions }

// QualificationRecord sums the ranking-table records of the team's events in a
// season. The second result is false when no event has a record.
func (t *Team) QualificationRecord(ctx context.Context, year int) (SeasonRecord, bool) {
	var out SeasonRecord
	for _, e := range t.Events(ctx, year) {
		rankings := e.Rankings(ctx)
		if rankings == nil {
			continue
		}
		ranking := rankings.RankingForTeam(t.TeamNumber)
		if ranking == nil {
			continue
		}
		rec, ok := ranking.Record()
		if !ok {
			continue
		}
		if e.IsOfficial() {
			out.Official = out.Official.Add(rec)
			out.OfficialCompetitions++
		} else {
			out.Unofficial = out.Unofficial.Add(rec)
			out.UnofficialCompetitions++
		}
	}
	return out, out.Competitions() > 0
}
