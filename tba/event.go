package tba

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frc5881/tba-slackbot/frc"
)

const dateLayout = "2006-01-02"

// Record is a win-loss-tie tally.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

func (r Record) String() string { return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.Ties) }

// Add returns the sum of two records.
func (r Record) Add(o Record) Record {
	return Record{Wins: r.Wins + o.Wins, Losses: r.Losses + o.Losses, Ties: r.Ties + o.Ties}
}

// Event is a competition snapshot. Matches, rankings and teams are fetched on
// first use and kept for the life of the value; an Event is not safe for
// concurrent use.
type Event struct {
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	ShortName       string          `json:"short_name"`
	EventCode       string          `json:"event_code"`
	EventType       int             `json:"event_type"`
	EventTypeString string          `json:"event_type_string"`
	District        int             `json:"event_district"`
	DistrictString  string          `json:"event_district_string"`
	Year            int             `json:"year"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	Location        string          `json:"location"`
	VenueAddress    string          `json:"venue_address"`
	Website         string          `json:"website"`
	Timezone        string          `json:"timezone"`
	RawAlliances    json.RawMessage `json:"alliances,omitempty"`

	src      EventSource
	matches  *Matches
	rankings *Rankings
	teams    []*Team
}

// ParseEvent decodes an upstream event payload bound to src.
func ParseEvent(src EventSource, raw []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	e.src = src
	return &e, nil
}

// DisplayName prefers the short name.
func (e *Event) DisplayName() string {
	if e.ShortName != "" {
		return e.ShortName
	}
	return e.Name
}

// IsOfficial reports whether the event is a season event rather than an
// offseason or preseason one (those use type codes above 90).
func (e *Event) IsOfficial() bool { return e.EventType < 10 }

// Start returns the start date at 00:00 UTC, or the zero time.
func (e *Event) Start() time.Time { return parseDate(e.StartDate) }

// End returns the end date at 00:00 UTC, or the zero time.
func (e *Event) End() time.Time { return parseDate(e.EndDate) }

// IsFuture reports whether the event starts after now.
func (e *Event) IsFuture(now time.Time) bool {
	s := e.Start()
	return !s.IsZero() && s.After(now)
}

// IsPast reports whether the event ended before now.
func (e *Event) IsPast(now time.Time) bool {
	end := e.End()
	return !end.IsZero() && end.Before(now)
}

// IsUnderway reports whether now falls between start and end dates.
func (e *Event) IsUnderway(now time.Time) bool {
	s, end := e.Start(), e.End()
	return !s.IsZero() && !end.IsZero() && s.Before(now) && now.Before(end)
}

// Alliances returns the playoff alliances, or nil before alliance selection.
func (e *Event) Alliances() EventAlliances {
	if len(e.RawAlliances) == 0 {
		return nil
	}
	var a EventAlliances
	if err := json.Unmarshal(e.RawAlliances, &a); err != nil {
		return nil
	}
	return a
}

// Matches returns the event matches, or nil when they cannot be fetched.
func (e *Event) Matches(ctx context.Context) *Matches {
	if e.matches == nil && e.src != nil {
		if ms, err := e.src.EventMatches(ctx, e.Key); err == nil && ms != nil {
			e.matches = ms
		}
	}
	return e.matches
}

// Rankings returns the event rankings, or nil when they cannot be fetched.
func (e *Event) Rankings(ctx context.Context) *Rankings {
	if e.rankings == nil && e.src != nil {
		if r, err := e.src.EventRankings(ctx, e.Key); err == nil && r != nil {
			e.rankings = r
		}
	}
	return e.rankings
}

// Teams returns the attending teams, or nil when they cannot be fetched.
func (e *Event) Teams(ctx context.Context) []*Team {
	if e.teams == nil && e.src != nil {
		if t, err := e.src.EventTeams(ctx, e.Key); err == nil && t != nil {
			e.teams = t
		}
	}
	return e.teams
}

// TeamNumbers returns the numbers of the attending teams.
func (e *Event) TeamNumbers(ctx context.Context) []int {
	teams := e.Teams(ctx)
	out := make([]int, 0, len(teams))
	for _, t := range teams {
		out = append(out, t.TeamNumber)
	}
	return out
}

// MatchesForTeam returns the team's matches at this event.
func (e *Event) MatchesForTeam(ctx context.Context, team int) ([]*Match, bool) {
	ms := e.Matches(ctx)
	if ms == nil {
		return nil, false
	}
	return ms.ForTeam(team), true
}

// RecordForTeam tallies the team's completed matches. A match without a
// winner counts as a tie.
func (e *Event) RecordForTeam(ctx context.Context, team int) (Record, bool) {
	matches, ok := e.MatchesForTeam(ctx, team)
	if !ok {
		return Record{}, false
	}
	var r Record
	for _, m := range matches {
		if !m.IsComplete() {
			continue
		}
		winner := m.WinningAlliance()
		switch {
		case winner == frc.None:
			r.Ties++
		case m.Alliances.AllianceForTeam(team) == winner:
			r.Wins++
		default:
			r.Losses++
		}
	}
	return r, true
}

// HighestCompLevelForTeam returns the furthest level the team has played at
// this event. Scheduled but unplayed matches do not count.
func (e *Event) HighestCompLevelForTeam(ctx context.Context, team int) (frc.CompLevel, bool) {
	matches, ok := e.MatchesForTeam(ctx, team)
	if !ok {
		return frc.Qualification, false
	}
	highest := frc.Qualification
	for _, m := range matches {
		if !m.IsComplete() {
			continue
		}
		if m.CompLevel == frc.Final {
			return frc.Final, true
		}
		if m.CompLevel > highest {
			highest = m.CompLevel
		}
	}
	return highest, true
}

// AllMatchesComplete reports whether every match has been played. The second
// result is false when the matches cannot be fetched.
func (e *Event) AllMatchesComplete(ctx context.Context) (bool, bool) {
	ms := e.Matches(ctx)
	if ms == nil {
		return false, false
	}
	return len(ms.Incomplete()) == 0, true
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
