package tba

import (
	"encoding/json"
	"math"
	"slices"

	"github.com/frc5881/tba-slackbot/frc"
	"github.com/frc5881/tba-slackbot/score"
)

// Alliance is one side of a match.
type Alliance struct {
	Score *int
	Teams []int
}

// UnmarshalJSON accepts both "teams" and "team_keys" lists of frc keys.
func (a *Alliance) UnmarshalJSON(b []byte) error {
	var raw struct {
		Score    *int     `json:"score"`
		Teams    []string `json:"teams"`
		TeamKeys []string `json:"team_keys"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	keys := raw.Teams
	if len(keys) == 0 {
		keys = raw.TeamKeys
	}
	a.Score = raw.Score
	a.Teams = frc.ParseTeamKeys(keys)
	return nil
}

// MarshalJSON writes the alliance back in upstream shape.
func (a Alliance) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Score *int     `json:"score"`
		Teams []string `json:"teams"`
	}{a.Score, teamKeys(a.Teams)})
}

// Has reports whether the team plays on this alliance.
func (a Alliance) Has(team int) bool { return slices.Contains(a.Teams, team) }

// Alliances are both sides of a match.
type Alliances struct {
	Red  Alliance `json:"red"`
	Blue Alliance `json:"blue"`
}

// AllianceForTeam returns the color the team plays for, or frc.None.
func (a Alliances) AllianceForTeam(team int) frc.Color {
	switch {
	case a.Red.Has(team):
		return frc.Red
	case a.Blue.Has(team):
		return frc.Blue
	}
	return frc.None
}

// HasTeam reports whether the team plays in the match.
func (a Alliances) HasTeam(team int) bool { return a.AllianceForTeam(team) != frc.None }

// Teams returns red then blue team numbers.
func (a Alliances) Teams() []int {
	out := make([]int, 0, len(a.Red.Teams)+len(a.Blue.Teams))
	out = append(out, a.Red.Teams...)
	return append(out, a.Blue.Teams...)
}

// Video is a match recording reference.
type Video struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// Match is a single match snapshot.
type Match struct {
	Key            string          `json:"key"`
	CompLevel      frc.CompLevel   `json:"comp_level"`
	SetNumber      int             `json:"set_number"`
	MatchNumber    int             `json:"match_number"`
	EventKey       string          `json:"event_key"`
	Time           *int64          `json:"time"`
	TimeString     string          `json:"time_string"`
	Alliances      Alliances       `json:"alliances"`
	ScoreBreakdown json.RawMessage `json:"score_breakdown"`
	WinnerLabel    string          `json:"winning_alliance,omitempty"`
	Videos         []Video         `json:"videos,omitempty"`

	resolver *score.Resolver
}

// ParseMatch decodes a single upstream match payload.
func ParseMatch(res *score.Resolver, raw []byte) (*Match, error) {
	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m.resolver = res
	if m.EventKey == "" {
		m.EventKey = frc.EventKeyFromMatchKey(m.Key)
	}
	return &m, nil
}

// Year is the season the match was played in.
func (m *Match) Year() int {
	if y := frc.SeasonFromKey(m.EventKey); y != 0 {
		return y
	}
	return frc.SeasonFromKey(m.Key)
}

// Outcome adapts the match for the outcome resolver.
func (m *Match) Outcome() score.Input {
	return score.Input{
		Key:            m.Key,
		Year:           m.Year(),
		Level:          m.CompLevel,
		DeclaredWinner: m.WinnerLabel,
		RedScore:       m.Alliances.Red.Score,
		BlueScore:      m.Alliances.Blue.Score,
		Breakdown:      m.ScoreBreakdown,
	}
}

// IsComplete reports whether the match has been played.
func (m *Match) IsComplete() bool { return m.Outcome().Complete() }

// WinningAlliance returns the winner, or frc.None for ties, unplayed and undetermined matches.
func (m *Match) WinningAlliance() frc.Color {
	res := m.resolver
	if res == nil {
		res = score.NewResolver(nil)
	}
	return res.WinningAlliance(m.Outcome())
}

func (m *Match) sortTime() int64 {
	if m.Time == nil {
		return math.MaxInt64
	}
	return *m.Time
}

// Matches is an event's match list in upstream order.
type Matches struct {
	list  []*Match
	byKey map[string]*Match
}

// NewMatches indexes a match list and attaches the resolver to each match.
func NewMatches(res *score.Resolver, list []*Match) *Matches {
	ms := &Matches{list: make([]*Match, 0, len(list)), byKey: make(map[string]*Match, len(list))}
	for _, m := range list {
		if m == nil {
			continue
		}
		m.resolver = res
		if m.EventKey == "" {
			m.EventKey = frc.EventKeyFromMatchKey(m.Key)
		}
		ms.list = append(ms.list, m)
		ms.byKey[m.Key] = m
	}
	return ms
}

// ParseMatches decodes an upstream match list.
func ParseMatches(res *score.Resolver, raw []byte) (*Matches, error) {
	var list []*Match
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return NewMatches(res, list), nil
}

// All returns every match.
func (ms *Matches) All() []*Match { return ms.list }

// Len returns the number of matches.
func (ms *Matches) Len() int { return len(ms.list) }

// ByKey returns a match by key.
func (ms *Matches) ByKey(key string) (*Match, bool) {
	m, ok := ms.byKey[key]
	return m, ok
}

// ForTeam returns the matches a team plays in.
func (ms *Matches) ForTeam(team int) []*Match {
	var out []*Match
	for _, m := range ms.list {
		if m.Alliances.HasTeam(team) {
			out = append(out, m)
		}
	}
	return out
}

// NextForTeam returns the team's earliest unplayed match.
func (ms *Matches) NextForTeam(team int) *Match {
	var next *Match
	for _, m := range ms.list {
		if m.IsComplete() || !m.Alliances.HasTeam(team) {
			continue
		}
		if next == nil || m.sortTime() < next.sortTime() {
			next = m
		}
	}
	return next
}

// LastForTeam returns the team's most recent played match.
func (ms *Matches) LastForTeam(team int) *Match {
	var last *Match
	for _, m := range ms.list {
		if !m.IsComplete() || !m.Alliances.HasTeam(team) {
			continue
		}
		if last == nil || m.sortTime() > last.sortTime() {
			last = m
		}
	}
	return last
}

// Incomplete returns the matches not yet played.
func (ms *Matches) Incomplete() []*Match {
	var out []*Match
	for _, m := range ms.list {
		if !m.IsComplete() {
			out = append(out, m)
		}
	}
	return out
}
