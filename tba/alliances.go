package tba

import (
	"encoding/json"
	"slices"

	"github.com/frc5881/tba-slackbot/frc"
)

// Backup records a backup robot substitution.
type Backup struct {
	In  int
	Out int
}

// EventAlliance is one playoff alliance.
type EventAlliance struct {
	Name     string
	Picks    []int
	Declines []int
	Backup   *Backup
}

// UnmarshalJSON converts upstream frc keys to team numbers.
func (a *EventAlliance) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name     string   `json:"name"`
		Picks    []string `json:"picks"`
		Declines []string `json:"declines"`
		Backup   *struct {
			In  string `json:"in"`
			Out string `json:"out"`
		} `json:"backup"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	a.Name = raw.Name
	a.Picks = frc.ParseTeamKeys(raw.Picks)
	a.Declines = frc.ParseTeamKeys(raw.Declines)
	a.Backup = nil
	if raw.Backup != nil {
		in, _ := frc.ParseTeamKey(raw.Backup.In)
		out, _ := frc.ParseTeamKey(raw.Backup.Out)
		if in != 0 || out != 0 {
			a.Backup = &Backup{In: in, Out: out}
		}
	}
	return nil
}

// MarshalJSON writes the alliance back in upstream shape.
func (a EventAlliance) MarshalJSON() ([]byte, error) {
	type backup struct {
		In  string `json:"in"`
		Out string `json:"out"`
	}
	out := struct {
		Name     string   `json:"name,omitempty"`
		Picks    []string `json:"picks"`
		Declines []string `json:"declines"`
		Backup   *backup  `json:"backup"`
	}{Name: a.Name, Picks: teamKeys(a.Picks), Declines: teamKeys(a.Declines)}
	if a.Backup != nil {
		out.Backup = &backup{In: frc.TeamKey(a.Backup.In), Out: frc.TeamKey(a.Backup.Out)}
	}
	return json.Marshal(out)
}

func teamKeys(teams []int) []string {
	keys := make([]string, 0, len(teams))
	for _, n := range teams {
		keys = append(keys, frc.TeamKey(n))
	}
	return keys
}

// Teams returns the picks plus the backup team brought in.
func (a EventAlliance) Teams() []int {
	out := slices.Clone(a.Picks)
	if a.Backup != nil && a.Backup.In != 0 {
		out = append(out, a.Backup.In)
	}
	return out
}

// Has reports whether the team plays for the alliance.
func (a EventAlliance) Has(team int) bool {
	return slices.Contains(a.Picks, team) || (a.Backup != nil && a.Backup.In == team)
}

// EventAlliances are an event's playoff alliances in seed order.
type EventAlliances []EventAlliance

// AllTeams returns every team playing on an alliance.
func (as EventAlliances) AllTeams() []int {
	var out []int
	for _, a := range as {
		out = append(out, a.Teams()...)
	}
	return out
}

// AllianceForTeam returns the team's alliance and its 1-based seed.
func (as EventAlliances) AllianceForTeam(team int) (*EventAlliance, int) {
	for i := range as {
		if as[i].Has(team) {
			return &as[i], i + 1
		}
	}
	return nil, 0
}
