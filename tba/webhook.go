package tba

import "github.com/frc5881/tba-slackbot/frc"

// UpcomingMatch is the payload of an upcoming_match webhook.
type UpcomingMatch struct {
	EventName     string   `json:"event_name"`
	MatchKey      string   `json:"match_key"`
	TeamKeys      []string `json:"team_keys"`
	ScheduledTime *int64   `json:"scheduled_time"`
	PredictedTime *int64   `json:"predicted_time"`
}

// TeamNumbers converts the team keys to numbers.
func (u UpcomingMatch) TeamNumbers() []int { return frc.ParseTeamKeys(u.TeamKeys) }

// EventKey is derived from the match key.
func (u UpcomingMatch) EventKey() string { return frc.EventKeyFromMatchKey(u.MatchKey) }

// CompLevelStarting is the payload of a starting_comp_level webhook.
type CompLevelStarting struct {
	EventName     string        `json:"event_name"`
	EventKey      string        `json:"event_key"`
	CompLevel     frc.CompLevel `json:"comp_level"`
	ScheduledTime *int64        `json:"scheduled_time"`
}
