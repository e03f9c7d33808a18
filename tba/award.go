package tba

// Recipient is an award recipient; TeamNumber is nil for individual awards
// not tied to a team.
type Recipient struct {
	TeamNumber *int   `json:"team_number"`
	Awardee    string `json:"awardee"`
}

// Award is an award given at an event.
type Award struct {
	Name          string      `json:"name"`
	AwardType     int         `json:"award_type"`
	EventKey      string      `json:"event_key"`
	Year          int         `json:"year"`
	RecipientList []Recipient `json:"recipient_list"`
}

// WonBy reports whether the team is among the recipients.
func (a Award) WonBy(team int) bool {
	for _, r := range a.RecipientList {
		if r.TeamNumber != nil && *r.TeamNumber == team {
			return true
		}
	}
	return false
}
