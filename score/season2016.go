package score

import (
	"encoding/json"

	"github.com/frc5881/tba-slackbot/frc"
)

// Alliance2016 is one alliance's half of a FIRST Stronghold score breakdown.
type Alliance2016 struct {
	AutoPoints             int  `json:"autoPoints"`
	AutoReachPoints        int  `json:"autoReachPoints"`
	AutoCrossingPoints     int  `json:"autoCrossingPoints"`
	AutoBoulderPoints      int  `json:"autoBoulderPoints"`
	AutoBouldersLow        int  `json:"autoBouldersLow"`
	AutoBouldersHigh       int  `json:"autoBouldersHigh"`
	TeleopPoints           int  `json:"teleopPoints"`
	TeleopCrossingPoints   int  `json:"teleopCrossingPoints"`
	TeleopBoulderPoints    int  `json:"teleopBoulderPoints"`
	TeleopBouldersLow      int  `json:"teleopBouldersLow"`
	TeleopBouldersHigh     int  `json:"teleopBouldersHigh"`
	TeleopChallengePoints  int  `json:"teleopChallengePoints"`
	TeleopScalePoints      int  `json:"teleopScalePoints"`
	BreachPoints           int  `json:"breachPoints"`
	CapturePoints          int  `json:"capturePoints"`
	TeleopDefensesBreached bool `json:"teleopDefensesBreached"`
	TeleopTowerCaptured    bool `json:"teleopTowerCaptured"`
	TowerEndStrength       int  `json:"towerEndStrength"`
	FoulCount              int  `json:"foulCount"`
	TechFoulCount          int  `json:"techFoulCount"`
	FoulPoints             int  `json:"foulPoints"`
	AdjustPoints           int  `json:"adjustPoints"`
	TotalPoints            int  `json:"totalPoints"`
}

// Breakdown2016 is the 2016 score_breakdown payload.
type Breakdown2016 struct {
	Red  Alliance2016 `json:"red"`
	Blue Alliance2016 `json:"blue"`
}

// Rules2016 are the 2016 elimination tie-breakers, in order: foul points,
// breach and capture, autonomous, scale and challenge, boulder goals, defense crossings.
var Rules2016 = Rules[Alliance2016]{
	Total: func(a Alliance2016) int { return a.TotalPoints },
	TieBreakers: []Comparator[Alliance2016]{
		Points(func(a Alliance2016) int { return a.FoulPoints }),
		Points(func(a Alliance2016) int { return a.BreachPoints + a.CapturePoints }),
		Points(func(a Alliance2016) int { return a.AutoPoints }),
		Points(func(a Alliance2016) int { return a.TeleopScalePoints + a.TeleopChallengePoints }),
		Points(func(a Alliance2016) int { return a.AutoBoulderPoints + a.TeleopBoulderPoints }),
		Points(func(a Alliance2016) int { return a.AutoCrossingPoints + a.TeleopCrossingPoints }),
	},
}

// Season2016 decides FIRST Stronghold matches.
type Season2016 struct{}

// Decide implements Season.
func (Season2016) Decide(breakdown json.RawMessage, level frc.CompLevel) (frc.Color, error) {
	var b Breakdown2016
	if err := json.Unmarshal(breakdown, &b); err != nil {
		return frc.None, err
	}
	return Rules2016.Decide(b.Red, b.Blue, level), nil
}
