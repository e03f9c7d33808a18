package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/frc"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind engine.Kind
		want any
	}{
		{"upcoming", upcomingQM13, engine.KindUpcomingMatch, engine.UpcomingMatch{}},
		{"match score", matchScoreQM12, engine.KindMatchScore, engine.MatchScore{}},
		{"alliance selection", allianceSelection, engine.KindAllianceSelection, engine.AllianceSelection{}},
		{"awards", awardsPosted, engine.KindAwardsPosted, engine.AwardsPosted{}},
		{"schedule posted", `{"message_type":"schedule_posted","message_data":{"event_key":"2016nytr"}}`, engine.KindSchedulePosted, engine.ScheduleUpdated{}},
		{"schedule updated", `{"message_type":"schedule_updated","message_data":{"event_key":"2016nytr"}}`, engine.KindScheduleUpdated, engine.ScheduleUpdated{}},
		{"comp level", `{"message_type":"starting_comp_level","message_data":{"event_key":"2016nytr","comp_level":"qf"}}`, engine.KindStartingCompLevel, engine.StartingCompLevel{}},
		{"ping", `{"message_type":"ping","message_data":{"title":"t","desc":"d"}}`, engine.KindPing, engine.Ping{}},
		{"verification", `{"message_type":"verification","message_data":{"verification_key":"k"}}`, engine.KindVerification, engine.Notice{}},
		{"favorites", `{"message_type":"update_favorites"}`, engine.KindUpdateFavorites, engine.Ignored{}},
		{"unknown", `{"message_type":"event_down","message_data":{}}`, "unknown", engine.Unknown{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := engine.Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, msg.Kind())
			assert.IsType(t, tt.want, msg)
		})
	}
}

func TestDecodePayloads(t *testing.T) {
	msg, err := engine.Decode([]byte(matchScoreQM12))
	require.NoError(t, err)
	score := msg.(engine.MatchScore)
	require.NotNil(t, score.Match)
	assert.Equal(t, "2016nytr_qm12", score.Match.Key)
	assert.Equal(t, frc.Qualification, score.Match.CompLevel)
	assert.Equal(t, []int{5881, 20, 250}, score.Match.Alliances.Red.Teams)

	msg, err = engine.Decode([]byte(`{"message_type":"starting_comp_level","message_data":{"event_name":"Tech Valley","event_key":"2016nytr","comp_level":"sf","scheduled_time":1457820000}}`))
	require.NoError(t, err)
	level := msg.(engine.StartingCompLevel)
	assert.Equal(t, frc.Semifinal, level.CompLevel)
	assert.Equal(t, "2016nytr", level.EventKey)

	msg, err = engine.Decode([]byte(awardsPosted))
	require.NoError(t, err)
	awards := msg.(engine.AwardsPosted)
	require.Len(t, awards.Awards, 1)
	assert.True(t, awards.Awards[0].WonBy(1493))
}

func TestDecodeErrors(t *testing.T) {
	_, err := engine.Decode([]byte(`{"message_data":{}}`))
	assert.ErrorIs(t, err, engine.ErrUnknownMessage)

	_, err = engine.Decode([]byte(`{"message_type":`))
	assert.ErrorIs(t, err, engine.ErrMalformedMessage)

	_, err = engine.Decode([]byte(`{"message_type":"match_score","message_data":{"match":"2016nytr_qm12"}}`))
	assert.ErrorIs(t, err, engine.ErrMalformedMessage)
}
