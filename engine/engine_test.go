package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/frc"
	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/subscription/mocks"
	"github.com/frc5881/tba-slackbot/tba"
	"github.com/frc5881/tba-slackbot/testutil"
)

type recorder struct {
	mu    sync.Mutex
	notes []engine.Notification
	err   error
}

func (r *recorder) Dispatch(_ context.Context, n engine.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return r.err
}

func (r *recorder) Notes() []engine.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Notification(nil), r.notes...)
}

// memRepo is an in-memory subscription repository.
type memRepo []subscription.Subscription

func (m memRepo) SubscriptionsForTeam(_ context.Context, team int) ([]subscription.Subscription, error) {
	var out []subscription.Subscription
	for _, s := range m {
		if s.FRCTeam == team {
			out = append(out, s)
		}
	}
	return out, nil
}

func follow(channel string, team int, level subscription.Level) subscription.Subscription {
	return subscription.Subscription{TeamID: "T1", ChannelID: channel, FRCTeam: team, Level: level, SubscribedBy: "U1"}
}

func newEngine(t *testing.T, srv *testutil.MockTBAServer, repo subscription.Repository, d engine.Dispatcher) *engine.Engine {
	t.Helper()
	client := tba.NewClient(tba.Config{BaseURL: srv.BaseURL(), AppID: "frc5881:test:v1"})
	return engine.New(engine.Config{
		API:        client,
		Fanout:     subscription.NewResolver(repo, nil),
		Dispatcher: d,
		Resolver:   client.Resolver(),
	})
}

func decode(t *testing.T, raw string) engine.Message {
	t.Helper()
	msg, err := engine.Decode([]byte(raw))
	require.NoError(t, err)
	return msg
}

func TestMatchScoreEndToEnd(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	srv.MockJSON("event/2016nytr", eventNYTR, "max-age=60", "")

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().SubscriptionsForTeam(gomock.Any(), 5881).Return([]subscription.Subscription{
		follow("C1", 5881, subscription.LevelAll),
	}, nil)
	repo.EXPECT().SubscriptionsForTeam(gomock.Any(), gomock.Any()).Return(nil, nil).Times(5)

	rec := &recorder{}
	eng := newEngine(t, srv, repo, rec)

	err := eng.Process(context.Background(), decode(t, matchScoreQM12))
	require.NoError(t, err)

	notes := rec.Notes()
	require.Len(t, notes, 1)
	n := notes[0]
	assert.Equal(t, engine.KindMatchScore, n.Kind)
	assert.Equal(t, "C1", n.Decision.ChannelID)
	assert.Equal(t, []int{5881}, n.Decision.Teams)
	assert.Equal(t, subscription.LevelAll, n.Decision.Level)
	assert.Equal(t, frc.Blue, n.Winner)
	assert.Equal(t, "blue", n.Result())
	assert.Equal(t, frc.Red, n.Match.Alliances.AllianceForTeam(5881))
	assert.Equal(t, "2016nytr_qm12", n.MatchKey)
	assert.Equal(t, "Tech Valley", n.EventName)
	require.NotNil(t, n.Event)
	assert.Equal(t, 1, srv.Hits("event/2016nytr"))
}

func TestMatchScoreLevels(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	srv.MockJSON("event/2016nytr", eventNYTR, "max-age=60", "")
	repo := memRepo{
		follow("C-all", 5881, subscription.LevelAll),
		follow("C-result", 1493, subscription.LevelResult),
		follow("C-summary", 20, subscription.LevelSummary),
		follow("C-summary", 250, subscription.LevelSummary),
	}
	rec := &recorder{}

	require.NoError(t, newEngine(t, srv, repo, rec).Process(context.Background(), decode(t, matchScoreQM12)))

	var channels []string
	for _, n := range rec.Notes() {
		channels = append(channels, n.Decision.ChannelID)
	}
	assert.Equal(t, []string{"C-all", "C-result"}, channels)
	assert.Equal(t, 1, srv.Hits("event/2016nytr"), "event fetched once per message")
}

func TestMatchScoreWithoutEvent(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	rec := &recorder{}
	repo := memRepo{follow("C1", 5881, subscription.LevelResult)}

	require.NoError(t, newEngine(t, srv, repo, rec).Process(context.Background(), decode(t, matchScoreQM12)))

	notes := rec.Notes()
	require.Len(t, notes, 1)
	assert.Nil(t, notes[0].Event)
	assert.Equal(t, "FIRST Tech Valley Regional", notes[0].EventName)
	assert.Equal(t, frc.Blue, notes[0].Winner)
}

func TestNoSubscribersIssuesNoUpstreamCalls(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	rec := &recorder{}

	eng := newEngine(t, srv, memRepo{}, rec)
	for _, raw := range []string{matchScoreQM12, upcomingQM13} {
		require.NoError(t, eng.Process(context.Background(), decode(t, raw)))
	}

	assert.Empty(t, rec.Notes())
	assert.Equal(t, 0, srv.TotalHits())
}

func TestUpcomingMatch(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	srv.MockJSON("match/2016nytr_qm13", `{"key":"2016nytr_qm13","comp_level":"qm","match_number":13,"alliances":{"red":{"score":-1,"teams":["frc5881","frc20","frc250"]},"blue":{"score":-1,"teams":["frc1493","frc3044","frc5236"]}}}`, "max-age=60", "")
	repo := memRepo{
		follow("C1", 5881, subscription.LevelAll),
		follow("C1", 20, subscription.LevelSummary),
		follow("C2", 1493, subscription.LevelResult),
	}
	rec := &recorder{}

	require.NoError(t, newEngine(t, srv, repo, rec).Process(context.Background(), decode(t, upcomingQM13)))

	notes := rec.Notes()
	require.Len(t, notes, 1)
	n := notes[0]
	assert.Equal(t, "C1", n.Decision.ChannelID)
	assert.Equal(t, []int{20, 5881}, n.Decision.Teams)
	assert.Equal(t, "2016nytr", n.EventKey)
	require.NotNil(t, n.Match)
	assert.False(t, n.Match.IsComplete())
	require.NotNil(t, n.Upcoming)
	assert.Equal(t, []int{5881, 20, 250, 1493, 3044, 5236}, n.Upcoming.TeamNumbers())
}

func TestAllianceSelection(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	repo := memRepo{
		follow("C1", 333, subscription.LevelAll),
		follow("C2", 5881, subscription.LevelResult),
	}
	rec := &recorder{}

	require.NoError(t, newEngine(t, srv, repo, rec).Process(context.Background(), decode(t, allianceSelection)))

	notes := rec.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "C1", notes[0].Decision.ChannelID)
	require.Len(t, notes[0].Alliances, 2)
	assert.Equal(t, 0, srv.TotalHits())
}

func TestScheduleUpdated(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	srv.MockJSON("event/2016nytr/matches", `[
		{"key":"2016nytr_qf1m1","comp_level":"qf","alliances":{"red":{"score":90,"teams":["frc1","frc2","frc3"]},"blue":{"score":80,"teams":["frc4","frc5","frc6"]}}},
		{"key":"2016nytr_sf1m1","comp_level":"sf","alliances":{"red":{"score":-1,"teams":["frc1","frc2","frc3"]},"blue":{"score":-1,"teams":["frc7","frc8","frc9"]}}}
	]`, "max-age=60", "")
	repo := memRepo{
		follow("C-eliminated", 4, subscription.LevelAll),
		follow("C-playing", 7, subscription.LevelAll),
		follow("C-result", 1, subscription.LevelResult),
	}
	rec := &recorder{}

	raw := `{"message_type":"schedule_updated","message_data":{"event_key":"2016nytr","event_name":"Tech Valley"}}`
	require.NoError(t, newEngine(t, srv, repo, rec).Process(context.Background(), decode(t, raw)))

	notes := rec.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "C-playing", notes[0].Decision.ChannelID)
	assert.Equal(t, engine.KindScheduleUpdated, notes[0].Kind)
	assert.Equal(t, subscription.TopicSchedule, notes[0].Topic)
}

func TestAwardsPosted(t *testing.T) {
	setup := func(t *testing.T, matches string) (*testutil.MockTBAServer, *recorder, *engine.Engine) {
		srv := testutil.NewMockTBAServer(t)
		srv.MockJSON("event/2016nytr", eventNYTR, "max-age=60", "")
		srv.MockJSON("event/2016nytr/matches", matches, "max-age=60", "")
		srv.MockJSON("event/2016nytr/teams", `[{"key":"frc5881","team_number":5881},{"key":"frc1493","team_number":1493},{"key":"frc20","team_number":20}]`, "max-age=60", "")
		srv.MockJSON("event/2016nytr/rankings", `[["Rank","Team","Record (W-L-T)"],[1,1493,"2-0-0"],[2,5881,"0-1-1"]]`, "max-age=60", "")
		srv.MockJSON("team/frc5881/event/2016nytr/awards", `[{"name":"Rookie All Star Award","award_type":10,"event_key":"2016nytr","year":2016,"recipient_list":[{"team_number":5881,"awardee":null}]}]`, "max-age=60", "")
		srv.MockJSON("team/frc1493/event/2016nytr/awards", `[]`, "max-age=60", "")
		repo := memRepo{
			follow("C1", 5881, subscription.LevelSummary),
			follow("C2", 5881, subscription.LevelAll),
			follow("C2", 1493, subscription.LevelResult),
		}
		rec := &recorder{}
		return srv, rec, newEngine(t, srv, repo, rec)
	}

	t.Run("suppressed while matches remain", func(t *testing.T) {
		srv, rec, eng := setup(t, `[
			{"key":"2016nytr_qm1","comp_level":"qm","alliances":{"red":{"score":10,"teams":["frc5881"]},"blue":{"score":20,"teams":["frc1493"]}}},
			{"key":"2016nytr_f1m1","comp_level":"f","alliances":{"red":{"score":-1,"teams":["frc1493"]},"blue":{"score":-1,"teams":["frc20"]}}}
		]`)
		require.NoError(t, eng.Process(context.Background(), decode(t, awardsPosted)))
		assert.Empty(t, rec.Notes())
		assert.Equal(t, 0, srv.Hits("event/2016nytr/teams"))
	})

	t.Run("summary after the last match", func(t *testing.T) {
		_, rec, eng := setup(t, `[
			{"key":"2016nytr_qm1","comp_level":"qm","alliances":{"red":{"score":10,"teams":["frc5881"]},"blue":{"score":20,"teams":["frc1493"]}}},
			{"key":"2016nytr_qm2","comp_level":"qm","alliances":{"red":{"score":15,"teams":["frc5881"]},"blue":{"score":15,"teams":["frc20"]}}},
			{"key":"2016nytr_f1m1","comp_level":"f","alliances":{"red":{"score":50,"teams":["frc1493"]},"blue":{"score":40,"teams":["frc20"]}}}
		]`)
		require.NoError(t, eng.Process(context.Background(), decode(t, awardsPosted)))

		notes := rec.Notes()
		require.Len(t, notes, 2)
		assert.Equal(t, "C1", notes[0].Decision.ChannelID)
		require.Len(t, notes[0].Summaries, 1)
		s := notes[0].Summaries[0]
		assert.Equal(t, 5881, s.Team)
		assert.Equal(t, 2, s.Rank)
		assert.Equal(t, 2, s.RankedTeams)
		require.NotNil(t, s.Record)
		assert.Equal(t, tba.Record{Losses: 1, Ties: 1}, *s.Record)
		assert.Equal(t, frc.Qualification, s.HighestLevel)
		assert.Equal(t, []string{"Rookie All Star Award"}, s.Awards)

		require.Len(t, notes[1].Summaries, 2)
		assert.Equal(t, 1493, notes[1].Summaries[0].Team)
		assert.Equal(t, frc.Final, notes[1].Summaries[0].HighestLevel)
		assert.Empty(t, notes[1].Summaries[0].Awards)
	})
}

func TestIgnoredKindsAreNoOps(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	rec := &recorder{}
	eng := newEngine(t, srv, repo, rec)

	for _, raw := range []string{
		`{"message_type":"ping","message_data":{"title":"Test","desc":"ping"}}`,
		`{"message_type":"starting_comp_level","message_data":{"event_key":"2016nytr","comp_level":"sf"}}`,
		`{"message_type":"update_favorites","message_data":{}}`,
		`{"message_type":"verification","message_data":{"verification_key":"abc"}}`,
		`{"message_type":"broadcast","message_data":{"title":"Hi"}}`,
		`{"message_type":"district_points_updated","message_data":{"district_key":"2016ne"}}`,
	} {
		require.NoError(t, eng.Process(context.Background(), decode(t, raw)))
	}
	assert.Empty(t, rec.Notes())
	assert.Equal(t, 0, srv.TotalHits())
}

func TestDispatchErrorsAreJoined(t *testing.T) {
	srv := testutil.NewMockTBAServer(t)
	repo := memRepo{
		follow("C1", 5881, subscription.LevelAll),
		follow("C2", 1493, subscription.LevelAll),
	}
	boom := errors.New("slack unavailable")
	rec := &recorder{err: boom}

	err := newEngine(t, srv, repo, rec).Process(context.Background(), decode(t, matchScoreQM12))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.Notes(), 2, "a failed dispatch does not stop the others")
}

const eventNYTR = `{"key":"2016nytr","name":"FIRST Tech Valley Regional","short_name":"Tech Valley","event_code":"nytr","event_type":0,"year":2016,"start_date":"2016-03-10","end_date":"2016-03-12"}`

const matchScoreQM12 = `{
  "message_type": "match_score",
  "message_data": {
    "event_name": "FIRST Tech Valley Regional",
    "match": {
      "key": "2016nytr_qm12",
      "comp_level": "qm",
      "set_number": 1,
      "match_number": 12,
      "event_key": "2016nytr",
      "alliances": {
        "red": {"score": 45, "teams": ["frc5881", "frc20", "frc250"]},
        "blue": {"score": 72, "teams": ["frc1493", "frc3044", "frc5236"]}
      },
      "score_breakdown": {
        "red": {"totalPoints": 45, "foulPoints": 0, "autoPoints": 10, "breachPoints": 0, "capturePoints": 0,
                "teleopScalePoints": 0, "teleopChallengePoints": 10, "autoBoulderPoints": 0,
                "teleopBoulderPoints": 15, "autoCrossingPoints": 10, "teleopCrossingPoints": 10},
        "blue": {"totalPoints": 72, "foulPoints": 5, "autoPoints": 22, "breachPoints": 20, "capturePoints": 0,
                 "teleopScalePoints": 15, "teleopChallengePoints": 5, "autoBoulderPoints": 10,
                 "teleopBoulderPoints": 20, "autoCrossingPoints": 12, "teleopCrossingPoints": 25}
      }
    }
  }
}`

const upcomingQM13 = `{
  "message_type": "upcoming_match",
  "message_data": {
    "event_name": "FIRST Tech Valley Regional",
    "match_key": "2016nytr_qm13",
    "team_keys": ["frc5881", "frc20", "frc250", "frc1493", "frc3044", "frc5236"],
    "scheduled_time": 1457802000,
    "predicted_time": 1457802120
  }
}`

const allianceSelection = `{
  "message_type": "alliance_selection",
  "message_data": {
    "event_name": "FIRST Tech Valley Regional",
    "event_key": "2016nytr",
    "event": {
      "key": "2016nytr",
      "name": "FIRST Tech Valley Regional",
      "alliances": [
        {"picks": ["frc1493", "frc5881", "frc20"]},
        {"picks": ["frc250", "frc3044", "frc5236"], "backup": {"in": "frc333", "out": "frc3044"}}
      ]
    }
  }
}`

const awardsPosted = `{
  "message_type": "awards_posted",
  "message_data": {
    "event_key": "2016nytr",
    "event_name": "FIRST Tech Valley Regional",
    "awards": [{"name": "Regional Winners", "award_type": 1, "event_key": "2016nytr", "year": 2016, "recipient_list": [{"team_number": 1493, "awardee": null}]}]
  }
}`
