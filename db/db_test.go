package db_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc5881/tba-slackbot/db"
	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/frc"
	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/tba"
	"github.com/frc5881/tba-slackbot/testutil"
)

func TestMigrateIsIdempotent(t *testing.T) {
	database := testutil.SetupTestDB(t)
	require.NoError(t, db.Migrate(context.Background(), database))
}

func TestCacheStore(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := db.NewCacheStore(database)
	ctx := context.Background()

	entry, err := store.Get(ctx, "status")
	require.NoError(t, err)
	assert.Nil(t, entry, "miss is not an error")

	retrieved := time.Date(2016, 3, 12, 15, 0, 0, 0, time.UTC)
	modified := retrieved.Add(-time.Hour)
	expires := retrieved.Add(time.Minute)
	require.NoError(t, store.Put(ctx, tba.CacheEntry{
		Key:          "status",
		LastModified: &modified,
		Payload:      []byte(`{"current_season":2016}`),
		RetrievedAt:  retrieved,
		ExpiresAt:    &expires,
	}))

	entry, err = store.Get(ctx, "status")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.JSONEq(t, `{"current_season":2016}`, string(entry.Payload))
	assert.True(t, entry.RetrievedAt.Equal(retrieved))
	require.NotNil(t, entry.LastModified)
	assert.True(t, entry.LastModified.Equal(modified))

	later := retrieved.Add(5 * time.Minute)
	require.NoError(t, store.Touch(ctx, "status", later, nil))
	entry, err = store.Get(ctx, "status")
	require.NoError(t, err)
	assert.True(t, entry.RetrievedAt.Equal(later))
	assert.Nil(t, entry.ExpiresAt)
	assert.JSONEq(t, `{"current_season":2016}`, string(entry.Payload), "touch keeps the payload")

	n, err := store.Purge(ctx, later.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSubscriptionStore(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := db.NewSubscriptionStore(database)
	ctx := context.Background()

	follow := func(channel string, team int, level subscription.Level) {
		t.Helper()
		require.NoError(t, store.Follow(ctx, subscription.Subscription{
			TeamID: "T1", ChannelID: channel, FRCTeam: team, Level: level, SubscribedBy: "U1",
		}))
	}
	follow("C1", 5881, subscription.LevelSummary)
	follow("C1", 5881, subscription.LevelAll)
	follow("C1", 20, subscription.LevelResult)
	follow("C2", 5881, subscription.LevelResult)

	subs, err := store.SubscriptionsForTeam(ctx, 5881)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "C1", subs[0].ChannelID)
	assert.Equal(t, subscription.LevelAll, subs[0].Level, "follow updates the level")

	subs, err = store.ForChannel(ctx, "T1", "C1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, 20, subs[0].FRCTeam)

	removed, err := store.Unfollow(ctx, "T1", "C1", 20)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Unfollow(ctx, "T1", "C1", 20)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Error(t, store.Follow(ctx, subscription.Subscription{TeamID: "T1", ChannelID: "C1", FRCTeam: 1}))
}

func TestOutbox(t *testing.T) {
	database := testutil.SetupTestDB(t)
	outbox := db.NewOutbox(database)
	ctx := context.Background()

	var match tba.Match
	require.NoError(t, json.Unmarshal([]byte(`{"key":"2016nytr_qm12","comp_level":"qm","alliances":{"red":{"score":45,"teams":["frc5881"]},"blue":{"score":72,"teams":["frc1493"]}}}`), &match))
	n := engine.Notification{
		Kind:     engine.KindMatchScore,
		Topic:    subscription.TopicMatchScore,
		Decision: subscription.Decision{TeamID: "T1", ChannelID: "C1", Teams: []int{5881}, Level: subscription.LevelAll},
		EventKey: "2016nytr",
		MatchKey: "2016nytr_qm12",
		Match:    &match,
		Winner:   frc.Blue,
	}
	require.NoError(t, outbox.Dispatch(ctx, n))

	pending, err := outbox.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	got := pending[0].Notification
	assert.Equal(t, n.Decision, got.Decision)
	assert.Equal(t, frc.Blue, got.Winner)
	require.NotNil(t, got.Match)
	assert.Equal(t, []int{5881}, got.Match.Alliances.Red.Teams)

	require.NoError(t, outbox.MarkDelivered(ctx, pending[0].ID))
	pending, err = outbox.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
