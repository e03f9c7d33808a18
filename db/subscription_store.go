package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/frc5881/tba-slackbot/subscription"
)

// SubscriptionStore keeps channel subscriptions in the subscriptions table.
type SubscriptionStore struct {
	db *sql.DB
}

var _ subscription.Store = (*SubscriptionStore)(nil)

// NewSubscriptionStore returns a SubscriptionStore on db.
func NewSubscriptionStore(db *sql.DB) *SubscriptionStore { return &SubscriptionStore{db: db} }

// SubscriptionsForTeam returns every subscription following team.
func (s *SubscriptionStore) SubscriptionsForTeam(ctx context.Context, team int) ([]subscription.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT team_id, channel_id, frc_team, level, COALESCE(subscribed_by,'')
		FROM subscriptions WHERE frc_team=$1 ORDER BY team_id, channel_id`, team)
	if err != nil {
		return nil, fmt.Errorf("subscriptions for team %d: %w", team, err)
	}
	return scanSubscriptions(rows)
}

// Follow creates the subscription or updates its level.
func (s *SubscriptionStore) Follow(ctx context.Context, sub subscription.Subscription) error {
	if !sub.Level.Valid() {
		return fmt.Errorf("follow: invalid level %d", int(sub.Level))
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO subscriptions(team_id, channel_id, frc_team, level, subscribed_by)
		VALUES($1,$2,$3,$4,$5)
		ON CONFLICT(team_id, channel_id, frc_team) DO UPDATE SET level=EXCLUDED.level,
			subscribed_by=EXCLUDED.subscribed_by, updated_at=NOW()`,
		sub.TeamID, sub.ChannelID, sub.FRCTeam, sub.Level.String(), sub.SubscribedBy)
	if err != nil {
		return fmt.Errorf("follow %d in %s: %w", sub.FRCTeam, sub.ChannelID, err)
	}
	return nil
}

// Unfollow removes a subscription and reports whether it existed.
func (s *SubscriptionStore) Unfollow(ctx context.Context, teamID, channelID string, frcTeam int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE team_id=$1 AND channel_id=$2 AND frc_team=$3`,
		teamID, channelID, frcTeam)
	if err != nil {
		return false, fmt.Errorf("unfollow %d in %s: %w", frcTeam, channelID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForChannel lists a channel's subscriptions ordered by team number.
func (s *SubscriptionStore) ForChannel(ctx context.Context, teamID, channelID string) ([]subscription.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT team_id, channel_id, frc_team, level, COALESCE(subscribed_by,'')
		FROM subscriptions WHERE team_id=$1 AND channel_id=$2 ORDER BY frc_team`, teamID, channelID)
	if err != nil {
		return nil, fmt.Errorf("subscriptions for channel %s: %w", channelID, err)
	}
	return scanSubscriptions(rows)
}

func scanSubscriptions(rows *sql.Rows) ([]subscription.Subscription, error) {
	defer rows.Close()
	var out []subscription.Subscription
	for rows.Next() {
		var (
			sub   subscription.Subscription
			level string
		)
		if err := rows.Scan(&sub.TeamID, &sub.ChannelID, &sub.FRCTeam, &level, &sub.SubscribedBy); err != nil {
			return nil, err
		}
		l, err := subscription.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		sub.Level = l
		out = append(out, sub)
	}
	return out, rows.Err()
}
