package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/subscription"
)

// Outbox is an engine.Dispatcher that queues notifications in the
// notifications table for the renderer to deliver.
type Outbox struct {
	db *sql.DB
}

var _ engine.Dispatcher = (*Outbox)(nil)

// NewOutbox returns an Outbox on db.
func NewOutbox(db *sql.DB) *Outbox { return &Outbox{db: db} }

// Dispatch stores n.
func (o *Outbox) Dispatch(ctx context.Context, n engine.Notification) error {
	teams, err := json.Marshal(n.Decision.Teams)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	var winner sql.NullString
	if n.Topic == subscription.TopicMatchScore {
		winner = sql.NullString{String: n.Result(), Valid: true}
	}
	_, err = o.db.ExecContext(ctx, `INSERT INTO notifications(kind, topic, team_id, channel_id, level, teams, event_key, match_key, winner, payload)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		string(n.Kind), string(n.Topic), n.Decision.TeamID, n.Decision.ChannelID, n.Decision.Level.String(),
		string(teams), nullString(n.EventKey), nullString(n.MatchKey), winner, string(payload))
	if err != nil {
		return fmt.Errorf("queue notification for %s: %w", n.Decision.ChannelID, err)
	}
	return nil
}

// Pending is a queued, undelivered notification.
type Pending struct {
	ID           int64
	Notification engine.Notification
}

// Pending returns up to limit undelivered notifications, oldest first.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]Pending, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT id, payload FROM notifications WHERE delivered_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()
	var out []Pending
	for rows.Next() {
		var (
			p   Pending
			raw []byte
		)
		if err := rows.Scan(&p.ID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &p.Notification); err != nil {
			return nil, fmt.Errorf("decode notification %d: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkDelivered stamps a notification as delivered.
func (o *Outbox) MarkDelivered(ctx context.Context, id int64) error {
	_, err := o.db.ExecContext(ctx, `UPDATE notifications SET delivered_at=NOW() WHERE id=$1`, id)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
