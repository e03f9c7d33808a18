package subscription

import "context"

// Subscription is one channel following one team.
// It is unique per (TeamID, ChannelID, FRCTeam).
type Subscription struct {
	TeamID       string `json:"team_id"`
	ChannelID    string `json:"channel_id"`
	FRCTeam      int    `json:"frc_team"`
	Level        Level  `json:"level"`
	SubscribedBy string `json:"subscribed_by"`
}

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

// Repository looks up the subscriptions referencing a team.
type Repository interface {
	SubscriptionsForTeam(ctx context.Context, team int) ([]Subscription, error)
}

// Store manages subscriptions on behalf of follow and unfollow requests.
type Store interface {
	Repository
	// Follow creates the subscription or updates its level.
	Follow(ctx context.Context, s Subscription) error
	// Unfollow removes a subscription and reports whether it existed.
	Unfollow(ctx context.Context, teamID, channelID string, frcTeam int) (bool, error)
	// ForChannel lists a channel's subscriptions ordered by team number.
	ForChannel(ctx context.Context, teamID, channelID string) ([]Subscription, error)
}
