package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/frc5881/tba-slackbot/subscription"
)

// ErrMissingChannel is returned when --team-id or --channel is absent.
var ErrMissingChannel = zerr.New("--team-id and --channel are required")

func channelFlags(cmd *cobra.Command) (string, string, error) {
	teamID, _ := cmd.Flags().GetString("team-id")
	channel, _ := cmd.Flags().GetString("channel")
	if teamID == "" || channel == "" {
		return "", "", ErrMissingChannel
	}
	return teamID, channel, nil
}

func parseTeam(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, zerr.With(zerr.New("team must be a positive number"), "team", arg)
	}
	return n, nil
}

func (c *CLI) newFollowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "follow <team>",
		Short: "Subscribe a channel to a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, channel, err := channelFlags(cmd)
			if err != nil {
				return err
			}
			team, err := parseTeam(args[0])
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetString("level")
			level, err := subscription.ParseLevel(raw)
			if err != nil {
				return err
			}
			by, _ := cmd.Flags().GetString("by")

			if err := c.app.Follow(cmd.Context(), subscription.Subscription{
				TeamID:       teamID,
				ChannelID:    channel,
				FRCTeam:      team,
				Level:        level,
				SubscribedBy: by,
			}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s now follows %d (%s)\n", channel, team, level)
			return err
		},
	}
	cmd.Flags().StringP("level", "l", subscription.LevelAll.String(), "Notification level: summary, result or all")
	cmd.Flags().String("by", "", "User recorded as subscriber")
	return cmd
}

func (c *CLI) newUnfollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <team>",
		Short: "Unsubscribe a channel from a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, channel, err := channelFlags(cmd)
			if err != nil {
				return err
			}
			team, err := parseTeam(args[0])
			if err != nil {
				return err
			}
			removed, err := c.app.Unfollow(cmd.Context(), teamID, channel, team)
			if err != nil {
				return err
			}
			if !removed {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s was not following %d\n", channel, team)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s no longer follows %d\n", channel, team)
			return err
		},
	}
}

func (c *CLI) newFollowingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "following",
		Short: "List the teams a channel follows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			teamID, channel, err := channelFlags(cmd)
			if err != nil {
				return err
			}
			subs, err := c.app.Following(cmd.Context(), teamID, channel)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(subs) == 0 {
				_, err = fmt.Fprintf(out, "%s follows no teams\n", channel)
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "TEAM\tLEVEL\tBY")
			for _, s := range subs {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", s.FRCTeam, s.Level, s.SubscribedBy)
			}
			return tw.Flush()
		},
	}
}
