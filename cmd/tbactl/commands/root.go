// Package commands implements the tbactl command line.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/subscription"
)

// CLI represents the command line interface for tbactl.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application is the operator surface the commands drive.
type Application interface {
	Follow(ctx context.Context, s subscription.Subscription) error
	Unfollow(ctx context.Context, teamID, channelID string, frcTeam int) (bool, error)
	Following(ctx context.Context, teamID, channelID string) ([]subscription.Subscription, error)
	Replay(ctx context.Context, raw []byte) ([]engine.Notification, error)
	Migrate(ctx context.Context) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "tbactl",
		Short:         "Operate the TBA Slack notifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("team-id", "", "Slack workspace id")
	rootCmd.PersistentFlags().String("channel", "", "Slack channel id")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newFollowCmd())
	rootCmd.AddCommand(c.newUnfollowCmd())
	rootCmd.AddCommand(c.newFollowingCmd())
	rootCmd.AddCommand(c.newReplayCmd())
	rootCmd.AddCommand(c.newMigrateCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
