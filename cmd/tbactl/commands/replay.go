package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/frc5881/tba-slackbot/frc"
)

func (c *CLI) newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file>",
		Short: "Process a saved webhook payload and print the notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return zerr.With(zerr.Wrap(err, "read payload"), "file", args[0])
			}
			notes, err := c.app.Replay(cmd.Context(), raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(notes) == 0 {
				_, err = fmt.Fprintln(out, "no notifications")
				return err
			}
			for _, n := range notes {
				teams := make([]string, len(n.Decision.Teams))
				for i, t := range n.Decision.Teams {
					teams[i] = frc.TeamKey(t)
				}
				line := fmt.Sprintf("%s %s level=%s teams=%s", n.Decision.ChannelID, n.Kind, n.Decision.Level, strings.Join(teams, ","))
				if n.MatchKey != "" {
					line += fmt.Sprintf(" match=%s result=%s", n.MatchKey, n.Result())
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (c *CLI) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Migrate(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}
}
