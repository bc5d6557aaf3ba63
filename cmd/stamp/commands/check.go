package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [actions...]",
		Short: "Report which actions are stale without running them",
		Long:  "Report fresh or stale for each action. Exits non-zero when any action is stale. Never writes stamps.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.app.Check(cmd.Context(), configPath(cmd), args)
			return err
		},
	}
}
