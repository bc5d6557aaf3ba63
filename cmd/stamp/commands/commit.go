package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit [actions...]",
		Short: "Record the current digest of actions without running them",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Commit(cmd.Context(), configPath(cmd), args)
		},
	}
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [actions...]",
		Short: "Remove stamps so the actions run on the next invocation",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Clean(cmd.Context(), configPath(cmd), args)
		},
	}
}
