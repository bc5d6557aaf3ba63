package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stamp/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [actions...]",
		Short: "Run stale actions and their stale dependencies",
		Long:  "Run the given actions, or every action when none is given, skipping those whose stamp is fresh.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			jobs, _ := cmd.Flags().GetInt("jobs")
			return c.app.Run(cmd.Context(), args, app.RunOptions{
				ConfigPath: configPath(cmd),
				Force:      force,
				Jobs:       jobs,
			})
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Run every selected action regardless of its stamp")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum number of actions run in parallel (default: number of CPUs)")
	return cmd
}
