// Package commands implements the CLI commands for stamp.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/stamp/internal/adapters/logger"
	"go.trai.ch/stamp/internal/app"
	"go.trai.ch/stamp/internal/build"
	"go.trai.ch/stamp/internal/core/domain"
)

// CLI represents the command line interface for stamp.
type CLI struct {
	app     *app.App
	logger  *logger.Logger
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app. A nil logger disables
// the verbosity flag.
func New(a *app.App, log *logger.Logger) *CLI {
	rootCmd := &cobra.Command{
		Use:           "stamp",
		Short:         "Run actions only when the digest of their inputs changed",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	// Persistent flags first so the version flag does not claim -v.
	rootCmd.PersistentFlags().StringP("config", "c", domain.ConfigFileName, "Path to the action configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		logger:  log,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose && c.logger != nil {
			c.logger.SetLevel(domain.LogLevelDebug)
		}
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newDigestCmd())
	rootCmd.AddCommand(c.newCommitCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

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

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
