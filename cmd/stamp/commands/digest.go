package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stamp/internal/core/domain"
)

func (c *CLI) newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the digest of an ad-hoc set of inputs",
		Long: "Print the digest of the given files, directories and strings. " +
			"With --stamp, also report whether the inputs are stale against that stamp.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, _ := cmd.Flags().GetStringArray("file")
			dirs, _ := cmd.Flags().GetStringArray("dir")
			extra, _ := cmd.Flags().GetStringArray("extra")
			ignore, _ := cmd.Flags().GetStringArray("ignore")
			stampPath, _ := cmd.Flags().GetString("stamp")

			spec := domain.InputSpec{
				Files:        files,
				Directories:  dirs,
				ExtraStrings: extra,
				Ignore:       ignore,
			}
			_, err := c.app.Digest(spec, stampPath)
			return err
		},
	}
	cmd.Flags().StringArray("file", nil, "File whose content is folded into the digest (repeatable, order matters)")
	cmd.Flags().StringArray("dir", nil, "Directory tree folded into the digest (repeatable)")
	cmd.Flags().StringArray("extra", nil, "Extra string folded into the digest (repeatable, order matters)")
	cmd.Flags().StringArray("ignore", nil, "Base-name pattern skipped while walking directories (repeatable)")
	cmd.Flags().String("stamp", "", "Stamp file to compare the digest against")
	return cmd
}
