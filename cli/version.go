package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/trainconf/pkg/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "trainconf version %s\n", info.Version); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(out, "commit: %s\n", info.CommitHash); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "built: %s\n", info.BuildDate)
			return err
		},
	}
}
