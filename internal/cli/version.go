package cli

import (
	"fmt"

	"github.com/fmueller/subgen/internal/platform"
	"github.com/fmueller/subgen/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Current()
			rt := platform.CurrentRuntime()
			fmt.Fprintf(cmd.OutOrStdout(), "subgen v%s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:   %s\n", info.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:    %s\n", info.Date)
			fmt.Fprintf(cmd.OutOrStdout(), "  platform: %s\n", rt)
			return nil
		},
	}
}
