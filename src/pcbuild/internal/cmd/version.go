package cmd

import (
	"fmt"

	"github.com/pycoreos/pcforge/src/common/output"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == output.FormatJSON {
			return output.PrintJSON(cmd.OutOrStdout(), VersionInfo.Map())
		}
		fmt.Fprintln(cmd.OutOrStdout(), VersionInfo.Full())
		return nil
	},
}
