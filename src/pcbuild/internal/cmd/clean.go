package cmd

import (
	"fmt"

	"github.com/pycoreos/pcforge/src/forge/build"
	"github.com/pycoreos/pcforge/src/forge/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the build directory and the staged kernel",
	Long: `Removes the build directory (objects, kernel image, ISO and release
bundles) and the kernel copy in the ISO staging tree. No tools are needed
and cleaning an already clean tree succeeds.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	ws, err := settings.Workspace()
	if err != nil {
		return err
	}
	if err := build.Clean(ws, viper.GetString("build.kernel_name")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleaned %s\n", ws.BuildDir)
	return nil
}
