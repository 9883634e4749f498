package cmd

import (
	"fmt"

	"github.com/pycoreos/pcforge/src/common/output"
	"github.com/pycoreos/pcforge/src/forge/build"
	"github.com/pycoreos/pcforge/src/forge/journal"
	"github.com/pycoreos/pcforge/src/forge/settings"
	"github.com/spf13/cobra"
)

var targetShort = map[build.Target]string{
	build.TargetBuild: "Compile and link the kernel image",
	build.TargetIso:   "Build the kernel and package a bootable ISO",
	build.TargetRun:   "Build the ISO and boot it in an interactive emulator",
	build.TargetTest:  "Build the ISO and boot it headless, checking for the boot marker",
}

func newTargetCmd(target build.Target) *cobra.Command {
	return &cobra.Command{
		Use:   string(target),
		Short: targetShort[target],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTarget(cmd, target)
		},
	}
}

// newPipeline assembles a pipeline from the loaded configuration
func newPipeline(cmd *cobra.Command) (*build.Pipeline, error) {
	ws, err := settings.Workspace()
	if err != nil {
		return nil, err
	}
	cfg, err := settings.BuildConfig()
	if err != nil {
		return nil, err
	}

	resolver := build.NewResolver(settings.Overrides()).WithLookPath(lookPath)
	stderr := cmd.ErrOrStderr()
	return build.NewPipeline(ws, cfg, resolver, newExecutor(stderr)).
		WithLogWriter(stderr).
		WithConsole(cmd.InOrStdin(), cmd.OutOrStdout(), stderr), nil
}

func runTarget(cmd *cobra.Command, target build.Target) error {
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	if db := openJournal(); db != nil {
		defer db.Close()
		p.WithRecorder(journal.NewRecorder(db))
	}

	sc, err := p.Run(cmd.Context(), target)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch target {
	case build.TargetBuild:
		fmt.Fprintf(out, "Built kernel: %s (%s)\n", sc.KernelPath, output.FormatBytes(sc.KernelSize))
	case build.TargetIso, build.TargetRun:
		fmt.Fprintf(out, "Built ISO: %s\n", sc.IsoPath)
	case build.TargetTest:
		fmt.Fprintln(out, "Kernel headless boot test passed.")
	}
	return nil
}
