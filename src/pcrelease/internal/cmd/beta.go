package cmd

import (
	"fmt"

	"github.com/pycoreos/pcforge/src/common/output"
	"github.com/pycoreos/pcforge/src/forge/build"
	"github.com/pycoreos/pcforge/src/forge/journal"
	"github.com/pycoreos/pcforge/src/forge/release"
	"github.com/pycoreos/pcforge/src/forge/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var betaCmd = &cobra.Command{
	Use:   "beta",
	Short: "Build, boot-test and bundle a beta release",
	Long: `Reads the release version from release.yaml (or the legacy
kernel/include/kernel/release.h), runs the headless boot test, and writes
build/releases/<tag>/ plus build/releases/<tag>-bundle.tar.<ext>.
Nothing is bundled when the boot test fails.`,
	Args: cobra.NoArgs,
	RunE: runBeta,
}

func init() {
	betaCmd.Flags().Bool("publish", false, "Upload the bundle to the configured storage")
	betaCmd.Flags().String("compression", "gzip", "Archive compression: gzip, xz, zstd")

	_ = viper.BindPFlag("release.publish.enabled", betaCmd.Flags().Lookup("publish"))
	_ = viper.BindPFlag("release.compression", betaCmd.Flags().Lookup("compression"))
}

func runBeta(cmd *cobra.Command, args []string) error {
	ws, err := settings.Workspace()
	if err != nil {
		return err
	}
	buildCfg, err := settings.BuildConfig()
	if err != nil {
		return err
	}
	releaseCfg, err := settings.ReleaseConfig()
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	resolver := build.NewResolver(settings.Overrides()).WithLookPath(lookPath)
	pipeline := build.NewPipeline(ws, buildCfg, resolver, newExecutor(stderr)).
		WithLogWriter(stderr).
		WithConsole(cmd.InOrStdin(), cmd.OutOrStdout(), stderr)

	if jc := settings.JournalConfig(); jc.Enabled {
		if db, err := journal.Open(jc); err != nil {
			log.Warn("Run journal unavailable", "path", jc.Path, "error", err)
		} else {
			defer db.Close()
			pipeline.WithRecorder(journal.NewRecorder(db))
		}
	}

	bundler := release.NewBundler(ws, releaseCfg, release.PipelineVerifier(pipeline))
	if settings.PublishEnabled() {
		backend, err := newBackend(settings.StorageConfig())
		if err != nil {
			return err
		}
		bundler.WithPublisher(release.NewPublisher(backend))
	}

	res, err := bundler.Bundle(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat == output.FormatJSON {
		return output.PrintJSON(out, map[string]interface{}{
			"tag":       res.Tag,
			"directory": res.Dir,
			"archive":   res.Archive,
			"metadata":  res.Metadata,
			"published": res.Published,
		})
	}

	fmt.Fprintf(out, "Beta release bundle ready: %s\n", res.Archive)
	for _, key := range res.Published {
		fmt.Fprintf(out, "Published: %s\n", key)
	}
	return nil
}
