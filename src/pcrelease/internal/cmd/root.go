package cmd

import (
	"context"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/pycoreos/pcforge/src/common/cli"
	"github.com/pycoreos/pcforge/src/common/errors"
	"github.com/pycoreos/pcforge/src/common/logs"
	"github.com/pycoreos/pcforge/src/common/output"
	"github.com/pycoreos/pcforge/src/common/version"
	"github.com/pycoreos/pcforge/src/forge/build"
	"github.com/pycoreos/pcforge/src/forge/settings"
	"github.com/pycoreos/pcforge/src/forge/storage"
	"github.com/spf13/cobra"
)

var (
	// VersionInfo holds version information - set at build time via ldflags
	VersionInfo = version.New("pcrelease")

	log = logs.NewDefault()

	cfgFile      string
	outputFormat string

	// replaced in tests
	lookPath    = exec.LookPath
	newExecutor = func(w io.Writer) build.Executor { return build.NewHostExecutor(w) }
	newBackend  = storage.New
)

// Linker variables - set via ldflags at build time
var (
	Version   = "dev"
	BuildDate = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:   "pcrelease",
	Short: "PyCoreOS release tool",
	Long: `pcrelease runs the full build and headless boot test, then packages the
verified ISO with its docs, release.json and a SHA256SUMS manifest into
a versioned bundle directory and a compressed archive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return initConfig()
	},
}

// Execute runs the root command and exits with the error's status
func Execute() {
	VersionInfo.Set(Version, GitCommit, BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		output.PrintError(os.Stderr, err)
		os.Exit(errors.GetExitCode(err))
	}
}

func init() {
	cli.RegisterConfigFlag(rootCmd, &cfgFile, "./pcforge.yaml")

	rootCmd.PersistentFlags().String("root", ".", "Source tree root")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", output.FormatTable, "Output format: table, json")

	cli.RegisterLogFlags(rootCmd)

	_ = cli.BindPersistentFlag(rootCmd, "root", "root")

	settings.SetDefaults()

	rootCmd.AddCommand(betaCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() error {
	if err := settings.Init(cfgFile); err != nil {
		return err
	}
	if err := output.ValidateFormat(outputFormat); err != nil {
		return err
	}

	log = cli.InitLogger("pcrelease")
	settings.SetLoggers(log)
	return nil
}
