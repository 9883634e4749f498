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
	"github.com/pycoreos/pcforge/src/forge/journal"
	"github.com/pycoreos/pcforge/src/forge/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// VersionInfo holds version information - set at build time via ldflags
	VersionInfo = version.New("pcbuild")

	// Global logger instance
	log = logs.NewDefault()

	// Configuration file path
	cfgFile string

	// Output format (table or json)
	outputFormat string

	// replaced in tests
	lookPath    = exec.LookPath
	newExecutor = func(w io.Writer) build.Executor { return build.NewHostExecutor(w) }
)

// Linker variables - set via ldflags at build time
var (
	Version   = "dev"
	BuildDate = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:   "pcbuild",
	Short: "PyCoreOS build tool",
	Long: `pcbuild drives the external toolchain that turns the PyCoreOS sources
into a kernel image and a bootable ISO, and boots that ISO headless to
check that the kernel comes up.

Tools are looked up on PATH (cross tools first) unless overridden with
PYCOREOS_GCC, PYCOREOS_GXX, PYCOREOS_AS, PYCOREOS_LD,
PYCOREOS_GRUB_MKRESCUE or PYCOREOS_QEMU.`,
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
	rootCmd.PersistentFlags().Int("jobs", 1, "Compile units concurrently (1 = sequential)")
	rootCmd.PersistentFlags().Duration("boot-timeout", build.DefaultConfig().BootTimeout, "Headless boot test budget")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", output.FormatTable, "Output format: table, json")

	cli.RegisterLogFlags(rootCmd)

	_ = cli.BindPersistentFlag(rootCmd, "root", "root")
	_ = cli.BindPersistentFlag(rootCmd, "jobs", "build.jobs")
	_ = cli.BindPersistentFlag(rootCmd, "boot-timeout", "boot.timeout")

	settings.SetDefaults()

	for _, target := range build.ValidTargets() {
		rootCmd.AddCommand(newTargetCmd(target))
	}
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() error {
	if err := settings.Init(cfgFile); err != nil {
		return err
	}
	if err := output.ValidateFormat(outputFormat); err != nil {
		return err
	}

	log = cli.InitLogger("pcbuild")
	if viper.GetString("log.level") == "debug" {
		log.Debug("Configuration loaded", "file", viper.ConfigFileUsed())
	}
	settings.SetLoggers(log)
	return nil
}

// openJournal opens the run journal. A journal that cannot be opened is
// reported and skipped; it never blocks a build.
func openJournal() *journal.Database {
	cfg := settings.JournalConfig()
	if !cfg.Enabled {
		return nil
	}
	db, err := journal.Open(cfg)
	if err != nil {
		log.Warn("Run journal unavailable", "path", cfg.Path, "error", err)
		return nil
	}
	return db
}
