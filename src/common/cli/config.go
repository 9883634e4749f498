// Package cli holds the Cobra and Viper plumbing shared by the pcforge tools.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/pycoreos/pcforge/src/common/logs"
	"github.com/pycoreos/pcforge/src/common/paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigOptions describes where a tool finds its configuration
type ConfigOptions struct {
	// File is an explicit config path (--config); it disables the search
	File string

	// FileEnv names a variable that may hold the config path when File is empty
	FileEnv string

	// Name is the config file base name, searched with a .yaml extension
	Name string

	// EnvPrefix maps keys to variables: boot.timeout -> PCFORGE_BOOT_TIMEOUT
	EnvPrefix string

	// SearchPaths are the directories searched in order
	SearchPaths []string
}

// DefaultConfigOptions searches the working directory, then the per-user
// and system pcforge directories
func DefaultConfigOptions(name, envPrefix string) ConfigOptions {
	return ConfigOptions{
		Name:        name,
		FileEnv:     envPrefix + "_CONFIG",
		EnvPrefix:   envPrefix,
		SearchPaths: []string{".", "~/.pcforge", "/etc/pcforge"},
	}
}

// configFile returns the explicit config path, if any
func (o ConfigOptions) configFile() string {
	if o.File != "" {
		return o.File
	}
	if o.FileEnv != "" {
		return os.Getenv(o.FileEnv)
	}
	return ""
}

// InitConfig points Viper at the config file and the environment. A missing
// file is fine when searching; an explicit file must exist and parse.
func InitConfig(opts ConfigOptions) error {
	if file := opts.configFile(); file != "" {
		viper.SetConfigFile(paths.Expand(file))
	} else {
		viper.SetConfigName(opts.Name)
		viper.SetConfigType("yaml")
		for _, dir := range opts.SearchPaths {
			viper.AddConfigPath(paths.Expand(dir))
		}
	}

	if opts.EnvPrefix != "" {
		viper.SetEnvPrefix(opts.EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// BindEnvKeys binds fixed variable names to keys, ignoring the env prefix
func BindEnvKeys(bindings map[string]string) error {
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", env, key, err)
		}
	}
	return nil
}

// RegisterConfigFlag adds --config to cmd
func RegisterConfigFlag(cmd *cobra.Command, cfgFile *string, defaultPath string) {
	cmd.PersistentFlags().StringVar(cfgFile, "config", "", fmt.Sprintf("config file (default: %s)", defaultPath))
}

// RegisterLogFlags adds --log-output and --log-level to cmd and every subcommand
func RegisterLogFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-output", string(logs.OutputAuto), "Log output destination (auto, stderr, stdout, journald)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	_ = BindPersistentFlag(cmd, "log-output", "log.output")
	_ = BindPersistentFlag(cmd, "log-level", "log.level")

	viper.SetDefault("log.output", string(logs.OutputAuto))
	viper.SetDefault("log.level", "info")
}

// BindPersistentFlag binds a persistent flag of cmd to a Viper key
func BindPersistentFlag(cmd *cobra.Command, flagName, key string) error {
	flag := cmd.PersistentFlags().Lookup(flagName)
	if flag == nil {
		return fmt.Errorf("unknown flag --%s", flagName)
	}
	return viper.BindPFlag(key, flag)
}

// InitLogger builds the tool logger from the log.* keys. Call it after InitConfig.
func InitLogger(prefix string) *logs.Logger {
	return logs.New(logs.Config{
		Output: logs.LogOutput(viper.GetString("log.output")),
		Level:  viper.GetString("log.level"),
		Prefix: prefix,
	})
}

// GetExpandedString returns the value of key with ~ expanded
func GetExpandedString(key string) string {
	return paths.Expand(viper.GetString(key))
}
