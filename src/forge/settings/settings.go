// Package settings turns the viper configuration shared by pcbuild and
// pcrelease into the explicit config structs the forge packages take.
package settings

import (
	"fmt"
	"strings"

	"github.com/pycoreos/pcforge/src/common/cli"
	"github.com/pycoreos/pcforge/src/common/logs"
	"github.com/pycoreos/pcforge/src/forge/build"
	"github.com/pycoreos/pcforge/src/forge/journal"
	"github.com/pycoreos/pcforge/src/forge/release"
	"github.com/pycoreos/pcforge/src/forge/storage"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every setting environment variable
const EnvPrefix = "PCFORGE"

// ConfigOptions returns the config search setup for a tool
func ConfigOptions(cfgFile string) cli.ConfigOptions {
	opts := cli.DefaultConfigOptions("pcforge", EnvPrefix)
	opts.File = cfgFile
	return opts
}

// Init reads the configuration file and environment and binds the fixed
// PYCOREOS_* tool override variables
func Init(cfgFile string) error {
	if err := cli.InitConfig(ConfigOptions(cfgFile)); err != nil {
		return err
	}
	return cli.BindEnvKeys(build.OverrideEnvBindings())
}

// SetDefaults registers the default of every key
func SetDefaults() {
	b := build.DefaultConfig()
	viper.SetDefault("root", ".")
	viper.SetDefault("build.dir", "build")
	viper.SetDefault("build.stage_dir", "iso_root")
	viper.SetDefault("build.releases_dir", "releases")
	viper.SetDefault("build.jobs", b.Jobs)
	viper.SetDefault("build.linker_script", b.LinkerScript)
	viper.SetDefault("build.kernel_name", b.KernelName)
	viper.SetDefault("build.iso_name", b.IsoName)
	viper.SetDefault("build.grub_config", b.GrubConfig)
	viper.SetDefault("build.payload", b.PayloadAsset)

	viper.SetDefault("boot.timeout", b.BootTimeout)
	viper.SetDefault("boot.marker", b.BootMarker)
	viper.SetDefault("boot.memory", b.BootMemory)
	viper.SetDefault("boot.stop_on_marker", b.StopOnMarker)
	viper.SetDefault("boot.kill_grace", b.KillGrace)
	viper.SetDefault("run.memory", b.RunMemory)

	j := journal.DefaultConfig()
	viper.SetDefault("journal.enabled", j.Enabled)
	viper.SetDefault("journal.path", j.Path)

	r := release.DefaultConfig()
	viper.SetDefault("release.metadata", "")
	viper.SetDefault("release.tag_prefix", r.TagPrefix)
	viper.SetDefault("release.name", r.Name)
	viper.SetDefault("release.docs", r.Docs)
	viper.SetDefault("release.compression", string(r.Compression))
	viper.SetDefault("release.publish.enabled", false)

	s := storage.DefaultConfig()
	viper.SetDefault("storage.type", s.Type)
	viper.SetDefault("storage.local.path", s.Local.BasePath)
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("storage.s3.path_style", true)
}

// Workspace returns the configured workspace
func Workspace() (build.Workspace, error) {
	return build.NewWorkspace(
		cli.GetExpandedString("root"),
		viper.GetString("build.dir"),
		viper.GetString("build.stage_dir"),
		viper.GetString("build.releases_dir"),
	)
}

// BuildConfig returns the pipeline configuration
func BuildConfig() (build.Config, error) {
	cfg := build.Config{
		Jobs:         viper.GetInt("build.jobs"),
		BootTimeout:  viper.GetDuration("boot.timeout"),
		BootMarker:   viper.GetString("boot.marker"),
		BootMemory:   viper.GetString("boot.memory"),
		RunMemory:    viper.GetString("run.memory"),
		StopOnMarker: viper.GetBool("boot.stop_on_marker"),
		KillGrace:    viper.GetDuration("boot.kill_grace"),
		LinkerScript: viper.GetString("build.linker_script"),
		KernelName:   viper.GetString("build.kernel_name"),
		IsoName:      viper.GetString("build.iso_name"),
		GrubConfig:   viper.GetString("build.grub_config"),
		PayloadAsset: viper.GetString("build.payload"),
	}
	if cfg.Jobs < 1 {
		return cfg, fmt.Errorf("build.jobs must be at least 1, got %d", cfg.Jobs)
	}
	if cfg.BootTimeout <= 0 {
		return cfg, fmt.Errorf("boot.timeout must be positive, got %s", viper.GetString("boot.timeout"))
	}
	return cfg, nil
}

// Overrides returns the explicit tool overrides, read once. A PYCOREOS_*
// variable that is blank after trimming does not hide a toolchain.<role>
// entry of the config file.
func Overrides() build.Overrides {
	overrides := build.Overrides{}
	var file *viper.Viper
	for role, spec := range build.DefaultToolSpecs() {
		v := strings.TrimSpace(viper.GetString(spec.ConfigKey()))
		if v == "" {
			if file == nil {
				file = configFileOnly()
			}
			v = strings.TrimSpace(file.GetString(spec.ConfigKey()))
		}
		if v != "" {
			overrides[role] = v
		}
	}
	return overrides
}

// configFileOnly reads the config file in use without env or flag layers
func configFileOnly() *viper.Viper {
	v := viper.New()
	if path := viper.ConfigFileUsed(); path != "" {
		v.SetConfigFile(path)
		// already parsed once by Init; a failure here leaves v empty
		_ = v.ReadInConfig()
	}
	return v
}

// JournalConfig returns the run journal configuration
func JournalConfig() journal.Config {
	return journal.Config{
		Enabled: viper.GetBool("journal.enabled"),
		Path:    viper.GetString("journal.path"),
	}
}

// ReleaseConfig returns the bundling configuration
func ReleaseConfig() (release.Config, error) {
	compression, err := release.ParseCompression(viper.GetString("release.compression"))
	if err != nil {
		return release.Config{}, err
	}
	return release.Config{
		MetadataPath: viper.GetString("release.metadata"),
		TagPrefix:    viper.GetString("release.tag_prefix"),
		Name:         viper.GetString("release.name"),
		Docs:         viper.GetStringSlice("release.docs"),
		Compression:  compression,
	}, nil
}

// PublishEnabled reports whether bundles are uploaded after bundling
func PublishEnabled() bool {
	return viper.GetBool("release.publish.enabled")
}

// StorageConfig returns the publish backend configuration
func StorageConfig() storage.Config {
	return storage.Config{
		Type: viper.GetString("storage.type"),
		Local: storage.LocalConfig{
			BasePath: viper.GetString("storage.local.path"),
		},
		S3: storage.S3Config{
			Endpoint:        viper.GetString("storage.s3.endpoint"),
			Region:          viper.GetString("storage.s3.region"),
			Bucket:          viper.GetString("storage.s3.bucket"),
			AccessKeyID:     viper.GetString("storage.s3.access_key"),
			SecretAccessKey: viper.GetString("storage.s3.secret_key"),
			UsePathStyle:    viper.GetBool("storage.s3.path_style"),
		},
	}
}

// SetLoggers hands logger l to every forge package
func SetLoggers(l *logs.Logger) {
	build.SetLogger(l)
	release.SetLogger(l)
	journal.SetLogger(l)
}
