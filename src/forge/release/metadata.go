// Package release turns a verified boot image into a versioned release
// bundle: a directory holding the image, docs, release.json and a
// SHA256SUMS manifest, plus a compressed archive of that directory.
package release

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pycoreos/pcforge/src/common/errors"
	"github.com/pycoreos/pcforge/src/common/logs"
	"github.com/pycoreos/pcforge/src/common/paths"
	"gopkg.in/yaml.v3"
)

var log = logs.NewDefault()

// SetLogger sets the logger for the release package
func SetLogger(l *logs.Logger) {
	if l != nil {
		log = l
	}
}

// DefaultMetadataSources are tried in order when no metadata path is configured
var DefaultMetadataSources = []string{
	"release.yaml",
	"kernel/include/kernel/release.h",
}

// Header macro names carrying the release identity
const (
	defineVersion  = "PYCOREOS_VERSION"
	defineChannel  = "PYCOREOS_CHANNEL"
	defineCodename = "PYCOREOS_CODENAME"
)

// Info identifies a release
type Info struct {
	Version  string `yaml:"version"`
	Channel  string `yaml:"channel"`
	Codename string `yaml:"codename"`
}

// Validate checks that every field is present and that the version can
// name a directory
func (i *Info) Validate() error {
	missing := []string{}
	if i.Version == "" {
		missing = append(missing, "version")
	}
	if i.Channel == "" {
		missing = append(missing, "channel")
	}
	if i.Codename == "" {
		missing = append(missing, "codename")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	if strings.ContainsAny(i.Version, `/\`) || i.Version == "." || i.Version == ".." {
		return fmt.Errorf("version %q is not usable as a file name", i.Version)
	}
	return nil
}

// ResolveMetadataPath returns configured resolved against root, or the
// first default source that exists
func ResolveMetadataPath(root, configured string) (string, error) {
	if configured != "" {
		return paths.Resolve(root, configured), nil
	}
	for _, candidate := range DefaultMetadataSources {
		p := paths.Resolve(root, candidate)
		if paths.IsFile(p) {
			return p, nil
		}
	}
	return "", errors.ErrReleaseMetadata.WithMessagef("no release metadata found (tried %s)",
		strings.Join(DefaultMetadataSources, ", "))
}

// LoadInfo reads release metadata from path. Files ending in .h are read
// as C headers with #define NAME "value" lines; anything else is YAML.
func LoadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrReleaseMetadata.WithMessagef("failed to read %s", path).WithCause(err)
	}

	var info *Info
	if filepath.Ext(path) == ".h" {
		info, err = parseHeader(string(data))
	} else {
		info, err = parseYAML(data)
	}
	if err != nil {
		return nil, errors.ErrReleaseMetadata.WithMessagef("could not parse release metadata from %s", path).WithCause(err)
	}
	if err := info.Validate(); err != nil {
		return nil, errors.ErrReleaseMetadata.WithMessagef("invalid release metadata in %s", path).WithCause(err)
	}

	log.Debug("Loaded release metadata", "path", path, "version", info.Version, "channel", info.Channel)
	return info, nil
}

func parseYAML(data []byte) (*Info, error) {
	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	info.Version = strings.TrimSpace(info.Version)
	info.Channel = strings.TrimSpace(info.Channel)
	info.Codename = strings.TrimSpace(info.Codename)
	return &info, nil
}

func parseHeader(content string) (*Info, error) {
	info := &Info{}
	fields := []struct {
		name string
		dst  *string
	}{
		{defineVersion, &info.Version},
		{defineChannel, &info.Channel},
		{defineCodename, &info.Codename},
	}
	for _, f := range fields {
		v, err := headerDefine(content, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return info, nil
}

// headerDefine extracts the quoted value of #define name "value"
func headerDefine(content, name string) (string, error) {
	re := regexp.MustCompile(`(?m)^\s*#define\s+` + regexp.QuoteMeta(name) + `\s+"([^"]+)"\s*$`)
	m := re.FindStringSubmatch(content)
	if m == nil {
		return "", fmt.Errorf("could not parse %s", name)
	}
	return m[1], nil
}
