package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pycoreos/pcforge/src/common/errors"
	"github.com/pycoreos/pcforge/src/common/paths"
	"github.com/pycoreos/pcforge/src/forge/build"
)

// Config holds bundling settings
type Config struct {
	// MetadataPath is release.yaml or a legacy release.h; empty searches
	// DefaultMetadataSources
	MetadataPath string

	// TagPrefix is joined to the version to name the bundle ("pycoreos" -> pycoreos-0.9.0)
	TagPrefix string

	// Name is the product name written to release.json
	Name string

	// Docs are root-relative files copied into the bundle when present
	Docs []string

	// Compression selects the archive format
	Compression Compression
}

// DefaultConfig returns the default bundling settings
func DefaultConfig() Config {
	return Config{
		TagPrefix: "pycoreos",
		Name:      "PyCoreOS",
		Docs: []string{
			"README.md",
			"CHANGELOG.md",
			"BETA_TESTING.md",
			"RELEASE_CHECKLIST.md",
		},
		Compression: CompressionGzip,
	}
}

// Metadata is the content of release.json
type Metadata struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Channel   string   `json:"channel"`
	Codename  string   `json:"codename"`
	BuiltUTC  string   `json:"built_utc"`
	Artifacts []string `json:"artifacts"`
}

// VerifyFunc builds and boot-verifies the image, returning the ISO path
type VerifyFunc func(ctx context.Context) (string, error)

// PipelineVerifier runs the test target of a build pipeline
func PipelineVerifier(p *build.Pipeline) VerifyFunc {
	return func(ctx context.Context) (string, error) {
		sc, err := p.Run(ctx, build.TargetTest)
		if err != nil {
			return "", err
		}
		return sc.IsoPath, nil
	}
}

// Result describes a finished bundle
type Result struct {
	Tag       string
	Dir       string
	Archive   string
	Metadata  Metadata
	Manifest  []ManifestEntry
	Published []string
}

// Bundler assembles release bundles
type Bundler struct {
	ws        build.Workspace
	cfg       Config
	verify    VerifyFunc
	publisher *Publisher
	now       func() time.Time
}

// NewBundler creates a bundler that calls verify before assembling anything
func NewBundler(ws build.Workspace, cfg Config, verify VerifyFunc) *Bundler {
	def := DefaultConfig()
	if cfg.TagPrefix == "" {
		cfg.TagPrefix = def.TagPrefix
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Compression == "" {
		cfg.Compression = def.Compression
	}
	return &Bundler{ws: ws, cfg: cfg, verify: verify, now: time.Now}
}

// WithPublisher uploads every finished bundle through p
func (b *Bundler) WithPublisher(p *Publisher) *Bundler {
	b.publisher = p
	return b
}

// WithClock overrides the build timestamp source
func (b *Bundler) WithClock(now func() time.Time) *Bundler {
	b.now = now
	return b
}

// Tag returns the bundle name for a version
func (b *Bundler) Tag(version string) string {
	return b.cfg.TagPrefix + "-" + version
}

// Bundle loads the release metadata, verifies the image and writes the
// bundle directory and archive. Any failure aborts without publishing.
func (b *Bundler) Bundle(ctx context.Context) (*Result, error) {
	metaPath, err := ResolveMetadataPath(b.ws.Root, b.cfg.MetadataPath)
	if err != nil {
		return nil, err
	}
	info, err := LoadInfo(metaPath)
	if err != nil {
		return nil, err
	}

	tag := b.Tag(info.Version)
	log.Info("Preparing release", "tag", tag, "channel", info.Channel, "codename", info.Codename)

	isoPath, err := b.verify(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := paths.NonEmptyFile(isoPath); err != nil {
		return nil, errors.ErrMissingArtifact.WithMessagef("verified image %s unusable", isoPath).WithCause(err)
	}

	res := &Result{Tag: tag, Dir: filepath.Join(b.ws.ReleasesDir, tag)}

	if err := b.prepareDir(res.Dir); err != nil {
		return nil, ioError("failed to prepare %s", res.Dir, err)
	}

	if err := paths.CopyFile(isoPath, filepath.Join(res.Dir, tag+".iso")); err != nil {
		return nil, ioError("failed to copy %s", isoPath, err)
	}

	for _, doc := range b.cfg.Docs {
		src := b.ws.Path(doc)
		if !paths.IsFile(src) {
			log.Debug("Skipping absent doc", "file", doc)
			continue
		}
		if err := paths.CopyFile(src, filepath.Join(res.Dir, filepath.Base(doc))); err != nil {
			return nil, ioError("failed to copy %s", doc, err)
		}
	}

	built := b.now().UTC().Truncate(time.Second)
	artifacts, err := listFiles(res.Dir)
	if err != nil {
		return nil, ioError("failed to list %s", res.Dir, err)
	}
	res.Metadata = Metadata{
		Name:      b.cfg.Name,
		Version:   info.Version,
		Channel:   info.Channel,
		Codename:  info.Codename,
		BuiltUTC:  built.Format(time.RFC3339),
		Artifacts: artifacts,
	}
	if err := writeMetadata(filepath.Join(res.Dir, MetadataName), res.Metadata); err != nil {
		return nil, ioError("failed to write %s", MetadataName, err)
	}

	res.Manifest, err = WriteManifest(res.Dir)
	if err != nil {
		return nil, ioError("failed to write %s", ManifestName, err)
	}

	res.Archive = filepath.Join(b.ws.ReleasesDir, ArchiveName(tag, b.cfg.Compression))
	if err := os.Remove(res.Archive); err != nil && !os.IsNotExist(err) {
		return nil, ioError("failed to remove %s", res.Archive, err)
	}
	if err := WriteArchive(res.Archive, res.Dir, b.cfg.Compression, built); err != nil {
		return nil, ioError("failed to archive %s", res.Dir, err)
	}
	log.Info("Release bundle ready", "archive", res.Archive, "files", len(res.Manifest)+1)

	if b.publisher != nil {
		res.Published, err = b.publisher.Publish(ctx, tag, []string{
			res.Archive,
			filepath.Join(res.Dir, ManifestName),
			filepath.Join(res.Dir, MetadataName),
		})
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// prepareDir destroys any previous bundle with the same tag
func (b *Bundler) prepareDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return paths.EnsureDirPath(dir)
}

func writeMetadata(path string, m Metadata) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ReadMetadata loads release.json from a bundle directory
func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataName))
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", MetadataName, err)
	}
	return &m, nil
}

func ioError(format, arg string, err error) error {
	return errors.ErrReleaseIO.WithMessagef(format, arg).WithCause(err)
}
