package release

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/pycoreos/pcforge/src/common/errors"
	"github.com/pycoreos/pcforge/src/forge/storage"
)

// PublishPrefix is the key prefix bundles are published under
const PublishPrefix = "releases"

// Publisher uploads finished bundles to a storage backend
type Publisher struct {
	backend storage.Backend
	prefix  string
}

// NewPublisher creates a publisher writing under releases/<tag>/
func NewPublisher(backend storage.Backend) *Publisher {
	return &Publisher{backend: backend, prefix: PublishPrefix}
}

// Key returns the object key for a file of a release
func (p *Publisher) Key(tag, name string) string {
	return path.Join(p.prefix, tag, name)
}

// Publish replaces whatever is stored under the tag with the given files
// and returns the uploaded keys
func (p *Publisher) Publish(ctx context.Context, tag string, files []string) ([]string, error) {
	if err := p.backend.Ping(ctx); err != nil {
		return nil, errors.ErrPublish.WithMessagef("storage %s unavailable", p.backend.Location()).WithCause(err)
	}

	existing, err := p.backend.List(ctx, path.Join(p.prefix, tag)+"/")
	if err != nil {
		return nil, errors.ErrPublish.WithMessagef("failed to list %s", tag).WithCause(err)
	}
	for _, obj := range existing {
		if err := p.backend.Delete(ctx, obj.Key); err != nil {
			return nil, errors.ErrPublish.WithMessagef("failed to remove stale %s", obj.Key).WithCause(err)
		}
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := p.Key(tag, filepath.Base(file))
		if err := p.upload(ctx, key, file); err != nil {
			return keys, errors.ErrPublish.WithMessagef("failed to upload %s", filepath.Base(file)).WithCause(err)
		}
		log.Info("Published", "key", key, "storage", p.backend.Type())
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *Publisher) upload(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := p.backend.Upload(ctx, key, f, info.Size(), contentType(file)); err != nil {
		return err
	}

	stored, err := p.backend.GetInfo(ctx, key)
	if err != nil {
		return err
	}
	if stored.Size != info.Size() {
		return fmt.Errorf("stored size %d differs from %d", stored.Size, info.Size())
	}
	return nil
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".json":
		return "application/json"
	case ".gz":
		return "application/gzip"
	case ".xz":
		return "application/x-xz"
	case ".zst":
		return "application/zstd"
	case ".iso":
		return "application/x-iso9660-image"
	}
	if filepath.Base(file) == ManifestName {
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
