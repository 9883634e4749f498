package release

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Compression selects the archive compressor
type Compression string

const (
	CompressionGzip Compression = "gzip"
	CompressionXZ   Compression = "xz"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name; empty means gzip
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionGzip, nil
	case CompressionGzip, CompressionXZ, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression %q (expected gzip, xz or zstd)", s)
	}
}

// Extension returns the archive file extension
func (c Compression) Extension() string {
	switch c {
	case CompressionXZ:
		return ".tar.xz"
	case CompressionZstd:
		return ".tar.zst"
	default:
		return ".tar.gz"
	}
}

// ArchiveName returns the archive file name for a release tag
func ArchiveName(tag string, c Compression) string {
	return tag + "-bundle" + c.Extension()
}

func newCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip, "":
		// zero Header: no file name, no mtime
		return pgzip.NewWriter(w), nil
	case CompressionXZ:
		return xz.NewWriter(w)
	case CompressionZstd:
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}

// WriteArchive writes a compressed tarball of dir to archivePath. Entries
// are rooted at the base name of dir, walked in lexical order, owned by
// uid/gid 0 with no owner names, and stamped with mtime, so the same tree
// and mtime always produce the same bytes.
func WriteArchive(archivePath, dir string, c Compression, mtime time.Time) (err error) {
	root := filepath.Base(dir)
	mtime = mtime.UTC().Truncate(time.Second)

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), ".archive-*")
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	zw, err := newCompressor(tmp, c)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(root, rel))

		hdr := &tar.Header{
			Name:    name,
			ModTime: mtime,
			Uid:     0,
			Gid:     0,
		}
		switch {
		case d.IsDir():
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
			hdr.Mode = 0755
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			hdr.Typeflag = tar.TypeReg
			hdr.Mode = 0644
			hdr.Size = info.Size()
		default:
			return fmt.Errorf("unsupported file type in bundle: %s", rel)
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", name, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("failed to archive %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err = tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("failed to finish %s stream: %w", c, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err = os.Rename(tmpPath, archivePath); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

// OpenArchive returns a tar reader over an archive written by WriteArchive.
// The returned closer releases both the decompressor and the file.
func OpenArchive(archivePath string, c Compression) (*tar.Reader, io.Closer, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, err
	}

	var r io.Reader
	closers := closerFunc(f.Close)
	switch c {
	case CompressionGzip, "":
		gz, err := pgzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		r = gz
		closers = func() error { gz.Close(); return f.Close() }
	case CompressionXZ:
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		r = xr
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		r = zr
		closers = func() error { zr.Close(); return f.Close() }
	default:
		f.Close()
		return nil, nil, fmt.Errorf("unknown compression %q", c)
	}
	return tar.NewReader(r), closers, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
