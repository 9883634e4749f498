package release

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func makeBundleDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pycoreos-1.0")
	writeFile(t, filepath.Join(dir, "pycoreos-1.0.iso"), "image bytes")
	writeFile(t, filepath.Join(dir, "release.json"), "{}\n")
	writeFile(t, filepath.Join(dir, ManifestName), "sums\n")
	return dir
}

func readEntries(t *testing.T, archive string, c Compression) []*tar.Header {
	t.Helper()
	tr, closer, err := OpenArchive(archive, c)
	if err != nil {
		t.Fatalf("OpenArchive failed: %v", err)
	}
	defer closer.Close()

	var headers []*tar.Header
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read archive: %v", err)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			t.Fatalf("failed to read entry %s: %v", hdr.Name, err)
		}
		headers = append(headers, hdr)
	}
	return headers
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in   string
		want Compression
		ext  string
	}{
		{"", CompressionGzip, ".tar.gz"},
		{"gzip", CompressionGzip, ".tar.gz"},
		{"XZ", CompressionXZ, ".tar.xz"},
		{" zstd ", CompressionZstd, ".tar.zst"},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if err != nil {
			t.Fatalf("ParseCompression(%q) failed: %v", tt.in, err)
		}
		if got != tt.want || got.Extension() != tt.ext {
			t.Errorf("ParseCompression(%q) = %s (%s), expected %s (%s)", tt.in, got, got.Extension(), tt.want, tt.ext)
		}
	}
	if _, err := ParseCompression("bzip2"); err == nil {
		t.Error("expected error for unsupported compression")
	}

	if name := ArchiveName("pycoreos-0.9.0-beta", CompressionGzip); name != "pycoreos-0.9.0-beta-bundle.tar.gz" {
		t.Errorf("unexpected archive name %s", name)
	}
}

func TestWriteArchive_RootedAndNormalized(t *testing.T) {
	for _, c := range []Compression{CompressionGzip, CompressionXZ, CompressionZstd} {
		t.Run(string(c), func(t *testing.T) {
			dir := makeBundleDir(t)
			archive := filepath.Join(t.TempDir(), ArchiveName("pycoreos-1.0", c))

			if err := WriteArchive(archive, dir, c, fixedTime); err != nil {
				t.Fatalf("WriteArchive failed: %v", err)
			}

			headers := readEntries(t, archive, c)
			want := []string{
				"pycoreos-1.0/",
				"pycoreos-1.0/" + ManifestName,
				"pycoreos-1.0/pycoreos-1.0.iso",
				"pycoreos-1.0/release.json",
			}
			if len(headers) != len(want) {
				t.Fatalf("expected %d entries, got %d", len(want), len(headers))
			}
			for i, hdr := range headers {
				if hdr.Name != want[i] {
					t.Errorf("entry %d: expected %s, got %s", i, want[i], hdr.Name)
				}
				if hdr.Uid != 0 || hdr.Gid != 0 || hdr.Uname != "" || hdr.Gname != "" {
					t.Errorf("%s: owner not normalized", hdr.Name)
				}
				if !hdr.ModTime.Equal(fixedTime.Truncate(time.Second)) {
					t.Errorf("%s: expected mtime %s, got %s", hdr.Name, fixedTime, hdr.ModTime)
				}
			}
			if headers[2].Size != int64(len("image bytes")) || headers[2].Mode != 0644 {
				t.Errorf("unexpected iso entry %+v", headers[2])
			}
		})
	}
}

func TestWriteArchive_Deterministic(t *testing.T) {
	for _, c := range []Compression{CompressionGzip, CompressionXZ, CompressionZstd} {
		t.Run(string(c), func(t *testing.T) {
			dir := makeBundleDir(t)
			out := t.TempDir()
			first := filepath.Join(out, "first"+c.Extension())
			second := filepath.Join(out, "second"+c.Extension())

			if err := WriteArchive(first, dir, c, fixedTime); err != nil {
				t.Fatalf("first archive failed: %v", err)
			}
			// file mtimes must not leak into the archive
			later := fixedTime.AddDate(1, 0, 0)
			os.Chtimes(filepath.Join(dir, "release.json"), later, later)
			if err := WriteArchive(second, dir, c, fixedTime); err != nil {
				t.Fatalf("second archive failed: %v", err)
			}

			a, _ := os.ReadFile(first)
			b, _ := os.ReadFile(second)
			if !bytes.Equal(a, b) {
				t.Error("archives of the same tree and timestamp differ")
			}
		})
	}
}

func TestWriteArchive_FailureLeavesNothing(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "x.tar.gz")
	if err := WriteArchive(archive, filepath.Join(t.TempDir(), "absent"), CompressionGzip, fixedTime); err == nil {
		t.Fatal("expected error for missing directory")
	}
	entries, _ := os.ReadDir(filepath.Dir(archive))
	if len(entries) != 0 {
		t.Errorf("expected no leftovers, found %d entries", len(entries))
	}
}
