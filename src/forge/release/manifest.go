package release

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pycoreos/pcforge/src/common/errors"
)

// Generated bundle files
const (
	ManifestName = "SHA256SUMS"
	MetadataName = "release.json"
)

// ManifestEntry is one "<sha256>  <name>" line of SHA256SUMS
type ManifestEntry struct {
	Checksum string
	Name     string
}

// String formats the entry the way sha256sum prints it
func (e ManifestEntry) String() string {
	return fmt.Sprintf("%s  %s", e.Checksum, e.Name)
}

// CalculateChecksum calculates the SHA256 checksum of a file
func CalculateChecksum(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// listFiles returns the names of the regular files directly inside dir,
// sorted by name
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// BuildManifest hashes every regular file in dir except the manifest itself
func BuildManifest(dir string) ([]ManifestEntry, error) {
	names, err := listFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	entries := make([]ManifestEntry, 0, len(names))
	for _, name := range names {
		if name == ManifestName {
			continue
		}
		sum, err := CalculateChecksum(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", name, err)
		}
		entries = append(entries, ManifestEntry{Checksum: sum, Name: name})
	}
	return entries, nil
}

// WriteManifest writes SHA256SUMS into dir and returns its entries
func WriteManifest(dir string) ([]ManifestEntry, error) {
	entries, err := BuildManifest(dir)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.String())
		sb.WriteString("\n")
	}

	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return entries, nil
}

// ReadManifest parses a SHA256SUMS file. Blank lines are ignored.
func ReadManifest(path string) ([]ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []ManifestEntry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		sum, name, ok := strings.Cut(line, "  ")
		if !ok || len(sum) != sha256.Size*2 || name == "" {
			return nil, fmt.Errorf("%s:%d: malformed manifest line", path, lineNo)
		}
		if _, err := hex.DecodeString(sum); err != nil {
			return nil, fmt.Errorf("%s:%d: invalid checksum: %w", path, lineNo, err)
		}
		entries = append(entries, ManifestEntry{Checksum: sum, Name: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// VerifyManifest recomputes every checksum listed in dir/SHA256SUMS and
// checks that no unlisted file was added to the bundle
func VerifyManifest(dir string) ([]ManifestEntry, error) {
	manifestPath := filepath.Join(dir, ManifestName)
	entries, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, errors.ErrManifestMismatch.WithMessagef("failed to read %s", manifestPath).WithCause(err)
	}

	listed := make(map[string]bool, len(entries))
	var problems []string
	for _, e := range entries {
		listed[e.Name] = true
		if e.Name != filepath.Base(e.Name) {
			problems = append(problems, e.Name+": not a bundle file")
			continue
		}
		sum, err := CalculateChecksum(filepath.Join(dir, e.Name))
		if err != nil {
			problems = append(problems, e.Name+": missing")
			continue
		}
		if sum != e.Checksum {
			problems = append(problems, e.Name+": checksum mismatch")
		}
	}

	names, err := listFiles(dir)
	if err != nil {
		return nil, errors.ErrManifestMismatch.WithMessagef("failed to list %s", dir).WithCause(err)
	}
	for _, name := range names {
		if name != ManifestName && !listed[name] {
			problems = append(problems, name+": not listed")
		}
	}

	if len(problems) > 0 {
		return entries, errors.ErrManifestMismatch.WithMessagef("%s: %s", dir, strings.Join(problems, "; "))
	}
	return entries, nil
}
