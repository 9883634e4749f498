package release

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pycoreos/pcforge/src/forge/build"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// newTestWorkspace creates a source tree with release.yaml and a README
func newTestWorkspace(t *testing.T, version string) build.Workspace {
	t.Helper()
	root := t.TempDir()
	ws, err := build.NewWorkspace(root, "", "", "")
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}
	writeFile(t, filepath.Join(root, "release.yaml"),
		"version: "+version+"\nchannel: beta\ncodename: Ember\n")
	writeFile(t, filepath.Join(root, "README.md"), "# PyCoreOS\n")
	return ws
}

// fakeVerify writes an ISO into the build dir and reports it verified
func fakeVerify(ws build.Workspace, calls *int) VerifyFunc {
	return func(ctx context.Context) (string, error) {
		if calls != nil {
			*calls++
		}
		iso := ws.BuildPath("pycoreos.iso")
		if err := os.MkdirAll(ws.BuildDir, 0755); err != nil {
			return "", err
		}
		return iso, os.WriteFile(iso, []byte("CD001 pycoreos image"), 0644)
	}
}
