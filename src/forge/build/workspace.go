package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pycoreos/pcforge/src/common/paths"
)

// Workspace locates everything a pipeline run reads or writes. All paths
// are absolute.
type Workspace struct {
	Root        string // Source tree root; external tools run with this as cwd
	BuildDir    string // Objects, kernel image and ISO
	StageDir    string // ISO staging tree
	ReleasesDir string // Release bundles and archives
}

// NewWorkspace creates a Workspace rooted at root. buildDir, stageDir and
// releasesDir may be relative; buildDir and stageDir resolve against root,
// releasesDir against buildDir.
func NewWorkspace(root, buildDir, stageDir, releasesDir string) (Workspace, error) {
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(paths.Expand(root))
	if err != nil {
		return Workspace{}, fmt.Errorf("failed to resolve workspace root %s: %w", root, err)
	}
	if buildDir == "" {
		buildDir = "build"
	}
	if stageDir == "" {
		stageDir = "iso_root"
	}
	if releasesDir == "" {
		releasesDir = "releases"
	}

	ws := Workspace{Root: absRoot}
	ws.BuildDir = paths.Resolve(absRoot, buildDir)
	ws.StageDir = paths.Resolve(absRoot, stageDir)
	ws.ReleasesDir = paths.Resolve(ws.BuildDir, releasesDir)
	return ws, nil
}

// Path resolves a path relative to the workspace root
func (w Workspace) Path(rel string) string {
	return paths.Resolve(w.Root, rel)
}

// ObjectPath returns where unit u writes its object file
func (w Workspace) ObjectPath(u Unit) string {
	return filepath.Join(w.BuildDir, u.Object)
}

// BuildPath returns a file path inside the build directory
func (w Workspace) BuildPath(name string) string {
	return filepath.Join(w.BuildDir, name)
}

// StagedKernelPath returns the kernel copy inside the ISO staging tree
func (w Workspace) StagedKernelPath(kernelName string) string {
	return filepath.Join(w.StageDir, "boot", kernelName)
}

// Clean unconditionally deletes the build directory tree and the staged
// kernel copy. It never touches the toolchain and succeeds when there is
// nothing to delete.
func Clean(ws Workspace, kernelName string) error {
	log.Info("Cleaning build state", "build_dir", ws.BuildDir)
	if err := os.RemoveAll(ws.BuildDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", ws.BuildDir, err)
	}

	staged := ws.StagedKernelPath(kernelName)
	if err := os.Remove(staged); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", staged, err)
	}
	return nil
}
