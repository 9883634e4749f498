package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeExecutor records commands and fakes their outputs: any "-o <path>"
// argument gets a small file, and emulator commands print serial.
type fakeExecutor struct {
	mu     sync.Mutex
	calls  [][]string
	serial string
	failOn func(cmd []string) error
	skip   map[string]bool // output base names never written
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{skip: make(map[string]bool)}
}

func (f *fakeExecutor) Run(ctx context.Context, opts RunOpts) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), opts.Command...))
	f.mu.Unlock()

	if f.failOn != nil {
		if err := f.failOn(opts.Command); err != nil {
			return err
		}
	}

	if strings.HasPrefix(filepath.Base(opts.Command[0]), "qemu") {
		if opts.Stdout != nil {
			io.WriteString(opts.Stdout, f.serial)
		}
		return nil
	}

	out := outputArg(opts.Command)
	if out == "" || f.skip[filepath.Base(out)] {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	return os.WriteFile(out, []byte(strings.Join(opts.Command[1:], " ")), 0644)
}

func (f *fakeExecutor) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func outputArg(cmd []string) string {
	for i := 0; i < len(cmd)-1; i++ {
		if cmd[i] == "-o" {
			return cmd[i+1]
		}
	}
	return ""
}

// testOverrides pins every role so no PATH lookup happens
func testOverrides() Overrides {
	return Overrides{
		RoleCC:       "i686-elf-gcc",
		RoleCXX:      "i686-elf-g++",
		RoleAS:       "as",
		RoleLD:       "i686-elf-ld",
		RoleISO:      "grub-mkrescue",
		RoleEmulator: "qemu-system-i386",
	}
}

func noTools(string) (string, error) {
	return "", fmt.Errorf("not found")
}

// newTestWorkspace creates a source tree with a bootloader config
func newTestWorkspace(t *testing.T) Workspace {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "boot", "grub", "grub.cfg"), "menuentry \"PyCoreOS\" {\n  multiboot /boot/pycoreos.bin\n}\n")

	ws, err := NewWorkspace(root, "", "", "")
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}
	return ws
}

func newTestPipeline(ws Workspace, exec Executor, overrides Overrides) *Pipeline {
	cfg := DefaultConfig()
	resolver := NewResolver(overrides).WithLookPath(noTools)
	return NewPipeline(ws, cfg, resolver, exec).WithLogWriter(io.Discard)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
