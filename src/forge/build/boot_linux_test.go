//go:build linux

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pycoreos/pcforge/src/common/errors"
)

// processGone reports whether pid has exited; zombies waiting for a reaper count as gone
func processGone(pid int) bool {
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}
	// pid (comm) state ...
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) > 0 && (fields[0] == "Z" || fields[0] == "X")
}

func TestBootVerifier_TimeoutKillsWrapperChildren(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "emulator.pid")
	// a wrapper that forks the emulator instead of exec'ing it
	script := writeScript(t, fmt.Sprintf("sleep 47.123 &\necho $! > %s\necho boot sequence start\nwait", pidFile))

	cfg := DefaultConfig()
	cfg.BootTimeout = 300 * time.Millisecond
	cfg.KillGrace = 3 * time.Second

	start := time.Now()
	res, err := NewBootVerifier(NewHostExecutor(nil), cfg).Verify(context.Background(), script, "x.iso", "")
	elapsed := time.Since(start)

	if !errors.Is(err, errors.ErrBootVerification) {
		t.Fatalf("expected ErrBootVerification, got %v", err)
	}
	if res == nil || res.State != BootTimedOut {
		t.Fatalf("expected a timed out run, got %+v", res)
	}
	if elapsed >= cfg.BootTimeout+cfg.KillGrace {
		t.Errorf("verification waited out the kill grace: %s", elapsed)
	}

	raw, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("wrapper did not record the emulator pid: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("bad pid %q: %v", raw, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !processGone(pid) {
		if time.Now().After(deadline) {
			_ = killLeftover(pid)
			t.Fatalf("emulator process %d survived the timeout", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func killLeftover(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
