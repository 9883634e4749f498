package build

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pycoreos/pcforge/src/common/errors"
)

func TestHostExecutor_EchoAndOutput(t *testing.T) {
	script := writeScript(t, "echo compiled $1")

	var logBuf bytes.Buffer
	e := NewHostExecutor(&logBuf)
	if err := e.Run(context.Background(), RunOpts{Command: []string{script, "console.c"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := logBuf.String()
	if !strings.HasPrefix(out, "+ "+script+" console.c\n") {
		t.Errorf("expected command echo first, got %q", out)
	}
	if !strings.Contains(out, "compiled console.c") {
		t.Errorf("expected tool output forwarded, got %q", out)
	}
}

func TestHostExecutor_ExitError(t *testing.T) {
	script := writeScript(t, "echo 'console.c:3: error: expected ;' >&2\nexit 4")

	err := NewHostExecutor(nil).Run(context.Background(), RunOpts{Command: []string{script}})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.ExitCode != 4 {
		t.Errorf("expected exit code 4, got %d", exitErr.ExitCode)
	}
	if !strings.Contains(exitErr.Stderr, "expected ;") {
		t.Errorf("expected stderr captured, got %q", exitErr.Stderr)
	}
}

func TestHostExecutor_NoCommand(t *testing.T) {
	if err := NewHostExecutor(nil).Run(context.Background(), RunOpts{}); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(8)
	b.Write([]byte("0123456789"))
	b.Write([]byte("ab"))
	if got := b.String(); got != "456789ab" {
		t.Errorf("expected last 8 bytes, got %q", got)
	}
}
