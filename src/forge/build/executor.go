package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pycoreos/pcforge/src/common/errors"
)

// RunOpts configures a single external process invocation
type RunOpts struct {
	Command   []string
	Dir       string
	Env       map[string]string // Added on top of the host environment
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	WaitDelay time.Duration // Bound on pipe draining after the context kills the process

	// KillGroup runs the command in its own process group and kills the
	// whole group on cancellation, so wrapper scripts cannot leave their
	// children running
	KillGroup bool
}

// Executor runs external tools. Tests substitute a fake.
type Executor interface {
	Run(ctx context.Context, opts RunOpts) error
}

// ExitError is returned when a process ran but exited non-zero
type ExitError struct {
	Command  []string
	ExitCode int
	Stderr   string // Tail of the captured stderr
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command[0], e.ExitCode)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

// HostExecutor runs commands directly on the host
type HostExecutor struct {
	logger io.Writer // Echo of commands and tool output; nil discards
}

// NewHostExecutor creates a host executor. Each command line is echoed to
// logger before it runs, and tool output is forwarded there unless the
// caller supplies its own writers.
func NewHostExecutor(logger io.Writer) *HostExecutor {
	return &HostExecutor{logger: logger}
}

// Run executes the command and waits for it
func (e *HostExecutor) Run(ctx context.Context, opts RunOpts) error {
	if len(opts.Command) == 0 {
		return fmt.Errorf("no command specified")
	}

	if e.logger != nil {
		fmt.Fprintf(e.logger, "+ %s\n", strings.Join(opts.Command, " "))
	}

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	cmd.Env = os.Environ()
	for k, v := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	cmd.Stdin = opts.Stdin
	if opts.KillGroup {
		killProcessGroup(cmd)
	}
	if opts.WaitDelay > 0 {
		cmd.WaitDelay = opts.WaitDelay
	}

	stderr := newTailBuffer(stderrTail)
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	} else if e.logger != nil {
		cmd.Stdout = e.logger
	}

	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(stderr, opts.Stderr)
	} else if e.logger != nil {
		cmd.Stderr = io.MultiWriter(stderr, e.logger)
	} else {
		cmd.Stderr = stderr
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if ctx.Err() == nil && errors.As(err, &exitErr) {
			return &ExitError{
				Command:  opts.Command,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return fmt.Errorf("failed to run %s: %w", opts.Command[0], err)
	}

	return nil
}

const stderrTail = 4096

// tailBuffer keeps only the last max bytes written to it
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
