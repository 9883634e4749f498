package build

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pycoreos/pcforge/src/common/errors"
)

// BootState is a state of the headless boot test
type BootState string

const (
	BootNotStarted BootState = "not_started"
	BootRunning    BootState = "running"
	BootCompleted  BootState = "completed" // emulator exited before the deadline
	BootTimedOut   BootState = "timed_out" // deadline hit, emulator killed
	BootPassed     BootState = "passed"
	BootFailed     BootState = "failed"
)

// TailLength bounds the serial output carried by a boot failure
const TailLength = 400

// BootResult describes one headless boot test
type BootResult struct {
	State    BootState // BootCompleted or BootTimedOut
	Outcome  BootState // BootPassed or BootFailed
	Output   []byte    // Merged stdout and stderr, partial on timeout
	Duration time.Duration
	Marker   string
}

// Passed reports whether the marker was seen
func (r *BootResult) Passed() bool {
	return r.Outcome == BootPassed
}

// Tail returns the last TailLength characters of the captured output
func (r *BootResult) Tail() string {
	return Tail(r.Output, TailLength)
}

// BootError carries the diagnostic tail of a failed boot test
type BootError struct {
	Result *BootResult
}

func (e *BootError) Error() string {
	return "serial tail:\n" + e.Result.Tail()
}

// ContainsMarker reports whether marker appears anywhere in output
func ContainsMarker(output []byte, marker string) bool {
	return marker != "" && bytes.Contains(output, []byte(marker))
}

// Tail returns the last n characters of output. Invalid UTF-8 is replaced.
func Tail(output []byte, n int) string {
	s := strings.ToValidUTF8(string(output), "�")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// Classify turns a terminal run state and its captured output into a result
func Classify(state BootState, output []byte, marker string) *BootResult {
	res := &BootResult{State: state, Output: output, Marker: marker, Outcome: BootFailed}
	if ContainsMarker(output, marker) {
		res.Outcome = BootPassed
	}
	return res
}

// BootCommand returns the headless emulator command line. Serial goes to
// stdio; reboot and shutdown are disabled so a panic halts in place.
func BootCommand(qemu, iso, memory string) []string {
	return []string{
		qemu,
		"-cdrom", iso,
		"-m", memory,
		"-display", "none",
		"-monitor", "none",
		"-serial", "stdio",
		"-no-reboot",
		"-no-shutdown",
	}
}

// BootVerifier boots an ISO headless and looks for the boot marker
type BootVerifier struct {
	executor     Executor
	timeout      time.Duration
	marker       string
	memory       string
	stopOnMarker bool
	killGrace    time.Duration

	mu    sync.Mutex
	state BootState
}

// NewBootVerifier creates a verifier from the run config
func NewBootVerifier(executor Executor, cfg Config) *BootVerifier {
	cfg = cfg.withDefaults()
	return &BootVerifier{
		executor:     executor,
		timeout:      cfg.BootTimeout,
		marker:       cfg.BootMarker,
		memory:       cfg.BootMemory,
		stopOnMarker: cfg.StopOnMarker,
		killGrace:    cfg.KillGrace,
		state:        BootNotStarted,
	}
}

// State returns the current state
func (v *BootVerifier) State() BootState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *BootVerifier) transition(to BootState) {
	v.mu.Lock()
	from := v.state
	v.state = to
	v.mu.Unlock()
	log.Debug("Boot test state", "from", from, "to", to)
}

// Verify runs the emulator against iso from dir and classifies the run.
// A failed classification is returned as both a result and an
// ErrBootVerification error.
func (v *BootVerifier) Verify(ctx context.Context, qemu, iso, dir string) (*BootResult, error) {
	if st := v.State(); st != BootNotStarted {
		return nil, errors.ErrInternal.WithMessagef("boot verifier already used (state %s)", st)
	}

	runCtx, cancelTimeout := context.WithTimeout(ctx, v.timeout)
	defer cancelTimeout()
	stopCtx, stop := context.WithCancel(runCtx)
	defer stop()

	capture := newMarkerWriter(v.marker, func() {
		if v.stopOnMarker {
			log.Debug("Boot marker seen, stopping emulator")
			stop()
		}
	})

	v.transition(BootRunning)
	start := time.Now()
	err := v.executor.Run(stopCtx, RunOpts{
		Command:   BootCommand(qemu, iso, v.memory),
		Dir:       dir,
		Stdout:    capture,
		Stderr:    capture,
		WaitDelay: v.killGrace,
		KillGroup: true,
	})
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	state := BootCompleted
	switch {
	case capture.Seen() && v.stopOnMarker:
		// stopped on purpose
	case runCtx.Err() != nil:
		state = BootTimedOut
	case err != nil:
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			v.transition(BootFailed)
			return nil, errors.ErrBootVerification.WithMessage("failed to start emulator").WithCause(err)
		}
		// a nonzero emulator exit says nothing about the kernel
		log.Debug("Emulator exited non-zero", "code", exitErr.ExitCode)
	}
	v.transition(state)

	res := Classify(state, capture.Bytes(), v.marker)
	res.Duration = elapsed
	v.transition(res.Outcome)

	if !res.Passed() {
		how := "emulator exited"
		if state == BootTimedOut {
			how = fmt.Sprintf("timed out after %s", v.timeout)
		}
		return res, errors.ErrBootVerification.
			WithMessagef("marker %s not found (%s)", v.marker, how).
			WithCause(&BootError{Result: res})
	}
	return res, nil
}

// markerWriter accumulates output from concurrent writers and fires once
// when the marker first appears
type markerWriter struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	marker   []byte
	seen     bool
	onMarker func()
}

func newMarkerWriter(marker string, onMarker func()) *markerWriter {
	return &markerWriter{marker: []byte(marker), onMarker: onMarker}
}

func (w *markerWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	prev := w.buf.Len()
	w.buf.Write(p)
	fire := false
	if !w.seen && len(w.marker) > 0 {
		from := prev - len(w.marker) + 1
		if from < 0 {
			from = 0
		}
		if bytes.Contains(w.buf.Bytes()[from:], w.marker) {
			w.seen = true
			fire = true
		}
	}
	w.mu.Unlock()

	if fire && w.onMarker != nil {
		w.onMarker()
	}
	return len(p), nil
}

func (w *markerWriter) Seen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seen
}

func (w *markerWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.buf.Bytes()...)
}
