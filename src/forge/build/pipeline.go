package build

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pycoreos/pcforge/src/common/errors"
)

// RunStatus is the final status of a pipeline run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunInfo describes a pipeline run as it starts
type RunInfo struct {
	ID        string
	Target    Target
	Root      string
	StartedAt time.Time
}

// RunSummary describes a finished pipeline run
type RunSummary struct {
	ID          string
	Status      RunStatus
	Stage       StageName // Failing stage, or the last stage on success
	Error       string
	KernelSize  int64
	Artifact    string    // ISO path, else kernel path
	BootState   BootState // Empty unless the boot stage ran
	CompletedAt time.Time
}

// Recorder receives run lifecycle events. Errors are logged and never
// fail the run.
type Recorder interface {
	RunStarted(ctx context.Context, info RunInfo) error
	StageStarted(ctx context.Context, runID string, stage StageName) error
	RunFinished(ctx context.Context, summary RunSummary) error
}

type nopRecorder struct{}

func (nopRecorder) RunStarted(context.Context, RunInfo) error             { return nil }
func (nopRecorder) StageStarted(context.Context, string, StageName) error { return nil }
func (nopRecorder) RunFinished(context.Context, RunSummary) error         { return nil }

// Pipeline runs the stages of a target against one workspace
type Pipeline struct {
	ws       Workspace
	cfg      Config
	resolver *Resolver
	executor Executor
	units    []Unit
	recorder Recorder

	logWriter io.Writer
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
}

// NewPipeline creates a pipeline over the default unit list
func NewPipeline(ws Workspace, cfg Config, resolver *Resolver, executor Executor) *Pipeline {
	return &Pipeline{
		ws:        ws,
		cfg:       cfg.withDefaults(),
		resolver:  resolver,
		executor:  executor,
		units:     DefaultUnits(),
		recorder:  nopRecorder{},
		logWriter: os.Stdout,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

// WithUnits replaces the unit list
func (p *Pipeline) WithUnits(units []Unit) *Pipeline {
	p.units = units
	return p
}

// WithRecorder sets the run journal
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	if r != nil {
		p.recorder = r
	}
	return p
}

// WithLogWriter sets where tool output goes
func (p *Pipeline) WithLogWriter(w io.Writer) *Pipeline {
	p.logWriter = w
	return p
}

// WithConsole sets the streams of the interactive emulator
func (p *Pipeline) WithConsole(stdin io.Reader, stdout, stderr io.Writer) *Pipeline {
	p.stdin, p.stdout, p.stderr = stdin, stdout, stderr
	return p
}

// Config returns the effective run configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Workspace returns the pipeline workspace
func (p *Pipeline) Workspace() Workspace {
	return p.ws
}

// Run executes target. Every tool the target needs is resolved before the
// first stage starts; each stage is a hard gate for the next.
func (p *Pipeline) Run(ctx context.Context, target Target) (*StageContext, error) {
	stages, err := StagesFor(target)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	sc := &StageContext{
		RunID:     uuid.New().String(),
		Target:    target,
		Workspace: p.ws,
		Config:    p.cfg,
		Executor:  p.executor,
		Units:     p.units,
		LogWriter: p.logWriter,
		Stdin:     p.stdin,
		Stdout:    p.stdout,
		Stderr:    p.stderr,
	}

	started := time.Now()
	log.Info("Starting pipeline", "run_id", sc.RunID, "target", target, "root", p.ws.Root)
	p.record("run start", p.recorder.RunStarted(ctx, RunInfo{
		ID:        sc.RunID,
		Target:    target,
		Root:      p.ws.Root,
		StartedAt: started.UTC(),
	}))

	p.record("stage start", p.recorder.StageStarted(ctx, sc.RunID, StageResolve))
	tc, err := p.resolver.ResolveAll(RequiredTools(stages, p.units))
	if err != nil {
		return nil, p.fail(ctx, sc, StageResolve, err)
	}
	sc.Toolchain = tc
	log.Debug("Resolved toolchain", "tools", tc.String())

	for _, stage := range stages {
		name := stage.Name()
		if err := ctx.Err(); err != nil {
			return nil, p.fail(ctx, sc, name, err)
		}

		p.record("stage start", p.recorder.StageStarted(ctx, sc.RunID, name))
		log.Info("Starting stage", "stage", name)
		stageStart := time.Now()

		if err := stage.Validate(ctx, sc); err != nil {
			return sc, p.fail(ctx, sc, name, err)
		}

		progress := func(percent int, message string) {
			if message != "" {
				log.Debug(message, "stage", name, "percent", percent)
			}
		}
		if err := stage.Execute(ctx, sc, progress); err != nil {
			return sc, p.fail(ctx, sc, name, err)
		}

		log.Info("Stage completed", "stage", name, "duration", time.Since(stageStart).Round(time.Millisecond))
	}

	summary := p.summary(sc, RunSucceeded, stages[len(stages)-1].Name(), "")
	p.record("run finish", p.recorder.RunFinished(ctx, summary))
	log.Info("Pipeline completed", "run_id", sc.RunID, "target", target, "duration", time.Since(started).Round(time.Millisecond))
	return sc, nil
}

func (p *Pipeline) fail(ctx context.Context, sc *StageContext, stage StageName, err error) error {
	log.Error("Pipeline failed", "run_id", sc.RunID, "stage", stage, "code", errors.GetCode(err))
	summary := p.summary(sc, RunFailed, stage, err.Error())
	// the run context may already be cancelled; the journal still gets the outcome
	p.record("run finish", p.recorder.RunFinished(context.WithoutCancel(ctx), summary))
	return err
}

func (p *Pipeline) summary(sc *StageContext, status RunStatus, stage StageName, errMsg string) RunSummary {
	s := RunSummary{
		ID:          sc.RunID,
		Status:      status,
		Stage:       stage,
		Error:       errMsg,
		KernelSize:  sc.KernelSize,
		CompletedAt: time.Now().UTC(),
	}
	switch {
	case sc.IsoPath != "":
		s.Artifact = sc.IsoPath
	case sc.KernelPath != "":
		s.Artifact = sc.KernelPath
	}
	if sc.Boot != nil {
		s.BootState = sc.Boot.Outcome
	}
	return s
}

func (p *Pipeline) record(event string, err error) {
	if err != nil {
		log.Warn("Failed to record run event", "event", event, "error", err)
	}
}
