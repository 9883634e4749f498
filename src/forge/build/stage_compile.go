package build

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/pycoreos/pcforge/src/common/errors"
	"github.com/pycoreos/pcforge/src/common/paths"
)

// CompileStage compiles every unit into an object file in the build dir
type CompileStage struct{}

// NewCompileStage creates a new compile stage
func NewCompileStage() *CompileStage {
	return &CompileStage{}
}

// Name returns the stage name
func (s *CompileStage) Name() StageName {
	return StageCompile
}

// Tools returns nothing; the roles depend on the unit list
func (s *CompileStage) Tools() []Role {
	return nil
}

// Validate checks whether this stage can run
func (s *CompileStage) Validate(ctx context.Context, sc *StageContext) error {
	if err := ValidateUnits(sc.Units); err != nil {
		return errors.ErrInternal.WithMessage("invalid unit list").WithCause(err)
	}
	for _, role := range UnitRoles(sc.Units) {
		if !sc.Toolchain.Has(role) {
			return errors.ErrInternal.WithMessagef("tool role %s not resolved", role)
		}
	}
	return nil
}

// Execute compiles all units
func (s *CompileStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	progress(0, fmt.Sprintf("Compiling %d units", len(sc.Units)))

	if err := paths.EnsureDirPath(sc.Workspace.BuildDir); err != nil {
		return errors.ErrCompile.WithMessage("failed to create build directory").WithCause(err)
	}

	graph, err := NewCompileGraph(sc.Units, sc.Config.Jobs)
	if err != nil {
		return errors.ErrInternal.WithMessage("invalid unit list").WithCause(err)
	}

	var done atomic.Int32
	total := graph.Len()
	artifacts, err := graph.Run(ctx, func(ctx context.Context, u Unit) (string, error) {
		obj, err := s.compileUnit(ctx, sc, u)
		if err != nil {
			return "", err
		}
		n := int(done.Add(1))
		progress(n*100/total, fmt.Sprintf("Compiled %s", u.ID))
		return obj, nil
	})
	if err != nil {
		return err
	}

	sc.Artifacts = artifacts
	progress(100, "Compilation complete")
	return nil
}

func (s *CompileStage) compileUnit(ctx context.Context, sc *StageContext, u Unit) (string, error) {
	obj := sc.Workspace.ObjectPath(u)
	cmd, err := CompileCommand(sc.Toolchain, u, obj)
	if err != nil {
		return "", err
	}

	if err := sc.Executor.Run(ctx, RunOpts{
		Command: cmd,
		Dir:     sc.Workspace.Root,
		Stdout:  sc.LogWriter,
		Stderr:  sc.LogWriter,
	}); err != nil {
		return "", errors.ErrCompile.WithMessagef("unit %s (%s)", u.ID, u.Source).WithCause(err)
	}

	if _, err := paths.NonEmptyFile(obj); err != nil {
		return "", errors.ErrMissingArtifact.WithMessagef("object for unit %s", u.ID).WithCause(err)
	}
	return obj, nil
}
