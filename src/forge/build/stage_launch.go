package build

import (
	"context"
	"os"

	"github.com/pycoreos/pcforge/src/common/errors"
	"golang.org/x/term"
)

// LaunchStage starts the emulator interactively. There is no timeout and
// no marker check; the session lasts until the user closes it.
type LaunchStage struct{}

// NewLaunchStage creates a new launch stage
func NewLaunchStage() *LaunchStage {
	return &LaunchStage{}
}

// Name returns the stage name
func (s *LaunchStage) Name() StageName {
	return StageLaunch
}

// Tools returns the emulator role
func (s *LaunchStage) Tools() []Role {
	return []Role{RoleEmulator}
}

// Validate checks that an ISO exists
func (s *LaunchStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.IsoPath == "" {
		return errors.ErrInternal.WithMessage("no ISO image - iso stage must run first")
	}
	return nil
}

// LaunchCommand returns the interactive emulator command line
func LaunchCommand(qemu, iso, memory string) []string {
	return []string{qemu, "-cdrom", iso, "-m", memory, "-vga", "std"}
}

// Execute runs the emulator attached to the console
func (s *LaunchStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	qemu, err := sc.Toolchain.Tool(RoleEmulator)
	if err != nil {
		return err
	}

	if f, ok := sc.Stdin.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		log.Warn("Standard input is not a terminal; the emulator window is the only way to interact")
	}

	progress(0, "Launching emulator")
	if err := sc.Executor.Run(ctx, RunOpts{
		Command: LaunchCommand(qemu, sc.IsoPath, sc.Config.RunMemory),
		Dir:     sc.Workspace.Root,
		Stdin:   sc.Stdin,
		Stdout:  sc.Stdout,
		Stderr:  sc.Stderr,
	}); err != nil {
		return errors.ErrEmulator.WithCause(err)
	}
	progress(100, "Emulator session ended")
	return nil
}
