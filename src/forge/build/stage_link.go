package build

import (
	"context"
	"fmt"

	"github.com/pycoreos/pcforge/src/common/errors"
	"github.com/pycoreos/pcforge/src/common/paths"
)

// LinkStage links every object into the kernel image
type LinkStage struct{}

// NewLinkStage creates a new link stage
func NewLinkStage() *LinkStage {
	return &LinkStage{}
}

// Name returns the stage name
func (s *LinkStage) Name() StageName {
	return StageLink
}

// Tools returns the linker role
func (s *LinkStage) Tools() []Role {
	return []Role{RoleLD}
}

// Validate checks that compilation produced objects
func (s *LinkStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.Artifacts == nil || sc.Artifacts.Len() == 0 {
		return errors.ErrInternal.WithMessage("no objects to link - compile stage must run first")
	}
	return nil
}

// LinkCommand builds the linker command line. Objects keep their order.
func LinkCommand(ld, linkerScript, output string, objects []string) []string {
	cmd := []string{ld, "-T", linkerScript, "-nostdlib", "-m", "elf_i386", "-o", output}
	return append(cmd, objects...)
}

// Execute links the kernel image and checks it is non-empty
func (s *LinkStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	ld, err := sc.Toolchain.Tool(RoleLD)
	if err != nil {
		return err
	}

	kernel := sc.Workspace.BuildPath(sc.Config.KernelName)
	progress(0, fmt.Sprintf("Linking %d objects", sc.Artifacts.Len()))

	cmd := LinkCommand(ld, sc.Config.LinkerScript, kernel, sc.Artifacts.Paths())
	if err := sc.Executor.Run(ctx, RunOpts{
		Command: cmd,
		Dir:     sc.Workspace.Root,
		Stdout:  sc.LogWriter,
		Stderr:  sc.LogWriter,
	}); err != nil {
		return errors.ErrLink.WithMessagef("linking %s", sc.Config.KernelName).WithCause(err)
	}

	// a successful linker exit does not guarantee a usable image
	size, err := paths.NonEmptyFile(kernel)
	if err != nil {
		return errors.ErrMissingArtifact.WithMessage("kernel image missing or empty after link").WithCause(err)
	}

	sc.KernelPath = kernel
	sc.KernelSize = size
	progress(100, fmt.Sprintf("Built kernel: %s (%d bytes)", kernel, size))
	return nil
}
