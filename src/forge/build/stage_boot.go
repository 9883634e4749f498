package build

import (
	"context"
	"fmt"
	"time"

	"github.com/pycoreos/pcforge/src/common/errors"
)

// BootStage runs the headless boot test against the assembled ISO
type BootStage struct{}

// NewBootStage creates a new boot stage
func NewBootStage() *BootStage {
	return &BootStage{}
}

// Name returns the stage name
func (s *BootStage) Name() StageName {
	return StageBoot
}

// Tools returns the emulator role
func (s *BootStage) Tools() []Role {
	return []Role{RoleEmulator}
}

// Validate checks that an ISO exists
func (s *BootStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.IsoPath == "" {
		return errors.ErrInternal.WithMessage("no ISO image - iso stage must run first")
	}
	return nil
}

// Execute boots the ISO and asserts the marker
func (s *BootStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	qemu, err := sc.Toolchain.Tool(RoleEmulator)
	if err != nil {
		return err
	}

	progress(0, fmt.Sprintf("Booting %s headless (timeout %s)", sc.Config.IsoName, sc.Config.BootTimeout))
	verifier := NewBootVerifier(sc.Executor, sc.Config)
	res, err := verifier.Verify(ctx, qemu, sc.IsoPath, sc.Workspace.Root)
	sc.Boot = res
	if err != nil {
		return err
	}

	log.Info("Kernel headless boot test passed", "state", res.State, "duration", res.Duration.Round(time.Millisecond))
	progress(100, "Boot marker found")
	return nil
}
