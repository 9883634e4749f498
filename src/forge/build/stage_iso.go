package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pycoreos/pcforge/src/common/errors"
	"github.com/pycoreos/pcforge/src/common/paths"
)

// PlaceholderPayload is staged when the real payload asset is absent
var PlaceholderPayload = []byte("PWAD\x00\x00\x00\x00PyCoreOS placeholder WAD. Replace assets/DOOM1.WAD for real content.\n")

// IsoStage stages the kernel, bootloader config and payload, then packages
// the staging tree into a bootable ISO
type IsoStage struct{}

// NewIsoStage creates a new ISO stage
func NewIsoStage() *IsoStage {
	return &IsoStage{}
}

// Name returns the stage name
func (s *IsoStage) Name() StageName {
	return StageIso
}

// Tools returns the ISO packager role
func (s *IsoStage) Tools() []Role {
	return []Role{RoleISO}
}

// Validate checks that a kernel image exists
func (s *IsoStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.KernelPath == "" {
		return errors.ErrInternal.WithMessage("no kernel image - link stage must run first")
	}
	return nil
}

// Execute assembles the ISO
func (s *IsoStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	iso, err := sc.Toolchain.Tool(RoleISO)
	if err != nil {
		return err
	}

	progress(0, "Staging boot tree")
	if err := StageBootTree(sc.Workspace, sc.Config, sc.KernelPath); err != nil {
		return err
	}

	isoPath := sc.Workspace.BuildPath(sc.Config.IsoName)
	progress(50, "Packaging ISO")
	if err := sc.Executor.Run(ctx, RunOpts{
		Command: []string{iso, "-o", isoPath, sc.Workspace.StageDir},
		Dir:     sc.Workspace.Root,
		Stdout:  sc.LogWriter,
		Stderr:  sc.LogWriter,
	}); err != nil {
		return errors.ErrImage.WithMessagef("packaging %s", sc.Config.IsoName).WithCause(err)
	}

	if _, err := paths.NonEmptyFile(isoPath); err != nil {
		return errors.ErrMissingArtifact.WithMessage("ISO image missing or empty").WithCause(err)
	}

	sc.IsoPath = isoPath
	progress(100, fmt.Sprintf("Built ISO: %s", isoPath))
	return nil
}

// StageBootTree lays out <stage>/boot with the kernel, grub/grub.cfg and
// the payload asset. A missing payload is replaced by PlaceholderPayload.
func StageBootTree(ws Workspace, cfg Config, kernelPath string) error {
	bootDir := filepath.Join(ws.StageDir, "boot")
	if err := paths.EnsureDirPath(filepath.Join(bootDir, "grub")); err != nil {
		return errors.ErrImage.WithMessage("failed to create staging tree").WithCause(err)
	}

	if err := paths.CopyFile(kernelPath, filepath.Join(bootDir, cfg.KernelName)); err != nil {
		return errors.ErrImage.WithMessage("failed to stage kernel image").WithCause(err)
	}

	grubSrc := ws.Path(cfg.GrubConfig)
	grubCfg, err := os.ReadFile(grubSrc)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.ErrMissingArtifact.WithMessagef("bootloader config %s", cfg.GrubConfig).WithCause(err)
		}
		return errors.ErrImage.WithMessage("failed to read bootloader config").WithCause(err)
	}
	if err := os.WriteFile(filepath.Join(bootDir, "grub", "grub.cfg"), grubCfg, 0644); err != nil {
		return errors.ErrImage.WithMessage("failed to stage bootloader config").WithCause(err)
	}

	payloadSrc := ws.Path(cfg.PayloadAsset)
	payloadDst := filepath.Join(bootDir, filepath.Base(cfg.PayloadAsset))
	if paths.IsFile(payloadSrc) {
		if err := paths.CopyFile(payloadSrc, payloadDst); err != nil {
			return errors.ErrImage.WithMessage("failed to stage payload asset").WithCause(err)
		}
		return nil
	}

	log.Warn("Payload asset not found, staging placeholder", "asset", cfg.PayloadAsset)
	if err := os.WriteFile(payloadDst, PlaceholderPayload, 0644); err != nil {
		return errors.ErrImage.WithMessage("failed to write placeholder payload").WithCause(err)
	}
	return nil
}
