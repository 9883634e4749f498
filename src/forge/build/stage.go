package build

import (
	"context"
	"fmt"
	"io"
)

// StageName identifies a pipeline stage
type StageName string

const (
	StageResolve StageName = "resolve"
	StageCompile StageName = "compile"
	StageLink    StageName = "link"
	StageIso     StageName = "iso"
	StageBoot    StageName = "boot"
	StageLaunch  StageName = "launch"
)

// Target is what a pipeline run produces
type Target string

const (
	TargetBuild Target = "build" // kernel image
	TargetIso   Target = "iso"   // kernel image + bootable ISO
	TargetRun   Target = "run"   // ISO + interactive emulator session
	TargetTest  Target = "test"  // ISO + headless boot verification
)

// ValidTargets returns the pipeline targets
func ValidTargets() []Target {
	return []Target{TargetBuild, TargetIso, TargetRun, TargetTest}
}

// ParseTarget validates a target name
func ParseTarget(s string) (Target, error) {
	for _, t := range ValidTargets() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target %q", s)
}

// Stage defines the interface for a single build pipeline stage
type Stage interface {
	// Name returns the stage name
	Name() StageName

	// Tools returns the roles this stage invokes
	Tools() []Role

	// Validate checks whether this stage can run given the current context
	Validate(ctx context.Context, sc *StageContext) error

	// Execute runs the stage, updating progress via the callback
	Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error
}

// ProgressFunc reports stage progress (0-100) with an optional message
type ProgressFunc func(percent int, message string)

// StageContext holds shared state passed through the pipeline
type StageContext struct {
	RunID     string
	Target    Target
	Workspace Workspace
	Config    Config
	Toolchain *Toolchain
	Executor  Executor
	Units     []Unit
	LogWriter io.Writer // Command echo and tool output

	// Interactive console, used by the launch stage only
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Populated by compile stage
	Artifacts *ArtifactSet

	// Populated by link stage
	KernelPath string
	KernelSize int64

	// Populated by iso stage
	IsoPath string

	// Populated by boot stage
	Boot *BootResult
}

// StagesFor returns the ordered stages of target
func StagesFor(target Target) ([]Stage, error) {
	stages := []Stage{NewCompileStage(), NewLinkStage()}
	switch target {
	case TargetBuild:
		return stages, nil
	case TargetIso:
		return append(stages, NewIsoStage()), nil
	case TargetRun:
		return append(stages, NewIsoStage(), NewLaunchStage()), nil
	case TargetTest:
		return append(stages, NewIsoStage(), NewBootStage()), nil
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}

// RequiredTools returns every role the stages and units need, in the
// canonical role order
func RequiredTools(stages []Stage, units []Unit) []Role {
	need := make(map[Role]bool)
	for _, s := range stages {
		for _, r := range s.Tools() {
			need[r] = true
		}
		if s.Name() == StageCompile {
			for _, r := range UnitRoles(units) {
				need[r] = true
			}
		}
	}

	var roles []Role
	for _, r := range AllRoles() {
		if need[r] {
			roles = append(roles, r)
		}
	}
	return roles
}
