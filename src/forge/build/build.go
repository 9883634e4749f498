// Package build drives the PyCoreOS kernel image pipeline: toolchain
// resolution, per-unit compilation, linking, ISO assembly and the headless
// boot test. It never compiles anything itself; every step is an external
// tool invoked through an Executor.
package build

import (
	"time"

	"github.com/pycoreos/pcforge/src/common/logs"
)

var log = logs.NewDefault()

// SetLogger sets the logger for the build package
func SetLogger(l *logs.Logger) {
	if l != nil {
		log = l
	}
}

// Config holds the tunables of a pipeline run. It is built once at the
// entry point and passed down unchanged.
type Config struct {
	Jobs         int           // Compile graph concurrency (1 = strictly sequential)
	BootTimeout  time.Duration // Wall-clock budget for the headless boot test
	BootMarker   string        // Literal the kernel writes to serial on successful init
	BootMemory   string        // Guest memory for the headless boot test
	RunMemory    string        // Guest memory for interactive runs
	StopOnMarker bool          // Terminate the emulator as soon as the marker is seen
	KillGrace    time.Duration // How long to wait for output pipes after a kill
	LinkerScript string        // Memory-layout descriptor, relative to the workspace root
	KernelName   string        // Kernel image file name in the build dir
	IsoName      string        // Bootable image file name in the build dir
	GrubConfig   string        // Bootloader config source, relative to the workspace root
	PayloadAsset string        // Optional payload asset, relative to the workspace root
}

// DefaultConfig returns the reference harness configuration
func DefaultConfig() Config {
	return Config{
		Jobs:         1,
		BootTimeout:  20 * time.Second,
		BootMarker:   "PYCOREOS_BOOT_OK",
		BootMemory:   "256M",
		RunMemory:    "1024M",
		StopOnMarker: false,
		KillGrace:    2 * time.Second,
		LinkerScript: "boot/linker.ld",
		KernelName:   "pycoreos.bin",
		IsoName:      "pycoreos.iso",
		GrubConfig:   "boot/grub/grub.cfg",
		PayloadAsset: "assets/DOOM1.WAD",
	}
}

// withDefaults fills zero fields from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Jobs <= 0 {
		c.Jobs = def.Jobs
	}
	if c.BootTimeout <= 0 {
		c.BootTimeout = def.BootTimeout
	}
	if c.BootMarker == "" {
		c.BootMarker = def.BootMarker
	}
	if c.BootMemory == "" {
		c.BootMemory = def.BootMemory
	}
	if c.RunMemory == "" {
		c.RunMemory = def.RunMemory
	}
	if c.KillGrace <= 0 {
		c.KillGrace = def.KillGrace
	}
	if c.LinkerScript == "" {
		c.LinkerScript = def.LinkerScript
	}
	if c.KernelName == "" {
		c.KernelName = def.KernelName
	}
	if c.IsoName == "" {
		c.IsoName = def.IsoName
	}
	if c.GrubConfig == "" {
		c.GrubConfig = def.GrubConfig
	}
	if c.PayloadAsset == "" {
		c.PayloadAsset = def.PayloadAsset
	}
	return c
}
