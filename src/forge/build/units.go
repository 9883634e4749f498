package build

import (
	"fmt"
	"strings"
)

// Unit is one source file compiled into one object file
type Unit struct {
	ID      string  // Key in the ArtifactSet
	Source  string  // Relative to the workspace root
	Object  string  // File name under the build dir
	Profile Profile // Flag profile
}

// upstreamSources are the DOOM sources under third_party/doom
var upstreamSources = []string{
	"am_map", "d_items", "d_main", "d_net", "doomdef",
	"doomstat", "dstrings", "f_finale", "f_wipe", "g_game",
	"hu_lib", "hu_stuff", "info", "m_argv", "m_bbox",
	"m_cheat", "m_fixed", "m_menu", "m_misc", "m_random",
	"m_swap", "p_ceilng", "p_doors", "p_enemy", "p_floor",
	"p_inter", "p_lights", "p_map", "p_maputl", "p_mobj",
	"p_plats", "p_pspr", "p_saveg", "p_setup", "p_sight",
	"p_spec", "p_switch", "p_telept", "p_tick", "p_user",
	"r_bsp", "r_data", "r_draw", "r_main", "r_plane",
	"r_segs", "r_sky", "r_things", "s_sound", "sounds",
	"st_lib", "st_stuff", "tables", "v_video", "w_wad",
	"wi_stuff", "z_zone",
}

// shimSources are the PyCoreOS platform layer sources under doom/src
var shimSources = []string{
	"libc_shim",
	"i_system_pcos",
	"i_video_pcos",
	"i_sound_pcos",
	"i_net_pcos",
	"i_main_pcos",
	"doom_bridge",
}

// DefaultUnits returns the complete ordered unit list of a kernel build.
// The order is the link order.
func DefaultUnits() []Unit {
	units := []Unit{
		{ID: "boot", Source: "boot/boot.s", Object: "boot.o", Profile: ProfileBootAsm},
		kernelUnit("console", "kernel/src/console.c", "console.o"),
		kernelUnit("filesystem", "kernel/src/filesystem.c", "filesystem.o"),
		kernelUnit("display", "kernel/src/display.c", "display.o"),
		kernelUnit("serial", "kernel/src/serial.c", "serial.o"),
		kernelUnit("release", "kernel/src/release.c", "release.o"),
		kernelUnit("timing", "kernel/src/timing.c", "timing.o"),
		kernelUnit("fs_persist", "kernel/src/fs_persist.c", "fs_persist.o"),
		kernelUnit("cli", "kernel/src/cli.c", "cli.o"),
		kernelUnit("interrupts", "kernel/src/interrupts.c", "interrupts.o"),
		kernelUnit("keyboard", "drivers/src/keyboard.c", "keyboard.o"),
		kernelUnit("mouse", "drivers/src/mouse.c", "mouse.o"),
		kernelUnit("ata", "drivers/src/ata.c", "ata.o"),
		kernelUnit("net", "drivers/src/net_rtl8139.c", "net_rtl8139.o"),
		kernelUnit("framebuffer", "drivers/src/framebuffer.c", "framebuffer.o"),
		kernelUnit("net_stack", "kernel/src/net_stack.c", "net_stack.o"),
		kernelUnit("font", "gui/src/font5x7.c", "font5x7.o"),
		kernelUnit("image_loader", "gui/src/image_loader.c", "image_loader.o"),
		kernelUnit("cursor", "gui/src/cursor_manager.c", "cursor_manager.o"),
		kernelUnit("desktop", "gui/src/desktop.c", "desktop.o"),
		{ID: "main", Source: "kernel/src/main.cpp", Object: "main.o", Profile: ProfileKernelCpp},
	}

	for _, name := range upstreamSources {
		units = append(units, Unit{
			ID:      "doom_" + name,
			Source:  "third_party/doom/" + name + ".c",
			Object:  "doom_" + name + ".o",
			Profile: ProfileThirdParty,
		})
	}
	for _, name := range shimSources {
		units = append(units, Unit{
			ID:      "doompal_" + name,
			Source:  "doom/src/" + name + ".c",
			Object:  "doompal_" + name + ".o",
			Profile: ProfilePlatformShim,
		})
	}
	return units
}

func kernelUnit(id, source, object string) Unit {
	return Unit{ID: id, Source: source, Object: object, Profile: ProfileKernelC}
}

// ValidateUnits rejects duplicate IDs or objects and unknown profiles
func ValidateUnits(units []Unit) error {
	if len(units) == 0 {
		return fmt.Errorf("no compilation units")
	}
	ids := make(map[string]bool, len(units))
	objects := make(map[string]bool, len(units))
	for _, u := range units {
		if u.ID == "" || u.Source == "" || u.Object == "" {
			return fmt.Errorf("incomplete compilation unit %+v", u)
		}
		if strings.ContainsAny(u.Object, `/\`) {
			return fmt.Errorf("unit %s: object %q must be a plain file name", u.ID, u.Object)
		}
		if ids[u.ID] {
			return fmt.Errorf("duplicate unit id %q", u.ID)
		}
		if objects[u.Object] {
			return fmt.Errorf("duplicate object file %q", u.Object)
		}
		if !knownProfile(u.Profile) {
			return fmt.Errorf("unit %s: unknown flag profile %q", u.ID, u.Profile)
		}
		ids[u.ID] = true
		objects[u.Object] = true
	}
	return nil
}

func knownProfile(p Profile) bool {
	for _, v := range ValidProfiles() {
		if v == p {
			return true
		}
	}
	return false
}

// UnitRoles returns the tool roles needed to compile units
func UnitRoles(units []Unit) []Role {
	seen := make(map[Role]bool)
	var roles []Role
	add := func(r Role) {
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	for _, u := range units {
		add(compilerRole(u.Profile))
		if u.Profile == ProfileBootAsm {
			// the assembler may be bypassed in favour of the C driver
			add(RoleCC)
		}
	}
	return roles
}
