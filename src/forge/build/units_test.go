package build

import (
	"reflect"
	"strings"
	"testing"
)

func TestDefaultUnits(t *testing.T) {
	units := DefaultUnits()

	if err := ValidateUnits(units); err != nil {
		t.Fatalf("default units invalid: %v", err)
	}

	// boot + 19 kernel C units + main + 57 upstream + 7 shim
	if len(units) != 85 {
		t.Fatalf("expected 85 units, got %d", len(units))
	}

	if units[0].ID != "boot" || units[0].Profile != ProfileBootAsm {
		t.Errorf("expected boot asm first, got %+v", units[0])
	}
	if units[20].ID != "main" || units[20].Profile != ProfileKernelCpp {
		t.Errorf("expected main.cpp at index 20, got %+v", units[20])
	}
	if units[21].ID != "doom_am_map" || units[21].Source != "third_party/doom/am_map.c" {
		t.Errorf("expected first upstream unit am_map, got %+v", units[21])
	}
	last := units[len(units)-1]
	if last.ID != "doompal_doom_bridge" || last.Object != "doompal_doom_bridge.o" || last.Profile != ProfilePlatformShim {
		t.Errorf("unexpected last unit %+v", last)
	}

	renamed := map[string]string{
		"net":    "net_rtl8139.o",
		"font":   "font5x7.o",
		"cursor": "cursor_manager.o",
	}
	for _, u := range units {
		if obj, ok := renamed[u.ID]; ok && u.Object != obj {
			t.Errorf("unit %s: expected object %s, got %s", u.ID, obj, u.Object)
		}
	}
}

func TestValidateUnits(t *testing.T) {
	good := Unit{ID: "a", Source: "a.c", Object: "a.o", Profile: ProfileKernelC}

	tests := []struct {
		name    string
		units   []Unit
		wantErr string
	}{
		{"empty", nil, "no compilation units"},
		{"duplicate id", []Unit{good, {ID: "a", Source: "b.c", Object: "b.o", Profile: ProfileKernelC}}, "duplicate unit id"},
		{"duplicate object", []Unit{good, {ID: "b", Source: "b.c", Object: "a.o", Profile: ProfileKernelC}}, "duplicate object"},
		{"unknown profile", []Unit{{ID: "x", Source: "x.c", Object: "x.o", Profile: "rust"}}, "unknown flag profile"},
		{"nested object", []Unit{{ID: "x", Source: "x.c", Object: "sub/x.o", Profile: ProfileKernelC}}, "plain file name"},
		{"incomplete", []Unit{{ID: "x", Profile: ProfileKernelC}}, "incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUnits(tt.units)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProfileFlags_Native32BitFlag(t *testing.T) {
	for _, p := range []Profile{ProfileKernelC, ProfileKernelCpp, ProfileThirdParty, ProfilePlatformShim} {
		native, err := ProfileFlags(p, "gcc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if native[0] != "-m32" {
			t.Errorf("%s with gcc: expected -m32 first, got %v", p, native[:2])
		}

		cross, err := ProfileFlags(p, "i686-elf-gcc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if contains(cross, "-m32") {
			t.Errorf("%s with cross compiler must not add -m32", p)
		}
		if !reflect.DeepEqual(native[1:], cross) {
			t.Errorf("%s: profiles differ beyond -m32", p)
		}
	}
}

func TestProfileFlags_Disjoint(t *testing.T) {
	c, _ := ProfileFlags(ProfileKernelC, "i686-elf-gcc")
	cpp, _ := ProfileFlags(ProfileKernelCpp, "i686-elf-g++")
	upstream, _ := ProfileFlags(ProfileThirdParty, "i686-elf-gcc")
	shim, _ := ProfileFlags(ProfilePlatformShim, "i686-elf-gcc")

	if contains(c, "-fno-rtti") || !contains(cpp, "-fno-rtti") || !contains(cpp, "-fno-exceptions") {
		t.Error("only the C++ profile may disable exceptions and RTTI")
	}
	if !contains(c, "-O3") || !contains(upstream, "-O2") || !contains(shim, "-O2") {
		t.Error("unexpected optimisation levels")
	}
	if !contains(upstream, "-w") || contains(shim, "-w") {
		t.Error("only upstream code suppresses all warnings")
	}
	if !contains(shim, "gui/include") || contains(upstream, "gui/include") {
		t.Error("gui headers belong to the shim profile only")
	}
	for _, flags := range [][]string{c, cpp, upstream, shim} {
		if !contains(flags, "-ffreestanding") || !contains(flags, "-fno-pic") {
			t.Errorf("profile missing freestanding flags: %v", flags)
		}
	}

	if _, err := ProfileFlags("fortran", "gcc"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestCompileCommand(t *testing.T) {
	tc := NewToolchain(map[Role]string{
		RoleCC:  "gcc",
		RoleCXX: "i686-elf-g++",
		RoleAS:  "as",
	})

	cmd, err := CompileCommand(tc, Unit{ID: "console", Source: "kernel/src/console.c", Object: "console.o", Profile: ProfileKernelC}, "/b/console.o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd[0] != "gcc" || cmd[1] != "-m32" {
		t.Errorf("unexpected prefix %v", cmd[:2])
	}
	tail := cmd[len(cmd)-4:]
	if !reflect.DeepEqual(tail, []string{"-c", "kernel/src/console.c", "-o", "/b/console.o"}) {
		t.Errorf("unexpected tail %v", tail)
	}

	cmd, err = CompileCommand(tc, Unit{ID: "main", Source: "kernel/src/main.cpp", Object: "main.o", Profile: ProfileKernelCpp}, "/b/main.o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd[0] != "i686-elf-g++" || contains(cmd, "-m32") || !contains(cmd, "-std=c++17") {
		t.Errorf("unexpected C++ command %v", cmd)
	}

	cmd, err = CompileCommand(tc, Unit{ID: "boot", Source: "boot/boot.s", Object: "boot.o", Profile: ProfileBootAsm}, "/b/boot.o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cmd, []string{"as", "--32", "boot/boot.s", "-o", "/b/boot.o"}) {
		t.Errorf("unexpected assemble command %v", cmd)
	}
}

func TestCompileCommand_CrossAssemblerUsesDriver(t *testing.T) {
	tc := NewToolchain(map[Role]string{
		RoleCC: "i686-elf-gcc",
		RoleAS: "i686-elf-as",
	})
	cmd, err := CompileCommand(tc, Unit{ID: "boot", Source: "boot/boot.s", Object: "boot.o", Profile: ProfileBootAsm}, "/b/boot.o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"i686-elf-gcc", "-m32", "-c", "boot/boot.s", "-o", "/b/boot.o"}
	if !reflect.DeepEqual(cmd, want) {
		t.Errorf("expected %v, got %v", want, cmd)
	}
}

func TestUnitRoles(t *testing.T) {
	roles := UnitRoles(DefaultUnits())
	for _, r := range []Role{RoleAS, RoleCC, RoleCXX} {
		found := false
		for _, got := range roles {
			if got == r {
				found = true
			}
		}
		if !found {
			t.Errorf("expected role %s in %v", r, roles)
		}
	}
	if len(roles) != 3 {
		t.Errorf("expected 3 roles, got %v", roles)
	}
}
