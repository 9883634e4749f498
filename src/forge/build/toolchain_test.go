package build

import (
	"fmt"
	"testing"

	"github.com/pycoreos/pcforge/src/common/errors"
)

func lookPathFor(installed ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", fmt.Errorf("%s: not found", name)
	}
}

func TestResolve_OverrideWins(t *testing.T) {
	for _, role := range AllRoles() {
		t.Run(string(role), func(t *testing.T) {
			spec := DefaultToolSpecs()[role]
			r := NewResolver(Overrides{role: "  /opt/cross/bin/custom  "}).
				WithLookPath(lookPathFor(spec.Primary, spec.Fallback))

			got, err := r.Resolve(role)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != "/opt/cross/bin/custom" {
				t.Errorf("expected trimmed override, got %q", got)
			}
		})
	}
}

func TestResolve_BlankOverrideIgnored(t *testing.T) {
	r := NewResolver(Overrides{RoleCC: " \t "}).WithLookPath(lookPathFor("gcc"))

	got, err := r.Resolve(RoleCC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "gcc" {
		t.Errorf("expected fallback gcc, got %q", got)
	}
}

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		role      Role
		installed []string
		want      string
	}{
		{"primary preferred", RoleCC, []string{"i686-elf-gcc", "gcc"}, "i686-elf-gcc"},
		{"fallback used", RoleCXX, []string{"g++"}, "g++"},
		{"iso fallback", RoleISO, []string{"grub2-mkrescue"}, "grub2-mkrescue"},
		{"emulator primary", RoleEmulator, []string{"qemu-system-i386", "qemu-system-x86_64"}, "qemu-system-i386"},
		{"emulator fallback", RoleEmulator, []string{"qemu-system-x86_64"}, "qemu-system-x86_64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(nil).WithLookPath(lookPathFor(tt.installed...))
			got, err := r.Resolve(tt.role)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%s) = %q, want %q", tt.role, got, tt.want)
			}
		})
	}
}

func TestResolve_NothingInstalled(t *testing.T) {
	for _, role := range AllRoles() {
		t.Run(string(role), func(t *testing.T) {
			r := NewResolver(nil).WithLookPath(noTools)
			_, err := r.Resolve(role)
			if !errors.Is(err, errors.ErrToolResolution) {
				t.Fatalf("expected ErrToolResolution, got %v", err)
			}
			if errors.GetExitCode(err) != errors.ExitFailure {
				t.Errorf("expected exit code 1, got %d", errors.GetExitCode(err))
			}
		})
	}
}

func TestResolve_UnknownRole(t *testing.T) {
	_, err := NewResolver(nil).WithLookPath(noTools).Resolve(Role("objcopy"))
	if !errors.Is(err, errors.ErrInternal) {
		t.Errorf("expected ErrInternal, got %v", err)
	}
}

func TestResolveAll(t *testing.T) {
	lookups := 0
	r := NewResolver(Overrides{RoleLD: "ld.bfd"}).WithLookPath(func(name string) (string, error) {
		lookups++
		return lookPathFor("gcc", "as")(name)
	})

	tc, err := r.ResolveAll([]Role{RoleCC, RoleAS, RoleLD, RoleCC})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// gcc: primary miss + fallback hit, as: primary miss + fallback hit
	if lookups != 4 {
		t.Errorf("expected 4 path lookups, got %d", lookups)
	}

	ld, err := tc.Tool(RoleLD)
	if err != nil || ld != "ld.bfd" {
		t.Errorf("expected ld.bfd, got %q (%v)", ld, err)
	}
	if tc.Has(RoleEmulator) {
		t.Error("emulator should not be resolved")
	}
	if _, err := tc.Tool(RoleEmulator); !errors.Is(err, errors.ErrInternal) {
		t.Errorf("expected ErrInternal for unresolved role, got %v", err)
	}
}

func TestResolveAll_StopsAtFirstFailure(t *testing.T) {
	r := NewResolver(nil).WithLookPath(lookPathFor("gcc"))
	_, err := r.ResolveAll([]Role{RoleCC, RoleEmulator})
	if !errors.Is(err, errors.ErrToolResolution) {
		t.Fatalf("expected ErrToolResolution, got %v", err)
	}
}

func TestOverrideEnvBindings(t *testing.T) {
	bindings := OverrideEnvBindings()
	want := map[string]string{
		"toolchain.gcc":  "PYCOREOS_GCC",
		"toolchain.gxx":  "PYCOREOS_GXX",
		"toolchain.as":   "PYCOREOS_AS",
		"toolchain.ld":   "PYCOREOS_LD",
		"toolchain.iso":  "PYCOREOS_GRUB_MKRESCUE",
		"toolchain.qemu": "PYCOREOS_QEMU",
	}
	if len(bindings) != len(want) {
		t.Fatalf("expected %d bindings, got %d", len(want), len(bindings))
	}
	for key, env := range want {
		if bindings[key] != env {
			t.Errorf("binding %s = %q, want %q", key, bindings[key], env)
		}
	}
}

func TestIsNativeCompiler(t *testing.T) {
	tests := []struct {
		tool string
		want bool
	}{
		{"gcc", true},
		{"g++", true},
		{"/usr/bin/gcc", true},
		{"clang", true},
		{"cc", true},
		{"i686-elf-gcc", false},
		{"/opt/cross/bin/i686-elf-g++", false},
		{"gcc-13", false},
	}

	for _, tt := range tests {
		if got := IsNativeCompiler(tt.tool); got != tt.want {
			t.Errorf("IsNativeCompiler(%q) = %v, want %v", tt.tool, got, tt.want)
		}
	}
}
