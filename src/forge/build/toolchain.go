package build

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pycoreos/pcforge/src/common/errors"
)

// Role is a logical external tool the pipeline invokes
type Role string

const (
	RoleCC       Role = "gcc"
	RoleCXX      Role = "gxx"
	RoleAS       Role = "as"
	RoleLD       Role = "ld"
	RoleISO      Role = "iso"
	RoleEmulator Role = "qemu"
)

// AllRoles returns every tool role in resolution order
func AllRoles() []Role {
	return []Role{RoleCC, RoleCXX, RoleAS, RoleLD, RoleISO, RoleEmulator}
}

// ToolSpec describes how one role is located
type ToolSpec struct {
	Role     Role
	EnvVar   string // Explicit override variable
	Primary  string // Dedicated cross tool, preferred
	Fallback string // Generic host tool
}

// ConfigKey returns the viper key that carries the role's override
func (s ToolSpec) ConfigKey() string {
	return "toolchain." + string(s.Role)
}

// DefaultToolSpecs returns the fixed role table
func DefaultToolSpecs() map[Role]ToolSpec {
	return map[Role]ToolSpec{
		RoleCC:       {Role: RoleCC, EnvVar: "PYCOREOS_GCC", Primary: "i686-elf-gcc", Fallback: "gcc"},
		RoleCXX:      {Role: RoleCXX, EnvVar: "PYCOREOS_GXX", Primary: "i686-elf-g++", Fallback: "g++"},
		RoleAS:       {Role: RoleAS, EnvVar: "PYCOREOS_AS", Primary: "i686-elf-as", Fallback: "as"},
		RoleLD:       {Role: RoleLD, EnvVar: "PYCOREOS_LD", Primary: "i686-elf-ld", Fallback: "ld"},
		RoleISO:      {Role: RoleISO, EnvVar: "PYCOREOS_GRUB_MKRESCUE", Primary: "grub-mkrescue", Fallback: "grub2-mkrescue"},
		RoleEmulator: {Role: RoleEmulator, EnvVar: "PYCOREOS_QEMU", Primary: "qemu-system-i386", Fallback: "qemu-system-x86_64"},
	}
}

// OverrideEnvBindings maps each role's config key to its override variable
func OverrideEnvBindings() map[string]string {
	bindings := make(map[string]string)
	for _, spec := range DefaultToolSpecs() {
		bindings[spec.ConfigKey()] = spec.EnvVar
	}
	return bindings
}

// Overrides holds explicit per-role executables. Values are trimmed on use;
// an empty value means no override.
type Overrides map[Role]string

// Resolver picks the executable for each role: override, then primary on
// PATH, then fallback on PATH. It only performs path lookups.
type Resolver struct {
	specs     map[Role]ToolSpec
	overrides Overrides
	lookPath  func(string) (string, error)
}

// NewResolver creates a Resolver over the default role table
func NewResolver(overrides Overrides) *Resolver {
	return &Resolver{
		specs:     DefaultToolSpecs(),
		overrides: overrides,
		lookPath:  exec.LookPath,
	}
}

// WithLookPath replaces the PATH lookup function
func (r *Resolver) WithLookPath(fn func(string) (string, error)) *Resolver {
	r.lookPath = fn
	return r
}

// Resolve returns the executable for role
func (r *Resolver) Resolve(role Role) (string, error) {
	spec, ok := r.specs[role]
	if !ok {
		return "", errors.ErrInternal.WithMessagef("unknown tool role %q", role)
	}

	if v := strings.TrimSpace(r.overrides[role]); v != "" {
		log.Debug("Using tool override", "role", role, "tool", v)
		return v, nil
	}

	for _, name := range []string{spec.Primary, spec.Fallback} {
		if name == "" {
			continue
		}
		if _, err := r.lookPath(name); err == nil {
			log.Debug("Resolved tool", "role", role, "tool", name)
			return name, nil
		}
	}

	return "", errors.ErrToolResolution.WithMessagef(
		"missing %s tool: tried %s and %s (set %s to override)",
		role, spec.Primary, spec.Fallback, spec.EnvVar)
}

// ResolveAll resolves each role once, in order, and freezes the result
func (r *Resolver) ResolveAll(roles []Role) (*Toolchain, error) {
	tools := make(map[Role]string, len(roles))
	for _, role := range roles {
		if _, done := tools[role]; done {
			continue
		}
		tool, err := r.Resolve(role)
		if err != nil {
			return nil, err
		}
		tools[role] = tool
	}
	return &Toolchain{tools: tools}, nil
}

// Toolchain is the immutable role to executable mapping for one run
type Toolchain struct {
	tools map[Role]string
}

// NewToolchain builds a Toolchain from an explicit mapping
func NewToolchain(tools map[Role]string) *Toolchain {
	cp := make(map[Role]string, len(tools))
	for k, v := range tools {
		cp[k] = v
	}
	return &Toolchain{tools: cp}
}

// Tool returns the executable for role, or an error when the role was not
// resolved for this run
func (t *Toolchain) Tool(role Role) (string, error) {
	tool, ok := t.tools[role]
	if !ok {
		return "", errors.ErrInternal.WithMessagef("tool role %q was not resolved for this run", role)
	}
	return tool, nil
}

// Has reports whether role was resolved
func (t *Toolchain) Has(role Role) bool {
	_, ok := t.tools[role]
	return ok
}

// String renders the mapping for logs
func (t *Toolchain) String() string {
	var parts []string
	for _, role := range AllRoles() {
		if tool, ok := t.tools[role]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", role, tool))
		}
	}
	return strings.Join(parts, " ")
}

// nativeCompilers are generic host compilers that need -m32 to target i386
var nativeCompilers = map[string]bool{
	"gcc":     true,
	"g++":     true,
	"cc":      true,
	"c++":     true,
	"clang":   true,
	"clang++": true,
}

// IsNativeCompiler reports whether tool is a generic host compiler rather
// than a dedicated cross compiler
func IsNativeCompiler(tool string) bool {
	return nativeCompilers[filepath.Base(tool)]
}
