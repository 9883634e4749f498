package build

import (
	"fmt"
	"path/filepath"
)

// Profile names a fixed set of compiler flags shared by a family of units
type Profile string

const (
	ProfileBootAsm      Profile = "boot-asm"
	ProfileKernelC      Profile = "kernel-c"
	ProfileKernelCpp    Profile = "kernel-cpp"
	ProfileThirdParty   Profile = "third-party-upstream"
	ProfilePlatformShim Profile = "platform-shim"
)

// ValidProfiles returns every known profile
func ValidProfiles() []Profile {
	return []Profile{ProfileBootAsm, ProfileKernelC, ProfileKernelCpp, ProfileThirdParty, ProfilePlatformShim}
}

var kernelFlags = []string{
	"-ffreestanding",
	"-fno-pic",
	"-fno-pie",
	"-O3",
	"-DNDEBUG",
	"-fomit-frame-pointer",
	"-Wall",
	"-Wextra",
	"-I", "kernel/include",
	"-I", "drivers/include",
	"-I", "gui/include",
	"-I", "doom/include",
}

var cppOnlyFlags = []string{"-fno-exceptions", "-fno-rtti"}

// Shim headers in doom/include shadow the upstream ones
var thirdPartyFlags = []string{
	"-ffreestanding",
	"-fno-pic",
	"-fno-pie",
	"-O2",
	"-fno-strict-aliasing",
	"-DNORMALUNIX",
	"-fomit-frame-pointer",
	"-I", "doom/include",
	"-I", "third_party/doom",
	"-I", "kernel/include",
	"-I", "drivers/include",
	"-Wno-unused-parameter",
	"-Wno-unused-variable",
	"-Wno-unused-but-set-variable",
	"-Wno-missing-field-initializers",
	"-Wno-sign-compare",
	"-Wno-implicit-function-declaration",
	"-Wno-pointer-to-int-cast",
	"-Wno-int-to-pointer-cast",
	"-Wno-implicit-int",
	"-Wno-format",
	"-Wno-parentheses",
	"-w",
}

var platformShimFlags = []string{
	"-ffreestanding",
	"-fno-pic",
	"-fno-pie",
	"-O2",
	"-fno-strict-aliasing",
	"-DNORMALUNIX",
	"-fomit-frame-pointer",
	"-Wall",
	"-I", "doom/include",
	"-I", "third_party/doom",
	"-I", "kernel/include",
	"-I", "drivers/include",
	"-I", "gui/include",
	"-Wno-unused-parameter",
}

// ProfileFlags returns the flags for profile when compiled with compiler.
// -m32 leads the list when compiler is a generic host compiler.
func ProfileFlags(profile Profile, compiler string) ([]string, error) {
	var base []string
	switch profile {
	case ProfileKernelC:
		base = kernelFlags
	case ProfileKernelCpp:
		base = append(append([]string{}, kernelFlags...), cppOnlyFlags...)
	case ProfileThirdParty:
		base = thirdPartyFlags
	case ProfilePlatformShim:
		base = platformShimFlags
	case ProfileBootAsm:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown flag profile %q", profile)
	}

	flags := make([]string, 0, len(base)+1)
	if IsNativeCompiler(compiler) {
		flags = append(flags, "-m32")
	}
	return append(flags, base...), nil
}

// compilerRole returns the tool role that compiles units of profile
func compilerRole(profile Profile) Role {
	switch profile {
	case ProfileKernelCpp:
		return RoleCXX
	case ProfileBootAsm:
		return RoleAS
	default:
		return RoleCC
	}
}

// CompileCommand builds the full command line compiling u into objPath
func CompileCommand(tc *Toolchain, u Unit, objPath string) ([]string, error) {
	if u.Profile == ProfileBootAsm {
		return assembleCommand(tc, u, objPath)
	}

	tool, err := tc.Tool(compilerRole(u.Profile))
	if err != nil {
		return nil, err
	}
	flags, err := ProfileFlags(u.Profile, tool)
	if err != nil {
		return nil, err
	}

	cmd := append([]string{tool}, flags...)
	if u.Profile == ProfileKernelCpp {
		cmd = append(cmd, "-std=c++17")
	}
	return append(cmd, "-c", u.Source, "-o", objPath), nil
}

// assembleCommand uses the plain GNU assembler when it was resolved as "as";
// any other assembler is bypassed in favour of the C compiler driver.
func assembleCommand(tc *Toolchain, u Unit, objPath string) ([]string, error) {
	as, err := tc.Tool(RoleAS)
	if err != nil {
		return nil, err
	}
	if filepath.Base(as) == "as" {
		return []string{as, "--32", u.Source, "-o", objPath}, nil
	}

	cc, err := tc.Tool(RoleCC)
	if err != nil {
		return nil, err
	}
	return []string{cc, "-m32", "-c", u.Source, "-o", objPath}, nil
}
