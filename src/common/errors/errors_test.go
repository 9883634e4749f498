package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := ErrToolResolution.WithMessage("qemu-system-i386 or qemu-system-x86_64")
	got := err.Error()
	want := "toolchain.not_found: qemu-system-i386 or qemu-system-x86_64"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := ErrCompile.WithCause(fmt.Errorf("exit status 1"))
	if !strings.HasSuffix(wrapped.Error(), ": exit status 1") {
		t.Errorf("expected cause in message, got %q", wrapped.Error())
	}
}

func TestError_IsMatchesDomainAndCode(t *testing.T) {
	derived := ErrLink.WithMessagef("linker %s failed", "ld")
	wrapped := fmt.Errorf("stage link: %w", derived)

	if !errors.Is(wrapped, ErrLink) {
		t.Error("expected wrapped derived error to match ErrLink")
	}
	if errors.Is(wrapped, ErrCompile) {
		t.Error("link error must not match ErrCompile")
	}
}

func TestError_UnwrapCause(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrReleaseIO.WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"taxonomy", ErrBootVerification, ExitFailure},
		{"wrapped taxonomy", fmt.Errorf("x: %w", ErrMissingArtifact), ExitFailure},
		{"internal", ErrInternal, ExitInternal},
		{"plain", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsExpected(t *testing.T) {
	if !IsExpected(ErrReleaseMetadata) {
		t.Error("release metadata error should be expected")
	}
	if IsExpected(ErrInternal) {
		t.Error("internal error should not be expected")
	}
	if IsExpected(errors.New("plain")) {
		t.Error("plain error should not be expected")
	}
}

func TestGetDomainAndCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", ErrBootVerification)
	if GetDomain(err) != DomainBoot {
		t.Errorf("GetDomain() = %q", GetDomain(err))
	}
	if GetCode(err) != CodeMarkerAbsent {
		t.Errorf("GetCode() = %q", GetCode(err))
	}
	if GetDomain(errors.New("x")) != "" {
		t.Error("expected empty domain for plain error")
	}
}
