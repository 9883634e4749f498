package errors

// Common error codes used across domains
const (
	CodeNotFound     Code = "not_found"
	CodeFailed       Code = "failed"
	CodeEmpty        Code = "empty"
	CodeTimeout      Code = "timeout"
	CodeInvalid      Code = "invalid"
	CodeIO           Code = "io_error"
	CodeInternal     Code = "internal_error"
	CodeMarkerAbsent Code = "marker_absent"
	CodeMismatch     Code = "mismatch"
)

// ============================================================================
// Toolchain Errors
// ============================================================================

var (
	// ErrToolResolution is returned when neither an override, the primary nor
	// the fallback executable of a tool role can be located
	ErrToolResolution = New(DomainToolchain, CodeNotFound, ExitFailure,
		"Required tool not found")
)

// ============================================================================
// Build Errors
// ============================================================================

var (
	// ErrCompile is returned when the compiler exits non-zero for a unit
	ErrCompile = New(DomainCompile, CodeFailed, ExitFailure,
		"Compilation failed")

	// ErrLink is returned when the linker exits non-zero
	ErrLink = New(DomainLink, CodeFailed, ExitFailure,
		"Link failed")

	// ErrImage is returned when the ISO packaging tool fails or staging fails
	ErrImage = New(DomainImage, CodeFailed, ExitFailure,
		"Boot image assembly failed")

	// ErrMissingArtifact is returned when a step's expected output is absent
	// or zero-length after the step reported success
	ErrMissingArtifact = New(DomainArtifact, CodeNotFound, ExitFailure,
		"Expected artifact missing or empty")
)

// ============================================================================
// Verification Errors
// ============================================================================

var (
	// ErrBootVerification is returned when the boot marker does not appear
	// in the captured serial stream within the timeout budget
	ErrBootVerification = New(DomainBoot, CodeMarkerAbsent, ExitFailure,
		"Headless boot test did not emit boot marker")

	// ErrEmulator is returned when an interactive emulator session fails
	ErrEmulator = New(DomainBoot, CodeFailed, ExitFailure,
		"Emulator session failed")
)

// ============================================================================
// Release Errors
// ============================================================================

var (
	// ErrReleaseMetadata is returned when version, channel or codename
	// cannot be read from the release metadata source
	ErrReleaseMetadata = New(DomainRelease, CodeInvalid, ExitFailure,
		"Release metadata could not be parsed")

	// ErrReleaseIO is returned when any bundling step fails on I/O
	ErrReleaseIO = New(DomainRelease, CodeIO, ExitFailure,
		"Release bundling failed")

	// ErrManifestMismatch is returned when a bundle no longer matches its
	// checksum manifest
	ErrManifestMismatch = New(DomainRelease, CodeMismatch, ExitFailure,
		"Bundle does not match its checksum manifest")

	// ErrPublish is returned when uploading a bundle to storage fails
	ErrPublish = New(DomainPublish, CodeFailed, ExitFailure,
		"Release publishing failed")
)

// ============================================================================
// Internal Errors
// ============================================================================

var (
	// ErrInternal marks faults that indicate a bug rather than a bad input
	ErrInternal = New(DomainInternal, CodeInternal, ExitInternal,
		"Internal error")
)
