package shaderdi

import "fmt"

// CompilationFailedError wraps a GLSL compile or preprocess failure for
// one stage; the compiler's diagnostic log (if any) is carried
// verbatim for UI surfacing per spec §7.
type CompilationFailedError struct {
	Stage      Stage
	Err        error
	Diagnostic string
}

func (e *CompilationFailedError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("shaderdi: %s stage compilation failed: %v\n%s", e.Stage, e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("shaderdi: %s stage compilation failed: %v", e.Stage, e.Err)
}

func (e *CompilationFailedError) Unwrap() error { return e.Err }

// ReflectionMismatchError describes a bundle whose descriptor hash
// differs from what a pipeline node expected. No code in this repository
// constructs it.
type ReflectionMismatchError struct {
	Expected string
	Got      string
}

func (e *ReflectionMismatchError) Error() string {
	return fmt.Sprintf("shaderdi: descriptor interface hash mismatch: expected %s, got %s", e.Expected, e.Got)
}

// DeviceCapabilityMissingError wraps a failed CapabilityReport. Validate
// returns the report itself; no code in this repository constructs this
// error.
type DeviceCapabilityMissingError struct {
	Report CapabilityReport
}

func (e *DeviceCapabilityMissingError) Error() string {
	return fmt.Sprintf("shaderdi: device capability validation failed: %s", e.Report.String())
}

// ErrCacheVersionMismatch is returned by DecodeCacheFile and
// DecodeSDIFile when a persisted cache or
// SDI file's schema version doesn't match the reader's — readers fail
// closed rather than guess at a layout.
type ErrCacheVersionMismatch struct {
	FileVersion, ReaderVersion uint32
}

func (e *ErrCacheVersionMismatch) Error() string {
	return fmt.Sprintf("shaderdi: persisted schema version %d incompatible with reader version %d", e.FileVersion, e.ReaderVersion)
}

// ErrBadMagic is returned by DecodeCacheFile and DecodeSDIFile when the
// file's magic header doesn't
// match the expected persisted-state format.
type ErrBadMagic struct {
	Got [4]byte
}

func (e *ErrBadMagic) Error() string {
	return fmt.Sprintf("shaderdi: bad magic header %q", e.Got)
}
