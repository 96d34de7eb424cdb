package gltf

import (
	"errors"
	"fmt"
)

// Session lifecycle errors.
var (
	// ErrSessionClosed is returned by any call on a session that already
	// finalized successfully or was aborted (explicitly or by a fatal error).
	ErrSessionClosed = errors.New("gltf: session is closed")
	// ErrBadReference is wrapped into StructuralError when an entity refers
	// to an index that has not been added yet.
	ErrBadReference = errors.New("reference out of range")
)

// StructuralError reports a defect in the input graph structure: a
// hierarchy cycle, a duplicated parent, or an out-of-range reference.
// It is fatal; the document in progress must be discarded.
type StructuralError struct {
	Msg string
	Err error // optional underlying sentinel
}

func (e *StructuralError) Error() string {
	return "gltf: structural error: " + e.Msg
}

func (e *StructuralError) Unwrap() error { return e.Err }

func structuralf(format string, args ...any) *StructuralError {
	return &StructuralError{Msg: fmt.Sprintf(format, args...)}
}

// badReference builds the StructuralError for an entity referring to an
// index outside the already-added range.
func badReference(what string, got, limit int) *StructuralError {
	return &StructuralError{
		Msg: fmt.Sprintf("%s %v: %d of %d", what, ErrBadReference, got, limit),
		Err: ErrBadReference,
	}
}

// UnsupportedFormatError reports input data that the output schema cannot
// express. Fatal in strict mode; some representable shapes are downgraded
// to warnings in permissive mode.
type UnsupportedFormatError struct {
	Msg string
}

func (e *UnsupportedFormatError) Error() string {
	return "gltf: unsupported format: " + e.Msg
}

func unsupportedf(format string, args ...any) *UnsupportedFormatError {
	return &UnsupportedFormatError{Msg: fmt.Sprintf(format, args...)}
}

// ResourceError reports a missing external resource, such as an unknown
// destination path when a sibling payload file must be written. Fatal.
type ResourceError struct {
	Msg string
}

func (e *ResourceError) Error() string {
	return "gltf: resource error: " + e.Msg
}

func resourcef(format string, args ...any) *ResourceError {
	return &ResourceError{Msg: fmt.Sprintf(format, args...)}
}
