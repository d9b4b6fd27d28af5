package gguf

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates the stream ended inside a header field.
	ErrTruncated = errors.New("gguf: truncated header")
	// ErrBadMagic indicates the first four bytes are not "GGUF".
	ErrBadMagic = errors.New("gguf: bad magic")
	// ErrUnsupportedVersion indicates neither byte order yields SupportedVersion.
	ErrUnsupportedVersion = errors.New("gguf: unsupported version")
	// ErrImplausibleCount indicates a declared count exceeds its ceiling.
	ErrImplausibleCount = errors.New("gguf: implausible count")
)

// Kind classifies a header validation failure.
type Kind string

const (
	KindTruncated          Kind = "truncated"
	KindBadMagic           Kind = "bad_magic"
	KindUnsupportedVersion Kind = "unsupported_version"
	KindImplausibleCount   Kind = "implausible_count"
)

// ValidationError is implemented by every header check failure. I/O errors
// from the underlying source are not ValidationErrors.
type ValidationError interface {
	error
	Kind() Kind
}

// TruncatedError reports a field the stream ended before.
type TruncatedError struct {
	Field  string
	Offset int64
	Want   int
	Got    int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated header: expected %d bytes for %s at offset %d, got %d",
		e.Want, e.Field, e.Offset, e.Got)
}

func (e *TruncatedError) Kind() Kind    { return KindTruncated }
func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// BadMagicError carries the four bytes found in place of the magic.
type BadMagicError struct {
	Actual []byte
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("bad magic: %q, expected %q", e.Actual, Magic)
}

func (e *BadMagicError) Kind() Kind    { return KindBadMagic }
func (e *BadMagicError) Unwrap() error { return ErrBadMagic }

// UnsupportedVersionError carries both decodings of the version field, which
// tells a newer or older GGUF apart from a file that is not GGUF at all.
type UnsupportedVersionError struct {
	LittleEndian uint32
	BigEndian    uint32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported GGUF version: little-endian=%d, big-endian=%d (want %d)",
		e.LittleEndian, e.BigEndian, SupportedVersion)
}

func (e *UnsupportedVersionError) Kind() Kind    { return KindUnsupportedVersion }
func (e *UnsupportedVersionError) Unwrap() error { return ErrUnsupportedVersion }

// ImplausibleCountError reports a declared count above its sanity ceiling.
type ImplausibleCountError struct {
	Field string
	Value uint64
	Limit uint64
}

func (e *ImplausibleCountError) Error() string {
	return fmt.Sprintf("implausible %s: %d exceeds limit %d", e.Field, e.Value, e.Limit)
}

func (e *ImplausibleCountError) Kind() Kind    { return KindImplausibleCount }
func (e *ImplausibleCountError) Unwrap() error { return ErrImplausibleCount }

// AsValidationError reports whether err is, or wraps, a header check failure.
func AsValidationError(err error) (ValidationError, bool) {
	var verr ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// KindOf returns the failure kind of err, or "" when err is not a
// ValidationError.
func KindOf(err error) Kind {
	if verr, ok := AsValidationError(err); ok {
		return verr.Kind()
	}
	return ""
}
