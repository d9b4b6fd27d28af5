// Package gguf validates the fixed header of a GGUF model container.
//
// Only the first 24 bytes are read: the literal magic, the format version,
// and the declared tensor and metadata counts. Nothing after the header is
// parsed or required to exist.
package gguf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	// Magic is the literal byte string every GGUF file starts with.
	Magic = "GGUF"
	// SupportedVersion is the only header version accepted.
	SupportedVersion uint32 = 3
	// HeaderSize is the number of bytes consumed by a successful validation.
	HeaderSize = 24

	DefaultMaxTensorCount uint64 = 1_000_000_000
	DefaultMaxKVCount     uint64 = 100_000
)

// Header field names, as reported by TruncatedError and ImplausibleCountError.
const (
	FieldMagic       = "magic"
	FieldVersion     = "version"
	FieldTensorCount = "tensor_count"
	FieldKVCount     = "kv_count"
)

// Endianness is the byte order of the integer header fields.
type Endianness uint8

const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) String() string {
	switch e {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return fmt.Sprintf("endianness(%d)", uint8(e))
	}
}

// MarshalText renders the endianness as "little" or "big".
func (e Endianness) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText accepts "little" or "big".
func (e *Endianness) UnmarshalText(b []byte) error {
	switch string(b) {
	case "little":
		*e = LittleEndian
	case "big":
		*e = BigEndian
	default:
		return fmt.Errorf("unknown endianness %q", b)
	}
	return nil
}

// ByteOrder returns the decoder for e.
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// HeaderSummary describes a header that passed every check. The counts are
// declared values only; they are not verified against the file body.
type HeaderSummary struct {
	Endianness  Endianness `json:"endianness"`
	Version     uint32     `json:"version"`
	TensorCount uint64     `json:"tensor_count"`
	KVCount     uint64     `json:"kv_count"`
}

// Limits holds the sanity ceilings applied to the declared counts. They are
// guards against corrupt input, not limits of the format itself. A zero
// field falls back to its default.
type Limits struct {
	MaxTensorCount uint64 `json:"max_tensor_count" yaml:"max_tensor_count"`
	MaxKVCount     uint64 `json:"max_kv_count" yaml:"max_kv_count"`
}

// DefaultLimits returns the stock ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxTensorCount: DefaultMaxTensorCount,
		MaxKVCount:     DefaultMaxKVCount,
	}
}

// WithDefaults replaces zero fields with their defaults.
func (l Limits) WithDefaults() Limits {
	if l.MaxTensorCount == 0 {
		l.MaxTensorCount = DefaultMaxTensorCount
	}
	if l.MaxKVCount == 0 {
		l.MaxKVCount = DefaultMaxKVCount
	}
	return l
}

// Validator checks GGUF headers against a set of Limits. The zero value uses
// DefaultLimits. A Validator holds no state between calls and may be shared.
type Validator struct {
	Limits Limits
}

// Validate reads and checks a header using the default limits.
func Validate(r io.Reader) (HeaderSummary, error) {
	return Validator{}.Validate(r)
}

// ValidateFile opens path, checks its header with the default limits and
// closes it.
func ValidateFile(path string) (HeaderSummary, error) {
	return Validator{}.ValidateFile(path)
}

// ValidateFile opens path, checks its header and closes it on every exit path.
func (v Validator) ValidateFile(path string) (HeaderSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return HeaderSummary{}, err
	}
	defer func() {
		_ = f.Close() // read-only
	}()
	return v.Validate(f)
}

// Validate consumes exactly HeaderSize bytes from r on success, fewer on
// failure, and never reads ahead. Fields are checked in stream order and the
// first violation is returned.
func (v Validator) Validate(r io.Reader) (HeaderSummary, error) {
	limits := v.Limits.WithDefaults()
	rd := newReader(r)

	magic, err := rd.readN(FieldMagic, 4)
	if err != nil {
		return HeaderSummary{}, err
	}
	if string(magic) != Magic {
		return HeaderSummary{}, &BadMagicError{Actual: magic}
	}

	raw, err := rd.readN(FieldVersion, 4)
	if err != nil {
		return HeaderSummary{}, err
	}
	order, err := DetectByteOrder([4]byte(raw))
	if err != nil {
		return HeaderSummary{}, err
	}
	rd.order = order.ByteOrder()

	// Each count is checked as soon as it is decoded, so an implausible
	// tensor_count is reported even when kv_count is missing.
	tensorCount, err := rd.readCount(FieldTensorCount, limits.MaxTensorCount)
	if err != nil {
		return HeaderSummary{}, err
	}
	kvCount, err := rd.readCount(FieldKVCount, limits.MaxKVCount)
	if err != nil {
		return HeaderSummary{}, err
	}

	return HeaderSummary{
		Endianness:  order,
		Version:     SupportedVersion,
		TensorCount: tensorCount,
		KVCount:     kvCount,
	}, nil
}

// DetectByteOrder decodes the raw version field both ways and picks the
// order under which it equals SupportedVersion. Little-endian wins a tie.
func DetectByteOrder(version [4]byte) (Endianness, error) {
	le := binary.LittleEndian.Uint32(version[:])
	be := binary.BigEndian.Uint32(version[:])
	switch {
	case le == SupportedVersion:
		return LittleEndian, nil
	case be == SupportedVersion:
		return BigEndian, nil
	default:
		return 0, &UnsupportedVersionError{LittleEndian: le, BigEndian: be}
	}
}
