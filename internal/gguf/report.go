package gguf

import (
	"encoding/hex"
	"errors"
)

// KindIO marks a failure of the byte source itself (open, permission, read)
// in a Report. It is never returned by ValidationError.Kind.
const KindIO Kind = "io"

// Report is the serializable outcome of one validation.
type Report struct {
	Valid  bool           `json:"valid"`
	Path   string         `json:"path,omitempty"`
	Header *HeaderSummary `json:"header,omitempty"`
	Error  *ErrorReport   `json:"error,omitempty"`
}

// ErrorReport carries the diagnostic payload of a failed validation. Only
// the fields relevant to Kind are set.
type ErrorReport struct {
	Kind         Kind    `json:"kind"`
	Message      string  `json:"message"`
	Field        string  `json:"field,omitempty"`
	ActualHex    string  `json:"actual_hex,omitempty"`
	LittleEndian *uint32 `json:"little_endian,omitempty"`
	BigEndian    *uint32 `json:"big_endian,omitempty"`
	Value        *uint64 `json:"value,omitempty"`
	Limit        *uint64 `json:"limit,omitempty"`
}

// NewReport turns the result of Validate into a Report.
func NewReport(path string, h HeaderSummary, err error) Report {
	if err == nil {
		return Report{Valid: true, Path: path, Header: &h}
	}
	return Report{Path: path, Error: newErrorReport(err)}
}

func newErrorReport(err error) *ErrorReport {
	rep := &ErrorReport{Kind: KindIO, Message: err.Error()}

	var (
		terr *TruncatedError
		berr *BadMagicError
		verr *UnsupportedVersionError
		cerr *ImplausibleCountError
	)
	switch {
	case errors.As(err, &terr):
		rep.Kind = terr.Kind()
		rep.Field = terr.Field
	case errors.As(err, &berr):
		rep.Kind = berr.Kind()
		rep.Field = FieldMagic
		rep.ActualHex = hex.EncodeToString(berr.Actual)
	case errors.As(err, &verr):
		rep.Kind = verr.Kind()
		rep.Field = FieldVersion
		rep.LittleEndian = &verr.LittleEndian
		rep.BigEndian = &verr.BigEndian
	case errors.As(err, &cerr):
		rep.Kind = cerr.Kind()
		rep.Field = cerr.Field
		rep.Value = &cerr.Value
		rep.Limit = &cerr.Limit
	}
	return rep
}
