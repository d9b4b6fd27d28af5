package gguf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// reader consumes header fields strictly in order. It is unbuffered:
// nothing past the requested bytes leaves the source.
type reader struct {
	r     io.Reader
	off   int64
	order binary.ByteOrder
}

func newReader(rd io.Reader) *reader {
	return &reader{
		r:     rd,
		order: binary.LittleEndian,
	}
}

func (r *reader) readN(field string, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(r.r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &TruncatedError{Field: field, Offset: r.off, Want: n, Got: got}
		}
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	r.off += int64(n)
	return buf, nil
}

func (r *reader) readU64(field string) (uint64, error) {
	b, err := r.readN(field, 8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *reader) readCount(field string, limit uint64) (uint64, error) {
	v, err := r.readU64(field)
	if err != nil {
		return 0, err
	}
	if v > limit {
		return 0, &ImplausibleCountError{Field: field, Value: v, Limit: limit}
	}
	return v, nil
}
