package gguf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestNewReportSuccess(t *testing.T) {
	t.Parallel()
	h, err := Validate(bytes.NewReader(buildHeader(binary.LittleEndian, 3, 5, 10)))
	rep := NewReport("m.gguf", h, err)
	if !rep.Valid || rep.Error != nil {
		t.Fatalf("expected valid report, got %+v", rep)
	}
	if rep.Header == nil || *rep.Header != h {
		t.Fatalf("unexpected header: %+v", rep.Header)
	}
}

func TestNewReportPayloads(t *testing.T) {
	t.Parallel()

	t.Run("truncated", func(t *testing.T) {
		h, err := Validate(bytes.NewReader([]byte("GGUF\x03")))
		rep := NewReport("", h, err)
		if rep.Valid || rep.Header != nil {
			t.Fatalf("expected invalid report, got %+v", rep)
		}
		if rep.Error.Kind != KindTruncated || rep.Error.Field != FieldVersion {
			t.Fatalf("unexpected error report: %+v", rep.Error)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		h, err := Validate(bytes.NewReader([]byte("ABCD")))
		rep := NewReport("", h, err)
		if rep.Error.Kind != KindBadMagic || rep.Error.ActualHex != "41424344" {
			t.Fatalf("unexpected error report: %+v", rep.Error)
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		h, err := Validate(bytes.NewReader([]byte("GGUF\x02\x00\x00\x00")))
		rep := NewReport("", h, err)
		if rep.Error.Kind != KindUnsupportedVersion {
			t.Fatalf("unexpected kind: %q", rep.Error.Kind)
		}
		if *rep.Error.LittleEndian != 2 || *rep.Error.BigEndian != 0x02000000 {
			t.Fatalf("unexpected decodings: %d / %d", *rep.Error.LittleEndian, *rep.Error.BigEndian)
		}
	})

	t.Run("implausible", func(t *testing.T) {
		h, err := Validate(bytes.NewReader(buildHeader(binary.BigEndian, 3, 0, 100_001)))
		rep := NewReport("", h, err)
		if rep.Error.Kind != KindImplausibleCount || rep.Error.Field != FieldKVCount {
			t.Fatalf("unexpected error report: %+v", rep.Error)
		}
		if *rep.Error.Value != 100_001 || *rep.Error.Limit != DefaultMaxKVCount {
			t.Fatalf("unexpected values: %d / %d", *rep.Error.Value, *rep.Error.Limit)
		}
	})

	t.Run("io", func(t *testing.T) {
		rep := NewReport("x.gguf", HeaderSummary{}, errors.New("permission denied"))
		if rep.Error.Kind != KindIO || rep.Error.Message != "permission denied" {
			t.Fatalf("unexpected error report: %+v", rep.Error)
		}
	})
}
