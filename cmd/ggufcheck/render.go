package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/samcharles93/ggufcheck/internal/gguf"
)

func writeSummary(w io.Writer, h gguf.HeaderSummary) error {
	_, err := fmt.Fprintf(w,
		"GGUF header is valid.\n"+
			"  Endianness    : %s\n"+
			"  Version       : %d\n"+
			"  # Tensors     : %d\n"+
			"  # Metadata KV : %d\n",
		h.Endianness, h.Version, h.TensorCount, h.KVCount)
	return err
}

func writeJSON(w io.Writer, rep gguf.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
