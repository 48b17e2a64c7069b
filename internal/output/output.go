// Package output writes vitaelf analysis results to files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vitaelf/internal/prx"
	"vitaelf/internal/realign"
	"vitaelf/internal/resolve"
)

// WriteTablesJSON writes the raw walked tables to tables.json.
func WriteTablesJSON(dir string, tables *prx.Tables) error {
	return writeJSON(filepath.Join(dir, "tables.json"), tables)
}

// WriteReportJSON writes the full resolution report to report.json.
func WriteReportJSON(dir string, rep *resolve.Report) error {
	return writeJSON(filepath.Join(dir, "report.json"), rep)
}

// WriteSymbolsJSON writes the resolved symbols to symbols.json.
func WriteSymbolsJSON(dir string, rep *resolve.Report) error {
	return writeJSON(filepath.Join(dir, "symbols.json"), rep.Symbols)
}

// WriteSpansJSON writes the instruction-set spans to spans.json.
func WriteSpansJSON(dir string, spans []realign.Span) error {
	return writeJSON(filepath.Join(dir, "spans.json"), spans)
}

// EncodeJSON writes any result as indented JSON to a stream, for commands
// that print to stdout instead of an output directory.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
