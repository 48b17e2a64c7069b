package resolve

import (
	"vitaelf/internal/inject"
	"vitaelf/internal/prx"
	"vitaelf/internal/prxfmt"
	"vitaelf/internal/realign"
)

// Report is the full outcome of one engine run.
type Report struct {
	Module         *prx.ModuleInfo       `json:"module"`
	Symbols        []inject.Symbol       `json:"symbols"`
	Spans          []realign.Span        `json:"spans,omitempty"`
	Libraries      []LibrarySummary      `json:"libraries"`
	Suspect        []uint32              `json:"suspect_functions,omitempty"`
	Sweeps         int                   `json:"sweeps"`
	TypesDefined   int                   `json:"types_defined"`
	SymbolsApplied int                   `json:"symbols_applied"`
	Unsupported    []prx.UnsupportedStub `json:"unsupported,omitempty"`
	Diags          []prxfmt.Diag         `json:"diags,omitempty"`
}

// LibrarySummary is the per-library resolution tally.
type LibrarySummary struct {
	Name      string           `json:"name"`
	NID       uint32           `json:"nid"`
	Direction inject.Direction `json:"-"`
	Dir       string           `json:"direction"`
	Functions int              `json:"functions"`
	Variables int              `json:"variables"`
	Resolved  int              `json:"resolved"`
}

// Resolved returns how many symbols were found in the database.
func (r *Report) Resolved() int {
	n := 0
	for _, s := range r.Symbols {
		if s.Resolved {
			n++
		}
	}
	return n
}

// Unresolved returns how many symbols kept their placeholder name.
func (r *Report) Unresolved() int { return len(r.Symbols) - r.Resolved() }

// summarize tallies resolution per library, export libraries first, both
// in table order.
func summarize(tables *prx.Tables, symbols []inject.Symbol) []LibrarySummary {
	type key struct {
		name string
		dir  inject.Direction
	}
	resolved := make(map[key]int)
	for _, s := range symbols {
		if s.Resolved {
			resolved[key{s.Library, s.Direction}]++
		}
	}

	var out []LibrarySummary
	for _, lib := range tables.Exports {
		out = append(out, LibrarySummary{
			Name:      lib.Name,
			NID:       lib.LibraryNID,
			Direction: inject.Export,
			Dir:       inject.Export.String(),
			Functions: len(lib.Functions),
			Variables: len(lib.Variables),
			Resolved:  resolved[key{lib.Name, inject.Export}],
		})
	}
	for _, lib := range tables.Imports {
		out = append(out, LibrarySummary{
			Name:      lib.Name,
			NID:       lib.LibraryNID,
			Direction: inject.Import,
			Dir:       inject.Import.String(),
			Functions: len(lib.Functions),
			Variables: len(lib.Variables),
			Resolved:  resolved[key{lib.Name, inject.Import}],
		})
	}
	return out
}
