// Package resolve orchestrates one analysis run: locate the module info,
// walk the library tables, classify instruction-set spans, look every NID
// up in the database and inject the results through the host.
package resolve

import (
	"fmt"
	"sort"

	"vitaelf/internal/elfx"
	"vitaelf/internal/headers"
	"vitaelf/internal/host"
	"vitaelf/internal/inject"
	"vitaelf/internal/niddb"
	"vitaelf/internal/prx"
	"vitaelf/internal/prxfmt"
	"vitaelf/internal/realign"
)

// Engine runs the resolution pipeline against one image.
type Engine struct {
	f    *elfx.File
	db   *niddb.Database
	cat  *headers.Catalogue // optional
	h    host.Host
	opts prxfmt.Options
}

// New creates an engine. The catalogue may be nil; every symbol then falls
// back to the untyped variadic signature.
func New(f *elfx.File, db *niddb.Database, cat *headers.Catalogue, h host.Host, opts prxfmt.Options) *Engine {
	return &Engine{f: f, db: db, cat: cat, h: h, opts: opts}
}

// Run executes the pipeline: extract tables, converge the host sweep with
// the realignment scan interleaved, apply spans, resolve and inject.
// Re-running against a partially annotated host converges to the same
// state.
func (e *Engine) Run() (*Report, error) {
	tables, err := prx.Extract(e.f, e.opts)
	if err != nil {
		return nil, err
	}

	scanner := realign.NewScanner(e.f)
	seedScanner(scanner, tables)

	// Sweep to fixed point, rescanning after every pass: new functions
	// reveal new mode boundaries.
	sweeps := 0
	for i := 0; i < e.opts.EffectiveMaxSweeps(); i++ {
		sweeps++
		created, err := e.h.RunLinearSweep()
		if err != nil {
			return nil, fmt.Errorf("resolve: sweep pass %d: %w", sweeps, err)
		}
		// Every function the host knows after this pass is a scan target;
		// addresses already tracked are no-ops.
		for _, addr := range e.h.Functions() {
			scanner.AddTarget(addr)
		}
		scanner.Pass()
		if created == 0 && scanner.Confirmed() {
			break
		}
	}

	spans := scanner.Spans()
	for _, span := range spans {
		if err := e.h.SetInstructionSetSpan(span); err != nil {
			return nil, fmt.Errorf("resolve: span 0x%x..0x%x: %w", span.Start, span.End, err)
		}
	}

	symbols := e.resolveSymbols(tables)

	in := inject.New(e.h)
	decls := prx.BuiltinTypes()
	if e.cat != nil {
		decls = append(decls, e.cat.TypesForInjection()...)
	}
	typesDefined, err := in.DefineTypes(decls)
	if err != nil {
		return nil, err
	}
	applied, err := in.Apply(symbols)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Module:         tables.Module,
		Symbols:        symbols,
		Spans:          spans,
		Libraries:      summarize(tables, symbols),
		Suspect:        e.suspectFunctions(symbols),
		Sweeps:         sweeps,
		TypesDefined:   typesDefined,
		SymbolsApplied: applied,
		Unsupported:    tables.Unsupported,
		Diags:          tables.Diags,
	}
	return rep, nil
}

// seedScanner feeds every function entry's interworking bit to the scanner.
func seedScanner(s *realign.Scanner, tables *prx.Tables) {
	for _, lib := range tables.Exports {
		for _, fn := range lib.Functions {
			s.AddHint(fn.Address, fn.Thumb)
		}
	}
	for _, lib := range tables.Imports {
		for _, fn := range lib.Functions {
			s.AddHint(fn.Address, fn.Thumb)
		}
	}
}

// resolveSymbols turns every table entry into an injectable symbol, export
// libraries first, in table order. Lookup misses keep the NID-derived
// placeholder and are not errors.
func (e *Engine) resolveSymbols(tables *prx.Tables) []inject.Symbol {
	var out []inject.Symbol
	for _, lib := range tables.Exports {
		for _, entry := range lib.Functions {
			out = append(out, e.resolveEntry(lib.Name, lib.LibraryNID, lib.Noname, entry, inject.Export))
		}
		for _, entry := range lib.Variables {
			out = append(out, e.resolveEntry(lib.Name, lib.LibraryNID, lib.Noname, entry, inject.Export))
		}
	}
	for _, lib := range tables.Imports {
		for _, entry := range lib.Functions {
			out = append(out, e.resolveEntry(lib.Name, lib.LibraryNID, false, entry, inject.Import))
		}
		for _, entry := range lib.Variables {
			out = append(out, e.resolveEntry(lib.Name, lib.LibraryNID, false, entry, inject.Import))
		}
	}
	return out
}

func (e *Engine) resolveEntry(libName string, libNID uint32, noname bool, entry prx.Entry, dir inject.Direction) inject.Symbol {
	sym := inject.Symbol{
		Address:   entry.Address,
		Library:   libName,
		NID:       entry.NID,
		Kind:      entry.Kind,
		Direction: dir,
		Thumb:     entry.Thumb,
	}

	if noname {
		if name, _, ok := prx.WellKnownName(entry.NID); ok {
			sym.Name = name
			sym.Resolved = true
			return sym
		}
	}

	name, ok := e.db.Lookup(libName, entry.NID)
	if !ok && libNID != 0 {
		name, ok = e.db.LookupByLibraryNID(libNID, entry.NID)
	}
	if !ok {
		sym.Name = niddb.Placeholder(libName, entry.NID)
		return sym
	}

	sym.Name = name
	sym.Resolved = true
	if d := inject.Demangled(name); d != name {
		sym.Display = d
	}
	if e.cat != nil && entry.Kind == prx.KindFunction {
		if sig, found := e.cat.SignatureFor(name); found {
			sym.Signature = &sig
		}
	}
	return sym
}

// suspectFunctions lists host function addresses that landed in
// non-executable segments: linear-sweep misfires into data. Advisory only;
// the host decides what to do with them.
func (e *Engine) suspectFunctions(symbols []inject.Symbol) []uint32 {
	const pfX = 1
	known := make(map[uint32]bool, len(symbols))
	for _, sym := range symbols {
		known[sym.Address] = true
	}

	var suspect []uint32
	for _, addr := range e.h.Functions() {
		if known[addr] {
			continue
		}
		seg, ok := e.f.ContainingSegment(addr)
		if ok && seg.Flags&pfX == 0 {
			suspect = append(suspect, addr)
		}
	}
	sort.Slice(suspect, func(i, j int) bool { return suspect[i] < suspect[j] })
	return suspect
}
