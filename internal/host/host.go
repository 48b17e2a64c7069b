// Package host defines the collaborator interface the resolution engine
// writes through, plus a file-backed in-memory implementation used by the
// CLI and tests. A disassembler embedding the engine supplies its own Host
// over its real symbol and type tables.
package host

import (
	"vitaelf/internal/elfx"
	"vitaelf/internal/headers"
	"vitaelf/internal/realign"
)

// Host is the engine's only write surface. The engine never deletes
// anything through it.
type Host interface {
	// RunLinearSweep runs one pass of the host's linear-sweep function
	// discovery and reports how many new functions it created.
	RunLinearSweep() (int, error)

	DefineSymbol(addr uint32, name string) error
	DefineFunctionType(addr uint32, sig headers.Signature) error
	DefineType(name, source string) error
	SetInstructionSetSpan(span realign.Span) error

	ReadBytes(off uint32, n int) ([]byte, error)
	EntryPoint() uint32
	ProgramHeaders() []elfx.ProgHeader

	// Functions lists every function entry address the host knows about,
	// in no particular order.
	Functions() []uint32
}

// Memory is a Host over a loaded image with plain map-backed tables.
// DefineSymbol and DefineFunctionType overwrite by address, so repeated
// injection converges instead of accumulating duplicates.
type Memory struct {
	f *elfx.File

	symbols   map[uint32]string
	funcTypes map[uint32]headers.Signature
	types     map[string]string
	typeOrder []string
	spans     map[uint32]realign.Span
	functions map[uint32]bool

	// Sweep, when set, simulates function discovery: it is called once
	// per RunLinearSweep and returns addresses of newly found functions.
	Sweep func(pass int) []uint32
	pass  int
}

// NewMemory creates an in-memory host over a loaded image.
func NewMemory(f *elfx.File) *Memory {
	return &Memory{
		f:         f,
		symbols:   make(map[uint32]string),
		funcTypes: make(map[uint32]headers.Signature),
		types:     make(map[string]string),
		spans:     make(map[uint32]realign.Span),
		functions: make(map[uint32]bool),
	}
}

func (m *Memory) RunLinearSweep() (int, error) {
	m.pass++
	if m.Sweep == nil {
		return 0, nil
	}
	created := 0
	for _, addr := range m.Sweep(m.pass) {
		if !m.functions[addr] {
			m.functions[addr] = true
			created++
		}
	}
	return created, nil
}

func (m *Memory) DefineSymbol(addr uint32, name string) error {
	m.symbols[addr] = name
	m.functions[addr] = true
	return nil
}

func (m *Memory) DefineFunctionType(addr uint32, sig headers.Signature) error {
	m.funcTypes[addr] = sig
	return nil
}

func (m *Memory) DefineType(name, source string) error {
	if _, ok := m.types[name]; !ok {
		m.typeOrder = append(m.typeOrder, name)
	}
	m.types[name] = source
	return nil
}

func (m *Memory) SetInstructionSetSpan(span realign.Span) error {
	m.spans[span.Start] = span
	return nil
}

func (m *Memory) ReadBytes(off uint32, n int) ([]byte, error) {
	return m.f.ReadAt(off, n)
}

func (m *Memory) EntryPoint() uint32 { return m.f.Entry }

func (m *Memory) ProgramHeaders() []elfx.ProgHeader { return m.f.Progs }

func (m *Memory) Functions() []uint32 {
	addrs := make([]uint32, 0, len(m.functions))
	for a := range m.functions {
		addrs = append(addrs, a)
	}
	return addrs
}

// SymbolAt returns the symbol defined at an address, if any.
func (m *Memory) SymbolAt(addr uint32) (string, bool) {
	name, ok := m.symbols[addr]
	return name, ok
}

// FunctionTypeAt returns the prototype defined at an address, if any.
func (m *Memory) FunctionTypeAt(addr uint32) (headers.Signature, bool) {
	sig, ok := m.funcTypes[addr]
	return sig, ok
}

// Symbols returns a copy of the symbol table.
func (m *Memory) Symbols() map[uint32]string {
	out := make(map[uint32]string, len(m.symbols))
	for a, n := range m.symbols {
		out[a] = n
	}
	return out
}

// Types returns the defined type names in definition order.
func (m *Memory) Types() []string {
	return append([]string(nil), m.typeOrder...)
}

// TypeSource returns the declaration text for a defined type.
func (m *Memory) TypeSource(name string) (string, bool) {
	src, ok := m.types[name]
	return src, ok
}

// Spans returns every instruction-set span set on the host, keyed by start.
func (m *Memory) Spans() map[uint32]realign.Span {
	out := make(map[uint32]realign.Span, len(m.spans))
	for a, s := range m.spans {
		out[a] = s
	}
	return out
}
