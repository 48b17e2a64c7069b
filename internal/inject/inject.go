// Package inject is the engine's write side: it applies resolved symbols
// and type declarations to a host. All effects are additive; the injector
// never removes anything the host owns.
package inject

import (
	"fmt"
	"strings"

	"github.com/ianlancetaylor/demangle"

	"vitaelf/internal/headers"
	"vitaelf/internal/host"
	"vitaelf/internal/prx"
)

// Direction distinguishes imported stubs from exported entries.
type Direction int

const (
	Import Direction = iota
	Export
)

func (d Direction) String() string {
	if d == Export {
		return "export"
	}
	return "import"
}

// Symbol is one resolved (address, direction) pair ready for injection.
type Symbol struct {
	Address   uint32             `json:"address"`
	Name      string             `json:"name"`
	Display   string             `json:"display,omitempty"` // demangled form, when different
	Library   string             `json:"library"`
	NID       uint32             `json:"nid"`
	Kind      prx.SymbolKind     `json:"kind"`
	Direction Direction          `json:"direction"`
	Thumb     bool               `json:"thumb,omitempty"`
	Signature *headers.Signature `json:"signature,omitempty"`
	Resolved  bool               `json:"resolved"` // false means placeholder name
}

// DefaultSignature is applied to resolved functions with no catalogued
// prototype.
func DefaultSignature() headers.Signature {
	return headers.Signature{Return: "int", Variadic: true}
}

// Demangled returns the human-readable form of an Itanium-mangled name, or
// the name itself when it is not mangled.
func Demangled(name string) string {
	if !strings.HasPrefix(name, "_Z") {
		return name
	}
	out, err := demangle.ToString(name)
	if err != nil {
		return name
	}
	return out
}

// Injector writes symbols and types through a host. One (address,
// direction) pair is applied at most once per run; across runs the host's
// overwrite-by-address semantics make repeats converge to the same state.
type Injector struct {
	h         host.Host
	seen      map[symKey]struct{}
	seenTypes map[string]struct{}
}

type symKey struct {
	addr uint32
	dir  Direction
}

// New creates an injector over a host.
func New(h host.Host) *Injector {
	return &Injector{
		h:         h,
		seen:      make(map[symKey]struct{}),
		seenTypes: make(map[string]struct{}),
	}
}

// DefineTypes defines every declaration on the host, first-seen wins for
// duplicate names. Returns how many definitions were applied.
func (in *Injector) DefineTypes(decls []headers.TypeDecl) (int, error) {
	applied := 0
	for _, td := range decls {
		if _, dup := in.seenTypes[td.Name]; dup {
			continue
		}
		if err := in.h.DefineType(td.Name, td.Source); err != nil {
			return applied, fmt.Errorf("inject: type %s: %w", td.Name, err)
		}
		in.seenTypes[td.Name] = struct{}{}
		applied++
	}
	return applied, nil
}

// Apply injects symbols and, for functions, prototypes. Functions without
// a catalogued signature get the untyped variadic default. Returns how
// many symbols were applied.
func (in *Injector) Apply(syms []Symbol) (int, error) {
	applied := 0
	for _, sym := range syms {
		key := symKey{addr: sym.Address, dir: sym.Direction}
		if _, dup := in.seen[key]; dup {
			continue
		}
		if err := in.h.DefineSymbol(sym.Address, sym.Name); err != nil {
			return applied, fmt.Errorf("inject: symbol %s at 0x%x: %w", sym.Name, sym.Address, err)
		}
		if sym.Kind == prx.KindFunction {
			sig := DefaultSignature()
			if sym.Signature != nil {
				sig = *sym.Signature
			}
			if err := in.h.DefineFunctionType(sym.Address, sig); err != nil {
				return applied, fmt.Errorf("inject: prototype %s at 0x%x: %w", sym.Name, sym.Address, err)
			}
		}
		in.seen[key] = struct{}{}
		applied++
	}
	return applied, nil
}
