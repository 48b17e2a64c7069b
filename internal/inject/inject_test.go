package inject

import (
	"strings"
	"testing"

	"vitaelf/internal/headers"
	"vitaelf/internal/host"
	"vitaelf/internal/prx"
)

func testSymbols() []Symbol {
	sig := headers.Signature{Return: "int", Params: []headers.Param{{Type: "int", Name: "sync"}}}
	return []Symbol{
		{Address: 0x81000400, Name: "sceDisplaySetFrameBuf", Library: "SceDisplay",
			NID: 0x7A410070, Kind: prx.KindFunction, Direction: Import, Signature: &sig, Resolved: true},
		{Address: 0x81000500, Name: "SceLibKernel_DEADBEEF", Library: "SceLibKernel",
			NID: 0xDEADBEEF, Kind: prx.KindFunction, Direction: Import},
		{Address: 0x81000600, Name: "g_framebuf", Library: "SceDisplay",
			NID: 0x11223344, Kind: prx.KindVariable, Direction: Export, Resolved: true},
	}
}

func TestApply(t *testing.T) {
	m := host.NewMemory(nil)
	in := New(m)

	n, err := in.Apply(testSymbols())
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("applied = %d, want 3", n)
	}

	if name, ok := m.SymbolAt(0x81000400); !ok || name != "sceDisplaySetFrameBuf" {
		t.Errorf("symbol at 0x81000400 = %q, %v", name, ok)
	}
	sig, ok := m.FunctionTypeAt(0x81000400)
	if !ok || len(sig.Params) != 1 || sig.Params[0].Name != "sync" {
		t.Errorf("typed prototype = %+v, %v", sig, ok)
	}

	// No catalogued signature falls back to the variadic default.
	sig, ok = m.FunctionTypeAt(0x81000500)
	if !ok || !sig.Variadic || sig.Return != "int" {
		t.Errorf("default prototype = %+v, %v", sig, ok)
	}

	// Variables get a symbol but no prototype.
	if _, ok := m.FunctionTypeAt(0x81000600); ok {
		t.Error("variable received a function prototype")
	}
}

func TestApplyIdempotent(t *testing.T) {
	m := host.NewMemory(nil)
	in := New(m)

	if _, err := in.Apply(testSymbols()); err != nil {
		t.Fatal(err)
	}
	before := m.Symbols()

	// Same run, repeated batch: nothing applied.
	n, err := in.Apply(testSymbols())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second apply did %d definitions, want 0", n)
	}

	// Fresh injector over the same host: overwrites converge.
	if _, err := New(m).Apply(testSymbols()); err != nil {
		t.Fatal(err)
	}
	after := m.Symbols()
	if len(after) != len(before) {
		t.Fatalf("symbol count changed: %d -> %d", len(before), len(after))
	}
	for addr, name := range before {
		if after[addr] != name {
			t.Errorf("symbol at 0x%x changed: %q -> %q", addr, name, after[addr])
		}
	}
}

func TestDefineTypes(t *testing.T) {
	m := host.NewMemory(nil)
	in := New(m)

	decls := append(prx.BuiltinTypes(), headers.TypeDecl{
		Kind: "typedef", Name: "SceUID", Source: "typedef int SceUID;",
	})
	n, err := in.DefineTypes(decls)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(decls) {
		t.Errorf("applied = %d, want %d", n, len(decls))
	}
	if src, ok := m.TypeSource("SceModuleInfo_prx2arm"); !ok || !strings.Contains(src, "ent_top") {
		t.Errorf("SceModuleInfo_prx2arm = %q, %v", src, ok)
	}

	// Re-definition is a no-op.
	if n, _ := in.DefineTypes(decls); n != 0 {
		t.Errorf("repeat applied = %d, want 0", n)
	}
	if got := len(m.Types()); got != len(decls) {
		t.Errorf("type count = %d, want %d", got, len(decls))
	}
}

func TestDemangled(t *testing.T) {
	if got := Demangled("sceDisplaySetFrameBuf"); got != "sceDisplaySetFrameBuf" {
		t.Errorf("plain name changed: %q", got)
	}
	if got := Demangled("_Z3foov"); got != "foo()" {
		t.Errorf("demangle _Z3foov = %q", got)
	}
	// Broken mangling falls back to the raw name.
	if got := Demangled("_Znot_a_mangled_name"); got != "_Znot_a_mangled_name" {
		t.Errorf("broken mangling = %q", got)
	}
}
