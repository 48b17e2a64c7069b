package libgraph

import (
	"strings"
	"testing"

	"github.com/zboralski/lattice"

	"vitaelf/internal/inject"
	"vitaelf/internal/prx"
)

func testTables() *prx.Tables {
	return &prx.Tables{
		Module: &prx.ModuleInfo{Name: "testmod"},
		Exports: []prx.ExportLibrary{
			{Name: "TestLib", LibraryNID: 0xCAFEBABE},
		},
		Imports: []prx.ImportLibrary{
			{Name: "SceLibKernel", LibraryNID: 0x5ABCD123},
			{Name: "SceDisplay", LibraryNID: 0x7EE11357},
		},
	}
}

func testSymbols() []inject.Symbol {
	return []inject.Symbol{
		{Name: "testExportedFunc", Library: "TestLib", Direction: inject.Export, Resolved: true},
		{Name: "sceDisplaySetFrameBuf", Library: "SceDisplay", Direction: inject.Import, Resolved: true},
		{Name: "SceLibKernel_BBBBBBBB", Library: "SceLibKernel", Direction: inject.Import},
	}
}

func hasEdge(g *lattice.Graph, caller, callee string) bool {
	for _, e := range g.Edges {
		if e.Caller == caller && e.Callee == callee {
			return true
		}
	}
	return false
}

func TestBuild(t *testing.T) {
	g := Build(testTables(), testSymbols(), Options{Symbols: true})

	for _, e := range [][2]string{
		{"testmod", "TestLib"},
		{"testmod", "SceLibKernel"},
		{"testmod", "SceDisplay"},
		{"TestLib", "testExportedFunc"},
		{"SceDisplay", "sceDisplaySetFrameBuf"},
	} {
		if !hasEdge(g, e[0], e[1]) {
			t.Errorf("missing edge %s -> %s", e[0], e[1])
		}
	}
	// Placeholder symbols are excluded unless asked for.
	if hasEdge(g, "SceLibKernel", "SceLibKernel_BBBBBBBB") {
		t.Error("unresolved placeholder included without Unresolved")
	}

	g = Build(testTables(), testSymbols(), Options{Symbols: true, Unresolved: true})
	if !hasEdge(g, "SceLibKernel", "SceLibKernel_BBBBBBBB") {
		t.Error("placeholder missing with Unresolved set")
	}
}

func TestBuildImportsOnly(t *testing.T) {
	g := Build(testTables(), testSymbols(), Options{Symbols: true, ImportsOnly: true})
	if hasEdge(g, "testmod", "TestLib") {
		t.Error("export library present with ImportsOnly")
	}
	if hasEdge(g, "TestLib", "testExportedFunc") {
		t.Error("export symbol present with ImportsOnly")
	}
	if !hasEdge(g, "testmod", "SceDisplay") {
		t.Error("import library missing")
	}
}

func TestBuildDedup(t *testing.T) {
	tables := testTables()
	// Same library imported twice, as split records produce.
	tables.Imports = append(tables.Imports, prx.ImportLibrary{Name: "SceDisplay", LibraryNID: 0x7EE11357})
	g := Build(tables, nil, Options{})
	seen := map[string]int{}
	for _, n := range g.Nodes {
		seen[n]++
	}
	if seen["SceDisplay"] != 1 {
		t.Errorf("SceDisplay node appears %d times", seen["SceDisplay"])
	}
}

func TestDOT(t *testing.T) {
	dot := DOT(Build(testTables(), nil, Options{}), "testmod deps")
	if !strings.Contains(dot, "digraph") || !strings.Contains(dot, "SceDisplay") {
		t.Errorf("DOT output malformed:\n%s", dot)
	}
}
