// Package libgraph builds the module's library dependency graph: the
// module links to every library it imports or exports, and each library
// links to its resolved symbol names.
package libgraph

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"vitaelf/internal/inject"
	"vitaelf/internal/prx"
)

// Options trims what the graph includes.
type Options struct {
	Symbols     bool // add library→symbol edges
	Unresolved  bool // include placeholder-named symbols
	ImportsOnly bool // drop export libraries
}

// Build constructs a lattice.Graph from the walked tables and the resolved
// symbols. The module is the root node; edges run module→library and,
// optionally, library→symbol.
func Build(tables *prx.Tables, symbols []inject.Symbol, opts Options) *lattice.Graph {
	g := &lattice.Graph{}
	seen := make(map[string]bool)
	addNode := func(name string) {
		if !seen[name] {
			seen[name] = true
			g.Nodes = append(g.Nodes, name)
		}
	}

	module := tables.Module.Name
	if module == "" {
		module = "module"
	}
	addNode(module)

	if !opts.ImportsOnly {
		for _, lib := range tables.Exports {
			addNode(lib.Name)
			g.Edges = append(g.Edges, lattice.Edge{Caller: module, Callee: lib.Name})
		}
	}
	for _, lib := range tables.Imports {
		addNode(lib.Name)
		g.Edges = append(g.Edges, lattice.Edge{Caller: module, Callee: lib.Name})
	}

	if opts.Symbols {
		for _, sym := range symbols {
			if !sym.Resolved && !opts.Unresolved {
				continue
			}
			if opts.ImportsOnly && sym.Direction == inject.Export {
				continue
			}
			addNode(sym.Name)
			g.Edges = append(g.Edges, lattice.Edge{Caller: sym.Library, Callee: sym.Name})
		}
	}

	g.Dedup()
	return g
}

// DOT renders the graph in Graphviz format.
func DOT(g *lattice.Graph, name string) string {
	return render.DOT(g, name)
}
