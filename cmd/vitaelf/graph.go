package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"vitaelf/internal/elfx"
	"vitaelf/internal/inject"
	"vitaelf/internal/libgraph"
	"vitaelf/internal/prx"
	"vitaelf/internal/prxfmt"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	var ef engineFlags
	ef.register(fs)
	symbols := fs.Bool("symbols", false, "include library→symbol edges")
	unresolved := fs.Bool("unresolved", false, "include placeholder-named symbols")
	importsOnly := fs.Bool("imports-only", false, "drop export libraries")
	outPath := fs.String("out", "", "write DOT to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if ef.elfPath == "" {
		return fmt.Errorf("--elf is required")
	}

	f, err := elfx.Open(ef.elfPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	tables, err := prx.Extract(f, prxfmt.Options{Mode: prxfmt.ModeBestEffort})
	if err != nil {
		return err
	}

	// Symbol edges need resolution, and resolution needs a database.
	var syms []inject.Symbol
	if ef.dbPaths != "" {
		rep, _, err := ef.runEngine()
		if err != nil {
			return err
		}
		syms = rep.Symbols
	} else if *symbols {
		return fmt.Errorf("--symbols requires --db")
	}

	g := libgraph.Build(tables, syms, libgraph.Options{
		Symbols:     *symbols,
		Unresolved:  *unresolved,
		ImportsOnly: *importsOnly,
	})
	dot := libgraph.DOT(g, tables.Module.Name+" libraries")

	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		return os.WriteFile(*outPath, []byte(dot), 0644)
	}
	fmt.Print(dot)
	return nil
}
