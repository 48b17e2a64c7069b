package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"vitaelf/internal/elfx"
	"vitaelf/internal/headers"
	"vitaelf/internal/host"
	"vitaelf/internal/logging"
	"vitaelf/internal/niddb"
	"vitaelf/internal/output"
	"vitaelf/internal/prxfmt"
	"vitaelf/internal/resolve"
)

// engineFlags is the flag surface shared by resolve, spans and graph.
type engineFlags struct {
	elfPath   string
	dbPaths   string
	headers   string
	strict    bool
	maxSweeps int
}

func (ef *engineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&ef.elfPath, "elf", "", "path to the eboot/PRX2 ELF image")
	fs.StringVar(&ef.dbPaths, "db", "", "NID database fragments, comma-separated, merged left to right")
	fs.StringVar(&ef.headers, "headers", "", "preprocessed C header corpus")
	fs.BoolVar(&ef.strict, "strict", false, "fail on first structural error")
	fs.IntVar(&ef.maxSweeps, "max-sweeps", 0, "sweep convergence cap")
}

// runEngine loads the inputs and executes one full resolution run over an
// in-memory host.
func (ef *engineFlags) runEngine() (*resolve.Report, *host.Memory, error) {
	if ef.elfPath == "" {
		return nil, nil, fmt.Errorf("--elf is required")
	}
	if ef.dbPaths == "" {
		return nil, nil, fmt.Errorf("--db is required")
	}

	f, err := elfx.Open(ef.elfPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	db := niddb.New()
	for _, path := range strings.Split(ef.dbPaths, ",") {
		if err := db.LoadFile(strings.TrimSpace(path)); err != nil {
			return nil, nil, err
		}
	}

	var cat *headers.Catalogue
	if ef.headers != "" {
		cat = headers.NewCatalogue()
		if err := cat.LoadFile(ef.headers); err != nil {
			return nil, nil, err
		}
	}

	opts := prxfmt.Options{Mode: prxfmt.ModeBestEffort, MaxSweeps: ef.maxSweeps}
	if ef.strict {
		opts.Mode = prxfmt.ModeStrict
	}

	m := host.NewMemory(f)
	rep, err := resolve.New(f, db, cat, m, opts).Run()
	if err != nil {
		return nil, nil, err
	}
	return rep, m, nil
}

func cmdResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	var ef engineFlags
	ef.register(fs)
	outDir := fs.String("out", "", "output directory")
	jsonOut := fs.Bool("json", false, "output full report as JSON to stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lg := logging.NewLogger()
	defer lg.Close()

	rep, _, err := ef.runEngine()
	if err != nil {
		return err
	}

	lg.Info("resolution complete",
		"module", rep.Module.Name,
		"symbols", len(rep.Symbols),
		"resolved", rep.Resolved(),
		"unresolved", rep.Unresolved(),
		"sweeps", rep.Sweeps,
		"spans", len(rep.Spans))
	for _, u := range rep.Unsupported {
		lg.Warn("unsupported import stub layout", "offset", fmt.Sprintf("0x%x", u.FileOffset), "structsize", fmt.Sprintf("0x%x", u.StructSize))
	}
	if len(rep.Suspect) > 0 {
		lg.Warn("suspect functions in non-executable segments", "count", len(rep.Suspect))
	}

	if *outDir != "" {
		if err := output.WriteReportJSON(*outDir, rep); err != nil {
			return err
		}
		if err := output.WriteSymbolsJSON(*outDir, rep); err != nil {
			return err
		}
		if err := output.WriteSpansJSON(*outDir, rep.Spans); err != nil {
			return err
		}
		lg.Info("report written", "dir", *outDir)
		return nil
	}
	if *jsonOut {
		return output.EncodeJSON(os.Stdout, rep)
	}

	for _, lib := range rep.Libraries {
		fmt.Printf("%-28s %-6s  %d functions, %d variables, %d resolved\n",
			lib.Name, lib.Dir, lib.Functions, lib.Variables, lib.Resolved)
	}
	for _, sym := range rep.Symbols {
		marker := " "
		if !sym.Resolved {
			marker = "?"
		}
		name := sym.Name
		if sym.Display != "" {
			name = fmt.Sprintf("%s (%s)", sym.Name, sym.Display)
		}
		fmt.Printf("%s 0x%08x  %-8s %-6s %s\n",
			marker, sym.Address, sym.Kind, sym.Direction, name)
	}
	return nil
}

func cmdSpans(args []string) error {
	fs := flag.NewFlagSet("spans", flag.ExitOnError)
	var ef engineFlags
	ef.register(fs)
	jsonOut := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rep, _, err := ef.runEngine()
	if err != nil {
		return err
	}
	if *jsonOut {
		return output.EncodeJSON(os.Stdout, rep.Spans)
	}
	for _, s := range rep.Spans {
		fmt.Printf("0x%08x..0x%08x  %s\n", s.Start, s.End, s.Mode)
	}
	return nil
}
