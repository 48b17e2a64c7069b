package main

import (
	"flag"
	"fmt"
	"os"

	"vitaelf/internal/elfx"
	"vitaelf/internal/output"
	"vitaelf/internal/prx"
	"vitaelf/internal/prxfmt"
)

func extractTables(elfPath string, strict bool) (*prx.Tables, error) {
	ef, err := elfx.Open(elfPath)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	opts := prxfmt.Options{Mode: prxfmt.ModeBestEffort}
	if strict {
		opts.Mode = prxfmt.ModeStrict
	}
	return prx.Extract(ef, opts)
}

func cmdExports(args []string) error {
	fs := flag.NewFlagSet("exports", flag.ExitOnError)
	elfPath := fs.String("elf", "", "path to the eboot/PRX2 ELF image")
	strict := fs.Bool("strict", false, "fail on first structural error")
	jsonOut := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *elfPath == "" {
		return fmt.Errorf("--elf is required")
	}

	tables, err := extractTables(*elfPath, *strict)
	if err != nil {
		return err
	}
	if *jsonOut {
		return output.EncodeJSON(os.Stdout, tables.Exports)
	}

	for _, lib := range tables.Exports {
		fmt.Printf("%s  nid=0x%08X  attr=0x%04x  %d functions, %d variables\n",
			lib.Name, lib.LibraryNID, lib.Attribute, len(lib.Functions), len(lib.Variables))
		for _, e := range lib.Functions {
			mode := ""
			if e.Thumb {
				mode = "  thumb"
			}
			fmt.Printf("  0x%08X  0x%08x  function%s\n", e.NID, e.Address, mode)
		}
		for _, e := range lib.Variables {
			fmt.Printf("  0x%08X  0x%08x  variable\n", e.NID, e.Address)
		}
	}
	printDiags(tables)
	return nil
}

func cmdImports(args []string) error {
	fs := flag.NewFlagSet("imports", flag.ExitOnError)
	elfPath := fs.String("elf", "", "path to the eboot/PRX2 ELF image")
	strict := fs.Bool("strict", false, "fail on first structural error")
	jsonOut := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *elfPath == "" {
		return fmt.Errorf("--elf is required")
	}

	tables, err := extractTables(*elfPath, *strict)
	if err != nil {
		return err
	}
	if *jsonOut {
		return output.EncodeJSON(os.Stdout, tables.Imports)
	}

	for _, lib := range tables.Imports {
		fmt.Printf("%s  nid=0x%08X  sdk=0x%08x  %d functions, %d variables\n",
			lib.Name, lib.LibraryNID, lib.SDKVersion, len(lib.Functions), len(lib.Variables))
		for _, e := range lib.Functions {
			fmt.Printf("  0x%08X  stub 0x%08x\n", e.NID, e.Address)
		}
		for _, e := range lib.Variables {
			fmt.Printf("  0x%08X  0x%08x  variable\n", e.NID, e.Address)
		}
	}
	for _, u := range tables.Unsupported {
		fmt.Printf("unsupported stub record at 0x%x (structsize 0x%x)\n", u.FileOffset, u.StructSize)
	}
	printDiags(tables)
	return nil
}

func printDiags(tables *prx.Tables) {
	for _, d := range tables.Diags {
		fmt.Fprintln(os.Stderr, d)
	}
}
