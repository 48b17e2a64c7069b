package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = cmdInfo(os.Args[2:])
	case "exports":
		err = cmdExports(os.Args[2:])
	case "imports":
		err = cmdImports(os.Args[2:])
	case "resolve":
		err = cmdResolve(os.Args[2:])
	case "spans":
		err = cmdSpans(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `vitaelf — PS Vita PRX2 NID resolution engine

Usage:
  vitaelf info    --elf <path> [--json]                 Print module info and segments
  vitaelf exports --elf <path> [--json]                 Walk the export library tables
  vitaelf imports --elf <path> [--json]                 Walk the import library tables
  vitaelf resolve --elf <path> --db <yml>[,<yml>...]    Resolve NIDs and report symbols
                  [--headers <file>] [--out <dir>]
  vitaelf spans   --elf <path> --db <yml>[,<yml>...]    Propose ARM/Thumb spans
  vitaelf graph   --elf <path> --db <yml>[,<yml>...]    Library dependency graph (DOT)
                  [--symbols] [--imports-only]

Flags:
  --elf <path>          Path to the eboot/PRX2 ELF image
  --db <files>          NID database fragments, merged left to right
  --headers <file>      Preprocessed C header corpus for typed prototypes
  --out <dir>           Output directory (default: stdout)
  --strict              Fail on first structural error
  --max-sweeps <n>      Sweep convergence cap (default 3)

Environment:
  VITAELF_LOG_LEVEL     debug, info, warn, error
  VITAELF_LOG_TO_FILE   1 to log to a timestamped file
`)
}
