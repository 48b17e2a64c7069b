package main

import (
	"flag"
	"fmt"
	"os"

	"vitaelf/internal/elfx"
	"vitaelf/internal/output"
	"vitaelf/internal/prx"
)

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	elfPath := fs.String("elf", "", "path to the eboot/PRX2 ELF image")
	jsonOut := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *elfPath == "" {
		return fmt.Errorf("--elf is required")
	}

	ef, err := elfx.Open(*elfPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	off, err := prx.LocateModuleInfo(ef)
	if err != nil {
		return err
	}
	mi, err := prx.ParseModuleInfo(ef, off)
	if err != nil {
		return err
	}

	if *jsonOut {
		return output.EncodeJSON(os.Stdout, mi)
	}

	fmt.Printf("ELF: e_type=0x%04x (SCE: %v), %d bytes, entry=0x%08x\n",
		ef.Type, ef.IsSCEType(), ef.Size(), ef.Entry)
	fmt.Printf("PT_LOAD segments: %d\n", len(ef.LoadSegments()))
	for _, s := range ef.LoadSegments() {
		perm := ""
		if s.Flags&0x4 != 0 {
			perm += "R"
		}
		if s.Flags&0x2 != 0 {
			perm += "W"
		}
		if s.Flags&0x1 != 0 {
			perm += "X"
		}
		fmt.Printf("  VA=0x%08x Off=0x%08x Filesz=0x%08x Memsz=0x%08x %s\n",
			s.Vaddr, s.Off, s.Filesz, s.Memsz, perm)
	}

	fmt.Printf("\nSceModuleInfo at 0x%x:\n", mi.FileOffset)
	fmt.Printf("  Name:       %s\n", mi.Name)
	fmt.Printf("  Version:    %d.%d  attributes=0x%04x  infoversion=%d\n",
		mi.Version[0], mi.Version[1], mi.Attributes, mi.InfoVersion)
	fmt.Printf("  Module NID: 0x%08X\n", mi.ModuleNID)
	fmt.Printf("  Exports:    0x%08x..0x%08x\n", mi.ExportTop, mi.ExportEnd)
	fmt.Printf("  Imports:    0x%08x..0x%08x\n", mi.ImportTop, mi.ImportEnd)
	if mi.StartEntry != 0 {
		fmt.Printf("  Start:      0x%08x\n", mi.StartEntry)
	}
	if mi.StopEntry != 0 {
		fmt.Printf("  Stop:       0x%08x\n", mi.StopEntry)
	}
	return nil
}
