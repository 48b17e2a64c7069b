package prx

import (
	"fmt"

	"vitaelf/internal/elfx"
	"vitaelf/internal/prxfmt"
)

// SymbolKind distinguishes code entries from data entries in the NID tables.
type SymbolKind int

const (
	KindFunction SymbolKind = iota
	KindVariable
)

func (k SymbolKind) String() string {
	if k == KindVariable {
		return "variable"
	}
	return "function"
}

// Entry is one (NID, address) pair from an export or import table.
type Entry struct {
	NID     uint32     `json:"nid"`
	Address uint32     `json:"address"`
	Thumb   bool       `json:"thumb,omitempty"`
	Kind    SymbolKind `json:"-"`
}

// ExportLibrary is one parsed scelibent record plus its entry pairs.
type ExportLibrary struct {
	StructSize uint8  `json:"struct_size"`
	Version    uint16 `json:"version"`
	Attribute  uint16 `json:"attribute"`
	LibraryNID uint32 `json:"library_nid"`
	Name       string `json:"name"`
	Noname     bool   `json:"noname,omitempty"`

	NIDTable   uint32 `json:"nid_table"`
	EntryTable uint32 `json:"entry_table"`
	FileOffset uint32 `json:"file_offset"`

	Functions []Entry `json:"functions,omitempty"`
	Variables []Entry `json:"variables,omitempty"`
}

// Export record constants. A full scelibent_prx2arm record is 0x20 bytes;
// 0x1C-byte records omit the hash-info block, with the four pointer words
// packed directly after the counts. The pointer words always occupy the
// last 16 bytes of the record, whatever its declared size.
const (
	exportEntryMin  = 0x1C
	exportEntryFull = 0x20

	// NONAME export libraries carry this attribute and a zero name pointer.
	attrNoname = 0x8000
)

// Well-known NIDs exported by every module's NONAME library.
const (
	NIDModuleStart     = 0x935CD196
	NIDModuleStop      = 0x79F8E492
	NIDModuleExit      = 0x913482A9
	NIDModuleInfoExp   = 0x6C2224BA
	NIDModuleProcParam = 0x70FBA1E7
	NIDModuleSDKVer    = 0x936C8A78
)

// WellKnownName maps the NONAME special NIDs to their conventional symbol
// names. The second result reports whether the entry points at code.
func WellKnownName(nid uint32) (name string, code bool, ok bool) {
	switch nid {
	case NIDModuleStart:
		return "module_start", true, true
	case NIDModuleStop:
		return "module_stop", true, true
	case NIDModuleExit:
		return "module_exit", true, true
	case NIDModuleInfoExp:
		return "module_info", false, true
	case NIDModuleProcParam:
		return "module_proc_param", false, true
	case NIDModuleSDKVer:
		return "module_sdk_version", false, true
	}
	return "", false, false
}

// WalkExports parses every export library between ExportTop and ExportEnd.
// Records advance by their declared structsize; a size that cannot be
// trusted aborts the remainder of the table since the chain is lost.
func WalkExports(f *elfx.File, mi *ModuleInfo, opts prxfmt.Options, diags *prxfmt.Diags) ([]ExportLibrary, error) {
	start := mi.SegmentOff + mi.ExportTop
	end := mi.SegmentOff + mi.ExportEnd
	if start == end {
		return nil, nil
	}
	data, err := f.ReadAt(start, int(end-start))
	if err != nil {
		return nil, fmt.Errorf("prx: export table: %w", err)
	}

	var libs []ExportLibrary
	s := prxfmt.NewStream(data)
	for s.Remaining() >= exportEntryMin {
		recOff := start + uint32(s.Position())
		lib, err := parseExportRecord(f, s, recOff, opts, diags)
		if err != nil {
			if opts.Mode == prxfmt.ModeStrict {
				return libs, fmt.Errorf("prx: export record at 0x%x: %w", recOff, err)
			}
			diags.Add(uint64(recOff), prxfmt.DiagInvalid, err.Error())
			break
		}
		if lib != nil {
			libs = append(libs, *lib)
		}
	}
	return libs, nil
}

func parseExportRecord(f *elfx.File, s *prxfmt.Stream, recOff uint32, opts prxfmt.Options, diags *prxfmt.Diags) (*ExportLibrary, error) {
	pos := s.Position()
	structSize, _ := s.ReadUint8()
	if int(structSize) < exportEntryMin || int(structSize) > s.Remaining()+1 {
		return nil, fmt.Errorf("export record structsize 0x%x out of range", structSize)
	}

	lib := &ExportLibrary{StructSize: structSize, FileOffset: recOff}
	_, _ = s.ReadUint8() // auxattribute
	lib.Version, _ = s.ReadUint16()
	lib.Attribute, _ = s.ReadUint16()
	nfunc, _ := s.ReadUint16()
	nvar, _ := s.ReadUint16()
	ntls, _ := s.ReadUint16()

	// Pointer words sit at the tail of the record.
	s.SetPosition(pos + int(structSize) - 16)
	lib.LibraryNID, _ = s.ReadUint32()
	nameVA, _ := s.ReadUint32()
	var err error
	lib.NIDTable, _ = s.ReadUint32()
	if lib.EntryTable, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("export record truncated")
	}

	if lib.Attribute&attrNoname != 0 && nameVA == 0 {
		lib.Noname = true
		lib.Name = "NONAME"
	} else {
		name, err := readName(f, nameVA)
		if err != nil {
			diags.Addf(uint64(recOff), prxfmt.DiagInvalid, "export library name at VA 0x%x unreadable: %v", nameVA, err)
			lib.Name = "NONAME"
		} else {
			lib.Name = name
		}
	}

	if ntls != 0 {
		diags.Addf(uint64(recOff), prxfmt.DiagSkipped, "export library %s: %d TLS entries ignored", lib.Name, ntls)
	}

	total := int(nfunc) + int(nvar)
	if total > opts.EffectiveMaxEntries() {
		return nil, fmt.Errorf("export library %s: entry count %d exceeds limit", lib.Name, total)
	}
	if total > 0 {
		nids, addrs, err := readPairTables(f, lib.NIDTable, lib.EntryTable, total)
		if err != nil {
			diags.Addf(uint64(recOff), prxfmt.DiagInvalid, "export library %s: %v", lib.Name, err)
		} else {
			for i := 0; i < int(nfunc); i++ {
				e := Entry{NID: nids[i], Address: addrs[i], Kind: KindFunction}
				if e.Address&1 != 0 {
					e.Address &^= 1
					e.Thumb = true
				}
				lib.Functions = append(lib.Functions, e)
			}
			for i := int(nfunc); i < total; i++ {
				if addrs[i] == 0 {
					// Zero-address variable exports are padding.
					continue
				}
				lib.Variables = append(lib.Variables, Entry{NID: nids[i], Address: addrs[i], Kind: KindVariable})
			}
		}
	}
	return lib, nil
}

// readPairTables reads n parallel u32s from the NID table and the address
// table, both given as virtual addresses.
func readPairTables(f *elfx.File, nidVA, addrVA uint32, n int) ([]uint32, []uint32, error) {
	nids, err := readWords(f, nidVA, n)
	if err != nil {
		return nil, nil, fmt.Errorf("NID table at VA 0x%x: %w", nidVA, err)
	}
	addrs, err := readWords(f, addrVA, n)
	if err != nil {
		return nil, nil, fmt.Errorf("entry table at VA 0x%x: %w", addrVA, err)
	}
	return nids, addrs, nil
}

func readWords(f *elfx.File, va uint32, n int) ([]uint32, error) {
	raw, err := f.ReadBytesAtVA(va, n*4)
	if err != nil {
		return nil, err
	}
	if len(raw) < n*4 {
		return nil, fmt.Errorf("table truncated: %d of %d bytes", len(raw), n*4)
	}
	words := make([]uint32, n)
	s := prxfmt.NewStream(raw)
	for i := range words {
		words[i], _ = s.ReadUint32()
	}
	return words, nil
}

func readName(f *elfx.File, va uint32) (string, error) {
	off, err := f.VAToFileOffset(va)
	if err != nil {
		return "", err
	}
	name, err := prxfmt.CStringAt(f.Bytes(), int(off), 256)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("empty name")
	}
	return name, nil
}
