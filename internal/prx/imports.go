package prx

import (
	"fmt"

	"vitaelf/internal/elfx"
	"vitaelf/internal/prxfmt"
)

// ImportLibrary is one parsed scelibstub record plus its stub entry pairs.
type ImportLibrary struct {
	StructSize uint8  `json:"struct_size"`
	Version    uint16 `json:"version"`
	Attribute  uint16 `json:"attribute"`
	LibraryNID uint32 `json:"library_nid"`
	Name       string `json:"name"`
	SDKVersion uint32 `json:"sdk_version,omitempty"`
	FileOffset uint32 `json:"file_offset"`

	Functions []Entry `json:"functions,omitempty"`
	Variables []Entry `json:"variables,omitempty"`
}

// UnsupportedStub records a compact import record that was skipped rather
// than parsed. One is reported per library occurrence.
type UnsupportedStub struct {
	FileOffset uint32 `json:"file_offset"`
	StructSize uint8  `json:"struct_size"`
}

// Import record layout, scelibstub_prx2arm, 0x34 bytes:
//
//	+0x00: structsize u8, reserved1 u8, version u16
//	+0x04: attribute u16, nfunc u16, nvar u16, ntlsvar u16
//	+0x0c: reserved2 [4]byte
//	+0x10: libname_nid u32
//	+0x14: libname     u32 (VA)
//	+0x18: sce_sdk_version u32
//	+0x1c: func_nidtable, func_table   2×u32 (VA)
//	+0x24: var_nidtable, var_table     2×u32 (VA)
//	+0x2c: tls_nidtable, tls_table     2×u32 (VA)
const (
	importEntryFull    = 0x34
	importEntryCompact = 0x24
)

// WalkImports parses every import library between ImportTop and ImportEnd.
// Compact 0x24-byte records are skipped by their declared size with an
// unsupported diagnostic; any other size loses the chain and aborts the
// remainder of the table.
func WalkImports(f *elfx.File, mi *ModuleInfo, opts prxfmt.Options, diags *prxfmt.Diags) ([]ImportLibrary, []UnsupportedStub, error) {
	start := mi.SegmentOff + mi.ImportTop
	end := mi.SegmentOff + mi.ImportEnd
	if start == end {
		return nil, nil, nil
	}
	data, err := f.ReadAt(start, int(end-start))
	if err != nil {
		return nil, nil, fmt.Errorf("prx: import table: %w", err)
	}

	var (
		libs        []ImportLibrary
		unsupported []UnsupportedStub
	)
	s := prxfmt.NewStream(data)
	for s.Remaining() >= importEntryCompact {
		recOff := start + uint32(s.Position())
		pos := s.Position()
		// The size byte sits at +0 in both layouts: the compact record
		// opens with a u16 whose low byte is still the size.
		structSize, _ := s.ReadUint8()

		switch {
		case structSize == importEntryCompact:
			if int(structSize) > s.Remaining()+1 {
				diags.Add(uint64(recOff), prxfmt.DiagTruncated, "compact import record truncated")
				return libs, unsupported, nil
			}
			unsupported = append(unsupported, UnsupportedStub{FileOffset: recOff, StructSize: structSize})
			diags.Addf(uint64(recOff), prxfmt.DiagUnsupported, "%v: structsize 0x%x", ErrUnsupportedStubLayout, structSize)
			if opts.Mode == prxfmt.ModeStrict {
				return libs, unsupported, fmt.Errorf("prx: import record at 0x%x: %w", recOff, ErrUnsupportedStubLayout)
			}
			s.SetPosition(pos + int(structSize))

		case structSize == importEntryFull:
			if int(structSize) > s.Remaining()+1 {
				diags.Add(uint64(recOff), prxfmt.DiagTruncated, "import record truncated")
				return libs, unsupported, nil
			}
			lib, err := parseImportRecord(f, s, recOff, opts, diags)
			if err != nil {
				if opts.Mode == prxfmt.ModeStrict {
					return libs, unsupported, fmt.Errorf("prx: import record at 0x%x: %w", recOff, err)
				}
				diags.Add(uint64(recOff), prxfmt.DiagInvalid, err.Error())
				return libs, unsupported, nil
			}
			libs = append(libs, *lib)
			s.SetPosition(pos + importEntryFull)

		default:
			// An unknown size cannot be skipped over safely.
			diags.Addf(uint64(recOff), prxfmt.DiagInvalid, "import record structsize 0x%x unknown, aborting table", structSize)
			if opts.Mode == prxfmt.ModeStrict {
				return libs, unsupported, fmt.Errorf("prx: import record at 0x%x: structsize 0x%x unknown", recOff, structSize)
			}
			return libs, unsupported, nil
		}
	}
	return libs, unsupported, nil
}

func parseImportRecord(f *elfx.File, s *prxfmt.Stream, recOff uint32, opts prxfmt.Options, diags *prxfmt.Diags) (*ImportLibrary, error) {
	lib := &ImportLibrary{StructSize: importEntryFull, FileOffset: recOff}
	_, _ = s.ReadUint8() // reserved1
	lib.Version, _ = s.ReadUint16()
	lib.Attribute, _ = s.ReadUint16()
	nfunc, _ := s.ReadUint16()
	nvar, _ := s.ReadUint16()
	ntls, _ := s.ReadUint16()
	_ = s.Skip(4) // reserved2
	lib.LibraryNID, _ = s.ReadUint32()
	nameVA, _ := s.ReadUint32()
	lib.SDKVersion, _ = s.ReadUint32()
	funcNIDs, _ := s.ReadUint32()
	funcTable, _ := s.ReadUint32()
	varNIDs, _ := s.ReadUint32()
	varTable, _ := s.ReadUint32()
	_, _ = s.ReadUint32() // tls_nidtable
	var err error
	if _, err = s.ReadUint32(); err != nil { // tls_table
		return nil, fmt.Errorf("import record truncated")
	}

	name, err := readName(f, nameVA)
	if err != nil {
		return nil, fmt.Errorf("import library name at VA 0x%x unreadable: %v", nameVA, err)
	}
	lib.Name = name

	if int(nfunc)+int(nvar) > opts.EffectiveMaxEntries() {
		return nil, fmt.Errorf("import library %s: entry count %d exceeds limit", name, int(nfunc)+int(nvar))
	}
	if ntls != 0 {
		diags.Addf(uint64(recOff), prxfmt.DiagSkipped, "import library %s: %d TLS entries ignored", name, ntls)
	}

	if nfunc > 0 {
		nids, addrs, err := readPairTables(f, funcNIDs, funcTable, int(nfunc))
		if err != nil {
			diags.Addf(uint64(recOff), prxfmt.DiagInvalid, "import library %s functions: %v", name, err)
		} else {
			for i := range nids {
				e := Entry{NID: nids[i], Address: addrs[i], Kind: KindFunction}
				if e.Address&1 != 0 {
					e.Address &^= 1
					e.Thumb = true
				}
				lib.Functions = append(lib.Functions, e)
			}
		}
	}
	if nvar > 0 {
		nids, addrs, err := readPairTables(f, varNIDs, varTable, int(nvar))
		if err != nil {
			diags.Addf(uint64(recOff), prxfmt.DiagInvalid, "import library %s variables: %v", name, err)
		} else {
			for i := range nids {
				if addrs[i] == 0 {
					continue
				}
				lib.Variables = append(lib.Variables, Entry{NID: nids[i], Address: addrs[i], Kind: KindVariable})
			}
		}
	}
	return lib, nil
}
