// Package prx locates and walks the SCE PRX2 metadata embedded in a Vita
// eboot image: the SceModuleInfo record and the export/import library tables
// it points to.
package prx

import (
	"errors"
	"fmt"

	"vitaelf/internal/elfx"
	"vitaelf/internal/prxfmt"
)

var (
	// ErrInvalidModuleInfo indicates the located SceModuleInfo fails
	// validation. The whole run aborts: no partial resolution is safer
	// than a garbage report.
	ErrInvalidModuleInfo = errors.New("prx: invalid SceModuleInfo")

	// ErrUnsupportedStubLayout flags the compact 0x24-byte import record
	// introduced by newer toolchains. Its field layout is not verified,
	// so it is surfaced instead of guessed.
	ErrUnsupportedStubLayout = errors.New("prx: unsupported import stub layout")
)

// ModuleInfoSize is the byte size of SceModuleInfo_prx2arm.
const ModuleInfoSize = 0x5C

// ModuleInfo is the parsed SceModuleInfo record.
//
// Layout (vendor-documented, a binary contract):
//
//	+0x00: modattribute  u16
//	+0x02: modversion    [2]u8
//	+0x04: modname       [26]byte (NUL-padded)
//	+0x1e: terminal      u8
//	+0x1f: infoversion   u8
//	+0x20: resreve       u32
//	+0x24: ent_top       u32   export table start, segment-relative
//	+0x28: ent_end       u32
//	+0x2c: stub_top      u32   import table start, segment-relative
//	+0x30: stub_end      u32
//	+0x34: dbg_fingerprint u32 (module NID)
//	+0x38: tls_top/tls_filesz/tls_memsz  3×u32
//	+0x44: start_entry, stop_entry       2×u32
//	+0x4c: arm_exidx_top/end, arm_extab_top/end  4×u32
type ModuleInfo struct {
	Attributes  uint16 `json:"attributes"`
	Version     [2]uint8 `json:"version"`
	Name        string `json:"name"`
	InfoVersion uint8  `json:"info_version"`
	ModuleNID   uint32 `json:"module_nid"`

	ExportTop uint32 `json:"export_top"`
	ExportEnd uint32 `json:"export_end"`
	ImportTop uint32 `json:"import_top"`
	ImportEnd uint32 `json:"import_end"`

	TLSTop     uint32 `json:"tls_top,omitempty"`
	TLSFileSz  uint32 `json:"tls_filesz,omitempty"`
	TLSMemSz   uint32 `json:"tls_memsz,omitempty"`
	StartEntry uint32 `json:"start_entry,omitempty"`
	StopEntry  uint32 `json:"stop_entry,omitempty"`
	ExidxTop   uint32 `json:"exidx_top,omitempty"`
	ExidxEnd   uint32 `json:"exidx_end,omitempty"`
	ExtabTop   uint32 `json:"extab_top,omitempty"`
	ExtabEnd   uint32 `json:"extab_end,omitempty"`

	// FileOffset is where the record sits in the image; SegmentOff is the
	// file offset of the segment the table pointers are relative to.
	FileOffset uint32 `json:"file_offset"`
	SegmentOff uint32 `json:"segment_off"`
}

// LocateModuleInfo derives the SceModuleInfo file offset from the ELF
// entry-point field: the top byte selects the program header, the low 24
// bits are the record's location within that segment's virtual range.
func LocateModuleInfo(f *elfx.File) (uint32, error) {
	idx := int(f.Entry >> 24)
	if idx >= len(f.Progs) {
		return 0, fmt.Errorf("%w: entry point selects program header %d of %d",
			ErrInvalidModuleInfo, idx, len(f.Progs))
	}
	seg := f.Progs[idx]
	// The low 24 bits are segment-relative. Images whose segment VA fits in
	// 24 bits encode the virtual address instead; strip the base then.
	rel := f.Entry & 0x00FFFFFF
	if rel >= seg.Vaddr {
		rel -= seg.Vaddr
	}
	off := seg.Off + rel
	if int(off)+ModuleInfoSize > f.Size() {
		return 0, fmt.Errorf("%w: offset 0x%x past image end 0x%x",
			ErrInvalidModuleInfo, off, f.Size())
	}
	return off, nil
}

// ParseModuleInfo reads and validates the record at the given file offset.
func ParseModuleInfo(f *elfx.File, off uint32) (*ModuleInfo, error) {
	data, err := f.ReadAt(off, ModuleInfoSize)
	if err != nil || len(data) < ModuleInfoSize {
		return nil, fmt.Errorf("%w: short read at 0x%x", ErrInvalidModuleInfo, off)
	}

	s := prxfmt.NewStream(data)
	mi := &ModuleInfo{FileOffset: off}
	mi.Attributes, _ = s.ReadUint16()
	v0, _ := s.ReadUint8()
	v1, _ := s.ReadUint8()
	mi.Version = [2]uint8{v0, v1}
	nameRaw, _ := s.ReadBytes(26)
	mi.Name = cstr(nameRaw)
	_, _ = s.ReadUint8() // terminal
	mi.InfoVersion, _ = s.ReadUint8()
	_, _ = s.ReadUint32() // resreve
	mi.ExportTop, _ = s.ReadUint32()
	mi.ExportEnd, _ = s.ReadUint32()
	mi.ImportTop, _ = s.ReadUint32()
	mi.ImportEnd, _ = s.ReadUint32()
	mi.ModuleNID, _ = s.ReadUint32()
	mi.TLSTop, _ = s.ReadUint32()
	mi.TLSFileSz, _ = s.ReadUint32()
	mi.TLSMemSz, _ = s.ReadUint32()
	mi.StartEntry, _ = s.ReadUint32()
	mi.StopEntry, _ = s.ReadUint32()
	mi.ExidxTop, _ = s.ReadUint32()
	mi.ExidxEnd, _ = s.ReadUint32()
	mi.ExtabTop, _ = s.ReadUint32()
	if mi.ExtabEnd, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("%w: truncated at 0x%x", ErrInvalidModuleInfo, off)
	}

	segs := f.LoadSegments()
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no PT_LOAD segments", ErrInvalidModuleInfo)
	}
	mi.SegmentOff = segs[0].Off

	if err := mi.validate(uint32(f.Size())); err != nil {
		return nil, err
	}
	return mi, nil
}

func (mi *ModuleInfo) validate(imageSize uint32) error {
	if mi.ExportEnd < mi.ExportTop {
		return fmt.Errorf("%w: export range 0x%x..0x%x", ErrInvalidModuleInfo, mi.ExportTop, mi.ExportEnd)
	}
	if mi.ImportEnd < mi.ImportTop {
		return fmt.Errorf("%w: import range 0x%x..0x%x", ErrInvalidModuleInfo, mi.ImportTop, mi.ImportEnd)
	}
	// 64-bit sums: a table end near 2^32 must not wrap past the check.
	if uint64(mi.SegmentOff)+uint64(mi.ExportEnd) > uint64(imageSize) {
		return fmt.Errorf("%w: export table end 0x%x past image end", ErrInvalidModuleInfo, uint64(mi.SegmentOff)+uint64(mi.ExportEnd))
	}
	if uint64(mi.SegmentOff)+uint64(mi.ImportEnd) > uint64(imageSize) {
		return fmt.Errorf("%w: import table end 0x%x past image end", ErrInvalidModuleInfo, uint64(mi.SegmentOff)+uint64(mi.ImportEnd))
	}
	return nil
}

// cstr trims a NUL-padded fixed-width name field.
func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
