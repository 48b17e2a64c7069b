// Package elfx provides ELF loading helpers for PS Vita PRX2 eboot images.
//
// Vita eboots frequently carry stripped or garbage section header tables, so
// this package parses only the ELF header and the program header table by
// hand and never touches e_shoff.
package elfx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

var (
	ErrNotELF          = errors.New("elfx: not an ELF file")
	ErrNot32Bit        = errors.New("elfx: not 32-bit ELF")
	ErrNotLittleEndian = errors.New("elfx: not little-endian")
	ErrNotARM          = errors.New("elfx: not ARM (EM_ARM)")
	ErrNoSegment       = errors.New("elfx: no PT_LOAD segment covers address")
	ErrTruncated       = errors.New("elfx: file truncated")
)

// SCE-specific e_type values carried by PRX2 images.
const (
	TypeSceExec       = 0xFE00 // ET_SCE_EXEC
	TypeSceRelExec    = 0xFE04 // ET_SCE_RELEXEC
	TypeSceARMRelExec = 0xFFA5 // ET_SCE_ARMRELEXEC
)

const (
	emARM  = 0x28
	ptLoad = 1

	ehdrSize = 0x34
)

// ProgHeader is one entry of the program header table.
type ProgHeader struct {
	Type   uint32
	Off    uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Flags  uint32
	Align  uint32
}

// File is a loaded 32-bit little-endian ARM ELF image.
// The whole image is held in memory; eboots are small.
type File struct {
	Type    uint16
	Machine uint16
	Entry   uint32
	Progs   []ProgHeader

	data []byte
}

// Open reads and validates an ELF image from disk.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: open: %w", err)
	}
	f, err := NewFile(data)
	if err != nil {
		return nil, fmt.Errorf("elfx: %s: %w", path, err)
	}
	return f, nil
}

// NewFile parses an in-memory ELF image.
func NewFile(data []byte) (*File, error) {
	if len(data) < ehdrSize {
		return nil, ErrNotELF
	}
	if data[0] != 0x7F || data[1] != 'E' || data[2] != 'L' || data[3] != 'F' {
		return nil, ErrNotELF
	}
	if data[4] != 1 { // EI_CLASS
		return nil, ErrNot32Bit
	}
	if data[5] != 1 { // EI_DATA
		return nil, ErrNotLittleEndian
	}

	le := binary.LittleEndian
	f := &File{
		Type:    le.Uint16(data[16:]),
		Machine: le.Uint16(data[18:]),
		Entry:   le.Uint32(data[24:]),
		data:    data,
	}
	if f.Machine != emARM {
		return nil, ErrNotARM
	}

	phoff := le.Uint32(data[28:])
	phentsize := le.Uint16(data[42:])
	phnum := le.Uint16(data[44:])
	if phnum > 0 && phentsize < 0x20 {
		return nil, fmt.Errorf("%w: phentsize %#x", ErrNotELF, phentsize)
	}
	for i := 0; i < int(phnum); i++ {
		off := int(phoff) + i*int(phentsize)
		if off+0x20 > len(data) {
			return nil, fmt.Errorf("%w: program header %d at %#x", ErrTruncated, i, off)
		}
		p := data[off:]
		f.Progs = append(f.Progs, ProgHeader{
			Type:   le.Uint32(p[0:]),
			Off:    le.Uint32(p[4:]),
			Vaddr:  le.Uint32(p[8:]),
			Paddr:  le.Uint32(p[12:]),
			Filesz: le.Uint32(p[16:]),
			Memsz:  le.Uint32(p[20:]),
			Flags:  le.Uint32(p[24:]),
			Align:  le.Uint32(p[28:]),
		})
	}
	return f, nil
}

// IsSCEType reports whether e_type is one of the SCE executable types.
func (f *File) IsSCEType() bool {
	switch f.Type {
	case TypeSceExec, TypeSceRelExec, TypeSceARMRelExec:
		return true
	}
	return false
}

// Size returns the image size in bytes.
func (f *File) Size() int { return len(f.data) }

// Bytes returns the raw image.
func (f *File) Bytes() []byte { return f.data }

// LoadSegments returns all PT_LOAD program headers in table order.
func (f *File) LoadSegments() []ProgHeader {
	var segs []ProgHeader
	for _, p := range f.Progs {
		if p.Type == ptLoad {
			segs = append(segs, p)
		}
	}
	return segs
}

// VAToFileOffset converts a virtual address to a file offset using PT_LOAD segments.
func (f *File) VAToFileOffset(va uint32) (uint32, error) {
	for _, p := range f.Progs {
		if p.Type != ptLoad {
			continue
		}
		if va >= p.Vaddr && va < p.Vaddr+p.Memsz {
			off := va - p.Vaddr + p.Off
			if int(off) >= len(f.data) {
				return 0, fmt.Errorf("elfx: VA 0x%x maps to offset 0x%x beyond file size 0x%x", va, off, len(f.data))
			}
			return off, nil
		}
	}
	return 0, fmt.Errorf("%w: VA 0x%x", ErrNoSegment, va)
}

// ReadAt reads n bytes at a file offset, clamped to the image end.
func (f *File) ReadAt(off uint32, n int) ([]byte, error) {
	if int(off) >= len(f.data) {
		return nil, fmt.Errorf("%w: offset 0x%x", ErrTruncated, off)
	}
	end := int(off) + n
	if end > len(f.data) {
		end = len(f.data)
	}
	return f.data[off:end], nil
}

// ReadBytesAtVA reads n bytes starting at the given virtual address,
// clamped to the containing segment's file image.
func (f *File) ReadBytesAtVA(va uint32, n int) ([]byte, error) {
	off, err := f.VAToFileOffset(va)
	if err != nil {
		return nil, err
	}
	return f.ReadAt(off, n)
}

// ContainingSegment returns the PT_LOAD segment whose virtual range covers va.
func (f *File) ContainingSegment(va uint32) (ProgHeader, bool) {
	for _, p := range f.Progs {
		if p.Type == ptLoad && va >= p.Vaddr && va < p.Vaddr+p.Memsz {
			return p, true
		}
	}
	return ProgHeader{}, false
}
