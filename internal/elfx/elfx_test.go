package elfx

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildImage assembles a minimal 32-bit LE ARM ELF with one PT_LOAD segment
// whose file content starts at off 0x80 and maps to vaddr 0x81000000.
func buildImage(t *testing.T, eType uint16, entry uint32, payload []byte) []byte {
	t.Helper()
	le := binary.LittleEndian
	img := make([]byte, 0x80+len(payload))
	copy(img, []byte{0x7F, 'E', 'L', 'F', 1, 1, 1})
	le.PutUint16(img[16:], eType)
	le.PutUint16(img[18:], 0x28) // EM_ARM
	le.PutUint32(img[20:], 1)    // e_version
	le.PutUint32(img[24:], entry)
	le.PutUint32(img[28:], 0x34) // e_phoff
	le.PutUint16(img[40:], 0x34) // e_ehsize
	le.PutUint16(img[42:], 0x20) // e_phentsize
	le.PutUint16(img[44:], 1)    // e_phnum

	ph := img[0x34:]
	le.PutUint32(ph[0:], 1) // PT_LOAD
	le.PutUint32(ph[4:], 0x80)
	le.PutUint32(ph[8:], 0x81000000)
	le.PutUint32(ph[16:], uint32(len(payload)))
	le.PutUint32(ph[20:], uint32(len(payload)))
	le.PutUint32(ph[24:], 5) // R+X

	copy(img[0x80:], payload)
	return img
}

func TestNewFileValid(t *testing.T) {
	img := buildImage(t, TypeSceRelExec, 0x1000, []byte{1, 2, 3, 4})
	f, err := NewFile(img)
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsSCEType() {
		t.Error("ET_SCE_RELEXEC not recognized as SCE type")
	}
	if f.Entry != 0x1000 {
		t.Errorf("Entry = %#x, want 0x1000", f.Entry)
	}
	segs := f.LoadSegments()
	if len(segs) != 1 {
		t.Fatalf("got %d PT_LOAD segments, want 1", len(segs))
	}
	if segs[0].Vaddr != 0x81000000 || segs[0].Off != 0x80 {
		t.Errorf("segment = %+v", segs[0])
	}
}

func TestNewFileRejects(t *testing.T) {
	tests := []struct {
		name string
		mut  func([]byte)
		want error
	}{
		{"not elf", func(b []byte) { b[0] = 0 }, ErrNotELF},
		{"64-bit", func(b []byte) { b[4] = 2 }, ErrNot32Bit},
		{"big-endian", func(b []byte) { b[5] = 2 }, ErrNotLittleEndian},
		{"x86", func(b []byte) { b[18] = 0x03; b[19] = 0 }, ErrNotARM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := buildImage(t, TypeSceExec, 0, []byte{0})
			tt.mut(img)
			_, err := NewFile(img)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewFileTruncated(t *testing.T) {
	if _, err := NewFile([]byte("\x7fELF\x01\x01\x01")); !errors.Is(err, ErrNotELF) {
		t.Errorf("short header: got %v, want ErrNotELF", err)
	}
	img := buildImage(t, TypeSceExec, 0, []byte{0})
	if _, err := NewFile(img[:0x40]); !errors.Is(err, ErrTruncated) {
		t.Errorf("truncated phdr: got %v", err)
	}
}

func TestVAToFileOffset(t *testing.T) {
	img := buildImage(t, TypeSceExec, 0, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	f, err := NewFile(img)
	if err != nil {
		t.Fatal(err)
	}
	off, err := f.VAToFileOffset(0x81000002)
	if err != nil {
		t.Fatal(err)
	}
	if off != 0x82 {
		t.Errorf("off = %#x, want 0x82", off)
	}
	if _, err := f.VAToFileOffset(0xDEAD0000); !errors.Is(err, ErrNoSegment) {
		t.Errorf("unmapped VA: got %v, want ErrNoSegment", err)
	}
}

func TestReadBytesAtVA(t *testing.T) {
	img := buildImage(t, TypeSceExec, 0, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	f, err := NewFile(img)
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.ReadBytesAtVA(0x81000001, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 0xBB || got[1] != 0xCC {
		t.Errorf("got % x, want bb cc", got)
	}
	// Reads past the file end are clamped, not failed.
	got, err = f.ReadBytesAtVA(0x81000002, 16)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("clamped read returned %d bytes, want 2", len(got))
	}
}
