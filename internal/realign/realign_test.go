package realign

import (
	"encoding/binary"
	"testing"

	"vitaelf/internal/elfx"
)

const (
	segOff   = 0x100
	segVaddr = 0x81000000
	segSize  = 0x200
)

// image builds a one-segment executable ELF for scanner tests.
func image(t *testing.T) ([]byte, *elfx.File) {
	t.Helper()
	buf := make([]byte, segOff+segSize)
	le := binary.LittleEndian
	buf[0] = 0x7F
	copy(buf[1:], "ELF")
	buf[4] = 1
	buf[5] = 1
	le.PutUint16(buf[16:], elfx.TypeSceExec)
	le.PutUint16(buf[18:], 0x28)
	le.PutUint32(buf[28:], 0x34) // e_phoff
	le.PutUint16(buf[42:], 0x20)
	le.PutUint16(buf[44:], 1)
	le.PutUint32(buf[0x34:], 1) // PT_LOAD
	le.PutUint32(buf[0x38:], segOff)
	le.PutUint32(buf[0x3C:], segVaddr)
	le.PutUint32(buf[0x44:], segSize)
	le.PutUint32(buf[0x48:], segSize)
	le.PutUint32(buf[0x4C:], 5) // PF_R|PF_X
	f, err := elfx.NewFile(buf)
	if err != nil {
		t.Fatal(err)
	}
	return buf, f
}

func TestThumbValid(t *testing.T) {
	halfwords := func(hws ...uint16) []byte {
		b := make([]byte, len(hws)*2)
		for i, hw := range hws {
			binary.LittleEndian.PutUint16(b[i*2:], hw)
		}
		return b
	}
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"push-mov-pop", halfwords(0xB510, 0x2000, 0xBD10), true},
		{"udf16", halfwords(0xB510, 0xDEFF), false},
		{"zero padding", halfwords(0, 0, 0), false},
		{"udf32", halfwords(0xF7F0, 0xA000), false},
		{"truncated wide encoding", halfwords(0xF7F0), false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		if got := ThumbValid(tt.data); got != tt.want {
			t.Errorf("%s: ThumbValid = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestArmValid(t *testing.T) {
	words := func(ws ...uint32) []byte {
		b := make([]byte, len(ws)*4)
		for i, w := range ws {
			binary.LittleEndian.PutUint32(b[i*4:], w)
		}
		return b
	}
	if !armValid(words(0xE12FFF1E)) { // bx lr
		t.Error("bx lr should be valid ARM")
	}
	if armValid(words(0)) {
		t.Error("zero word is padding, not ARM")
	}
	if armValid(nil) {
		t.Error("empty region is not ARM")
	}
}

func TestSeedConvergesToThumbSpan(t *testing.T) {
	// Segment bytes stay zero: decoding is indecisive both ways, so the
	// seeded Thumb hypothesis survives and confirms on the second pass.
	_, f := image(t)
	s := NewScanner(f)
	if n := s.Pass(); n == 0 {
		t.Fatal("first pass should report the seeded target")
	}
	if s.Confirmed() {
		t.Fatal("confirmed too early")
	}
	if n := s.Pass(); n != 0 {
		t.Fatalf("second pass changed %d targets, want fixed point", n)
	}
	if !s.Confirmed() {
		t.Fatal("fixed point not confirmed")
	}

	spans := s.Spans()
	if len(spans) != 1 {
		t.Fatalf("spans = %+v, want one", spans)
	}
	want := Span{Start: segVaddr, End: segVaddr + segSize, Mode: ModeThumb}
	if spans[0] != want {
		t.Errorf("span = %+v, want %+v", spans[0], want)
	}
}

func TestHintSpansOrderedAndMerged(t *testing.T) {
	_, f := image(t)
	s := NewScanner(f)
	s.AddHint(segVaddr+0x180, true)
	s.AddHint(segVaddr+0x100, false)
	s.AddHint(segVaddr+0x40, true) // merges into the seed span
	for s.Pass() != 0 {
	}

	spans := s.Spans()
	if len(spans) != 3 {
		t.Fatalf("spans = %+v, want 3", spans)
	}
	want := []Span{
		{Start: segVaddr, End: segVaddr + 0x100, Mode: ModeThumb},
		{Start: segVaddr + 0x100, End: segVaddr + 0x180, Mode: ModeARM},
		{Start: segVaddr + 0x180, End: segVaddr + segSize, Mode: ModeThumb},
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span[%d] = %+v, want %+v", i, spans[i], want[i])
		}
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].End {
			t.Errorf("spans overlap: %+v then %+v", spans[i-1], spans[i])
		}
	}
}

func TestDecodeClassifiesArm(t *testing.T) {
	buf, _ := image(t)
	// mov r0, #0: valid ARM, leading zero halfword kills the Thumb reading.
	target := uint32(segVaddr + 0x80)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[segOff+0x80+i*4:], 0xE3A00000)
	}
	f, err := elfx.NewFile(buf)
	if err != nil {
		t.Fatal(err)
	}

	s := NewScanner(f)
	s.AddTarget(target)
	for s.Pass() != 0 {
	}
	spans := s.Spans()
	var found *Span
	for i := range spans {
		if spans[i].Start == target {
			found = &spans[i]
			break
		}
	}
	if found == nil || found.Mode != ModeARM {
		t.Fatalf("target span = %+v, want ARM at 0x%x", found, target)
	}
}

func TestUndecidedTargetEmitsNoSpan(t *testing.T) {
	// A target over zeroed bytes never classifies; it must not split the
	// surrounding span or propose a default mode.
	_, f := image(t)
	s := NewScanner(f)
	s.AddTarget(segVaddr + 0x120)
	for s.Pass() != 0 {
	}

	spans := s.Spans()
	if len(spans) != 1 {
		t.Fatalf("spans = %+v, want only the seed span", spans)
	}
	want := Span{Start: segVaddr, End: segVaddr + segSize, Mode: ModeThumb}
	if spans[0] != want {
		t.Errorf("span = %+v, want %+v", spans[0], want)
	}
}

func TestHintBeatsDecode(t *testing.T) {
	buf, _ := image(t)
	target := uint32(segVaddr + 0xC0)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[segOff+0xC0+i*4:], 0xE3A00000)
	}
	f, err := elfx.NewFile(buf)
	if err != nil {
		t.Fatal(err)
	}

	s := NewScanner(f)
	s.AddHint(target, true) // interworking bit says Thumb
	for s.Pass() != 0 {
	}
	for _, sp := range s.Spans() {
		if target >= sp.Start && target < sp.End && sp.Mode != ModeThumb {
			t.Fatalf("hinted target reclassified: %+v", sp)
		}
	}
}
