// Package realign detects ARM/Thumb-2 instruction-set misclassification at
// call targets and proposes corrected instruction-set spans.
//
// The scanner keeps a hypothesis per known target and refines it across
// passes: interworking bits collected from the library tables are
// authoritative, decode validity breaks the remaining ties. It converges
// when a pass changes nothing, at which point every span is confirmed.
package realign

import (
	"encoding/binary"
	"sort"

	"golang.org/x/arch/arm/armasm"

	"vitaelf/internal/elfx"
)

// Mode is the proposed instruction set for a span.
type Mode int

const (
	ModeARM Mode = iota
	ModeThumb
)

func (m Mode) String() string {
	if m == ModeThumb {
		return "thumb"
	}
	return "arm"
}

// State tracks how settled a target's classification is.
type State int

const (
	Unclassified State = iota
	ProbableArm
	ProbableThumb
	Confirmed
)

func (s State) String() string {
	switch s {
	case ProbableArm:
		return "probable-arm"
	case ProbableThumb:
		return "probable-thumb"
	case Confirmed:
		return "confirmed"
	}
	return "unclassified"
}

// Span is one proposed instruction-set region. Spans returned by the
// scanner are ordered by start address and never overlap.
type Span struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	Mode  Mode   `json:"mode"`
}

// probeDepth is how many instructions each validity check examines.
const probeDepth = 4

type target struct {
	addr   uint32
	mode   Mode
	state  State
	hinted bool // interworking bit seen; decode probing cannot override it
}

// Scanner accumulates call targets and refines their mode classification.
type Scanner struct {
	f       *elfx.File
	targets map[uint32]*target
	pending int
	done    bool
}

// NewScanner creates a scanner over a loaded image and seeds the probable
// Thumb hypothesis at the base of the first executable segment; the first
// function of every tested image starts in Thumb state.
func NewScanner(f *elfx.File) *Scanner {
	s := &Scanner{f: f, targets: make(map[uint32]*target)}
	if base, ok := execBase(f); ok {
		s.targets[base] = &target{addr: base, mode: ModeThumb, state: ProbableThumb}
		s.pending++
	}
	return s
}

func execBase(f *elfx.File) (uint32, bool) {
	const pfX = 1
	segs := f.LoadSegments()
	for _, p := range segs {
		if p.Flags&pfX != 0 {
			return p.Vaddr, true
		}
	}
	if len(segs) > 0 {
		return segs[0].Vaddr, true
	}
	return 0, false
}

// AddHint records a call target whose interworking bit is known, typically
// from an export entry or import stub address. The bit is authoritative.
func (s *Scanner) AddHint(addr uint32, thumb bool) {
	mode, state := ModeARM, ProbableArm
	if thumb {
		mode, state = ModeThumb, ProbableThumb
	}
	if t, ok := s.targets[addr]; ok {
		if t.mode != mode {
			t.mode, t.state, t.hinted = mode, state, true
			s.pending++
			s.done = false
		}
		return
	}
	s.targets[addr] = &target{addr: addr, mode: mode, state: state, hinted: true}
	s.pending++
	s.done = false
}

// AddTarget records a call target with no mode information; decode probing
// decides its classification.
func (s *Scanner) AddTarget(addr uint32) {
	if _, ok := s.targets[addr]; ok {
		return
	}
	s.targets[addr] = &target{addr: addr, state: Unclassified}
	s.pending++
	s.done = false
}

// Pass reclassifies every unconfirmed target and returns how many targets
// were new or changed mode. A pass that changes nothing confirms all
// targets; rerun after each host sweep until that happens.
func (s *Scanner) Pass() int {
	changed := s.pending
	s.pending = 0
	for _, t := range s.targets {
		if t.state == Confirmed || t.hinted {
			continue
		}
		mode, decisive := s.classify(t)
		if !decisive {
			continue
		}
		if t.state == Unclassified || mode != t.mode {
			t.mode = mode
			if mode == ModeThumb {
				t.state = ProbableThumb
			} else {
				t.state = ProbableArm
			}
			changed++
		}
	}
	if changed == 0 {
		for _, t := range s.targets {
			t.state = Confirmed
		}
		s.done = true
	}
	return changed
}

// Confirmed reports whether the last pass reached a fixed point.
func (s *Scanner) Confirmed() bool { return s.done }

// classify probes the bytes at a target in both instruction sets. Only a
// result where exactly one set decodes validly is decisive.
func (s *Scanner) classify(t *target) (Mode, bool) {
	data, err := s.f.ReadBytesAtVA(t.addr, probeDepth*4)
	if err != nil {
		return t.mode, false
	}
	arm := armValid(data)
	thumb := ThumbValid(data)
	switch {
	case thumb && !arm:
		return ModeThumb, true
	case arm && !thumb:
		return ModeARM, true
	}
	return t.mode, false
}

// armValid reports whether the region opens with a plausible ARM stream:
// every probed word decodes, and none is the all-zero padding word.
func armValid(data []byte) bool {
	n := 0
	for off := 0; off+4 <= len(data) && n < probeDepth; off += 4 {
		raw := binary.LittleEndian.Uint32(data[off:])
		if raw == 0 {
			return false
		}
		if _, err := armasm.Decode(data[off:off+4], armasm.ModeARM); err != nil {
			return false
		}
		n++
	}
	return n > 0
}

// Spans returns the current proposals in address order. Each span runs to
// the next target or to the end of its segment; adjacent spans with the
// same mode are merged.
func (s *Scanner) Spans() []Span {
	targets := make([]*target, 0, len(s.targets))
	for _, t := range s.targets {
		// An undecided target has no mode to propose; the surrounding
		// span covers it.
		if t.state == Unclassified {
			continue
		}
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].addr < targets[j].addr })

	var spans []Span
	for i, t := range targets {
		end := t.addr
		if seg, ok := s.f.ContainingSegment(t.addr); ok {
			end = seg.Vaddr + seg.Memsz
		}
		if i+1 < len(targets) && targets[i+1].addr < end {
			end = targets[i+1].addr
		}
		if end <= t.addr {
			continue
		}
		if n := len(spans); n > 0 && spans[n-1].Mode == t.mode && spans[n-1].End == t.addr {
			spans[n-1].End = end
			continue
		}
		spans = append(spans, Span{Start: t.addr, End: end, Mode: t.mode})
	}
	return spans
}
