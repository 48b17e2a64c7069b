package realign

import "encoding/binary"

// Thumb-2 validity probing from raw halfword encodings. The x/arch ARM
// decoder only implements the ARM instruction set, so the Thumb side is
// checked directly against the encoding rules that matter here: halfword
// width selection and the permanently-undefined patterns.

// thumb32 reports whether a leading halfword opens a 32-bit encoding.
// Widths are selected by bits [15:11]: 0b11101, 0b11110 and 0b11111.
func thumb32(hw uint16) bool {
	return hw>>11 >= 0x1D
}

// validThumb16 rejects the 16-bit patterns that never occur in live code:
// UDF #imm8 (0xDExx) and the all-zero halfword that padding produces.
func validThumb16(hw uint16) bool {
	if hw == 0 {
		return false
	}
	if hw&0xFF00 == 0xDE00 {
		return false
	}
	return true
}

// validThumb32 rejects the permanently undefined 32-bit encoding
// (UDF.W: 0xF7Fx 0xAxxx).
func validThumb32(hw1, hw2 uint16) bool {
	if hw1&0xFFF0 == 0xF7F0 && hw2&0xF000 == 0xA000 {
		return false
	}
	return true
}

// ThumbValid reports whether the region opens with a plausible Thumb-2
// instruction stream. Up to four instructions are probed; a truncated
// 32-bit encoding or any undefined pattern fails the region.
func ThumbValid(data []byte) bool {
	pos, n := 0, 0
	for pos+2 <= len(data) && n < probeDepth {
		hw := binary.LittleEndian.Uint16(data[pos:])
		if thumb32(hw) {
			if pos+4 > len(data) {
				break
			}
			hw2 := binary.LittleEndian.Uint16(data[pos+2:])
			if !validThumb32(hw, hw2) {
				return false
			}
			pos += 4
		} else {
			if !validThumb16(hw) {
				return false
			}
			pos += 2
		}
		n++
	}
	return n > 0
}
