// Little-endian byte stream reader for the fixed-width SCE table records.
package prxfmt

import (
	"encoding/binary"
	"errors"
)

var (
	ErrStreamEOF     = errors.New("stream: unexpected end of data")
	ErrStreamOverrun = errors.New("stream: string not terminated")
)

// Stream reads little-endian scalar fields from a byte region.
type Stream struct {
	data []byte
	pos  int
	end  int
}

// NewStream creates a stream over the given data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data)}
}

// NewStreamAt creates a stream starting at offset within data.
func NewStreamAt(data []byte, offset int) *Stream {
	if offset > len(data) {
		offset = len(data)
	}
	return &Stream{data: data, pos: offset, end: len(data)}
}

// Position returns the current read position.
func (s *Stream) Position() int { return s.pos }

// SetPosition sets the read position.
func (s *Stream) SetPosition(pos int) {
	if pos > s.end {
		pos = s.end
	}
	s.pos = pos
}

// Skip advances the read position by n bytes.
func (s *Stream) Skip(n int) error {
	if s.pos+n > s.end {
		return ErrStreamEOF
	}
	s.pos += n
	return nil
}

// Remaining returns bytes left to read.
func (s *Stream) Remaining() int { return s.end - s.pos }

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if s.pos >= s.end {
		return 0, ErrStreamEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if s.pos+n > s.end {
		return nil, ErrStreamEOF
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// ReadUint8 reads a uint8.
func (s *Stream) ReadUint8() (uint8, error) {
	return s.ReadByte()
}

// ReadUint16 reads a little-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	if s.pos+2 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if s.pos+4 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// ReadCString reads a NUL-terminated ASCII string, consuming the terminator.
// maxLen caps the scan against unterminated data; 0 means scan to end.
func (s *Stream) ReadCString(maxLen int) (string, error) {
	limit := s.end
	if maxLen > 0 && s.pos+maxLen < limit {
		limit = s.pos + maxLen
	}
	for i := s.pos; i < limit; i++ {
		if s.data[i] == 0 {
			v := string(s.data[s.pos:i])
			s.pos = i + 1
			return v, nil
		}
	}
	return "", ErrStreamOverrun
}

// CStringAt reads a NUL-terminated string at an absolute offset in data
// without moving the stream position.
func CStringAt(data []byte, offset int, maxLen int) (string, error) {
	if offset < 0 || offset >= len(data) {
		return "", ErrStreamEOF
	}
	limit := len(data)
	if maxLen > 0 && offset+maxLen < limit {
		limit = offset + maxLen
	}
	for i := offset; i < limit; i++ {
		if data[i] == 0 {
			return string(data[offset:i]), nil
		}
	}
	return "", ErrStreamOverrun
}
