// Package media patches container metadata on streamed WebM audio.
//
// MediaRecorder-style streaming capture emits a WebM/Matroska stream whose
// Segment Info carries no Duration element, so players report an unknown
// length and cannot seek. PatchDuration rewrites only the Segment Info
// element, leaving cluster (sample) data untouched.
package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Matroska element IDs, as they appear on the wire.
const (
	idEBML          = 0x1A45DFA3
	idSegment       = 0x18538067
	idInfo          = 0x1549A966
	idTimecodeScale = 0x2AD7B1
	idDuration      = 0x4489
)

// Default TimecodeScale is 1ms expressed in nanoseconds.
const defaultTimecodeScale = 1_000_000

var (
	// ErrNotWebM is returned when the buffer does not start with an EBML header.
	ErrNotWebM = errors.New("media: not a webm stream")
	// ErrNoSegmentInfo is returned when the stream has no Segment Info to patch.
	ErrNoSegmentInfo = errors.New("media: segment info element not found")
)

// PatchDuration returns a copy of buf whose Segment Info reports the given
// duration. An existing Duration element is replaced; otherwise one is
// inserted after TimecodeScale. Sample data is copied verbatim.
func PatchDuration(buf []byte, duration time.Duration) ([]byte, error) {
	p := &parser{data: buf}

	ebmlStart := p.pos
	id, _, _, err := p.element()
	if err != nil || id != idEBML {
		return nil, ErrNotWebM
	}
	ebmlRaw := buf[ebmlStart:p.pos]

	segHeaderStart := p.pos
	segID, segBodyStart, segUnknown, err := p.elementHeader()
	if err != nil || segID != idSegment {
		return nil, ErrNotWebM
	}
	segSizeRaw := buf[segHeaderStart+idWidth(segID) : segBodyStart]
	segBody := buf[segBodyStart:]
	if !segUnknown {
		size := p.lastSize
		if segBodyStart+int(size) <= len(buf) {
			segBody = buf[segBodyStart : segBodyStart+int(size)]
		}
	}

	infoStart, infoEnd, infoBody, scale, err := findInfo(segBody)
	if err != nil {
		return nil, err
	}

	// Duration is stored in TimecodeScale units; the default scale makes
	// that plain milliseconds.
	units := float64(duration.Nanoseconds()) / float64(scale)
	newInfoBody := replaceDuration(infoBody, units)

	newInfo := make([]byte, 0, 4+8+len(newInfoBody))
	newInfo = append(newInfo, 0x15, 0x49, 0xA9, 0x66)
	newInfo = append(newInfo, encodeSize(len(newInfoBody))...)
	newInfo = append(newInfo, newInfoBody...)

	newSegBody := make([]byte, 0, len(segBody)+16)
	newSegBody = append(newSegBody, segBody[:infoStart]...)
	newSegBody = append(newSegBody, newInfo...)
	newSegBody = append(newSegBody, segBody[infoEnd:]...)

	out := make([]byte, 0, len(buf)+16)
	out = append(out, ebmlRaw...)
	out = append(out, 0x18, 0x53, 0x80, 0x67)
	if segUnknown {
		out = append(out, segSizeRaw...)
	} else {
		out = append(out, encodeSize(len(newSegBody))...)
	}
	out = append(out, newSegBody...)
	return out, nil
}

// ReportedDuration reads the Duration the stream currently declares.
// The second return is false when no Duration element is present.
func ReportedDuration(buf []byte) (time.Duration, bool) {
	p := &parser{data: buf}

	id, _, _, err := p.element()
	if err != nil || id != idEBML {
		return 0, false
	}
	segID, segBodyStart, segUnknown, err := p.elementHeader()
	if err != nil || segID != idSegment {
		return 0, false
	}
	segBody := buf[segBodyStart:]
	if !segUnknown && segBodyStart+int(p.lastSize) <= len(buf) {
		segBody = buf[segBodyStart : segBodyStart+int(p.lastSize)]
	}

	_, _, infoBody, scale, err := findInfo(segBody)
	if err != nil {
		return 0, false
	}

	ip := &parser{data: infoBody}
	for ip.pos < len(infoBody) {
		id, body, _, err := ip.element()
		if err != nil {
			return 0, false
		}
		if id == idDuration {
			units := decodeFloat(body)
			if units <= 0 || math.IsInf(units, 0) || math.IsNaN(units) {
				return 0, false
			}
			return time.Duration(units * float64(scale)), true
		}
	}
	return 0, false
}

// findInfo locates the Info element among the segment's children and returns
// its byte range within segBody, its body, and the effective timecode scale.
func findInfo(segBody []byte) (start, end int, body []byte, scale uint64, err error) {
	p := &parser{data: segBody}
	for p.pos < len(segBody) {
		elStart := p.pos
		id, elBody, _, err := p.element()
		if err != nil {
			break
		}
		if id != idInfo {
			continue
		}
		scale = uint64(defaultTimecodeScale)
		ip := &parser{data: elBody}
		for ip.pos < len(elBody) {
			cid, cbody, _, err := ip.element()
			if err != nil {
				break
			}
			if cid == idTimecodeScale {
				scale = decodeUint(cbody)
			}
		}
		return elStart, p.pos, elBody, scale, nil
	}
	return 0, 0, nil, 0, ErrNoSegmentInfo
}

// replaceDuration rebuilds an Info body with a single Duration element set
// to the given value, positioned after TimecodeScale when one exists.
func replaceDuration(infoBody []byte, units float64) []byte {
	durEl := make([]byte, 0, 11)
	durEl = append(durEl, 0x44, 0x89, 0x88)
	var f [8]byte
	binary.BigEndian.PutUint64(f[:], math.Float64bits(units))
	durEl = append(durEl, f[:]...)

	out := make([]byte, 0, len(infoBody)+len(durEl))
	inserted := false

	p := &parser{data: infoBody}
	for p.pos < len(infoBody) {
		elStart := p.pos
		id, _, _, err := p.element()
		if err != nil {
			// Copy whatever remains untouched.
			out = append(out, infoBody[elStart:]...)
			break
		}
		if id == idDuration {
			continue // dropped, replacement goes after TimecodeScale
		}
		out = append(out, infoBody[elStart:p.pos]...)
		if id == idTimecodeScale && !inserted {
			out = append(out, durEl...)
			inserted = true
		}
	}
	if !inserted {
		out = append(out, durEl...)
	}
	return out
}

type parser struct {
	data     []byte
	pos      int
	lastSize uint64
}

// element reads a full element and returns its id, body, and whether the
// declared size was the reserved unknown value (body then runs to the end).
func (p *parser) element() (id uint32, body []byte, unknown bool, err error) {
	id, bodyStart, unknown, err := p.elementHeader()
	if err != nil {
		return 0, nil, false, err
	}
	if unknown || bodyStart+int(p.lastSize) > len(p.data) {
		body = p.data[bodyStart:]
		p.pos = len(p.data)
		return id, body, unknown, nil
	}
	body = p.data[bodyStart : bodyStart+int(p.lastSize)]
	p.pos = bodyStart + int(p.lastSize)
	return id, body, false, nil
}

// elementHeader reads the id and size vint, leaving pos at the body start.
func (p *parser) elementHeader() (id uint32, bodyStart int, unknown bool, err error) {
	id, err = p.readID()
	if err != nil {
		return 0, 0, false, err
	}
	size, unknown, err := p.readSize()
	if err != nil {
		return 0, 0, false, err
	}
	p.lastSize = size
	return id, p.pos, unknown, nil
}

func (p *parser) readID() (uint32, error) {
	if p.pos >= len(p.data) {
		return 0, fmt.Errorf("media: truncated element id at %d", p.pos)
	}
	first := p.data[p.pos]
	width := vintWidth(first)
	if width == 0 || width > 4 || p.pos+width > len(p.data) {
		return 0, fmt.Errorf("media: invalid element id at %d", p.pos)
	}
	var id uint32
	for i := 0; i < width; i++ {
		id = id<<8 | uint32(p.data[p.pos+i])
	}
	p.pos += width
	return id, nil
}

func (p *parser) readSize() (uint64, bool, error) {
	if p.pos >= len(p.data) {
		return 0, false, fmt.Errorf("media: truncated element size at %d", p.pos)
	}
	first := p.data[p.pos]
	width := vintWidth(first)
	if width == 0 || width > 8 || p.pos+width > len(p.data) {
		return 0, false, fmt.Errorf("media: invalid element size at %d", p.pos)
	}
	value := uint64(first) & (0xFF >> uint(width))
	for i := 1; i < width; i++ {
		value = value<<8 | uint64(p.data[p.pos+i])
	}
	p.pos += width
	maxValue := uint64(1)<<uint(7*width) - 1
	return value, value == maxValue, nil
}

// vintWidth returns the byte length encoded by the leading zero count of
// the first byte, or 0 when the byte is invalid (no marker bit).
func vintWidth(first byte) int {
	for i := 0; i < 8; i++ {
		if first&(0x80>>uint(i)) != 0 {
			return i + 1
		}
	}
	return 0
}

func idWidth(id uint32) int {
	switch {
	case id > 0xFFFFFF:
		return 4
	case id > 0xFFFF:
		return 3
	case id > 0xFF:
		return 2
	default:
		return 1
	}
}

// encodeSize produces the shortest vint encoding of n.
func encodeSize(n int) []byte {
	for width := 1; width <= 8; width++ {
		max := uint64(1)<<uint(7*width) - 2
		if uint64(n) <= max {
			out := make([]byte, width)
			v := uint64(n) | uint64(1)<<uint(7*width)
			for i := width - 1; i >= 0; i-- {
				out[i] = byte(v)
				v >>= 8
			}
			return out
		}
	}
	return nil
}

func decodeUint(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func decodeFloat(b []byte) float64 {
	switch len(b) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	default:
		return 0
	}
}
