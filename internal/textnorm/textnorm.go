// Package textnorm implements the normalization steps that run between
// MIME decoding and tokenization: newline stripping with an offset map
// back to the original buffer, HTML-aware plain-text extraction, and
// Unicode-script based language detection.
package textnorm

// OffsetMap records, for each byte of a stripped buffer, the offset it
// came from in the original buffer. Downstream exception tracking
// (process exceptions, URL positions) needs to translate a position in
// the normalized text back to where it actually sat in the decoded part.
type OffsetMap struct {
	positions []int
	origLen   int
}

// Original translates a position in the stripped buffer back to the
// corresponding offset in the original buffer. A position at or past the
// end of the stripped buffer maps to the original buffer's length.
func (m *OffsetMap) Original(strippedPos int) int {
	if m == nil || len(m.positions) == 0 {
		return 0
	}
	if strippedPos < 0 {
		return m.positions[0]
	}
	if strippedPos >= len(m.positions) {
		return m.origLen
	}
	return m.positions[strippedPos]
}

// Len returns the number of bytes the stripped buffer this map describes
// contains.
func (m *OffsetMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.positions)
}

// NewlineBoundaries returns, in stripped-buffer coordinates, every
// position at which one or more line-terminator bytes were removed from
// the original buffer, including a leading boundary at 0 if raw began
// with a terminator. Callers use these as zero-length process
// exceptions so that tokenization never merges words that a line break
// kept apart on the wire.
func (m *OffsetMap) NewlineBoundaries() []int {
	if m == nil || len(m.positions) == 0 {
		if m != nil && m.origLen > 0 {
			return []int{0}
		}
		return nil
	}
	var bounds []int
	if m.positions[0] != 0 {
		bounds = append(bounds, 0)
	}
	for i := 1; i < len(m.positions); i++ {
		if m.positions[i] != m.positions[i-1]+1 {
			bounds = append(bounds, i)
		}
	}
	if last := m.positions[len(m.positions)-1]; last+1 != m.origLen {
		bounds = append(bounds, len(m.positions))
	}
	return bounds
}

// StripNewlines removes every CR and LF byte from raw, returning the
// stripped bytes alongside an OffsetMap back to raw's coordinates. This
// runs before tokenization so that a maximal word run is never split by a
// line-wrap the sender's mail client introduced.
func StripNewlines(raw []byte) ([]byte, *OffsetMap) {
	out := make([]byte, 0, len(raw))
	positions := make([]int, 0, len(raw))
	for i, b := range raw {
		if b == '\r' || b == '\n' {
			continue
		}
		out = append(out, b)
		positions = append(positions, i)
	}
	return out, &OffsetMap{positions: positions, origLen: len(raw)}
}
