// Package chunk splits source text into size-bounded, codepoint-safe
// segments for submission to an analysis provider.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// DefaultSize is the target chunk size in bytes.
const DefaultSize = 25000

// Chunk is an ordered, contiguous slice of the source text. Start and
// End are byte offsets into the original text ([Start, End)); Index is
// 1-based within the split. Text is the cleaned form safe to transmit.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// Split cuts text[start:end) into chunks of at most size bytes. Chunk
// boundaries never land inside a multi-byte codepoint: a candidate
// boundary on a UTF-8 continuation byte is walked backward to the
// preceding lead or ASCII byte. Degenerate ranges yield no chunks.
func Split(text []byte, start, end, size int) []Chunk {
	if size <= 0 {
		size = DefaultSize
	}
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return nil
	}

	var chunks []Chunk
	pos := start
	for pos < end {
		next := pos + size
		if next >= end {
			next = end
		} else {
			next = alignBoundary(text, next, pos)
		}
		if next <= pos {
			// A single codepoint larger than the remaining budget;
			// advance past it to guarantee progress.
			_, n := utf8.DecodeRune(text[pos:])
			next = pos + n
			if next > end {
				next = end
			}
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks) + 1,
			Start: pos,
			End:   next,
			Text:  Clean(text[pos:next]),
		})
		pos = next
	}
	return chunks
}

// alignBoundary walks a candidate boundary backward off UTF-8
// continuation bytes (0x80-0xBF) until it lands on a lead or ASCII byte,
// never before floor.
func alignBoundary(text []byte, pos, floor int) int {
	for pos > floor && pos < len(text) && text[pos]&0xC0 == 0x80 {
		pos--
	}
	return pos
}

// Clean drops non-printable control characters and any malformed byte
// sequences, producing guaranteed-valid text for transmission. Newlines
// and tabs survive.
func Clean(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); {
		r, n := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && n == 1 {
			i++
			continue
		}
		if isControl(r) {
			i += n
			continue
		}
		b.WriteRune(r)
		i += n
	}
	return b.String()
}

// isControl reports the control ranges stripped from chunks:
// 0x00-0x08, 0x0B-0x0C, 0x0E-0x1F. Tab, LF and CR are kept.
func isControl(r rune) bool {
	switch {
	case r >= 0x00 && r <= 0x08:
		return true
	case r == 0x0B || r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	}
	return false
}
