package chunk

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_CoversRangeExactly(t *testing.T) {
	text := []byte(strings.Repeat("a", 100000))
	chunks := Split(text, 0, 40000, 25000)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Start != 0 || chunks[0].End != 25000 {
		t.Errorf("chunk 1 range [%d,%d)", chunks[0].Start, chunks[0].End)
	}
	if chunks[1].Start != 25000 || chunks[1].End != 40000 {
		t.Errorf("chunk 2 range [%d,%d)", chunks[1].Start, chunks[1].End)
	}
	if got := chunks[1].End - chunks[1].Start; got != 15000 {
		t.Errorf("second chunk length = %d, want 15000", got)
	}
	if chunks[0].Index != 1 || chunks[1].Index != 2 {
		t.Errorf("indexes = %d, %d", chunks[0].Index, chunks[1].Index)
	}
}

func TestSplit_Concatenation(t *testing.T) {
	// Mixed ASCII/CJK so boundaries land mid-rune without alignment.
	text := []byte(strings.Repeat("逐字节推进的文本abc", 500))
	chunks := Split(text, 0, len(text), 97)

	var joined bytes.Buffer
	prevEnd := 0
	for _, c := range chunks {
		if c.Start != prevEnd {
			t.Fatalf("chunk %d starts at %d, want %d", c.Index, c.Start, prevEnd)
		}
		joined.Write(text[c.Start:c.End])
		prevEnd = c.End
	}
	if prevEnd != len(text) {
		t.Errorf("chunks end at %d, want %d", prevEnd, len(text))
	}
	if !bytes.Equal(joined.Bytes(), text) {
		t.Error("concatenated chunks do not reproduce the source range")
	}

	for _, c := range chunks {
		if !utf8.Valid(text[c.Start:c.End]) {
			t.Errorf("chunk %d boundary splits a codepoint", c.Index)
		}
	}
}

func TestSplit_DegenerateRanges(t *testing.T) {
	text := []byte("hello")

	if got := Split(text, 0, 0, 10); got != nil {
		t.Errorf("empty range should yield nil, got %v", got)
	}
	if got := Split(text, 4, 2, 10); got != nil {
		t.Errorf("start >= end should yield nil, got %v", got)
	}
	if got := Split(nil, 0, 10, 10); got != nil {
		t.Errorf("nil text should yield nil, got %v", got)
	}
}

func TestSplit_DefaultSize(t *testing.T) {
	text := []byte(strings.Repeat("x", DefaultSize+1))
	chunks := Split(text, 0, len(text), 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks with default size, got %d", len(chunks))
	}
	if chunks[0].End != DefaultSize {
		t.Errorf("first chunk ends at %d, want %d", chunks[0].End, DefaultSize)
	}
}

func TestClean(t *testing.T) {
	t.Run("strips control characters", func(t *testing.T) {
		raw := []byte("ab\x00c\x0bd\x1fe\tf\ng")
		if got := Clean(raw); got != "abcde\tf\ng" {
			t.Errorf("Clean = %q", got)
		}
	})

	t.Run("drops malformed sequences", func(t *testing.T) {
		raw := []byte{'a', 0xff, 0xfe, 'b'}
		if got := Clean(raw); got != "ab" {
			t.Errorf("Clean = %q", got)
		}
	})
}
