package chunking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func contents(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func TestChunkText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{
			name:    "two short paragraphs merge",
			text:    "Paragraph one here.\n\nParagraph two here.",
			size:    500,
			overlap: 50,
			want:    []string{"Paragraph one here.\n\nParagraph two here."},
		},
		{
			name:    "empty text",
			text:    "",
			size:    500,
			overlap: 50,
			want:    []string{},
		},
		{
			name:    "whitespace only",
			text:    " \n\t\r\n  ",
			size:    500,
			overlap: 50,
			want:    []string{},
		},
		{
			name:    "normalizes whitespace and line breaks",
			text:    "  Hello \t  world \r\n\r\n  Second\rline  ",
			size:    500,
			overlap: 50,
			want:    []string{"Hello world\n\nSecond\n\nline"},
		},
		{
			name:    "overflow carries trailing words",
			text:    "a1 a2 a3\nb1 b2 b3",
			size:    5,
			overlap: 2,
			want:    []string{"a1 a2 a3", "a2 a3\n\nb1 b2 b3"},
		},
		{
			name:    "carry-over clamped to remaining room",
			text:    "a1 a2 a3\nb1 b2 b3 b4",
			size:    5,
			overlap: 4,
			want:    []string{"a1 a2 a3", "a3\n\nb1 b2 b3 b4"},
		},
		{
			name:    "zero overlap carries nothing",
			text:    "a1 a2 a3\nb1 b2 b3",
			size:    5,
			overlap: 0,
			want:    []string{"a1 a2 a3", "b1 b2 b3"},
		},
		{
			name:    "oversized paragraph is windowed",
			text:    "w0 w1 w2 w3 w4 w5 w6 w7 w8 w9 w10 w11",
			size:    5,
			overlap: 2,
			want: []string{
				"w0 w1 w2 w3 w4",
				"w3 w4 w5 w6 w7",
				"w6 w7 w8 w9 w10",
				"w9 w10 w11",
			},
		},
		{
			name:    "oversized paragraph flushes pending text first",
			text:    "x1 x2\n\nw0 w1 w2 w3 w4 w5 w6\n\ny1",
			size:    5,
			overlap: 1,
			want: []string{
				"x1 x2",
				"w0 w1 w2 w3 w4",
				"w4 w5 w6",
				"y1",
			},
		},
		{
			name:    "exact fit stays in one chunk",
			text:    "a b c\n\nd e",
			size:    5,
			overlap: 1,
			want:    []string{"a b c\n\nd e"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChunkText(tt.text, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("ChunkText() error = %v", err)
			}
			if got == nil {
				t.Fatalf("ChunkText() returned nil slice")
			}
			if !reflect.DeepEqual(contents(got), tt.want) {
				t.Fatalf("ChunkText() = %q, want %q", contents(got), tt.want)
			}
			for i, c := range got {
				if c.ChunkIndex != i {
					t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
				}
				if c.PageNumber != 0 {
					t.Errorf("chunk %d has page number %d", i, c.PageNumber)
				}
			}
		})
	}
}

func TestChunkTextInvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -10, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChunkText("some text here", tt.size, tt.overlap)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("ChunkText() error = %v, want ErrInvalidArgument", err)
			}
			if got != nil {
				t.Fatalf("ChunkText() = %v, want nil on error", got)
			}
		})
	}
}

func longDocument() string {
	var b strings.Builder
	for p := 0; p < 40; p++ {
		words := 5 + (p*37)%90
		if p%13 == 0 {
			words = 700
		}
		for w := 0; w < words; w++ {
			if w > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "p%dw%d", p, w)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestChunkTextBoundsAndOrdering(t *testing.T) {
	text := longDocument()

	first, err := ChunkText(text, DefaultChunkSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("ChunkText() error = %v", err)
	}
	if len(first) < 2 {
		t.Fatalf("expected several chunks, got %d", len(first))
	}

	for i, c := range first {
		if c.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if n := len(strings.Fields(c.Content)); n > DefaultChunkSize {
			t.Fatalf("chunk %d has %d words, limit %d", i, n, DefaultChunkSize)
		}
	}

	second, err := ChunkText(text, DefaultChunkSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("ChunkText() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("ChunkText() is not deterministic")
	}
}

func TestChunkTextCoversEveryWord(t *testing.T) {
	text := longDocument()
	chunks, err := ChunkText(text, 120, 15)
	if err != nil {
		t.Fatalf("ChunkText() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, c := range chunks {
		for _, w := range strings.Fields(c.Content) {
			seen[w] = true
		}
	}
	for _, w := range strings.Fields(text) {
		if !seen[w] {
			t.Fatalf("word %q missing from chunks", w)
		}
	}
}

func TestCarryOver(t *testing.T) {
	tests := []struct {
		name    string
		flushed string
		overlap int
		limit   int
		want    string
	}{
		{"trailing words", "one two three four", 2, 10, "three four"},
		{"spans paragraphs", "one two\n\nthree four", 3, 10, "two three four"},
		{"shorter than overlap", "one two", 5, 10, "one two"},
		{"clamped by limit", "one two three four", 3, 1, "four"},
		{"no room left", "one two three", 2, 0, ""},
		{"zero overlap", "one two three", 0, 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := carryOver(tt.flushed, tt.overlap, tt.limit); got != tt.want {
				t.Errorf("carryOver() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkTextCarryOverFitsChunkSize(t *testing.T) {
	first := strings.TrimSpace(strings.Repeat("a ", 8))
	full := strings.TrimSpace(strings.Repeat("b ", 10))
	partial := strings.TrimSpace(strings.Repeat("c ", 8))

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"paragraph fills a chunk", first + "\n" + full, []string{first, full}},
		{"room for part of the overlap", first + "\n" + partial, []string{first, "a a\n\n" + partial}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := ChunkText(tt.text, 10, 3)
			if err != nil {
				t.Fatalf("ChunkText() error = %v", err)
			}
			for i, c := range chunks {
				if n := len(strings.Fields(c.Content)); n > 10 {
					t.Errorf("chunk %d has %d words, want at most 10", i, n)
				}
			}
			if got := contents(chunks); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("chunks = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWindows(t *testing.T) {
	words := strings.Fields("a b c d e f g")

	got := windows(words, 3, 1)
	want := []string{"a b c", "c d e", "e f g"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows() = %q, want %q", got, want)
	}

	got = windows(words, 10, 3)
	if !reflect.DeepEqual(got, []string{"a b c d e f g"}) {
		t.Fatalf("windows() = %q, want single window", got)
	}
}
