// Package chunking splits extracted document text into overlapping, bounded chunks
// and ranks those chunks against free-text queries.
package chunking

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// Chunk is one contiguous span of a document's text. Chunks are produced once per
// document and are read-only afterwards.
type Chunk struct {
	Content    string `bson:"content" json:"content"`
	ChunkIndex int    `bson:"chunk_index" json:"chunk_index"`
	// PageNumber is always 0: extraction does not report page boundaries yet.
	PageNumber int `bson:"page_number" json:"page_number"`
}

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ChunkText splits text into chunks of at most chunkSize words. Paragraphs are kept
// together where they fit; consecutive chunks share up to overlap trailing words.
// Paragraphs longer than chunkSize are cut into word windows.
func ChunkText(text string, chunkSize, overlap int) ([]Chunk, error) {
	if err := validateWindow(chunkSize, overlap); err != nil {
		return nil, err
	}

	clean := normalize(text)
	if clean == "" {
		return []Chunk{}, nil
	}

	f := &fold{size: chunkSize, overlap: overlap}
	for _, p := range strings.Split(clean, "\n") {
		if p == "" {
			continue
		}
		f.add(p)
	}
	f.flush()

	if len(f.out) == 0 {
		for _, w := range windows(strings.Fields(clean), chunkSize, overlap) {
			f.emit(w)
		}
	}
	return f.out, nil
}

func validateWindow(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidArgument, chunkSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidArgument, overlap)
	}
	if overlap >= chunkSize {
		return fmt.Errorf("%w: overlap (%d) must be smaller than chunk size (%d)", ErrInvalidArgument, overlap, chunkSize)
	}
	return nil
}

// normalize unifies line breaks, collapses other whitespace to single spaces and
// trims every line. Newlines survive so paragraphs can still be told apart.
func normalize(text string) string {
	lines := strings.Split(lineBreaks.Replace(text), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

type accumulator struct {
	paragraphs []string
	words      int
}

func (a accumulator) empty() bool { return len(a.paragraphs) == 0 }

func (a accumulator) text() string { return strings.Join(a.paragraphs, "\n\n") }

func (a accumulator) push(paragraph string, words int) accumulator {
	a.paragraphs = append(a.paragraphs, paragraph)
	a.words += words
	return a
}

// fold carries the paragraph-merging state across one ChunkText run.
type fold struct {
	size    int
	overlap int
	acc     accumulator
	out     []Chunk
}

func (f *fold) emit(content string) {
	f.out = append(f.out, Chunk{Content: content, ChunkIndex: len(f.out)})
}

func (f *fold) flush() {
	if f.acc.empty() {
		return
	}
	f.emit(f.acc.text())
	f.acc = accumulator{}
}

func (f *fold) add(paragraph string) {
	words := strings.Fields(paragraph)
	n := len(words)

	switch {
	case n > f.size:
		f.flush()
		for _, w := range windows(words, f.size, f.overlap) {
			f.emit(w)
		}
	case !f.acc.empty() && f.acc.words+n > f.size:
		carry := carryOver(f.acc.text(), f.overlap, f.size-n)
		f.flush()
		if carry != "" {
			f.acc = f.acc.push(carry, len(strings.Fields(carry)))
		}
		f.acc = f.acc.push(paragraph, n)
	default:
		f.acc = f.acc.push(paragraph, n)
	}
}

// carryOver returns the trailing words of a flushed chunk that seed the next one.
// At most overlap words are taken, and never more than limit so the seeded chunk
// stays within its size.
func carryOver(flushed string, overlap, limit int) string {
	take := min(overlap, limit)
	if take <= 0 {
		return ""
	}
	words := strings.Fields(flushed)
	if take > len(words) {
		take = len(words)
	}
	return strings.Join(words[len(words)-take:], " ")
}

// windows cuts words into runs of size advancing by size-overlap. The last run may
// be shorter.
func windows(words []string, size, overlap int) []string {
	step := size - overlap
	var out []string
	for i := 0; i < len(words); i += step {
		end := min(i+size, len(words))
		out = append(out, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}
