package search

import (
	"path/filepath"
	"testing"

	"lms-ai-backend/internal/chunking"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func chunks(contents ...string) []chunking.Chunk {
	out := make([]chunking.Chunk, len(contents))
	for i, c := range contents {
		out[i] = chunking.Chunk{Content: c, ChunkIndex: i}
	}
	return out
}

func TestSearchIsScopedToUser(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.ReplaceDocument("alice", "doc1", "Biology", chunks(
		"photosynthesis converts light into chemical energy",
		"mitochondria are the powerhouse of the cell",
	), 0); err != nil {
		t.Fatalf("ReplaceDocument() error = %v", err)
	}
	if err := idx.ReplaceDocument("bob", "doc2", "Botany", chunks(
		"photosynthesis happens in chloroplasts",
	), 0); err != nil {
		t.Fatalf("ReplaceDocument() error = %v", err)
	}

	hits, err := idx.Search("alice", "photosynthesis", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1: %+v", len(hits), hits)
	}
	if hits[0].DocumentID != "doc1" || hits[0].ChunkIndex != 0 || hits[0].Title != "Biology" {
		t.Errorf("unexpected hit %+v", hits[0])
	}
	if hits[0].Snippet == "" || hits[0].Score <= 0 {
		t.Errorf("hit missing snippet or score: %+v", hits[0])
	}
}

func TestReplaceDocumentDropsOldChunks(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.ReplaceDocument("alice", "doc1", "Notes", chunks("alpha one", "beta two", "gamma three"), 0); err != nil {
		t.Fatalf("ReplaceDocument() error = %v", err)
	}
	if err := idx.ReplaceDocument("alice", "doc1", "Notes", chunks("delta four"), 3); err != nil {
		t.Fatalf("ReplaceDocument() error = %v", err)
	}

	for _, q := range []string{"beta", "gamma"} {
		hits, err := idx.Search("alice", q, 10)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", q, err)
		}
		if len(hits) != 0 {
			t.Errorf("Search(%q) found stale chunks: %+v", q, hits)
		}
	}

	hits, err := idx.Search("alice", "delta", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}

	if err := idx.DeleteDocument("doc1", 1); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	hits, err = idx.Search("alice", "delta", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("document still searchable after delete: %+v", hits)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := newTestIndex(t)
	hits, err := idx.Search("alice", "   ", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Fatalf("Search() = %v, want empty slice", hits)
	}
}

func TestOpenCreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.bleve")

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := idx.ReplaceDocument("alice", "doc1", "Physics", chunks("entropy always increases"), 0); err != nil {
		t.Fatalf("ReplaceDocument() error = %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() second time error = %v", err)
	}
	defer reopened.Close()

	hits, err := reopened.Search("alice", "entropy", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits after reopen, want 1", len(hits))
	}
}

func TestSnippet(t *testing.T) {
	short := "short text"
	if got := snippet(short); got != short {
		t.Errorf("snippet(%q) = %q", short, got)
	}

	long := make([]rune, snippetMaxRunes+10)
	for i := range long {
		long[i] = 'é'
	}
	got := []rune(snippet(string(long)))
	if len(got) != snippetMaxRunes+3 {
		t.Errorf("snippet length = %d, want %d", len(got), snippetMaxRunes+3)
	}
}
