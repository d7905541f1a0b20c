// Package search keeps a bleve full-text index of document chunks so a user can
// search across everything they have uploaded.
package search

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"lms-ai-backend/internal/chunking"
)

const (
	docType         = "chunk"
	DefaultLimit    = 10
	MaxLimit        = 50
	batchSize       = 100
	snippetMaxRunes = 300
)

// chunkDoc is the indexed form of one chunk.
type chunkDoc struct {
	UserID     string `json:"user_id"`
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
}

// BleveType lets bleve pick the chunk mapping for chunkDoc values.
func (chunkDoc) BleveType() string { return docType }

// Hit is one matching chunk.
type Hit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

type Index struct {
	idx bleve.Index
}

// openTimeout bounds the wait for the index file lock held by another process.
const openTimeout = "3s"

// Open opens the index at path, creating it when it does not exist yet. An
// index can be open in one process at a time.
func Open(path string) (*Index, error) {
	idx, err := bleve.OpenUsing(path, map[string]interface{}{"bolt_timeout": openTimeout})
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, newMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index %s: %w", path, err)
	}
	return &Index{idx: idx}, nil
}

// NewInMemory builds an index that lives only as long as the process.
func NewInMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory index: %w", err)
	}
	return &Index{idx: idx}, nil
}

func newMapping() mapping.IndexMapping {
	keyword := bleve.NewKeywordFieldMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName

	index := bleve.NewNumericFieldMapping()

	chunk := bleve.NewDocumentStaticMapping()
	chunk.AddFieldMappingsAt("user_id", keyword)
	chunk.AddFieldMappingsAt("document_id", keyword)
	chunk.AddFieldMappingsAt("title", text)
	chunk.AddFieldMappingsAt("content", text)
	chunk.AddFieldMappingsAt("chunk_index", index)

	m := bleve.NewIndexMapping()
	m.AddDocumentMapping(docType, chunk)
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

func chunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// ReplaceDocument drops previousCount chunk entries of the document and indexes
// chunks in their place.
func (i *Index) ReplaceDocument(userID, documentID, title string, chunks []chunking.Chunk, previousCount int) error {
	batch := i.idx.NewBatch()
	for n := 0; n < previousCount; n++ {
		batch.Delete(chunkID(documentID, n))
	}

	for _, c := range chunks {
		doc := chunkDoc{
			UserID:     userID,
			DocumentID: documentID,
			Title:      title,
			Content:    c.Content,
			ChunkIndex: c.ChunkIndex,
		}
		if err := batch.Index(chunkID(documentID, c.ChunkIndex), doc); err != nil {
			return fmt.Errorf("failed to add chunk %d to batch: %w", c.ChunkIndex, err)
		}
		if batch.Size() >= batchSize {
			if err := i.idx.Batch(batch); err != nil {
				return fmt.Errorf("failed to index batch: %w", err)
			}
			batch = i.idx.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := i.idx.Batch(batch); err != nil {
			return fmt.Errorf("failed to index final batch: %w", err)
		}
	}
	return nil
}

// DeleteDocument removes every indexed chunk of the document.
func (i *Index) DeleteDocument(documentID string, chunkCount int) error {
	if chunkCount <= 0 {
		return nil
	}
	batch := i.idx.NewBatch()
	for n := 0; n < chunkCount; n++ {
		batch.Delete(chunkID(documentID, n))
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete document %s from index: %w", documentID, err)
	}
	return nil
}

// Search matches query against the content and titles of userID's chunks.
func (i *Index) Search(userID, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	owner := bleve.NewTermQuery(userID)
	owner.SetField("user_id")

	content := bleve.NewMatchQuery(query)
	content.SetField("content")
	title := bleve.NewMatchQuery(query)
	title.SetField("title")
	title.SetBoost(0.5)

	q := bleve.NewConjunctionQuery(owner, bleve.NewDisjunctionQuery(content, title))
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"document_id", "title", "content", "chunk_index"}

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		if v, ok := h.Fields["document_id"].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["content"].(string); ok {
			hit.Snippet = snippet(v)
		}
		if v, ok := h.Fields["chunk_index"].(float64); ok {
			hit.ChunkIndex = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetMaxRunes {
		return s
	}
	return string(r[:snippetMaxRunes]) + "..."
}

func (i *Index) Close() error {
	return i.idx.Close()
}

// Remove deletes an on-disk index directory; used before a full rebuild.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove search index %s: %w", path, err)
	}
	return nil
}
