package chunking

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const DefaultMaxChunks = 3

const (
	exactWeight       = 3.0
	partialWeight     = 1.5
	multiTermWeight   = 2.0
	positionBonusSpan = 0.1
)

var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "but": {}, "in": {}, "with": {}, "to": {}, "for": {},
	"of": {}, "as": {}, "by": {}, "this": {}, "that": {}, "it": {},
}

// ScoredChunk is a Chunk annotated with its relevance to one query.
type ScoredChunk struct {
	Chunk
	Score        float64 `json:"score"`
	RawScore     float64 `json:"raw_score"`
	MatchedWords int     `json:"matched_words"`
}

type queryTerm struct {
	text  string
	exact *regexp.Regexp
}

// FindRelevantChunks ranks chunks by keyword relevance to query and returns at most
// maxChunks of them, best first. A query made only of stop words or very short words
// yields the leading chunks unscored.
func FindRelevantChunks(chunks []Chunk, query string, maxChunks int) ([]ScoredChunk, error) {
	if maxChunks <= 0 {
		return nil, fmt.Errorf("%w: max chunks must be positive, got %d", ErrInvalidArgument, maxChunks)
	}
	if len(chunks) == 0 || strings.TrimSpace(query) == "" {
		return []ScoredChunk{}, nil
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		n := min(maxChunks, len(chunks))
		out := make([]ScoredChunk, n)
		for i := range n {
			out[i] = ScoredChunk{Chunk: chunks[i]}
		}
		return out, nil
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for i, c := range chunks {
		sc := scoreChunk(c, terms, i, len(chunks))
		if sc.Score > 0 {
			scored = append(scored, sc)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return rankLess(scored[i], scored[j])
	})

	if len(scored) > maxChunks {
		scored = scored[:maxChunks]
	}
	return scored, nil
}

// rankLess orders by score, then matched words, then document position.
func rankLess(a, b ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.MatchedWords != b.MatchedWords {
		return a.MatchedWords > b.MatchedWords
	}
	return a.ChunkIndex < b.ChunkIndex
}

// tokenize lower-cases query and keeps the words that carry meaning. Repeated
// words stay repeated; each occurrence adds to a chunk's score.
func tokenize(query string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func queryTerms(query string) []queryTerm {
	tokens := tokenize(query)
	terms := make([]queryTerm, len(tokens))
	compiled := make(map[string]*regexp.Regexp, len(tokens))
	for i, tok := range tokens {
		re, ok := compiled[tok]
		if !ok {
			re = regexp.MustCompile(`\b` + regexp.QuoteMeta(tok) + `\b`)
			compiled[tok] = re
		}
		terms[i] = queryTerm{text: tok, exact: re}
	}
	return terms
}

func scoreChunk(c Chunk, terms []queryTerm, position, total int) ScoredChunk {
	content := strings.ToLower(c.Content)

	var raw float64
	present := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		exact := len(t.exact.FindAllStringIndex(content, -1))
		partial := strings.Count(content, t.text)
		raw += float64(exact)*exactWeight + float64(max(0, partial-exact))*partialWeight
		if partial > 0 {
			present[t.text] = struct{}{}
		}
	}
	// Distinct terms only.
	matched := len(present)
	if matched > 1 {
		raw += float64(matched) * multiTermWeight
	}

	words := len(strings.Fields(content))
	if words == 0 {
		words = 1
	}
	positionBonus := 1 - (float64(position)/float64(total))*positionBonusSpan

	return ScoredChunk{
		Chunk:        c,
		Score:        raw / math.Sqrt(float64(words)) * positionBonus,
		RawScore:     raw,
		MatchedWords: matched,
	}
}
