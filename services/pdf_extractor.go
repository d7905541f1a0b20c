package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"lms-ai-backend/internal/logger"
)

// maxExtractBytes caps what is read into memory for one extraction.
const maxExtractBytes = 200 << 20

var errNoText = errors.New("no text could be extracted from the document")

// TextExtractor turns a stored file into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (*ExtractionResult, error)
}

// PDFExtractor extracts text with the pure Go reader first and falls back to
// pdftotext when it is installed and the first result looks poor.
type PDFExtractor struct {
	popplerTimeout time.Duration
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{popplerTimeout: 30 * time.Second}
}

// ExtractionResult contains the result of PDF text extraction
type ExtractionResult struct {
	Text           string
	Pages          int
	Method         string
	QualityScore   float64
	ProcessingTime time.Duration
	WordCount      int
}

type extractMethod struct {
	name    string
	extract func(context.Context, []byte) (*ExtractionResult, error)
}

// ExtractText tries each method in turn and returns the first result of good
// quality, or the best acceptable one.
func (e *PDFExtractor) ExtractText(ctx context.Context, filePath string) (*ExtractionResult, error) {
	start := time.Now()

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > maxExtractBytes {
		return nil, fmt.Errorf("pdf too large for in-memory extraction: %d bytes", stat.Size())
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	methods := []extractMethod{
		{"go-pdf", e.extractWithGoPDF},
		{"poppler", e.extractWithPoppler},
	}

	var lastErr error
	var best *ExtractionResult
	for _, m := range methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := m.extract(ctx, content)
		if err != nil {
			logger.Debug("Extraction method failed", "method", m.name, "error", err)
			lastErr = err
			continue
		}

		result.Method = m.name
		result.ProcessingTime = time.Since(start)
		result.QualityScore = evaluateTextQuality(result.Text)
		result.WordCount = len(strings.Fields(result.Text))

		logger.Debug("Extraction finished", "method", m.name, "chars", len(result.Text), "quality", result.QualityScore)

		if result.QualityScore >= 0.7 {
			return result, nil
		}
		if best == nil || result.QualityScore > best.QualityScore {
			best = result
		}
	}

	if best != nil && best.QualityScore >= 0.3 {
		return best, nil
	}
	if lastErr == nil {
		lastErr = errNoText
	}
	return nil, fmt.Errorf("all extraction methods failed: %w", lastErr)
}

func (e *PDFExtractor) extractWithGoPDF(_ context.Context, content []byte) (*ExtractionResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	pages := reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract page text", "page", i, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("go-pdf: %w", errNoText)
	}
	return &ExtractionResult{Text: strings.Join(texts, "\n\n"), Pages: pages}, nil
}

func (e *PDFExtractor) extractWithPoppler(ctx context.Context, content []byte) (*ExtractionResult, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available")
	}

	extractCtx, cancel := context.WithTimeout(ctx, e.popplerTimeout)
	defer cancel()

	cmd := exec.CommandContext(extractCtx, "pdftotext", "-", "-")
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext failed: %v, stderr: %s", err, stderr.String())
	}

	// pdftotext ends every page with a form feed.
	raw := stdout.String()
	pages := strings.Count(raw, "\f")
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\f", "\n\n"))
	if text == "" {
		return nil, fmt.Errorf("pdftotext: %w", errNoText)
	}
	return &ExtractionResult{Text: text, Pages: max(pages, 1)}, nil
}

var qualityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z][a-z]+\b`),
	regexp.MustCompile(`\b\d{1,3}[,.]?\d{3}\b`),
	regexp.MustCompile(`[.!?]\s+[A-Z]`),
	regexp.MustCompile(`\b(the|and|or|of|to|in|for|with|on|at|by|from)\b`),
}

// evaluateTextQuality scores extracted text between 0 and 1. Mostly printable,
// word-like text scores high; replacement characters and binary noise score low.
func evaluateTextQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	if len(text) < 10 {
		return 0.1
	}

	var alphanumeric, printable, corrupted, total int
	for _, r := range text {
		total++
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			alphanumeric++
			printable++
		case r == '\uFFFD':
			corrupted++
		case r == '\n' || r == '\t' || (r >= 32 && r <= 126):
			printable++
		case r < 32:
			corrupted++
		default:
			printable++
		}
	}

	alphanumericRatio := float64(alphanumeric) / float64(total)
	score := float64(printable) / float64(total) * 0.4
	score += min(alphanumericRatio, 0.3)
	score -= float64(corrupted) / float64(total) * 2.0

	if len(text) > 100 {
		score += 0.1
	}

	good := 0
	for _, p := range qualityPatterns {
		if p.MatchString(text) {
			good++
		}
	}
	if good >= 3 {
		score += 0.2
	}

	return max(0, min(score, 1))
}
