package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestEvaluateTextQuality(t *testing.T) {
	prose := "The mitochondria is the powerhouse of the cell. It produces energy for the organism. " +
		"Cells divide in 1,000 different ways according to the textbook."

	tests := []struct {
		name string
		text string
		min  float64
		max  float64
	}{
		{"empty", "   ", 0, 0},
		{"too short", "abc", 0.1, 0.1},
		{"readable prose", prose, 0.7, 1},
		{"replacement characters", strings.Repeat("\uFFFD", 60), 0, 0},
		{"control noise", strings.Repeat("\x01\x02ab", 40), 0, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateTextQuality(tt.text)
			if got < tt.min || got > tt.max {
				t.Errorf("evaluateTextQuality() = %v, want between %v and %v", got, tt.min, tt.max)
			}
		})
	}
}

func TestExtractTextMissingFile(t *testing.T) {
	e := NewPDFExtractor()
	if _, err := e.ExtractText(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatal("ExtractText() expected error for missing file")
	}
}
