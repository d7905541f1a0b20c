package main

import (
	"testing"

	"lms-ai-backend/internal/config"
)

func TestRechunkArgs(t *testing.T) {
	cfg := &config.Config{ChunkSize: 500, ChunkOverlap: 50}

	tests := []struct {
		name        string
		args        []string
		wantSize    int
		wantOverlap int
		wantErr     bool
	}{
		{"defaults", nil, 500, 50, false},
		{"size only", []string{"800"}, 800, 50, false},
		{"size and overlap", []string{"800", "100"}, 800, 100, false},
		{"not a number", []string{"big"}, 0, 0, true},
		{"bad overlap", []string{"800", "x"}, 0, 0, true},
		{"too many", []string{"1", "2", "3"}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, overlap, err := rechunkArgs(tt.args, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("rechunkArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (size != tt.wantSize || overlap != tt.wantOverlap) {
				t.Errorf("rechunkArgs() = %d, %d, want %d, %d", size, overlap, tt.wantSize, tt.wantOverlap)
			}
		})
	}
}
