package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout is the default timeout for most database operations
	DefaultTimeout = 10 * time.Second

	// LongTimeout covers uploads and web imports.
	LongTimeout = 30 * time.Second

	// ShortTimeout is for quick operations (cache lookups, etc.)
	ShortTimeout = 2 * time.Second

	// GenerationTimeout bounds one request to the text generator.
	GenerationTimeout = 2 * time.Minute

	// ProcessingTimeout bounds extraction, chunking and indexing of one document.
	ProcessingTimeout = 5 * time.Minute
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

func WithGenerationTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, GenerationTimeout)
}

// WithProcessingTimeout detaches from parent cancellation so background processing
// outlives the request that started it, but keeps its values.
func WithProcessingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), ProcessingTimeout)
}
