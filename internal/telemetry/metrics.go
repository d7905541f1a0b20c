package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter         metric.Int64Counter
	RequestDuration        metric.Float64Histogram
	TokensUsed             metric.Int64Counter
	DocumentProcessingTime metric.Float64Histogram
	DocumentChunks         metric.Int64Histogram
	RetrievedChunks        metric.Int64Histogram
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("lms-ai-backend")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"ai.tokens.used",
		metric.WithDescription("Tokens consumed by text generation"),
	)
	if err != nil {
		return nil, err
	}

	processingTime, err := meter.Float64Histogram(
		"document.processing.duration",
		metric.WithDescription("Document extraction and chunking duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentChunks, err := meter.Int64Histogram(
		"document.chunks",
		metric.WithDescription("Chunks produced per processed document"),
	)
	if err != nil {
		return nil, err
	}

	retrievedChunks, err := meter.Int64Histogram(
		"retrieval.chunks",
		metric.WithDescription("Relevant chunks selected per question"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:         requestCounter,
		RequestDuration:        requestDuration,
		TokensUsed:             tokensUsed,
		DocumentProcessingTime: processingTime,
		DocumentChunks:         documentChunks,
		RetrievedChunks:        retrievedChunks,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)

	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordTokensUsed records generator token usage per feature.
func (m *Metrics) RecordTokensUsed(tokens int64, model, feature string) {
	if m == nil {
		return
	}
	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(
		attribute.String("ai.model", model),
		attribute.String("ai.feature", feature),
	))
}

func (m *Metrics) RecordDocumentProcessing(duration float64, status string, chunks int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("document.status", status))
	m.DocumentProcessingTime.Record(context.Background(), duration, attrs)
	if chunks > 0 {
		m.DocumentChunks.Record(context.Background(), int64(chunks), attrs)
	}
}

func (m *Metrics) RecordRetrieval(feature string, chunks int) {
	if m == nil {
		return
	}
	m.RetrievedChunks.Record(context.Background(), int64(chunks), metric.WithAttributes(
		attribute.String("ai.feature", feature),
	))
}
