package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lms-ai-backend/internal/chunking"
)

// Document status values. A document only serves AI features once ready.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Document is an uploaded PDF or imported web page together with its extracted
// text and chunks.
type Document struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title     string             `bson:"title" json:"title"`
	FileName  string             `bson:"file_name,omitempty" json:"file_name,omitempty"`
	FilePath  string             `bson:"file_path,omitempty" json:"-"`
	FileSize  int64              `bson:"file_size" json:"file_size"`
	FileHash  string             `bson:"file_hash,omitempty" json:"-"`
	SourceURL string             `bson:"source_url,omitempty" json:"source_url,omitempty"`

	// ExtractedText is held in memory only; at rest it lives in StoredText,
	// compressed when large.
	ExtractedText   string           `bson:"-" json:"extracted_text,omitempty"`
	StoredText      []byte           `bson:"stored_text,omitempty" json:"-"`
	TextCompression string           `bson:"text_compression,omitempty" json:"-"`
	Chunks          []chunking.Chunk `bson:"chunks,omitempty" json:"chunks,omitempty"`

	Status       string           `bson:"status" json:"status"`
	ErrorMessage string           `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Metadata     DocumentMetadata `bson:"metadata" json:"metadata"`
	UploadDate   time.Time        `bson:"upload_date" json:"upload_date"`
	LastAccessed time.Time        `bson:"last_accessed" json:"last_accessed"`
	ProcessedAt  *time.Time       `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updated_at"`
}

// DocumentMetadata contains processing metadata
type DocumentMetadata struct {
	Pages            int           `bson:"pages" json:"pages"`
	WordCount        int           `bson:"word_count" json:"word_count"`
	ChunkCount       int           `bson:"chunk_count" json:"chunk_count"`
	ChunkSize        int           `bson:"chunk_size" json:"chunk_size"`
	ChunkOverlap     int           `bson:"chunk_overlap" json:"chunk_overlap"`
	ExtractionMethod string        `bson:"extraction_method,omitempty" json:"extraction_method,omitempty"`
	ProcessingTime   time.Duration `bson:"processing_time" json:"processing_time"`
}

// DocumentSummary is a list entry: no text or chunks, plus related counts.
type DocumentSummary struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Title          string             `bson:"title" json:"title"`
	FileName       string             `bson:"file_name,omitempty" json:"file_name,omitempty"`
	FileSize       int64              `bson:"file_size" json:"file_size"`
	SourceURL      string             `bson:"source_url,omitempty" json:"source_url,omitempty"`
	Status         string             `bson:"status" json:"status"`
	ErrorMessage   string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Metadata       DocumentMetadata   `bson:"metadata" json:"metadata"`
	UploadDate     time.Time          `bson:"upload_date" json:"upload_date"`
	LastAccessed   time.Time          `bson:"last_accessed" json:"last_accessed"`
	FlashcardCount int                `bson:"flashcard_count" json:"flashcard_count"`
	QuizCount      int                `bson:"quiz_count" json:"quiz_count"`
}

// DocumentDetail is a single document with its related counts.
type DocumentDetail struct {
	*Document
	FlashcardCount int `json:"flashcard_count"`
	QuizCount      int `json:"quiz_count"`
}

type UpdateDocumentRequest struct {
	Title string `json:"title" binding:"required,min=1,max=200"`
}

type ImportURLRequest struct {
	URL   string `json:"url" binding:"required,url"`
	Title string `json:"title" binding:"omitempty,max=200"`
}

type ReprocessRequest struct {
	ChunkSize    int `json:"chunk_size" binding:"omitempty,min=1"`
	ChunkOverlap int `json:"chunk_overlap" binding:"omitempty,min=0"`
}
