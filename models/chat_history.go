package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role           string    `bson:"role" json:"role"`
	Content        string    `bson:"content" json:"content"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	RelevantChunks []int     `bson:"relevant_chunks,omitempty" json:"relevant_chunks,omitempty"`
}

// ChatHistory holds one user's conversation about one document.
type ChatHistory struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	DocumentID primitive.ObjectID `bson:"document_id" json:"document_id"`
	Messages   []ChatMessage      `bson:"messages" json:"messages"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

type ChatRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	Question   string `json:"question" binding:"required"`
}

type ChatResponse struct {
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	RelevantChunks []int  `json:"relevant_chunks"`
	ChatHistoryID  string `json:"chat_history_id"`
}

type ExplainConceptRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	Concept    string `json:"concept" binding:"required"`
}

type DocumentRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
}
