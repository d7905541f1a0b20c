package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type Flashcard struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Question     string             `bson:"question" json:"question"`
	Answer       string             `bson:"answer" json:"answer"`
	Difficulty   string             `bson:"difficulty" json:"difficulty"`
	LastReviewed *time.Time         `bson:"last_reviewed,omitempty" json:"last_reviewed,omitempty"`
	ReviewCount  int                `bson:"review_count" json:"review_count"`
	IsStarred    bool               `bson:"is_starred" json:"is_starred"`
}

// FlashcardSet groups the cards generated from one document in one request.
type FlashcardSet struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	DocumentID primitive.ObjectID `bson:"document_id" json:"document_id"`
	Cards      []Flashcard        `bson:"cards" json:"cards"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`

	DocumentTitle string `bson:"document_title,omitempty" json:"document_title,omitempty"`
}

type GenerateFlashcardsRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	Count      int    `json:"count" binding:"omitempty,min=1,max=50"`
}
