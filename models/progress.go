package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Overview struct {
	TotalDocuments     int64   `json:"total_documents"`
	TotalFlashcardSets int64   `json:"total_flashcard_sets"`
	TotalFlashcards    int     `json:"total_flashcards"`
	ReviewedFlashcards int     `json:"reviewed_flashcards"`
	StarredFlashcards  int     `json:"starred_flashcards"`
	TotalQuizzes       int64   `json:"total_quizzes"`
	CompletedQuizzes   int     `json:"completed_quizzes"`
	AverageScore       int     `json:"average_score"`
	StudyStreak        int     `json:"study_streak"`
	TokensUsedToday    int     `json:"tokens_used_today"`
	CompletionRate     float64 `json:"completion_rate"`
}

type RecentDocument struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Status       string             `bson:"status" json:"status"`
	LastAccessed time.Time          `bson:"last_accessed" json:"last_accessed"`
}

type RecentQuiz struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	DocumentID     primitive.ObjectID `bson:"document_id" json:"document_id"`
	Title          string             `bson:"title" json:"title"`
	Score          int                `bson:"score" json:"score"`
	TotalQuestions int                `bson:"total_questions" json:"total_questions"`
	CompletedAt    *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

type Dashboard struct {
	Overview        Overview         `json:"overview"`
	RecentDocuments []RecentDocument `json:"recent_documents"`
	RecentQuizzes   []RecentQuiz     `json:"recent_quizzes"`
}
