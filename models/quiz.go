package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Question struct {
	Question      string   `bson:"question" json:"question"`
	Options       []string `bson:"options" json:"options"`
	CorrectAnswer string   `bson:"correct_answer" json:"correct_answer"`
	Explanation   string   `bson:"explanation,omitempty" json:"explanation,omitempty"`
	Difficulty    string   `bson:"difficulty" json:"difficulty"`
}

type UserAnswer struct {
	QuestionIndex  int       `bson:"question_index" json:"question_index"`
	SelectedAnswer string    `bson:"selected_answer" json:"selected_answer"`
	IsCorrect      bool      `bson:"is_correct" json:"is_correct"`
	AnsweredAt     time.Time `bson:"answered_at" json:"answered_at"`
}

type Quiz struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	DocumentID     primitive.ObjectID `bson:"document_id" json:"document_id"`
	Title          string             `bson:"title" json:"title"`
	Questions      []Question         `bson:"questions" json:"questions"`
	UserAnswers    []UserAnswer       `bson:"user_answers" json:"user_answers"`
	Score          int                `bson:"score" json:"score"`
	TotalQuestions int                `bson:"total_questions" json:"total_questions"`
	CompletedAt    *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

func (q *Quiz) Completed() bool { return q.CompletedAt != nil }

type GenerateQuizRequest struct {
	DocumentID   string `json:"documentId" binding:"required"`
	NumQuestions int    `json:"numQuestions" binding:"omitempty,min=1,max=30"`
	Title        string `json:"title" binding:"omitempty,max=200"`
}

type AnswerSubmission struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedAnswer string `json:"selectedAnswer"`
}

type SubmitQuizRequest struct {
	Answers []AnswerSubmission `json:"answers"`
}

// QuestionResult is one row of a completed quiz's results.
type QuestionResult struct {
	QuestionIndex  int      `json:"question_index"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswer  string   `json:"correct_answer"`
	SelectedAnswer string   `json:"selected_answer"`
	IsCorrect      bool     `json:"is_correct"`
	Explanation    string   `json:"explanation,omitempty"`
}

type QuizResults struct {
	QuizID         string           `json:"quiz_id"`
	Title          string           `json:"title"`
	DocumentID     string           `json:"document_id"`
	DocumentTitle  string           `json:"document_title,omitempty"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"total_questions"`
	CorrectAnswers int              `json:"correct_answers"`
	CompletedAt    *time.Time       `json:"completed_at"`
	Results        []QuestionResult `json:"results"`
}

type SubmitQuizResult struct {
	QuizID         string       `json:"quiz_id"`
	Score          int          `json:"score"`
	CorrectCount   int          `json:"correct_count"`
	TotalQuestions int          `json:"total_questions"`
	Percentage     int          `json:"percentage"`
	UserAnswers    []UserAnswer `json:"user_answers"`
}
