package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lms-ai-backend/internal/config"
	"lms-ai-backend/models"
	"lms-ai-backend/utils"
)

var optionPrefix = regexp.MustCompile(`^\d+\s*:`)

type QuizService struct {
	quizzes   *mongo.Collection
	documents *mongo.Collection
	now       func() time.Time
}

func NewQuizService(db *mongo.Database) *QuizService {
	return &QuizService{
		quizzes:   db.Collection(config.CollectionQuizzes),
		documents: db.Collection(config.CollectionDocuments),
		now:       time.Now,
	}
}

// normalizeAnswer trims, collapses whitespace and lowercases.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// stripOptionPrefix drops a leading "NN:" from a stored correct answer.
func stripOptionPrefix(answer string) string {
	if loc := optionPrefix.FindStringIndex(answer); loc != nil {
		return strings.TrimSpace(answer[loc[1]:])
	}
	return answer
}

// gradeAnswers checks each submission against its question. Submissions for
// questions that do not exist are ignored.
func gradeAnswers(questions []models.Question, answers []models.AnswerSubmission, now time.Time) ([]models.UserAnswer, int) {
	graded := make([]models.UserAnswer, 0, len(answers))
	correct := 0
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(questions) {
			continue
		}
		expected := stripOptionPrefix(questions[a.QuestionIndex].CorrectAnswer)
		ok := normalizeAnswer(a.SelectedAnswer) == normalizeAnswer(expected)
		if ok {
			correct++
		}
		graded = append(graded, models.UserAnswer{
			QuestionIndex:  a.QuestionIndex,
			SelectedAnswer: a.SelectedAnswer,
			IsCorrect:      ok,
			AnsweredAt:     now,
		})
	}
	return graded, correct
}

func quizScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// ListByDocument returns the user's quizzes for a document, newest first.
func (s *QuizService) ListByDocument(ctx context.Context, userID, documentID primitive.ObjectID) ([]models.Quiz, error) {
	cursor, err := s.quizzes.Find(ctx,
		bson.M{"user_id": userID, "document_id": documentID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer cursor.Close(ctx)

	quizzes := []models.Quiz{}
	if err := cursor.All(ctx, &quizzes); err != nil {
		return nil, fmt.Errorf("failed to decode quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *QuizService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.quizzes.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&quiz)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("Quiz not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz: %w", err)
	}
	return &quiz, nil
}

// Submit grades a quiz once. The score is the rounded percentage of all
// questions answered correctly.
func (s *QuizService) Submit(ctx context.Context, userID, id primitive.ObjectID, answers []models.AnswerSubmission) (*models.SubmitQuizResult, error) {
	if len(answers) == 0 {
		return nil, utils.NewBadRequest("Answers array is required")
	}

	quiz, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if quiz.Completed() {
		return nil, utils.NewBadRequest("Quiz already completed")
	}

	now := s.now()
	graded, correct := gradeAnswers(quiz.Questions, answers, now)
	score := quizScore(correct, quiz.TotalQuestions)

	res, err := s.quizzes.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID, "completed_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{
			"user_answers": graded,
			"score":        score,
			"completed_at": now,
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save quiz answers: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, utils.NewBadRequest("Quiz already completed")
	}

	return &models.SubmitQuizResult{
		QuizID:         id.Hex(),
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: quiz.TotalQuestions,
		Percentage:     score,
		UserAnswers:    graded,
	}, nil
}

func buildResults(quiz *models.Quiz, documentTitle string) *models.QuizResults {
	byIndex := make(map[int]models.UserAnswer, len(quiz.UserAnswers))
	for _, a := range quiz.UserAnswers {
		byIndex[a.QuestionIndex] = a
	}

	results := make([]models.QuestionResult, len(quiz.Questions))
	correct := 0
	for i, q := range quiz.Questions {
		a := byIndex[i]
		if a.IsCorrect {
			correct++
		}
		results[i] = models.QuestionResult{
			QuestionIndex:  i,
			Question:       q.Question,
			Options:        q.Options,
			CorrectAnswer:  q.CorrectAnswer,
			SelectedAnswer: a.SelectedAnswer,
			IsCorrect:      a.IsCorrect,
			Explanation:    q.Explanation,
		}
	}

	return &models.QuizResults{
		QuizID:         quiz.ID.Hex(),
		Title:          quiz.Title,
		DocumentID:     quiz.DocumentID.Hex(),
		DocumentTitle:  documentTitle,
		Score:          quiz.Score,
		TotalQuestions: quiz.TotalQuestions,
		CorrectAnswers: correct,
		CompletedAt:    quiz.CompletedAt,
		Results:        results,
	}
}

// Results returns the per-question breakdown of a completed quiz.
func (s *QuizService) Results(ctx context.Context, userID, id primitive.ObjectID) (*models.QuizResults, error) {
	quiz, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !quiz.Completed() {
		return nil, utils.NewBadRequest("Quiz not completed yet")
	}

	var doc struct {
		Title string `bson:"title"`
	}
	err = s.documents.FindOne(ctx,
		bson.M{"_id": quiz.DocumentID},
		options.FindOne().SetProjection(bson.M{"title": 1}),
	).Decode(&doc)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to load quiz document: %w", err)
	}

	return buildResults(quiz, doc.Title), nil
}

// ExportResults renders a completed quiz's results as an XLSX workbook.
func (s *QuizService) ExportResults(ctx context.Context, userID, id primitive.ObjectID) (string, []byte, error) {
	results, err := s.Results(ctx, userID, id)
	if err != nil {
		return "", nil, err
	}
	data, err := QuizResultsWorkbook(results)
	if err != nil {
		return "", nil, err
	}
	return ExportFileName(results.Title, "quiz-results"), data, nil
}

func (s *QuizService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := s.quizzes.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	if res.DeletedCount == 0 {
		return utils.NewNotFound("Quiz not found")
	}
	return nil
}
