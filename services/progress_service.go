package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lms-ai-backend/internal/ai"
	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/models"
)

const (
	recentItems = 5
	// streakWindow bounds how far back activity is loaded for the streak.
	streakWindow = 400 * 24 * time.Hour
)

// UsageReader reports today's AI token usage for a user.
type UsageReader interface {
	Usage(ctx context.Context, userID primitive.ObjectID) (*ai.UserQuota, error)
}

type ProgressService struct {
	documents  *mongo.Collection
	flashcards *mongo.Collection
	quizzes    *mongo.Collection
	usage      UsageReader
	now        func() time.Time
}

// NewProgressService builds the dashboard service. usage may be nil.
func NewProgressService(db *mongo.Database, usage UsageReader) *ProgressService {
	return &ProgressService{
		documents:  db.Collection(config.CollectionDocuments),
		flashcards: db.Collection(config.CollectionFlashcards),
		quizzes:    db.Collection(config.CollectionQuizzes),
		usage:      usage,
		now:        time.Now,
	}
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// computeStudyStreak counts consecutive UTC days with activity, ending today or,
// when nothing happened yet today, yesterday.
func computeStudyStreak(activity []time.Time, now time.Time) int {
	days := make(map[time.Time]struct{}, len(activity))
	for _, t := range activity {
		if t.IsZero() {
			continue
		}
		days[utcDay(t)] = struct{}{}
	}

	day := utcDay(now)
	if _, ok := days[day]; !ok {
		day = day.AddDate(0, 0, -1)
		if _, ok := days[day]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := days[day]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

type flashcardStats struct {
	total, reviewed, starred int
	reviews                  []time.Time
}

func countFlashcards(sets []models.FlashcardSet) flashcardStats {
	var st flashcardStats
	for _, set := range sets {
		for _, c := range set.Cards {
			st.total++
			if c.ReviewCount > 0 {
				st.reviewed++
			}
			if c.IsStarred {
				st.starred++
			}
			if c.LastReviewed != nil {
				st.reviews = append(st.reviews, *c.LastReviewed)
			}
		}
	}
	return st
}

func averageScore(quizzes []models.Quiz) int {
	if len(quizzes) == 0 {
		return 0
	}
	sum := 0
	for _, q := range quizzes {
		sum += q.Score
	}
	return int(math.Round(float64(sum) / float64(len(quizzes))))
}

func completionRate(completed int, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}

// Dashboard gathers the user's study statistics and recent activity.
func (s *ProgressService) Dashboard(ctx context.Context, userID primitive.ObjectID) (*models.Dashboard, error) {
	byUser := bson.M{"user_id": userID}
	now := s.now()

	totalDocuments, err := s.documents.CountDocuments(ctx, byUser)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	totalSets, err := s.flashcards.CountDocuments(ctx, byUser)
	if err != nil {
		return nil, fmt.Errorf("failed to count flashcard sets: %w", err)
	}
	totalQuizzes, err := s.quizzes.CountDocuments(ctx, byUser)
	if err != nil {
		return nil, fmt.Errorf("failed to count quizzes: %w", err)
	}

	var sets []models.FlashcardSet
	if err := s.findAll(ctx, s.flashcards, byUser, options.Find().SetProjection(bson.M{"cards": 1}), &sets); err != nil {
		return nil, err
	}
	cards := countFlashcards(sets)

	var completed []models.Quiz
	err = s.findAll(ctx, s.quizzes,
		bson.M{"user_id": userID, "completed_at": bson.M{"$ne": nil}},
		options.Find().SetProjection(bson.M{"score": 1, "completed_at": 1}),
		&completed)
	if err != nil {
		return nil, err
	}

	recentDocs := []models.RecentDocument{}
	err = s.findAll(ctx, s.documents, byUser,
		options.Find().
			SetSort(bson.D{{Key: "last_accessed", Value: -1}}).
			SetLimit(recentItems).
			SetProjection(bson.M{"title": 1, "status": 1, "last_accessed": 1}),
		&recentDocs)
	if err != nil {
		return nil, err
	}

	recentQuizzes := []models.RecentQuiz{}
	err = s.findAll(ctx, s.quizzes, byUser,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(recentItems).
			SetProjection(bson.M{"questions": 0, "user_answers": 0}),
		&recentQuizzes)
	if err != nil {
		return nil, err
	}

	var accessed []models.RecentDocument
	err = s.findAll(ctx, s.documents,
		bson.M{"user_id": userID, "last_accessed": bson.M{"$gte": now.Add(-streakWindow)}},
		options.Find().SetProjection(bson.M{"last_accessed": 1}),
		&accessed)
	if err != nil {
		return nil, err
	}

	activity := cards.reviews
	for _, d := range accessed {
		activity = append(activity, d.LastAccessed)
	}
	for _, q := range completed {
		if q.CompletedAt != nil {
			activity = append(activity, *q.CompletedAt)
		}
	}

	return &models.Dashboard{
		Overview: models.Overview{
			TotalDocuments:     totalDocuments,
			TotalFlashcardSets: totalSets,
			TotalFlashcards:    cards.total,
			ReviewedFlashcards: cards.reviewed,
			StarredFlashcards:  cards.starred,
			TotalQuizzes:       totalQuizzes,
			CompletedQuizzes:   len(completed),
			AverageScore:       averageScore(completed),
			StudyStreak:        computeStudyStreak(activity, now),
			TokensUsedToday:    s.tokensUsedToday(ctx, userID),
			CompletionRate:     completionRate(len(completed), totalQuizzes),
		},
		RecentDocuments: recentDocs,
		RecentQuizzes:   recentQuizzes,
	}, nil
}

func (s *ProgressService) findAll(ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", col.Name(), err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", col.Name(), err)
	}
	return nil
}

func (s *ProgressService) tokensUsedToday(ctx context.Context, userID primitive.ObjectID) int {
	if s.usage == nil {
		return 0
	}
	u, err := s.usage.Usage(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load AI usage", "user_id", userID.Hex(), "error", err)
		return 0
	}
	return u.TokensUsed
}
