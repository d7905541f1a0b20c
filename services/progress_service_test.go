package services

import (
	"testing"
	"time"

	"lms-ai-backend/models"
)

func TestComputeStudyStreak(t *testing.T) {
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int, hour int) time.Time {
		return time.Date(2026, 6, 10+offset, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		activity []time.Time
		want     int
	}{
		{"no activity", nil, 0},
		{"today only", []time.Time{day(0, 9)}, 1},
		{"three days ending today", []time.Time{day(0, 1), day(-1, 23), day(-2, 0)}, 3},
		{"ending yesterday", []time.Time{day(-1, 8), day(-2, 8)}, 2},
		{"gap breaks the streak", []time.Time{day(0, 8), day(-1, 8), day(-3, 8), day(-4, 8)}, 2},
		{"last activity two days ago", []time.Time{day(-2, 8), day(-3, 8)}, 0},
		{"duplicates on one day count once", []time.Time{day(0, 1), day(0, 2), day(0, 3)}, 1},
		{"zero times ignored", []time.Time{{}, day(0, 1)}, 1},
		{
			"non-UTC times use their UTC day",
			[]time.Time{time.Date(2026, 6, 10, 1, 0, 0, 0, time.FixedZone("EST", -5*3600))},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeStudyStreak(tt.activity, now); got != tt.want {
				t.Errorf("computeStudyStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountFlashcards(t *testing.T) {
	reviewed := time.Now()
	sets := []models.FlashcardSet{
		{Cards: []models.Flashcard{
			{ReviewCount: 2, LastReviewed: &reviewed, IsStarred: true},
			{},
		}},
		{Cards: []models.Flashcard{{IsStarred: true}}},
	}

	st := countFlashcards(sets)
	if st.total != 3 || st.reviewed != 1 || st.starred != 2 || len(st.reviews) != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestAverageScoreAndCompletionRate(t *testing.T) {
	quizzes := []models.Quiz{{Score: 100}, {Score: 67}, {Score: 50}}
	if got := averageScore(quizzes); got != 72 {
		t.Errorf("averageScore() = %d, want 72", got)
	}
	if got := averageScore(nil); got != 0 {
		t.Errorf("averageScore(nil) = %d", got)
	}
	if got := completionRate(1, 3); got != 33.33 {
		t.Errorf("completionRate(1, 3) = %v", got)
	}
	if got := completionRate(0, 0); got != 0 {
		t.Errorf("completionRate(0, 0) = %v", got)
	}
}
