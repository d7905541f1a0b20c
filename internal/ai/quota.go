package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserQuota is one user's generation usage for one UTC day.
type UserQuota struct {
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Day        string             `bson:"day" json:"day"`
	TokensUsed int                `bson:"tokens_used" json:"tokens_used"`
	Requests   int                `bson:"requests" json:"requests"`
	DailyLimit int                `bson:"-" json:"daily_limit"`
	TokensLeft int                `bson:"-" json:"tokens_left"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// QuotaManager enforces a per-user daily token budget. A non-positive limit
// disables enforcement.
type QuotaManager struct {
	col   *mongo.Collection
	limit int
	now   func() time.Time
}

func NewQuotaManager(col *mongo.Collection, dailyLimit int) *QuotaManager {
	return &QuotaManager{col: col, limit: dailyLimit, now: time.Now}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CheckQuota fails with ErrQuotaExceeded when estimated more tokens would push the
// user over today's budget.
func (q *QuotaManager) CheckQuota(ctx context.Context, userID primitive.ObjectID, estimated int) error {
	if q.limit <= 0 {
		return nil
	}

	usage, err := q.Usage(ctx, userID)
	if err != nil {
		return err
	}
	if exceeds(usage.TokensUsed, estimated, q.limit) {
		return fmt.Errorf("%w: %d of %d tokens used today", ErrQuotaExceeded, usage.TokensUsed, q.limit)
	}
	return nil
}

func exceeds(used, estimated, limit int) bool {
	return limit > 0 && used+estimated > limit
}

// RecordUsage adds tokens to today's counter, creating it on first use.
func (q *QuotaManager) RecordUsage(ctx context.Context, userID primitive.ObjectID, tokens int) error {
	now := q.now()
	_, err := q.col.UpdateOne(
		ctx,
		bson.M{"user_id": userID, "day": dayKey(now)},
		bson.M{
			"$inc":         bson.M{"tokens_used": tokens, "requests": 1},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("record AI usage: %w", err)
	}
	return nil
}

// Usage returns today's counter for userID, zero-valued if nothing was used yet.
func (q *QuotaManager) Usage(ctx context.Context, userID primitive.ObjectID) (*UserQuota, error) {
	day := dayKey(q.now())

	usage := UserQuota{UserID: userID, Day: day}
	err := q.col.FindOne(ctx, bson.M{"user_id": userID, "day": day}).Decode(&usage)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("load AI usage: %w", err)
	}

	usage.DailyLimit = q.limit
	if q.limit > 0 {
		usage.TokensLeft = max(0, q.limit-usage.TokensUsed)
	}
	return &usage, nil
}
