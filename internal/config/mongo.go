package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by services and commands.
const (
	CollectionUsers         = "users"
	CollectionDocuments     = "documents"
	CollectionFlashcards    = "flashcards"
	CollectionQuizzes       = "quizzes"
	CollectionChatHistories = "chat_histories"
	CollectionAIQuotas      = "ai_quotas"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if err := EnsureIndexes(ctx, client.Database(cfg.DBName)); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates every index the application relies on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionDocuments: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "upload_date", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "file_hash", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}}},
		},
		CollectionFlashcards: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "document_id", Value: 1}}},
			{Keys: bson.D{{Key: "cards._id", Value: 1}}},
		},
		CollectionQuizzes: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "document_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		CollectionChatHistories: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "document_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionAIQuotas: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "day", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
