package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lms-ai-backend/internal/config"
	"lms-ai-backend/models"
	"lms-ai-backend/utils"
)

type FlashcardService struct {
	flashcards *mongo.Collection
	now        func() time.Time
}

func NewFlashcardService(db *mongo.Database) *FlashcardService {
	return &FlashcardService{
		flashcards: db.Collection(config.CollectionFlashcards),
		now:        time.Now,
	}
}

func (s *FlashcardService) list(ctx context.Context, filter bson.M) ([]models.FlashcardSet, error) {
	cursor, err := s.flashcards.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	defer cursor.Close(ctx)

	sets := []models.FlashcardSet{}
	if err := cursor.All(ctx, &sets); err != nil {
		return nil, fmt.Errorf("failed to decode flashcards: %w", err)
	}
	return sets, nil
}

// List returns all of the user's flashcard sets, newest first.
func (s *FlashcardService) List(ctx context.Context, userID primitive.ObjectID) ([]models.FlashcardSet, error) {
	return s.list(ctx, bson.M{"user_id": userID})
}

func (s *FlashcardService) ByDocument(ctx context.Context, userID, documentID primitive.ObjectID) ([]models.FlashcardSet, error) {
	return s.list(ctx, bson.M{"user_id": userID, "document_id": documentID})
}

func (s *FlashcardService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.FlashcardSet, error) {
	var set models.FlashcardSet
	err := s.flashcards.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("Flashcard set not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load flashcard set: %w", err)
	}
	return &set, nil
}

// updateCard applies update to the set holding cardID and returns the card as
// it is afterwards.
func (s *FlashcardService) updateCard(ctx context.Context, userID, cardID primitive.ObjectID, update interface{}) (*models.Flashcard, error) {
	var set models.FlashcardSet
	err := s.flashcards.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "cards._id": cardID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("Flashcard not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update flashcard: %w", err)
	}

	for i := range set.Cards {
		if set.Cards[i].ID == cardID {
			return &set.Cards[i], nil
		}
	}
	return nil, utils.NewNotFound("Flashcard not found")
}

// Review records that a card was studied now.
func (s *FlashcardService) Review(ctx context.Context, userID, cardID primitive.ObjectID) (*models.Flashcard, error) {
	now := s.now()
	return s.updateCard(ctx, userID, cardID, bson.M{
		"$set": bson.M{"cards.$.last_reviewed": now, "updated_at": now},
		"$inc": bson.M{"cards.$.review_count": 1},
	})
}

// ToggleStar flips a card's starred flag in a single pipeline update.
func (s *FlashcardService) ToggleStar(ctx context.Context, userID, cardID primitive.ObjectID) (*models.Flashcard, error) {
	toggle := bson.M{"$map": bson.M{
		"input": "$cards",
		"as":    "c",
		"in": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$$c._id", cardID}},
			bson.M{"$mergeObjects": bson.A{"$$c", bson.M{"is_starred": bson.M{"$not": bson.A{"$$c.is_starred"}}}}},
			"$$c",
		}},
	}}
	return s.updateCard(ctx, userID, cardID, mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"cards": toggle, "updated_at": s.now()}}},
	})
}

func (s *FlashcardService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := s.flashcards.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete flashcard set: %w", err)
	}
	if res.DeletedCount == 0 {
		return utils.NewNotFound("Flashcard set not found")
	}
	return nil
}

// Export renders a flashcard set as an XLSX workbook.
func (s *FlashcardService) Export(ctx context.Context, userID, id primitive.ObjectID) (string, []byte, error) {
	set, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", nil, err
	}
	data, err := FlashcardSetWorkbook(set)
	if err != nil {
		return "", nil, err
	}
	title := set.DocumentTitle
	if title != "" {
		title += " flashcards"
	}
	return ExportFileName(title, "flashcards"), data, nil
}
