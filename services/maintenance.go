package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/models"
)

const (
	staleProcessingMessage = "Processing did not finish in time"
	tempFileMaxAge         = time.Hour
)

// MaintenanceService repairs state left behind by crashed or interrupted work.
type MaintenanceService struct {
	documents  *mongo.Collection
	storage    *FileStorageManager
	staleAfter time.Duration
	now        func() time.Time
}

func NewMaintenanceService(db *mongo.Database, storage *FileStorageManager, cfg *config.Config) *MaintenanceService {
	staleAfter := cfg.StaleProcessingAfter
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &MaintenanceService{
		documents:  db.Collection(config.CollectionDocuments),
		storage:    storage,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// FailStaleDocuments marks documents that have been processing for too long
// as failed so they can be reprocessed.
func (s *MaintenanceService) FailStaleDocuments(ctx context.Context) (int64, error) {
	now := s.now()
	res, err := s.documents.UpdateMany(ctx,
		bson.M{
			"status":     models.StatusProcessing,
			"updated_at": bson.M{"$lt": now.Add(-s.staleAfter)},
		},
		bson.M{"$set": bson.M{
			"status":        models.StatusFailed,
			"error_message": staleProcessingMessage,
			"processed_at":  now,
			"updated_at":    now,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale documents: %w", err)
	}
	if res.ModifiedCount > 0 {
		logger.Warn("Marked stale documents as failed", "count", res.ModifiedCount, "older_than", s.staleAfter.String())
	}
	return res.ModifiedCount, nil
}

// CleanupTempFiles removes abandoned upload temp files.
func (s *MaintenanceService) CleanupTempFiles(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	removed, err := s.storage.CleanupTemp(tempFileMaxAge, s.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Info("Removed abandoned temp files", "count", removed)
	}
	return removed, nil
}
