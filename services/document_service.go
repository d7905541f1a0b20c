package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lms-ai-backend/internal/chunking"
	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/internal/search"
	"lms-ai-backend/internal/telemetry"
	"lms-ai-backend/internal/webimport"
	"lms-ai-backend/models"
	"lms-ai-backend/utils"
)

const extractionMethodWeb = "web"

// Dispatcher schedules background processing of a stored document.
type Dispatcher interface {
	Dispatch(ctx context.Context, documentID primitive.ObjectID) error
}

// PageFetcher downloads a web page as readable text.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*webimport.Page, error)
}

// SearchIndex is the full-text index kept alongside the stored chunks.
type SearchIndex interface {
	ReplaceDocument(userID, documentID, title string, chunks []chunking.Chunk, previousCount int) error
	DeleteDocument(documentID string, chunkCount int) error
	Search(userID, query string, limit int) ([]search.Hit, error)
}

// DocumentDeps are the collaborators of a DocumentService. Index, Dispatcher and
// Metrics are optional: without an index search is disabled, and without a
// dispatcher processing runs in a goroutine of the current process.
type DocumentDeps struct {
	Storage    *FileStorageManager
	Extractor  TextExtractor
	Fetcher    PageFetcher
	Index      SearchIndex
	Dispatcher Dispatcher
	Metrics    *telemetry.Metrics
}

type DocumentService struct {
	documents  *mongo.Collection
	flashcards *mongo.Collection
	quizzes    *mongo.Collection
	chats      *mongo.Collection

	storage    *FileStorageManager
	extractor  TextExtractor
	fetcher    PageFetcher
	index      SearchIndex
	dispatcher Dispatcher
	metrics    *telemetry.Metrics

	chunkSize    int
	chunkOverlap int
	now          func() time.Time
}

func NewDocumentService(db *mongo.Database, cfg *config.Config, deps DocumentDeps) *DocumentService {
	s := &DocumentService{
		documents:    db.Collection(config.CollectionDocuments),
		flashcards:   db.Collection(config.CollectionFlashcards),
		quizzes:      db.Collection(config.CollectionQuizzes),
		chats:        db.Collection(config.CollectionChatHistories),
		storage:      deps.Storage,
		extractor:    deps.Extractor,
		fetcher:      deps.Fetcher,
		index:        deps.Index,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		now:          time.Now,
	}
	if s.dispatcher == nil {
		s.dispatcher = inlineDispatcher{process: s.ProcessDocument}
	}
	return s
}

// inlineDispatcher processes documents in a goroutine when no queue is configured.
type inlineDispatcher struct {
	process func(context.Context, primitive.ObjectID) error
}

func (d inlineDispatcher) Dispatch(ctx context.Context, documentID primitive.ObjectID) error {
	go func() {
		ctx, cancel := utils.WithProcessingTimeout(ctx)
		defer cancel()
		if err := d.process(ctx, documentID); err != nil {
			logger.Error("Document processing failed", "document_id", documentID.Hex(), "error", err)
		}
	}()
	return nil
}

// Upload stores a PDF, records it as processing and schedules extraction.
func (s *DocumentService) Upload(ctx context.Context, userID primitive.ObjectID, title, fileName string, r io.Reader) (*models.Document, error) {
	stored, err := s.storage.StorePDF(r)
	if err != nil {
		return nil, err
	}

	if err := s.checkDuplicate(ctx, userID, stored.Hash); err != nil {
		s.removeFile(stored.Path)
		return nil, err
	}

	now := s.now()
	doc := &models.Document{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		Title:        strings.TrimSpace(title),
		FileName:     fileName,
		FilePath:     stored.Path,
		FileSize:     stored.Size,
		FileHash:     stored.Hash,
		Status:       models.StatusProcessing,
		Metadata:     models.DocumentMetadata{ChunkSize: s.chunkSize, ChunkOverlap: s.chunkOverlap},
		UploadDate:   now,
		LastAccessed: now,
		UpdatedAt:    now,
	}

	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		s.removeFile(stored.Path)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.dispatch(ctx, doc.ID)
	return doc, nil
}

// ImportURL fetches a web page and records its text as a new document.
func (s *DocumentService) ImportURL(ctx context.Context, userID primitive.ObjectID, rawURL, title string) (*models.Document, error) {
	if _, err := webimport.ValidateURL(rawURL); err != nil {
		return nil, utils.NewBadRequest("Only http and https URLs can be imported")
	}

	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		if errors.Is(err, webimport.ErrNoContent) {
			return nil, utils.NewBadRequest("The page has no readable content")
		}
		return nil, utils.NewBadGateway("fetch_failed", "Could not fetch the page", err)
	}

	hash, err := utils.HashReader(strings.NewReader(page.Text))
	if err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, userID, hash); err != nil {
		return nil, err
	}

	storedText, compression, err := utils.EncodeDocumentText(page.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to compress page text: %w", err)
	}

	if title = strings.TrimSpace(title); title == "" {
		title = page.Title
	}

	now := s.now()
	doc := &models.Document{
		ID:              primitive.NewObjectID(),
		UserID:          userID,
		Title:           title,
		SourceURL:       page.URL,
		FileSize:        int64(len(page.Text)),
		FileHash:        hash,
		StoredText:      storedText,
		TextCompression: string(compression),
		Status:          models.StatusProcessing,
		Metadata: models.DocumentMetadata{
			ChunkSize:        s.chunkSize,
			ChunkOverlap:     s.chunkOverlap,
			ExtractionMethod: extractionMethodWeb,
		},
		UploadDate:   now,
		LastAccessed: now,
		UpdatedAt:    now,
	}

	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.dispatch(ctx, doc.ID)
	return doc, nil
}

func (s *DocumentService) checkDuplicate(ctx context.Context, userID primitive.ObjectID, hash string) error {
	var existing struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := s.documents.FindOne(ctx,
		bson.M{"user_id": userID, "file_hash": hash},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}

	conflict := utils.NewConflict("This document has already been uploaded")
	conflict.Details = map[string]string{"document_id": existing.ID.Hex()}
	return conflict
}

func (s *DocumentService) dispatch(ctx context.Context, id primitive.ObjectID) {
	if err := s.dispatcher.Dispatch(ctx, id); err != nil {
		logger.Error("Failed to enqueue document, processing in-process", "document_id", id.Hex(), "error", err)
		inlineDispatcher{process: s.ProcessDocument}.Dispatch(ctx, id)
	}
}

// ProcessDocument extracts, chunks and indexes one document, leaving it ready or
// failed. It is what both the worker and the in-process dispatcher run.
func (s *DocumentService) ProcessDocument(ctx context.Context, id primitive.ObjectID) error {
	var doc models.Document
	if err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return fmt.Errorf("load document %s: %w", id.Hex(), err)
	}

	start := s.now()
	err := s.process(ctx, &doc, s.chunkSize, s.chunkOverlap, start)
	if err != nil {
		s.markFailed(ctx, id, err)
		s.metrics.RecordDocumentProcessing(s.now().Sub(start).Seconds(), models.StatusFailed, 0)
		return err
	}
	logger.Info("Document processed", "document_id", id.Hex(), "chunks", doc.Metadata.ChunkCount)
	return nil
}

func (s *DocumentService) process(ctx context.Context, doc *models.Document, size, overlap int, start time.Time) error {
	text, pages, method, err := s.documentText(ctx, doc)
	if err != nil {
		return err
	}
	return s.applyChunks(ctx, doc, text, pages, method, size, overlap, start)
}

// documentText returns the stored text when there is one and extracts it from the
// file otherwise.
func (s *DocumentService) documentText(ctx context.Context, doc *models.Document) (string, int, string, error) {
	if len(doc.StoredText) > 0 {
		text, err := utils.DecodeDocumentText(doc.StoredText, utils.TextEncoding(doc.TextCompression))
		if err != nil {
			return "", 0, "", fmt.Errorf("failed to read stored text: %w", err)
		}
		method := doc.Metadata.ExtractionMethod
		if method == "" && doc.SourceURL != "" {
			method = extractionMethodWeb
		}
		return text, doc.Metadata.Pages, method, nil
	}

	if doc.FilePath == "" {
		return "", 0, "", errNoText
	}
	res, err := s.extractor.ExtractText(ctx, doc.FilePath)
	if err != nil {
		return "", 0, "", err
	}
	return res.Text, res.Pages, res.Method, nil
}

func (s *DocumentService) applyChunks(ctx context.Context, doc *models.Document, text string, pages int, method string, size, overlap int, start time.Time) error {
	chunks, err := chunking.ChunkText(text, size, overlap)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return errNoText
	}

	storedText, compression, err := utils.EncodeDocumentText(text)
	if err != nil {
		return fmt.Errorf("failed to compress text: %w", err)
	}

	now := s.now()
	previousCount := max(len(doc.Chunks), doc.Metadata.ChunkCount)
	meta := models.DocumentMetadata{
		Pages:            pages,
		WordCount:        len(strings.Fields(text)),
		ChunkCount:       len(chunks),
		ChunkSize:        size,
		ChunkOverlap:     overlap,
		ExtractionMethod: method,
		ProcessingTime:   now.Sub(start),
	}

	update := bson.M{
		"$set": bson.M{
			"stored_text":      storedText,
			"text_compression": string(compression),
			"chunks":           chunks,
			"metadata":         meta,
			"status":           models.StatusReady,
			"processed_at":     now,
			"updated_at":       now,
		},
		"$unset": bson.M{"error_message": ""},
	}
	if _, err := s.documents.UpdateOne(ctx, bson.M{"_id": doc.ID}, update); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}

	doc.StoredText = storedText
	doc.TextCompression = string(compression)
	doc.Chunks = chunks
	doc.Metadata = meta
	doc.Status = models.StatusReady
	doc.ErrorMessage = ""
	doc.ProcessedAt = &now
	doc.UpdatedAt = now

	if s.index != nil {
		if err := s.index.ReplaceDocument(doc.UserID.Hex(), doc.ID.Hex(), doc.Title, chunks, previousCount); err != nil {
			logger.Warn("Failed to index document", "document_id", doc.ID.Hex(), "error", err)
		}
	}

	s.metrics.RecordDocumentProcessing(meta.ProcessingTime.Seconds(), models.StatusReady, len(chunks))
	return nil
}

func (s *DocumentService) markFailed(ctx context.Context, id primitive.ObjectID, cause error) {
	now := s.now()
	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":        models.StatusFailed,
			"error_message": cause.Error(),
			"processed_at":  now,
			"updated_at":    now,
		},
	})
	if err != nil {
		logger.Error("Failed to mark document as failed", "document_id", id.Hex(), "error", err)
	}
}

// ListDocuments returns the user's documents, newest first, without text or
// chunks and with their flashcard set and quiz counts.
func (s *DocumentService) ListDocuments(ctx context.Context, userID primitive.ObjectID) ([]models.DocumentSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$sort", Value: bson.M{"upload_date": -1}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         config.CollectionFlashcards,
			"localField":   "_id",
			"foreignField": "document_id",
			"as":           "flashcard_sets",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         config.CollectionQuizzes,
			"localField":   "_id",
			"foreignField": "document_id",
			"as":           "quiz_list",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"flashcard_count": bson.M{"$size": "$flashcard_sets"},
			"quiz_count":      bson.M{"$size": "$quiz_list"},
		}}},
		{{Key: "$project", Value: bson.M{
			"stored_text":    0,
			"chunks":         0,
			"flashcard_sets": 0,
			"quiz_list":      0,
		}}},
	}

	cursor, err := s.documents.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.DocumentSummary{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// GetDocument returns one document with its text and related counts, and records
// the access.
func (s *DocumentService) GetDocument(ctx context.Context, userID, id primitive.ObjectID) (*models.DocumentDetail, error) {
	var doc models.Document
	err := s.documents.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"last_accessed": s.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("Document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	if err := loadText(&doc); err != nil {
		return nil, err
	}

	related := bson.M{"document_id": id, "user_id": userID}
	flashcards, err := s.flashcards.CountDocuments(ctx, related)
	if err != nil {
		return nil, fmt.Errorf("failed to count flashcard sets: %w", err)
	}
	quizzes, err := s.quizzes.CountDocuments(ctx, related)
	if err != nil {
		return nil, fmt.Errorf("failed to count quizzes: %w", err)
	}

	return &models.DocumentDetail{
		Document:       &doc,
		FlashcardCount: int(flashcards),
		QuizCount:      int(quizzes),
	}, nil
}

// GetReadyDocument loads a document that AI features can use. Documents still
// processing or failed are rejected.
func (s *DocumentService) GetReadyDocument(ctx context.Context, userID, id primitive.ObjectID) (*models.Document, error) {
	doc, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusReady {
		return nil, utils.NewBadRequest("Document is not ready")
	}
	if err := loadText(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) find(ctx context.Context, userID, id primitive.ObjectID) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("Document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &doc, nil
}

func loadText(doc *models.Document) error {
	if len(doc.StoredText) == 0 {
		return nil
	}
	text, err := utils.DecodeDocumentText(doc.StoredText, utils.TextEncoding(doc.TextCompression))
	if err != nil {
		return fmt.Errorf("failed to read stored text: %w", err)
	}
	doc.ExtractedText = text
	return nil
}

func (s *DocumentService) UpdateTitle(ctx context.Context, userID, id primitive.ObjectID, title string) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"title": strings.TrimSpace(title), "updated_at": s.now()}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"stored_text": 0}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("Document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	if s.index != nil && len(doc.Chunks) > 0 {
		if err := s.index.ReplaceDocument(userID.Hex(), id.Hex(), doc.Title, doc.Chunks, len(doc.Chunks)); err != nil {
			logger.Warn("Failed to reindex renamed document", "document_id", id.Hex(), "error", err)
		}
	}
	doc.Chunks = nil
	return &doc, nil
}

// DeleteDocument removes a document together with its flashcards, quizzes, chat
// history, stored file and index entries.
func (s *DocumentService) DeleteDocument(ctx context.Context, userID, id primitive.ObjectID) error {
	var doc models.Document
	err := s.documents.FindOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		options.FindOne().SetProjection(bson.M{"stored_text": 0}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NewNotFound("Document not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	related := bson.M{"document_id": id, "user_id": userID}
	for _, col := range []*mongo.Collection{s.flashcards, s.quizzes, s.chats} {
		if _, err := col.DeleteMany(ctx, related); err != nil {
			return fmt.Errorf("failed to delete %s: %w", col.Name(), err)
		}
	}
	if _, err := s.documents.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.removeFile(doc.FilePath)
	if s.index != nil {
		if err := s.index.DeleteDocument(id.Hex(), max(len(doc.Chunks), doc.Metadata.ChunkCount)); err != nil {
			logger.Warn("Failed to remove document from index", "document_id", id.Hex(), "error", err)
		}
	}
	return nil
}

func (s *DocumentService) removeFile(path string) {
	if err := s.storage.Remove(path); err != nil {
		logger.Warn("Failed to remove stored file", "path", path, "error", err)
	}
}

// Reprocess re-chunks a document with new parameters, replacing its chunks. A
// zero size selects the configured size, and the configured overlap too unless
// one is given.
func (s *DocumentService) Reprocess(ctx context.Context, userID, id primitive.ObjectID, size, overlap int) (*models.Document, error) {
	doc, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == models.StatusProcessing {
		return nil, utils.NewBadRequest("Document is still processing")
	}
	if err := s.rechunk(ctx, doc, size, overlap); err != nil {
		return nil, err
	}
	doc.StoredText = nil
	return doc, nil
}

func (s *DocumentService) rechunk(ctx context.Context, doc *models.Document, size, overlap int) error {
	if size == 0 {
		size = s.chunkSize
		if overlap == 0 {
			overlap = s.chunkOverlap
		}
	}
	if err := s.process(ctx, doc, size, overlap, s.now()); err != nil {
		if errors.Is(err, chunking.ErrInvalidArgument) {
			return err
		}
		s.markFailed(ctx, doc.ID, err)
		return err
	}
	return nil
}

// RechunkAll re-chunks every ready document and returns how many were updated.
// Documents that fail are logged and marked failed; the run continues.
func (s *DocumentService) RechunkAll(ctx context.Context, size, overlap int) (int, error) {
	if _, err := chunking.ChunkText("", size, overlap); err != nil {
		return 0, err
	}

	cursor, err := s.documents.Find(ctx, bson.M{"status": models.StatusReady})
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	updated := 0
	for cursor.Next(ctx) {
		var doc models.Document
		if err := cursor.Decode(&doc); err != nil {
			return updated, fmt.Errorf("failed to decode document: %w", err)
		}
		if err := s.rechunk(ctx, &doc, size, overlap); err != nil {
			logger.Error("Rechunk failed", "document_id", doc.ID.Hex(), "error", err)
			continue
		}
		updated++
	}
	return updated, cursor.Err()
}

// Search runs a full-text query over the user's indexed chunks.
func (s *DocumentService) Search(userID primitive.ObjectID, query string, limit int) ([]search.Hit, error) {
	if s.index == nil {
		return nil, utils.NewAppError(http.StatusServiceUnavailable, "search_disabled", "Search is not enabled", nil)
	}
	if strings.TrimSpace(query) == "" {
		return nil, utils.NewBadRequest("Query parameter q is required")
	}
	return s.index.Search(userID.Hex(), query, limit)
}
