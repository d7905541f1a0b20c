package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lms-ai-backend/internal/ai"
	"lms-ai-backend/internal/chunking"
	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/internal/telemetry"
	"lms-ai-backend/models"
	"lms-ai-backend/utils"
)

const (
	DefaultFlashcardCount = 10
	DefaultQuizQuestions  = 5

	explainChunks = 3
)

const (
	featureFlashcards = "flashcards"
	featureQuiz       = "quiz"
	featureSummary    = "summary"
	featureChat       = "chat"
	featureExplain    = "explain"
)

// QuotaTracker enforces the per-user daily token budget.
type QuotaTracker interface {
	CheckQuota(ctx context.Context, userID primitive.ObjectID, estimated int) error
	RecordUsage(ctx context.Context, userID primitive.ObjectID, tokens int) error
}

// DocumentSource loads documents that are ready for AI features.
type DocumentSource interface {
	GetReadyDocument(ctx context.Context, userID, id primitive.ObjectID) (*models.Document, error)
}

type AIService struct {
	generator ai.TextGenerator
	quota     QuotaTracker
	documents DocumentSource
	metrics   *telemetry.Metrics

	flashcards *mongo.Collection
	quizzes    *mongo.Collection
	chats      *mongo.Collection

	maxContextChunks int
	now              func() time.Time
}

// NewAIService wires the generator to storage. quota and metrics may be nil.
func NewAIService(db *mongo.Database, cfg *config.Config, generator ai.TextGenerator, quota QuotaTracker, documents DocumentSource, metrics *telemetry.Metrics) *AIService {
	s := &AIService{
		generator:        generator,
		quota:            quota,
		documents:        documents,
		metrics:          metrics,
		maxContextChunks: cfg.MaxContextChunks,
		now:              time.Now,
	}
	if db != nil {
		s.flashcards = db.Collection(config.CollectionFlashcards)
		s.quizzes = db.Collection(config.CollectionQuizzes)
		s.chats = db.Collection(config.CollectionChatHistories)
	}
	if s.maxContextChunks <= 0 {
		s.maxContextChunks = chunking.DefaultMaxChunks
	}
	return s
}

// generate runs one prompt under the user's quota and records what it cost.
func (s *AIService) generate(ctx context.Context, userID primitive.ObjectID, feature, prompt string) (string, error) {
	if s.quota != nil {
		if err := s.quota.CheckQuota(ctx, userID, ai.EstimateTokens(prompt)); err != nil {
			return "", err
		}
	}

	genCtx, cancel := utils.WithGenerationTimeout(ctx)
	defer cancel()

	res, err := s.generator.GenerateText(genCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", feature, err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", fmt.Errorf("%s generation failed: %w", feature, ai.ErrEmptyResponse)
	}

	if s.quota != nil {
		if err := s.quota.RecordUsage(ctx, userID, res.TokensUsed); err != nil {
			logger.Warn("Failed to record AI usage", "user_id", userID.Hex(), "error", err)
		}
	}
	s.metrics.RecordTokensUsed(int64(res.TokensUsed), res.Model, feature)
	return text, nil
}

// Flashcards asks for count cards about text.
func (s *AIService) Flashcards(ctx context.Context, userID primitive.ObjectID, text string, count int) ([]models.Flashcard, error) {
	if count <= 0 {
		count = DefaultFlashcardCount
	}
	out, err := s.generate(ctx, userID, featureFlashcards, flashcardPrompt(text, count))
	if err != nil {
		return nil, err
	}
	cards := parseFlashcards(out, count)
	if len(cards) == 0 {
		return nil, utils.NewBadGateway("AI_PARSE_FAILED", "The AI response contained no usable flashcards", nil)
	}
	return cards, nil
}

// Quiz asks for numQuestions multiple choice questions about text.
func (s *AIService) Quiz(ctx context.Context, userID primitive.ObjectID, text string, numQuestions int) ([]models.Question, error) {
	if numQuestions <= 0 {
		numQuestions = DefaultQuizQuestions
	}
	out, err := s.generate(ctx, userID, featureQuiz, quizPrompt(text, numQuestions))
	if err != nil {
		return nil, err
	}
	questions := parseQuiz(out, numQuestions)
	if len(questions) == 0 {
		return nil, utils.NewBadGateway("AI_PARSE_FAILED", "The AI response contained no usable questions", nil)
	}
	return questions, nil
}

func (s *AIService) Summary(ctx context.Context, userID primitive.ObjectID, text string) (string, error) {
	return s.generate(ctx, userID, featureSummary, summaryPrompt(text))
}

// Answer answers question from the given chunks only.
func (s *AIService) Answer(ctx context.Context, userID primitive.ObjectID, question string, chunks []chunking.ScoredChunk) (string, error) {
	return s.generate(ctx, userID, featureChat, chatPrompt(question, chunks))
}

func (s *AIService) Explain(ctx context.Context, userID primitive.ObjectID, concept, context string) (string, error) {
	return s.generate(ctx, userID, featureExplain, explainPrompt(concept, context))
}

// GenerateFlashcardSet creates and stores a flashcard set for a ready document.
func (s *AIService) GenerateFlashcardSet(ctx context.Context, userID, documentID primitive.ObjectID, count int) (*models.FlashcardSet, error) {
	doc, err := s.documents.GetReadyDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	cards, err := s.Flashcards(ctx, userID, doc.ExtractedText, count)
	if err != nil {
		return nil, err
	}

	now := s.now()
	set := &models.FlashcardSet{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		DocumentID:    doc.ID,
		Cards:         cards,
		CreatedAt:     now,
		UpdatedAt:     now,
		DocumentTitle: doc.Title,
	}
	if _, err := s.flashcards.InsertOne(ctx, set); err != nil {
		return nil, fmt.Errorf("failed to save flashcards: %w", err)
	}
	return set, nil
}

// GenerateQuiz creates and stores a quiz for a ready document. An empty title
// becomes "<document title> - Quiz".
func (s *AIService) GenerateQuiz(ctx context.Context, userID, documentID primitive.ObjectID, numQuestions int, title string) (*models.Quiz, error) {
	doc, err := s.documents.GetReadyDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.Quiz(ctx, userID, doc.ExtractedText, numQuestions)
	if err != nil {
		return nil, err
	}

	if title = strings.TrimSpace(title); title == "" {
		title = doc.Title + " - Quiz"
	}

	quiz := &models.Quiz{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		DocumentID:     doc.ID,
		Title:          title,
		Questions:      questions,
		UserAnswers:    []models.UserAnswer{},
		TotalQuestions: len(questions),
		CreatedAt:      s.now(),
	}
	if _, err := s.quizzes.InsertOne(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to save quiz: %w", err)
	}
	return quiz, nil
}

type SummaryResult struct {
	DocumentID  string `json:"document_id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	SummaryHTML string `json:"summary_html"`
}

func (s *AIService) GenerateSummary(ctx context.Context, userID, documentID primitive.ObjectID) (*SummaryResult, error) {
	doc, err := s.documents.GetReadyDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	summary, err := s.Summary(ctx, userID, doc.ExtractedText)
	if err != nil {
		return nil, err
	}

	return &SummaryResult{
		DocumentID:  doc.ID.Hex(),
		Title:       doc.Title,
		Summary:     summary,
		SummaryHTML: renderHTML(summary),
	}, nil
}

func renderHTML(markdown string) string {
	html, err := utils.RenderMarkdown(markdown)
	if err != nil {
		logger.Warn("Failed to render markdown", "error", err)
		return ""
	}
	return html
}

func chunkIndices(chunks []chunking.ScoredChunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.ChunkIndex
	}
	return out
}

// Chat answers a question about a document from its most relevant chunks and
// appends the exchange to the user's chat history for that document.
func (s *AIService) Chat(ctx context.Context, userID, documentID primitive.ObjectID, question string) (*models.ChatResponse, error) {
	doc, err := s.documents.GetReadyDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	relevant, err := chunking.FindRelevantChunks(doc.Chunks, question, s.maxContextChunks)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRetrieval(featureChat, len(relevant))

	answer, err := s.Answer(ctx, userID, question, relevant)
	if err != nil {
		return nil, err
	}

	indices := chunkIndices(relevant)
	now := s.now()
	messages := []models.ChatMessage{
		{Role: models.RoleUser, Content: question, Timestamp: now, RelevantChunks: []int{}},
		{Role: models.RoleAssistant, Content: answer, Timestamp: now, RelevantChunks: indices},
	}

	var history models.ChatHistory
	err = s.chats.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "document_id": doc.ID},
		bson.M{
			"$push":        bson.M{"messages": bson.M{"$each": messages}},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After).
			SetProjection(bson.M{"_id": 1}),
	).Decode(&history)
	if err != nil {
		return nil, fmt.Errorf("failed to save chat history: %w", err)
	}

	return &models.ChatResponse{
		Question:       question,
		Answer:         answer,
		RelevantChunks: indices,
		ChatHistoryID:  history.ID.Hex(),
	}, nil
}

type ExplainResult struct {
	Concept         string `json:"concept"`
	Explanation     string `json:"explanation"`
	ExplanationHTML string `json:"explanation_html"`
	RelevantChunks  []int  `json:"relevant_chunks"`
}

// ExplainConcept explains a concept using the chunks that mention it. When none
// do, the beginning of the document is used instead.
func (s *AIService) ExplainConcept(ctx context.Context, userID, documentID primitive.ObjectID, concept string) (*ExplainResult, error) {
	doc, err := s.documents.GetReadyDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	relevant, err := chunking.FindRelevantChunks(doc.Chunks, concept, explainChunks)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRetrieval(featureExplain, len(relevant))

	parts := make([]string, len(relevant))
	for i, c := range relevant {
		parts[i] = c.Content
	}
	context := strings.Join(parts, "\n\n")
	if context == "" {
		context = doc.ExtractedText
	}

	explanation, err := s.Explain(ctx, userID, concept, context)
	if err != nil {
		return nil, err
	}

	return &ExplainResult{
		Concept:         concept,
		Explanation:     explanation,
		ExplanationHTML: renderHTML(explanation),
		RelevantChunks:  chunkIndices(relevant),
	}, nil
}

// ChatHistory returns the messages exchanged about a document, oldest first.
func (s *AIService) ChatHistory(ctx context.Context, userID, documentID primitive.ObjectID) ([]models.ChatMessage, error) {
	var history models.ChatHistory
	err := s.chats.FindOne(ctx,
		bson.M{"user_id": userID, "document_id": documentID},
		options.FindOne().SetProjection(bson.M{"messages": 1}),
	).Decode(&history)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if history.Messages == nil {
		history.Messages = []models.ChatMessage{}
	}
	return history.Messages, nil
}
