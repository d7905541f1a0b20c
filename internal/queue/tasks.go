// Package queue moves document processing off the request path through asynq.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
)

const (
	TaskProcessDocument = "document:process"

	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type DocumentProcessPayload struct {
	DocumentID string `json:"document_id"`
}

func NewDocumentProcessTask(documentID primitive.ObjectID) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentProcessPayload{DocumentID: documentID.Hex()})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueCritical),
	), nil
}

// RedisConnOpt maps the application's Redis settings onto asynq's.
func RedisConnOpt(cfg *config.Config) (asynq.RedisClientOpt, error) {
	opt, err := cfg.RedisOptions()
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// Client enqueues document processing tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(opt asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(opt)}
}

// Dispatch schedules processing of a stored document.
func (c *Client) Dispatch(ctx context.Context, documentID primitive.ObjectID) error {
	task, err := NewDocumentProcessTask(documentID)
	if err != nil {
		return fmt.Errorf("failed to build task: %w", err)
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue document %s: %w", documentID.Hex(), err)
	}
	logger.Debug("Document processing enqueued", "document_id", documentID.Hex(), "task_id", info.ID, "queue", info.Queue)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// DocumentProcessor is the work a document task performs.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, documentID primitive.ObjectID) error
}

type TaskProcessor struct {
	documents DocumentProcessor
}

func NewTaskProcessor(documents DocumentProcessor) *TaskProcessor {
	return &TaskProcessor{documents: documents}
}

// Register adds the processor's handlers to mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskProcessDocument, p.ProcessDocument)
}

func (p *TaskProcessor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	id, err := primitive.ObjectIDFromHex(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", payload.DocumentID, asynq.SkipRetry)
	}

	logger.Info("Processing document", "document_id", payload.DocumentID)

	if err := p.documents.ProcessDocument(ctx, id); err != nil {
		// A deleted document will never appear again.
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("document %s: %v: %w", payload.DocumentID, err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// NewServer builds the asynq server that runs document tasks. Critical tasks
// get most of the workers.
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
			QueueLow:      1,
		},
		StrictPriority:  true,
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", "type", task.Type(), "error", err)
		}),
	})
}
