package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/internal/queue"
	"lms-ai-backend/internal/telemetry"
	"lms-ai-backend/internal/webimport"
	"lms-ai-backend/services"
)

// The standalone worker adds document processing capacity. The search index
// can only be held by one process, so it runs only when search is disabled;
// with search enabled the API process runs the worker itself.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.SearchEnabled {
		log.Fatal("SEARCH_ENABLED=true: the API process owns the search index and runs the document worker; set SEARCH_ENABLED=false to scale processing out")
	}

	if cfg.OTELEnabled {
		shutdownTracer, err := telemetry.InitTracer(context.Background(), cfg, telemetry.RoleWorker)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				shutdownTracer(ctx)
			}()
		}
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	storage, err := services.NewFileStorageManager(cfg.FileStorageDir)
	if err != nil {
		log.Fatal("Failed to initialize file storage:", err)
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	opt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis settings for the queue:", err)
	}

	documents := services.NewDocumentService(mongoClient.Database(cfg.DBName), cfg, services.DocumentDeps{
		Storage:   storage,
		Extractor: services.NewPDFExtractor(),
		Fetcher:   webimport.NewFetcher(cfg.WebImportTimeout, cfg.WebImportUserAgent),
		Metrics:   metrics,
	})

	server := queue.NewServer(opt, cfg.WorkerConcurrency)
	mux := asynq.NewServeMux()
	queue.NewTaskProcessor(documents).Register(mux)

	logger.Info("Starting document worker",
		"concurrency", cfg.WorkerConcurrency,
		"queues", "critical(6), default(3), low(1)",
		"redis", opt.Addr,
	)

	// Run blocks until SIGINT or SIGTERM.
	if err := server.Run(mux); err != nil {
		log.Fatal("Worker stopped:", err)
	}
}
