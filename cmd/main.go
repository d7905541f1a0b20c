package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"lms-ai-backend/internal/ai"
	"lms-ai-backend/internal/auth"
	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/jobs"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/internal/queue"
	"lms-ai-backend/internal/search"
	"lms-ai-backend/internal/telemetry"
	"lms-ai-backend/internal/webimport"
	"lms-ai-backend/middleware"
	"lms-ai-backend/routes"
	"lms-ai-backend/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	ctx := context.Background()

	if cfg.OTELEnabled {
		shutdownTracer, err := telemetry.InitTracer(ctx, cfg, telemetry.RoleAPI)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				shutdownTracer(shutdownCtx)
			}()
		}
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
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
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	tokens, err := auth.NewTokenManager(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, auth.NewRedisTokenStore(rdb))
	if err != nil {
		log.Fatal("Failed to create token manager:", err)
	}

	generator, err := ai.NewTextGenerator(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize text generator:", err)
	}
	defer generator.Close()

	storage, err := services.NewFileStorageManager(cfg.FileStorageDir)
	if err != nil {
		log.Fatal("Failed to initialize file storage:", err)
	}

	deps := services.DocumentDeps{
		Storage:   storage,
		Extractor: services.NewPDFExtractor(),
		Fetcher:   webimport.NewFetcher(cfg.WebImportTimeout, cfg.WebImportUserAgent),
		Metrics:   metrics,
	}

	if cfg.SearchEnabled {
		index, err := search.Open(cfg.SearchIndexPath)
		if err != nil {
			logger.Warn("Search disabled", "path", cfg.SearchIndexPath, "error", err)
		} else {
			defer index.Close()
			deps.Index = index
		}
	}

	var (
		queueClient *queue.Client
		queueServer *asynq.Server
	)
	if cfg.QueueEnabled {
		opt, err := queue.RedisConnOpt(cfg)
		if err != nil {
			log.Fatal("Invalid Redis settings for the queue:", err)
		}
		queueClient = queue.NewClient(opt)
		defer queueClient.Close()
		deps.Dispatcher = queueClient
		queueServer = queue.NewServer(opt, cfg.WorkerConcurrency)
	}

	documentService := services.NewDocumentService(db, cfg, deps)
	quotas := ai.NewQuotaManager(db.Collection(config.CollectionAIQuotas), cfg.DailyTokenLimit)
	aiService := services.NewAIService(db, cfg, generator, quotas, documentService, metrics)
	userService := services.NewUserService(db, tokens, cfg.BcryptCost)
	flashcardService := services.NewFlashcardService(db)
	quizService := services.NewQuizService(db)
	progressService := services.NewProgressService(db, quotas)

	// The worker shares this process so it writes to the same search index.
	if queueServer != nil {
		mux := asynq.NewServeMux()
		queue.NewTaskProcessor(documentService).Register(mux)
		if err := queueServer.Start(mux); err != nil {
			log.Fatal("Failed to start document worker:", err)
		}
		defer queueServer.Shutdown()
		logger.Info("Document worker started", "concurrency", cfg.WorkerConcurrency)
	}

	scheduler := jobs.NewScheduler(5 * time.Minute)
	maintenance := services.NewMaintenanceService(db, storage, cfg)
	if err := jobs.RegisterMaintenance(scheduler, maintenance, cfg.MaintenanceInterval); err != nil {
		log.Fatal("Failed to schedule maintenance:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.OTELEnabled {
		router.Use(middleware.TracingMiddleware(cfg.OTELServiceName), middleware.EnrichTrace())
	}
	router.Use(middleware.RequestLogger())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler(cfg.MaxFileSize))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize + 1<<20))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"search":    deps.Index != nil,
			"queue":     cfg.QueueEnabled,
		})
	})
	router.NoRoute(middleware.NotFoundHandler)

	limiter := middleware.RateLimitMiddleware(middleware.NewRedisCounter(rdb), cfg.RateLimitReqs, cfg.RateLimitWindow)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	api := router.Group("/api")
	public := api.Group("", limiter)
	protected := api.Group("", authMiddleware.RequireAuth(), limiter)

	routes.SetupAuthRoutes(public, protected, userService, cfg.GinMode == "release")
	routes.SetupDocumentRoutes(protected, documentService, cfg.MaxFileSize)
	routes.SetupAIRoutes(protected, aiService)
	routes.SetupFlashcardRoutes(protected, flashcardService)
	routes.SetupQuizRoutes(protected, quizService)
	routes.SetupProgressRoutes(protected, progressService)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "provider", cfg.AIProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
