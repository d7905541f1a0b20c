package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/internal/search"
	"lms-ai-backend/services"
)

func usage() {
	fmt.Println("Usage: go run ./cmd/migrate <command>")
	fmt.Println("Commands:")
	fmt.Println("  ensure-indexes          - Create the MongoDB indexes")
	fmt.Println("  rechunk [size overlap]  - Re-chunk every ready document and rebuild its search entries")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.DBName)

	switch command := os.Args[1]; command {
	case "ensure-indexes":
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := config.EnsureIndexes(ctx, db); err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
		fmt.Println("Indexes created successfully!")

	case "rechunk":
		size, overlap, err := rechunkArgs(os.Args[2:], cfg)
		if err != nil {
			usage()
			log.Fatalf("Invalid arguments: %v", err)
		}
		updated, err := rechunk(ctx, db, cfg, size, overlap)
		if err != nil {
			log.Fatalf("Rechunk failed after %d documents: %v", updated, err)
		}
		fmt.Printf("Rechunked %d documents with size %d and overlap %d\n", updated, size, overlap)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

// rechunkArgs reads optional size and overlap, defaulting to the configured values.
func rechunkArgs(args []string, cfg *config.Config) (int, int, error) {
	size, overlap := cfg.ChunkSize, cfg.ChunkOverlap
	if len(args) > 2 {
		return 0, 0, fmt.Errorf("expected at most 2 arguments, got %d", len(args))
	}
	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, 0, fmt.Errorf("size %q: %w", args[0], err)
		}
		size = n
	}
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return 0, 0, fmt.Errorf("overlap %q: %w", args[1], err)
		}
		overlap = n
	}
	return size, overlap, nil
}

func rechunk(ctx context.Context, db *mongo.Database, cfg *config.Config, size, overlap int) (int, error) {
	storage, err := services.NewFileStorageManager(cfg.FileStorageDir)
	if err != nil {
		return 0, err
	}
	deps := services.DocumentDeps{
		Storage:   storage,
		Extractor: services.NewPDFExtractor(),
	}
	if cfg.SearchEnabled {
		index, err := search.Open(cfg.SearchIndexPath)
		if err != nil {
			return 0, fmt.Errorf("%w (stop the API server before rechunking)", err)
		}
		defer index.Close()
		deps.Index = index
	}

	return services.NewDocumentService(db, cfg, deps).RechunkAll(ctx, size, overlap)
}
