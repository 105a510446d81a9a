package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/torijune/Survey-AI-sub001/internal/api"
	"github.com/torijune/Survey-AI-sub001/internal/config"
	"github.com/torijune/Survey-AI-sub001/internal/core"
	"github.com/torijune/Survey-AI-sub001/internal/extract"
	"github.com/torijune/Survey-AI-sub001/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Command line flags for one-shot transcript ingestion
	ingestPath := flag.String("ingest", "", "Ingest a transcript file and exit")
	ingestUser := flag.String("user", "", "User id to ingest the transcript under (with -ingest)")
	flag.Parse()

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbStore.Close()

	ctx := context.Background()
	llmService, err := core.NewLLMService(ctx, cfg.GeminiAPIKey, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	extractor := extract.NewExtractor()
	ingestService := core.NewIngestService(dbStore, llmService, extractor, logger, cfg.ChunkMaxLen, cfg.ChunkOverlap)
	chatService := core.NewChatService(dbStore, llmService, llmService, logger)

	if *ingestPath != "" {
		runIngest(ctx, ingestService, logger, *ingestPath, *ingestUser)
		return
	}

	apiHandler := api.NewAPIHandler(ingestService, chatService, logger)
	router := api.NewRouter(apiHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not listen", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

// runIngest ingests one local transcript file and exits, mirroring the HTTP
// ingestion path.
func runIngest(ctx context.Context, ingestService *core.IngestService, logger *zap.Logger, path, userID string) {
	if userID == "" {
		logger.Fatal("-user is required with -ingest")
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("failed to read transcript file", zap.String("path", path), zap.Error(err))
	}

	result, err := ingestService.Ingest(ctx, core.IngestRequest{
		UserID:   userID,
		FileID:   uuid.NewString(),
		FileName: filepath.Base(path),
		Payload:  payload,
	})
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}
	if result.AlreadyExists {
		logger.Info("transcript was already ingested", zap.String("file_id", result.FileID))
		return
	}
	logger.Info("ingestion complete", zap.String("file_id", result.FileID), zap.Int("chunks", result.NumChunks))
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "DEBUG" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
