package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/config"
	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/logger"
	"github.com/mkammes/taskpilot/internal/priority"
	"github.com/mkammes/taskpilot/internal/queue"
	"github.com/mkammes/taskpilot/internal/services/ai"
	"github.com/mkammes/taskpilot/internal/services/goals"
	"github.com/mkammes/taskpilot/internal/workers"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("Starting worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to database")

	// Initialize repositories
	taskRepo := database.NewTaskRepository(db)
	goalRepo := database.NewGoalRepository(db)
	contextRepo := database.NewUserContextRepository(db)

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to RabbitMQ",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Create AI provider with logger. Goal breakdown jobs need it; the
	// rescore path runs without one.
	var aiProvider ai.Provider
	if cfg.OpenAIKey != "" {
		aiProvider = ai.NewOpenAIProviderWithLogger(
			cfg.OpenAIKey,
			cfg.AIBaseURL,
			cfg.AIModel,
			zapLogger,
			debugMode,
		)
		zapLogger.Info("Initialized AI provider",
			zap.String("provider", cfg.AIProvider),
			zap.String("model", cfg.AIModel),
		)
	} else {
		zapLogger.Warn("No AI provider configured, goal breakdown jobs will fail")
	}

	// Initialize services
	priorityEngine := priority.NewEngine()
	priorityService := priority.NewService(taskRepo, priorityEngine, zapLogger)
	goalService := goals.NewService(goalRepo, taskRepo, contextRepo, aiProvider, zapLogger)

	// Create job processor
	processor := workers.NewProcessor(priorityService, goalService, jobQueue, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Twice-daily rescore scheduler
	scheduler := workers.NewScheduler(jobQueue, taskRepo, zapLogger)
	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()

		if err := scheduler.ScheduleRescoreJobs(ctx); err != nil {
			zapLogger.Error("Failed to schedule rescore jobs", zap.Error(err))
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := scheduler.ScheduleRescoreJobs(ctx); err != nil {
					zapLogger.Error("Failed to schedule rescore jobs", zap.Error(err))
				}
			}
		}
	}()

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("Failed to start consuming messages", zap.Error(err))
	}

	zapLogger.Info("Worker started, consuming messages from queue")

	// Process messages
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("Message channel closed")
					return
				}

				// Process job
				if err := processor.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("Failed to process job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("Queue error", zap.Error(err))
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("Shutdown signal received, stopping worker...")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("Worker stopped")
}
