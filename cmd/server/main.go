package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/config"
	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/handlers"
	"github.com/mkammes/taskpilot/internal/logger"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/priority"
	"github.com/mkammes/taskpilot/internal/queue"
	"github.com/mkammes/taskpilot/internal/services/ai"
	"github.com/mkammes/taskpilot/internal/services/goals"
	"github.com/mkammes/taskpilot/internal/services/insights"
	"github.com/mkammes/taskpilot/internal/services/oidc"
	"github.com/mkammes/taskpilot/internal/services/subscription"
	"github.com/mkammes/taskpilot/internal/telemetry"
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
	debugMode := cfg.ServerDebugMode || *debugFlag

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

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "taskpilot-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting and AI usage metering
	redisConn, err := middleware.NewRedisConn(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisConn.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for job queue (required)
	// Retry connection with exponential backoff to handle RabbitMQ startup delays
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var jobQueue queue.JobQueue
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err = queue.NewRabbitMQQueue(cfg.RabbitMQURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			break
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
		if delay > 30*time.Second {
			delay = 30 * time.Second // Cap at 30 seconds
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
	}

	// Initialize repositories
	taskRepo := database.NewTaskRepository(db)
	goalRepo := database.NewGoalRepository(db)
	categoryRepo := database.NewCategoryRepository(db)
	tagRepo := database.NewTagRepository(db)
	conversationRepo := database.NewConversationRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)
	contextRepo := database.NewUserContextRepository(db)
	oidcConfigRepo := database.NewOIDCConfigRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Initialize services
	oidcProvider := oidc.NewProvider(oidcConfigRepo)
	jwksManager := oidc.NewJWKSManager()

	// Initialize AI provider
	aiProvider, err := createAIProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Warn("failed_to_create_ai_provider_ai_features_disabled", zap.Error(err))
		aiProvider = nil
	}

	usageCounter := subscription.NewRedisUsageCounter(redisConn.Client())
	subscriptionService := subscription.NewService(subscriptionRepo, usageCounter, zapLogger)

	priorityEngine := priority.NewEngine()
	priorityService := priority.NewService(taskRepo, priorityEngine, zapLogger)
	goalService := goals.NewService(goalRepo, taskRepo, contextRepo, aiProvider, zapLogger)
	insightsService := insights.NewService(taskRepo, zapLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(oidcProvider)
	taskHandler := handlers.NewTaskHandler(taskRepo, jobQueue)
	taskAIHandler := handlers.NewTaskAIHandler(taskRepo, tagRepo, contextRepo, aiProvider, priorityService, subscriptionService)
	goalHandler := handlers.NewGoalHandler(goalRepo, goalService)
	categoryHandler := handlers.NewCategoryHandler(categoryRepo, tagRepo)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, contextRepo, aiProvider, subscriptionService)
	userContextHandler := handlers.NewUserContextHandler(contextRepo)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionRepo, subscriptionService)
	aiHandler := handlers.NewAIHandler(goalService, insightsService)
	healthChecker := handlers.NewHealthChecker(db, redisConn.Client(), jobQueue)

	// Setup router
	r := mux.NewRouter()

	// Middleware. gorilla/mux runs these in registration order, so the
	// outermost concerns come first.
	zapLogger.Info("setting_up_middleware")

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("taskpilot-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	// CORS origins load from the database and hot-reload; FRONTEND_URL is
	// the fallback
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, 1*time.Minute)
	r.Use(corsReloader.Middleware())
	// Rate limit middleware is applied per route group, not globally
	rateLimitReloader := middleware.NewRateLimitReloader(redisConn.Client(), ratelimitConfigRepo, "5-S", zapLogger, 1*time.Minute)
	if rateLimitReloader == nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader")
	}
	rateLimitMW := rateLimitReloader.Middleware()
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// OpenAPI spec (public)
	openAPIPath := filepath.Join("api", "openapi", "openapi.yaml")
	openAPIHandler := handlers.NewOpenAPIHandler(openAPIPath)
	openAPIHandler.RegisterRoutes(r)

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(db, oidcProvider, jwksManager)

	// Auth routes
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()

	// Public auth routes with rate limiting (more restrictive for unauthenticated)
	loginRouter := authRouter.PathPrefix("/oidc").Subrouter()
	loginRouter.Use(rateLimitMW)
	loginRouter.HandleFunc("/login", authHandler.GetOIDCLogin).Methods("GET")

	// Protected auth routes
	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW)
	protectedAuthRouter.Use(rateLimitMW)
	protectedAuthRouter.HandleFunc("/me", authHandler.GetMe).Methods("GET")

	// protectedGroup builds a rate-limited, authenticated subrouter
	protectedGroup := func(prefix string) *mux.Router {
		sub := apiRouter.PathPrefix(prefix).Subrouter()
		sub.Use(authMW)
		sub.Use(rateLimitMW)
		return sub
	}

	tasksRouter := protectedGroup("/tasks")
	taskAIHandler.RegisterRoutes(tasksRouter)
	taskHandler.RegisterRoutes(tasksRouter)

	goalHandler.RegisterRoutes(protectedGroup("/goals"))
	categoryHandler.RegisterCategoryRoutes(protectedGroup("/categories"))
	categoryHandler.RegisterTagRoutes(protectedGroup("/tags"))
	conversationHandler.RegisterRoutes(protectedGroup("/conversations"))
	userContextHandler.RegisterRoutes(protectedGroup("/user-context"))
	subscriptionHandler.RegisterRoutes(protectedGroup("/subscription"))

	// AI analysis routes are Pro-only
	aiRouter := protectedGroup("/ai")
	aiRouter.Use(middleware.RequirePro(subscriptionService))
	aiHandler.RegisterRoutes(aiRouter)

	// Catch-all OPTIONS handler for preflight requests
	// The CORS middleware sets the headers before this runs
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// CORS and rate limit hot-reload loops
	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go corsReloader.Start(reloadCtx)
	go rateLimitReloader.Start(reloadCtx)

	// Start DLQ garbage collector if the queue implementation supports it
	// Run every hour, retain messages for 24 hours
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := dlqGC.Start(reloadCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// createAIProvider creates an AI provider based on configuration
func createAIProvider(cfg *config.Config, logger *zap.Logger, debugMode bool) (ai.Provider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	// Get provider type
	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	// Create provider directly with logger support
	if providerType == "openai" {
		return ai.NewOpenAIProviderWithLogger(
			cfg.OpenAIKey,
			cfg.AIBaseURL,
			cfg.AIModel,
			logger,
			debugMode,
		), nil
	}

	// Fallback to registry for other providers (without logger)
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	config := map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	}

	return registry.GetProvider(providerType, config)
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
