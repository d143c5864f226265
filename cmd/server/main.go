package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/studyforge/backend/internal/api/handlers"
	"github.com/studyforge/backend/internal/config"
	"github.com/studyforge/backend/internal/database"
	"github.com/studyforge/backend/internal/health"
	"github.com/studyforge/backend/internal/llm"
	"github.com/studyforge/backend/internal/middleware"
	"github.com/studyforge/backend/internal/repository"
	"github.com/studyforge/backend/internal/services"
	"github.com/studyforge/backend/internal/websearch"
	"github.com/studyforge/backend/pkg/utils"
)

func main() {
	logger := utils.GetLogger()

	// .env is optional in containerized deployments
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ValidateOpenAI(); err != nil {
		logger.WithError(err).Fatal("Invalid OpenAI configuration")
	}

	// Database and cache connections
	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	repos := repository.NewRepositoryManager(dbManager.DB)

	// External clients
	llmClient := llm.NewClient(
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.APIKey,
		cfg.OpenAI.ChatModel,
		cfg.OpenAI.EmbeddingModel,
		logger,
	)
	llmService := llm.NewService(llmClient, logger)

	provider := websearch.NewPerplexityClient(cfg.Perplexity.BaseURL, cfg.Perplexity.APIKey, logger)
	cacheStore := websearch.NewRedisStore(dbManager.Redis, logger)
	limiter := websearch.NewLimiter(cfg.Search.RateLimitPerMinute)
	gateway := websearch.NewGateway(provider, cacheStore, limiter, cfg.Search.CacheTTL, logger)

	// Services
	retriever := services.NewVectorRetriever(repos.Chunk, llmService, logger)
	searchService := services.NewSearchService(retriever, gateway, repos.Course, cfg.Search.RelevanceThreshold, logger)
	generationService := services.NewGenerationService(searchService, llmService, repos.GeneratedContent, logger)
	chatService := services.NewChatService(searchService, llmService, repos.Chat, repos.Course, logger)
	materialService := services.NewMaterialService(repos.Course, repos.Material, repos.Chunk, llmService, logger)
	validationService := services.NewValidationService(retriever, llmService, repos.Course, logger)

	healthChecker := health.NewHealthChecker(dbManager, logger, cfg.OpenAI.BaseURL, cfg.Perplexity.BaseURL)

	// Handlers
	searchHandler := handlers.NewSearchHandler(searchService, repos.SearchQuery, logger)
	generateHandler := handlers.NewGenerateHandler(generationService, logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)
	courseHandler := handlers.NewCourseHandler(repos.Course, repos.Material, materialService, logger)
	validateHandler := handlers.NewValidateHandler(validationService, logger)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	router := setupRouter(searchHandler, generateHandler, chatHandler, courseHandler, validateHandler, healthHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

func setupRouter(
	searchHandler *handlers.SearchHandler,
	generateHandler *handlers.GenerateHandler,
	chatHandler *handlers.ChatHandler,
	courseHandler *handlers.CourseHandler,
	validateHandler *handlers.ValidateHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	rateLimiter := middleware.NewRateLimiter(60)
	router.Use(rateLimiter.RateLimit())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "studyforge", "status": "ok"})
	})
	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/health/live", healthHandler.HandleLiveness)

	api := router.Group("/api")
	{
		search := api.Group("/search")
		{
			search.POST("/hybrid", searchHandler.HandleHybridSearch)
			search.POST("/semantic", searchHandler.HandleSemanticSearch)
			search.POST("/web", searchHandler.HandleWebSearch)
		}

		generate := api.Group("/generate")
		{
			generate.POST("/theory", generateHandler.HandleGenerateTheory)
			generate.GET("/status/:id", generateHandler.HandleGenerationStatus)
			generate.GET("/history/:courseId", generateHandler.HandleGenerationHistory)
		}

		validate := api.Group("/validate")
		{
			validate.POST("/content", validateHandler.HandleValidateContent)
		}

		chat := api.Group("/chat")
		{
			chat.POST("/sessions", chatHandler.HandleCreateSession)
			chat.GET("/sessions", chatHandler.HandleListSessions)
			chat.GET("/sessions/:id/messages", chatHandler.HandleGetMessages)
			chat.POST("/sessions/:id/messages", chatHandler.HandleSendMessage)
		}

		courses := api.Group("/courses")
		{
			courses.POST("", courseHandler.HandleCreateCourse)
			courses.GET("", courseHandler.HandleListCourses)
			courses.POST("/:id/materials", courseHandler.HandleCreateMaterial)
			courses.GET("/:id/materials", courseHandler.HandleListMaterials)
			courses.GET("/:id/materials/:materialId", courseHandler.HandleGetMaterial)
			courses.DELETE("/:id/materials/:materialId", courseHandler.HandleDeleteMaterial)
		}

		analytics := api.Group("/analytics")
		{
			analytics.GET("/searches", searchHandler.HandleRecentSearches)
		}
	}

	return router
}
