package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"rulebook-assistant/internal/ai"
	appsvc "rulebook-assistant/internal/app"
	"rulebook-assistant/internal/bootstrap"
	"rulebook-assistant/internal/chunker"
	rabbitmqClient "rulebook-assistant/internal/platform/rabbitmq"
	"rulebook-assistant/internal/repository"
	"rulebook-assistant/internal/transport/http/handler"
	"rulebook-assistant/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.StaticFile("/", "web/index.html")
	router.GET("/healthz", healthHandler.Check)

	llmClient := ai.NewOpenAICompatibleClient()
	embConfig := ai.EmbeddingConfig{
		BaseURL: app.Config.RAG.EmbeddingBaseURL,
		APIKey:  app.Config.RAG.EmbeddingAPIKey,
		Model:   app.Config.RAG.EmbeddingModel,
	}

	userRepo := repository.NewUserRepository(app.MySQL)
	bookRepo := repository.NewRulebookRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	recordRepo := repository.NewQARecordRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	libraryService := appsvc.NewLibraryService(
		bookRepo,
		chunkRepo,
		llmClient,
		embConfig,
		chunker.New(app.Config.RAG.ChunkSize, app.Config.RAG.ChunkOverlap),
		app.AnswerCache,
	)
	answerService := appsvc.NewAnswerService(
		bookRepo,
		chunkRepo,
		rabbitmqClient.NewQARecordPublisher(app.MQConn, app.Config.RabbitMQ.QAPersistQueue),
		app.AnswerCache,
		llmClient,
		embConfig,
		app.Config.Providers,
		app.Config.RAG.DefaultProvider,
		app.Config.RAG.TopK,
	)

	authHandler := handler.NewAuthHandler(authService)
	libraryHandler := handler.NewLibraryHandler(libraryService, app.Config.Library.MaxUploadMB)
	askHandler := handler.NewAskHandler(answerService)
	historyHandler := handler.NewHistoryHandler(recordRepo)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	authed.POST("/rulebooks", libraryHandler.Upload)
	authed.GET("/rulebooks", libraryHandler.List)
	authed.DELETE("/rulebooks/:id", libraryHandler.Delete)
	authed.POST("/ask", askHandler.Ask)
	authed.POST("/ask/stream", askHandler.AskStream)
	authed.GET("/history", historyHandler.List)

	return router
}
