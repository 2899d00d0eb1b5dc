package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"gopherai-workshop/internal/bootstrap"
	"gopherai-workshop/internal/transport/http/handler"
	"gopherai-workshop/internal/transport/http/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	Chat   *handler.ChatHandler
	Prompt *handler.PromptHandler
	RAG    *handler.RAGHandler
	Media  *handler.MediaHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	return Routes(Handlers{
		Health: handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, dependencyChecks(app)...),
		Auth:   handler.NewAuthHandler(app.AuthService),
		Chat:   handler.NewChatHandler(app.ChatService, app.AuthService),
		Prompt: handler.NewPromptHandler(app.PromptService),
		RAG:    handler.NewRAGHandler(app.RAGService),
		Media:  handler.NewMediaHandler(app.MediaService),
	}, app.Config.Auth.JWTSecret, app.Config.App.CORSAllowOrigins)
}

// Routes builds the engine from ready handlers.
func Routes(h Handlers, jwtSecret, corsOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins), middleware.Trace())

	router.GET("/healthz", h.Health.Check)

	ai := router.Group("/")
	ai.Use(middleware.OptionalJWT(jwtSecret))

	ai.POST("/chat", h.Chat.Chat)
	ai.POST("/jokes", h.Chat.Jokes)
	ai.POST("/tourist-attractions", h.Chat.TouristAttractions)
	ai.POST("/dev-assistant", h.Chat.DevAssistant)
	ai.POST("/conversation", h.Chat.Conversation)
	ai.POST("/stateful-conversation", h.Chat.StatefulConversation)
	ai.POST("/structured-by-prompt", h.Chat.StructuredByPrompt)
	ai.POST("/structured-by-type", h.Chat.StructuredByType)
	ai.POST("/structured-by-parametrized-type", h.Chat.StructuredByParametrizedType)
	ai.POST("/structured-as-map", h.Chat.StructuredAsMap)
	ai.POST("/search", h.Chat.Search)

	ai.POST("/zero-shot", h.Prompt.ZeroShot)
	ai.POST("/few-shot", h.Prompt.FewShot)
	ai.POST("/multi-step", h.Prompt.MultiStep)
	ai.POST("/travel-assistant", h.Prompt.TravelAssistant)
	ai.POST("/safe-prompt", h.Prompt.SafePrompt)
	ai.GET("/fact-checking", h.Prompt.FactChecking)
	ai.GET("/input-validation", h.Prompt.InputValidation)
	ai.GET("/posts", h.Prompt.Posts)

	ai.POST("/trainings", h.RAG.Trainings)
	ai.POST("/docs", h.RAG.Docs)
	ai.POST("/docs/stream", h.RAG.DocsStream)

	for _, register := range []func(string, ...gin.HandlerFunc) gin.IRoutes{ai.GET, ai.POST} {
		register("/generate-image", h.Media.GenerateImage)
		register("/generate-audio", h.Media.GenerateAudio)
		register("/generate-description", h.Media.GenerateDescription)
		register("/transcription", h.Media.Transcription)
	}

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/me", middleware.AuthJWT(jwtSecret), h.Auth.Me)

	conversations := v1.Group("/conversations")
	conversations.Use(middleware.OptionalJWT(jwtSecret))
	conversations.GET("/:id", h.Chat.GetConversation)
	conversations.DELETE("/:id", h.Chat.ClearConversation)

	documents := v1.Group("/documents")
	documents.POST("/index", middleware.AuthJWT(jwtSecret), h.RAG.Index)
	documents.GET("/search", h.RAG.Search)

	return router
}

func dependencyChecks(app *bootstrap.App) []handler.DependencyCheck {
	checks := []handler.DependencyCheck{
		{Name: "database", Required: true, Check: func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "vector_store", Required: true, Check: func(ctx context.Context) error {
			_, err := app.VectorStore.Count(ctx)
			return err
		}},
		{Name: "redis"},
		{Name: "rabbitmq"},
	}
	if app.Redis != nil {
		checks[2].Check = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	if app.MQConn != nil {
		checks[3].Check = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errConnectionClosed
			}
			return nil
		}
	}
	return checks
}

var errConnectionClosed = errors.New("connection closed")
