package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	einomodel "github.com/cloudwego/eino/components/model"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"gopherai-workshop/internal/ai"
	"gopherai-workshop/internal/app"
	"gopherai-workshop/internal/config"
	"gopherai-workshop/internal/indexer"
	"gopherai-workshop/internal/memory"
	"gopherai-workshop/internal/model"
	"gopherai-workshop/internal/platform/database"
	rabbitmqClient "gopherai-workshop/internal/platform/rabbitmq"
	redisClient "gopherai-workshop/internal/platform/redis"
	"gopherai-workshop/internal/repository"
	"gopherai-workshop/internal/vectorstore"
	"gopherai-workshop/internal/worker"
)

const (
	BackendSQL      = "sql"
	BackendPGVector = "pgvector"
	BackendMemory   = "memory"
)

type App struct {
	Config           *config.Config
	DB               *gorm.DB
	Redis            *redis.Client
	MQConn           *amqp.Connection
	TranscriptWorker *worker.TranscriptWorker
	VectorStore      vectorstore.VectorStore
	Indexer          *indexer.Indexer

	AuthService   *app.AuthService
	ChatService   *app.ChatService
	PromptService *app.PromptService
	RAGService    *app.RAGService
	MediaService  *app.MediaService

	StartedAt time.Time

	stopTracing func()
	stopIndex   context.CancelFunc
}

// New wires every dependency. The database and the chat model are required;
// redis and rabbitmq are optional and degrade to in-process memory without
// a transcript archive.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, StartedAt: time.Now()}

	stopTracing, err := ai.SetupTracing(ctx, cfg.Tracing.CozeloopAPIToken, cfg.Tracing.CozeloopWorkspaceID)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
		stopTracing = func() {}
	}
	a.stopTracing = stopTracing

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.DB = db
	if err := db.AutoMigrate(&model.User{}, &model.ConversationMessage{}, &model.DocumentChunk{}); err != nil {
		a.Close()
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	chatMemory, transcripts := a.setupMemory(ctx)

	embedder, err := ai.NewEmbedder(ctx, ai.EmbeddingConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.setupVectorStore(ctx, db, embedder)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.VectorStore = store
	a.Indexer = indexer.New(store, indexer.OptionsFromConfig(cfg.Documents))

	chatModel, err := ai.NewChatModel(ctx, ai.ChatModelConfig{
		Provider:    ai.ProviderOpenAI,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	summaryModel := a.summaryModel(ctx, chatModel)

	base := ai.NewChatClient(chatModel, ai.WithMaxToolRounds(cfg.LLM.MaxToolRounds))
	withMemory := base.Mutate(ai.WithAdvisors(ai.NewMessageMemoryAdvisor(chatMemory)))
	summary := ai.NewChatClient(summaryModel)
	docs := summary.Mutate(ai.WithAdvisors(
		ai.NewQuestionAnswerAdvisor(store, cfg.VectorStore.TopK, cfg.VectorStore.SimilarityThreshold),
	))

	searchTools, err := app.NewSearchTools(app.NewTimeTools())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build search tools failed: %w", err)
	}

	a.AuthService = app.NewAuthService(
		repository.NewUserRepository(db),
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	a.ChatService = app.NewChatService(withMemory, base, summary, chatMemory, transcripts, searchTools)
	a.PromptService = app.NewPromptService(base)
	a.RAGService = app.NewRAGService(base, docs, store, a.Indexer)
	a.MediaService = app.NewMediaService(
		ai.NewMediaClient(ai.MediaConfig{
			BaseURL:            cfg.Media.BaseURL,
			APIKey:             cfg.Media.APIKey,
			ImageModel:         cfg.Media.ImageModel,
			ImageSize:          cfg.Media.ImageSize,
			ImageQuality:       cfg.Media.ImageQuality,
			ImageStyle:         cfg.Media.ImageStyle,
			SpeechModel:        cfg.Media.SpeechModel,
			SpeechVoice:        cfg.Media.SpeechVoice,
			SpeechFormat:       cfg.Media.SpeechFormat,
			SpeechSpeed:        cfg.Media.SpeechSpeed,
			TranscriptionModel: cfg.Media.TranscriptionModel,
		}),
		base,
		cfg.Media.SampleImagePath,
		cfg.Media.SampleAudioPath,
	)

	if cfg.Documents.IndexOnStartup {
		a.indexInBackground(ctx)
	}

	return a, nil
}

// setupMemory prefers redis for the chat window and adds the rabbitmq archive
// when the broker is reachable.
func (a *App) setupMemory(ctx context.Context) (memory.ChatMemory, app.TranscriptReader) {
	cfg := a.Config
	window := cfg.Redis.MemoryWindow
	if window <= 0 {
		window = memory.DefaultWindow
	}

	var chatMemory memory.ChatMemory
	redisCli, err := redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Printf("redis unavailable, using in-process chat memory: %v", err)
		chatMemory = memory.NewInMemoryChatMemory(window)
	} else {
		a.Redis = redisCli
		chatMemory = memory.NewRedisChatMemory(redisCli, window, time.Duration(cfg.Redis.MemoryTTLSeconds)*time.Second)
	}

	if cfg.RabbitMQ.URL == "" {
		return chatMemory, nil
	}
	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		log.Printf("rabbitmq unavailable, transcript archive disabled: %v", err)
		return chatMemory, nil
	}
	a.MQConn = mqConn

	transcriptRepo := repository.NewConversationMessageRepository(a.DB)
	transcriptWorker := worker.NewTranscriptWorker(mqConn, transcriptRepo, cfg.RabbitMQ.MessagePersistQueue)
	if err := transcriptWorker.Start(ctx); err != nil {
		log.Printf("start transcript worker failed, archive disabled: %v", err)
		return chatMemory, nil
	}
	a.TranscriptWorker = transcriptWorker

	publisher := rabbitmqClient.NewTranscriptPublisher(mqConn, cfg.RabbitMQ.MessagePersistQueue)
	return memory.NewArchivingChatMemory(chatMemory, publisher), transcriptRepo
}

func (a *App) setupVectorStore(ctx context.Context, db *gorm.DB, embedder embedding.Embedder) (vectorstore.VectorStore, error) {
	cfg := a.Config.VectorStore
	switch strings.ToLower(cfg.Backend) {
	case BackendPGVector:
		store := vectorstore.NewPGVectorStore(db, embedder, cfg.Dimensions)
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		store := vectorstore.NewMemoryStore(cfg.FilePath, embedder)
		if err := indexer.SeedLocalStore(ctx, store, a.Config.Documents.TrainingsFile); err != nil {
			log.Printf("seed local vector store failed: %v", err)
		}
		return store, nil
	case "", BackendSQL:
		return vectorstore.NewSQLStore(repository.NewDocumentChunkRepository(db), embedder), nil
	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", cfg.Backend)
	}
}

// summaryModel builds the secondary model, falling back to the main one.
func (a *App) summaryModel(ctx context.Context, fallback einomodel.ToolCallingChatModel) einomodel.ToolCallingChatModel {
	cfg := a.Config.Summary
	if cfg.Model == "" || cfg.APIKey == "" {
		return fallback
	}
	m, err := ai.NewChatModel(ctx, ai.ChatModelConfig{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
	})
	if err != nil {
		log.Printf("summary model unavailable, using main model: %v", err)
		return fallback
	}
	return m
}

func (a *App) indexInBackground(ctx context.Context) {
	indexCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopIndex = cancel
	go func() {
		report, err := a.Indexer.Run(indexCtx)
		if err != nil {
			log.Printf("startup indexing failed: %v", err)
			return
		}
		log.Printf("startup indexing finished: %s", report)
	}()
}

func (a *App) Close() error {
	var closeErr error
	if a.stopIndex != nil {
		a.stopIndex()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TranscriptWorker != nil {
		a.TranscriptWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.stopTracing != nil {
		a.stopTracing()
	}
	return closeErr
}
