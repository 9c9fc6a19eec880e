package bootstrap

import (
	"context"
	"log"

	"nutria-assistant-be/internal/config"
	"nutria-assistant-be/internal/controller"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/internal/repository/memory"
	"nutria-assistant-be/internal/repository/unitofwork"
	"nutria-assistant-be/internal/service"
	"nutria-assistant-be/pkg/agent/guardrail"
	"nutria-assistant-be/pkg/agent/judge"
	"nutria-assistant-be/pkg/agent/pipeline"
	"nutria-assistant-be/pkg/agent/router"
	"nutria-assistant-be/pkg/agent/session"
	"nutria-assistant-be/pkg/agent/specialist"
	"nutria-assistant-be/pkg/agent/tools"
	"nutria-assistant-be/pkg/embedding"
	"nutria-assistant-be/pkg/llm/credential"
	"nutria-assistant-be/pkg/llm/factory"
	pktNats "nutria-assistant-be/pkg/nats"
	"nutria-assistant-be/pkg/nutrition"
	"nutria-assistant-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController
	CatalogController controller.ICatalogController

	// Services, shared with the operator CLI
	ChatbotService    service.IChatbotService
	CatalogService    service.ICatalogService
	CredentialService service.ICredentialService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

type options struct {
	memory store.MemoryStore
	logger logger.ILogger
}

type Option func(*options)

// WithMemory replaces the database-backed conversation memory.
func WithMemory(m store.MemoryStore) Option {
	return func(o *options) { o.memory = m }
}

// WithLogger replaces the service logger.
func WithLogger(l logger.ILogger) Option {
	return func(o *options) { o.logger = l }
}

func NewContainer(db *gorm.DB, cfg *config.Config, opts ...Option) *Container {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := o.logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	}
	llmLogger := logger.NewIsolatedLogger(cfg.Pipeline.LLMLogPath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var turnEvents pipeline.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		turnEvents = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	// 3. Embeddings
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: GEMINI (%s)", cfg.Ai.EmbeddingModel)
	}

	publisherService := service.NewPublisherService(cfg.Keys.EmbedProductTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.Keys.EmbedProductTopic,
		uowFactory,
		embeddingProvider,
		sysLogger,
	)
	c.CatalogService = service.NewCatalogService(uowFactory, embeddingProvider, publisherService, sysLogger)
	c.CredentialService = service.NewCredentialService(uowFactory)

	// 4. Models
	pool := credential.NewPool(c.CredentialService, cfg.Keys.GoogleGemini, cfg.Keys.GoogleGeminiReserve, sysLogger)
	models := factory.ModelSetFactory{
		ProviderType: cfg.Ai.LLMProvider,
		BaseURL:      cfg.Ai.OllamaBaseURL,
		SmartModel:   cfg.Ai.SmartModel,
		FastModel:    cfg.Ai.FastModel,
	}
	log.Printf("[INFO] Using LLM Provider: %s (smart %s, fast %s)", cfg.Ai.LLMProvider, cfg.Ai.SmartModel, cfg.Ai.FastModel)

	// 5. Specialists
	tableBuilder := nutrition.NewBuilder(c.CatalogService, c.CatalogService, sysLogger)
	scanner := nutrition.NewGeminiScanner(cfg.Ai.VisionModel, pool.Current)
	dataTools := tools.NewRegistry(
		tools.IngredientFind(c.CatalogService),
		tools.ProductFind(c.CatalogService),
		tools.TableFind(c.CatalogService),
		tools.TableEvaluate(c.CatalogService),
		tools.TableInsert(tableBuilder),
		tools.TableScan(scanner),
	)
	appTools := tools.NewRegistry(tools.SearchFlow(cfg.Pipeline.HelpDocPath))
	dispatcher := specialist.NewDispatcher(sysLogger,
		specialist.NewData(dataTools, cfg.Pipeline.MaxToolCalls, sysLogger),
		specialist.NewEngineering(sysLogger),
		specialist.NewApp(appTools, cfg.Pipeline.MaxToolCalls, sysLogger),
	)

	// 6. Conversation state
	memoryStore := o.memory
	if memoryStore == nil {
		memoryStore = service.NewMemoryService(uowFactory)
	}
	sessionRepo := memory.NewSessionRepository(cfg.Pipeline.TurnTimeout)

	var locker session.Locker = session.NewLocalLocker()
	if cfg.Pipeline.UseRedisLock {
		if rdb := connectRedis(cfg.App.RedisURL); rdb != nil {
			locker = session.NewRedisLocker(rdb, cfg.Pipeline.LockTTL, sysLogger)
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}

	controllerPipeline := pipeline.NewController(pipeline.Deps{
		Guardrail:   guardrail.NewStage(sysLogger),
		Router:      router.NewStage(sysLogger),
		Dispatcher:  dispatcher,
		Judge:       judge.NewStage(sysLogger),
		Memory:      memoryStore,
		Cache:       sessionRepo,
		Locker:      locker,
		Credentials: pool,
		Models:      models,
		Events:      turnEvents,
		Logger:      sysLogger,
		TraceLogger: llmLogger,
	}, pipeline.Config{
		HistoryLimit: cfg.Pipeline.HistoryLimit,
		TurnTimeout:  cfg.Pipeline.TurnTimeout,
	})

	c.ChatbotService = service.NewChatbotService(controllerPipeline, memoryStore, sessionRepo, locker, sysLogger)

	// 7. Controllers
	c.ChatbotController = controller.NewChatbotController(c.ChatbotService)
	c.CatalogController = controller.NewCatalogController(c.CatalogService)

	return c
}

// Close releases the event bus and broker connections in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, using in-process session lock: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
