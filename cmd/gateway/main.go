// AI Orchestration Gateway server - provides the synchronous and async HTTP
// surface for topic execution and conversation coaching sessions.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/gateway/pkg/api"
	"github.com/codeready-toolchain/gateway/pkg/cache"
	"github.com/codeready-toolchain/gateway/pkg/cleanup"
	"github.com/codeready-toolchain/gateway/pkg/coaching"
	"github.com/codeready-toolchain/gateway/pkg/collaborators"
	"github.com/codeready-toolchain/gateway/pkg/config"
	"github.com/codeready-toolchain/gateway/pkg/database"
	"github.com/codeready-toolchain/gateway/pkg/enrich"
	"github.com/codeready-toolchain/gateway/pkg/events"
	"github.com/codeready-toolchain/gateway/pkg/execute"
	"github.com/codeready-toolchain/gateway/pkg/jobqueue"
	"github.com/codeready-toolchain/gateway/pkg/llm"
	"github.com/codeready-toolchain/gateway/pkg/prompt"
	"github.com/codeready-toolchain/gateway/pkg/registry"
	"github.com/codeready-toolchain/gateway/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	log.Printf("Starting AI Orchestration Gateway %s", version.Full())
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}
	stats := cfg.Stats()
	log.Printf("Configuration loaded: %d LLM providers, %d collaborators", stats.LLMProviders, stats.Collaborators)

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	log.Println("Connected to PostgreSQL, schema migrated")

	sqlDB, err := database.OpenSQL(dbConfig)
	if err != nil {
		log.Fatalf("Failed to open sql.DB for events: %v", err)
	}
	defer sqlDB.Close()

	memCache := buildCache()

	topicOverrides := registry.NewPGOverrideStore(dbClient.Pool)
	topics := registry.New(topicOverrides, memCache)
	responses := registry.NewSchemaRegistry()

	clients := buildCollaboratorClients(cfg)
	enricher := enrich.New(clients, nil)

	promptStore := prompt.NewPGStore(dbClient.Pool)
	renderer := prompt.NewRenderer(promptStore, memCache)

	models := buildModelRegistry(cfg)

	executor := execute.New(topics, enricher, renderer, models, responses)
	jobAdapter := execute.NewJobAdapter(executor)

	jobStore := jobqueue.NewStore(dbClient.Pool)
	eventsPublisher := events.NewPublisher(sqlDB, jobStore, getEnv("STAGE", "dev"))

	instanceID := getEnv("HOSTNAME", "gateway-0")
	workerPool := jobqueue.NewWorkerPool(instanceID, jobStore, cfg.Queue, jobAdapter, eventsPublisher)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	coachingStore := coaching.NewPGStore(dbClient.Pool)
	coachingEngine := coaching.New(coachingStore, topics, enricher, renderer, models, responses)

	sweeper := coaching.NewSweeper(coachingEngine, coaching.SweepConfig{
		Interval:    cfg.Coaching.OrphanDetectionInterval,
		IdleTimeout: cfg.Coaching.IdleTimeout,
	})
	go sweeper.Run(ctx)
	defer sweeper.Stop()

	cleanupService := cleanup.NewService(cfg.Retention, jobStore, coachingStore, sqlDB)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	authenticator := api.NewAuthenticator(jwtSecret)
	server := api.NewServer(topics, responses, executor, jobStore, workerPool, coachingEngine)

	router := gin.Default()
	server.Routes(router, authenticator)

	httpServer := &http.Server{
		Addr:    ":" + httpPort,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}

// buildCache selects Redis when REDIS_ADDR is set, falling back to an
// in-process cache otherwise — suitable for single-instance deployments.
func buildCache() cache.Cache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return cache.NewMemory(5 * time.Minute)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return cache.NewRedis(client, "gateway", 5*time.Minute)
}

// buildCollaboratorClients constructs a client only for collaborators
// declared in configuration, except the website client, which needs no
// base URL and is always built with a 10-second timeout. A topic never
// invokes a source whose collaborator is unconfigured, so an absent entry
// here only matters if
// such a topic is registered — a deployment error, not a runtime one.
func buildCollaboratorClients(cfg *config.Config) enrich.Clients {
	timeout := func(name string) time.Duration {
		c, err := cfg.GetCollaborator(name)
		if err != nil {
			return 0
		}
		return time.Duration(c.TimeoutSec) * time.Second
	}
	baseURL := func(name string) (string, bool) {
		c, err := cfg.GetCollaborator(name)
		if err != nil {
			return "", false
		}
		return c.BaseURL, true
	}

	var clients enrich.Clients
	if url, ok := baseURL("business"); ok {
		clients.Business = collaborators.NewBusinessClient(url, timeout("business"))
	}
	if url, ok := baseURL("goals"); ok {
		clients.Goals = collaborators.NewGoalsClient(url, timeout("goals"))
	}
	if url, ok := baseURL("strategies"); ok {
		clients.Strategies = collaborators.NewStrategiesClient(url, timeout("strategies"))
	}
	if url, ok := baseURL("measures"); ok {
		clients.Measures = collaborators.NewMeasuresClient(url, timeout("measures"))
	}
	if url, ok := baseURL("actions"); ok {
		clients.Actions = collaborators.NewActionsClient(url, timeout("actions"))
	}
	if url, ok := baseURL("issues"); ok {
		clients.Issues = collaborators.NewIssuesClient(url, timeout("issues"))
	}
	clients.Website = collaborators.NewWebsiteClient(10 * time.Second)

	return clients
}

// buildModelRegistry builds one provider instance per backend variant,
// wrapped in retry/circuit-breaking, and an entry per configured model_code
// pointing at the variant that serves it.
func buildModelRegistry(cfg *config.Config) *llm.Registry {
	entries := make(map[string]llm.ModelEntry)
	providers := make(map[llm.Variant]llm.Provider)

	for name, pcfg := range cfg.LLMProviderRegistry.GetAll() {
		variant := variantForType(pcfg.Type)
		entries[name] = llm.ModelEntry{Variant: variant, ModelIdentifier: pcfg.Model}

		if _, exists := providers[variant]; exists {
			continue
		}

		var inner llm.Provider
		switch pcfg.Type {
		case config.LLMProviderTypeAnthropic:
			inner = llm.NewAnthropicProvider(os.Getenv(pcfg.APIKeyEnv))
		case config.LLMProviderTypeOpenAI:
			inner = llm.NewOpenAIProvider(os.Getenv(pcfg.APIKeyEnv), pcfg.BaseURL)
		case config.LLMProviderTypeLocal:
			local, err := llm.NewLocalProvider(pcfg.BaseURL, http.MethodPost)
			if err != nil {
				slog.Error("failed to build local LLM provider", "provider", name, "error", err)
				continue
			}
			inner = local
		default:
			slog.Error("unknown LLM provider type, skipping", "provider", name, "type", pcfg.Type)
			continue
		}

		providers[variant] = llm.NewRetryingProvider(name, inner)
	}

	return llm.NewRegistry(entries, providers)
}

func variantForType(t config.LLMProviderType) llm.Variant {
	switch t {
	case config.LLMProviderTypeOpenAI:
		return llm.VariantOpenAI
	case config.LLMProviderTypeLocal:
		return llm.VariantLocal
	default:
		return llm.VariantAnthropicManaged
	}
}
