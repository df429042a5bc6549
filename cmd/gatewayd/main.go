// gatewayd runs the voter-file chat gateway: HTTP/WebSocket API, the Chat
// Orchestrator, and the in-process MCP tool surface it drives.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/njvoter/gateway/pkg/agent"
	"github.com/njvoter/gateway/pkg/api"
	"github.com/njvoter/gateway/pkg/campaigndispatch"
	"github.com/njvoter/gateway/pkg/chatengine"
	"github.com/njvoter/gateway/pkg/cleanup"
	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/database"
	"github.com/njvoter/gateway/pkg/docsvc"
	"github.com/njvoter/gateway/pkg/enrichment"
	"github.com/njvoter/gateway/pkg/events"
	"github.com/njvoter/gateway/pkg/geocode"
	"github.com/njvoter/gateway/pkg/masking"
	"github.com/njvoter/gateway/pkg/mcp"
	"github.com/njvoter/gateway/pkg/querysvc"
	"github.com/njvoter/gateway/pkg/queryguard"
	"github.com/njvoter/gateway/pkg/remap"
	"github.com/njvoter/gateway/pkg/secrets"
	"github.com/njvoter/gateway/pkg/services"
	"github.com/njvoter/gateway/pkg/warehouse"
	"github.com/njvoter/gateway/pkg/websearch"
)

// connectionWriteTimeout bounds how long a single WebSocket write (a
// broadcast message_chunk, an error) may block before ConnectionManager
// gives up on that client.
const connectionWriteTimeout = 10 * time.Second

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
	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	slog.Info("connected to postgres")

	resolver := secrets.NewResolver(secrets.EnvStore{})

	guard := queryguard.New(cfg.Allowlist)
	remapper := remap.New(cfg.Remap)
	warehouseExecutor, err := warehouse.New(cfg.Warehouse, guard, remapper)
	if err != nil {
		log.Fatalf("Failed to open warehouse connection: %v", err)
	}
	defer warehouseExecutor.Close()

	enrichmentClient := enrichment.New(cfg.Enrichment, resolver)
	geocodeClient := geocode.New(getEnv("GEOCODE_BASE_URL", ""), getEnv("GEOCODE_API_KEY", ""))
	websearchClient := websearch.New(getEnv("WEBSEARCH_BASE_URL", ""), getEnv("WEBSEARCH_API_KEY", ""))
	docsClient := docsvc.New(cfg.Campaign.DocumentBaseURL, getEnv("DOCUMENT_SERVICE_API_KEY", ""))

	fromAddress := getEnv(cfg.Campaign.FromAddressEnv, "")
	dispatchClient, err := campaigndispatch.New(ctx, fromAddress)
	if err != nil {
		log.Fatalf("Failed to initialize campaign dispatch client: %v", err)
	}

	sessionService := services.NewSessionService(dbClient.Client)
	messageService := services.NewMessageService(dbClient.Client)
	interactionService := services.NewInteractionService(dbClient.Client)
	savedQueryService := services.NewSavedQueryService(dbClient.Client, 30*time.Second)
	enrichmentService := services.NewEnrichmentService(dbClient.Client, cfg.Enrichment, enrichmentClient)
	campaignService := services.NewCampaignService(dbClient.Client, cfg.Campaign, warehouseExecutor, savedQueryService, docsClient, dispatchClient)
	slog.Info("services initialized")

	cleanupService := cleanup.NewService(cfg.Retention, sessionService, messageService)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	maskingService := masking.NewMaskingService(cfg.MCPServerRegistry, masking.AlertMaskingConfig{})
	mcpFactory := mcp.NewInProcessClientFactory(cfg.MCPServerRegistry, maskingService, mcp.InProcessDeps{
		Warehouse:        warehouseExecutor,
		SavedQuery:       savedQueryService,
		Geocode:          geocodeClient,
		WebSearch:        websearchClient,
		Enrichment:       enrichmentService,
		Docs:             docsClient,
		CampaignDispatch: dispatchClient,
	})

	llmClient, err := agent.NewGRPCLLMClient(getEnv("LLM_SERVICE_ADDR", "localhost:50051"))
	if err != nil {
		log.Fatalf("Failed to connect to LLM service: %v", err)
	}
	defer llmClient.Close()

	queryProviderConfig, queryBackend, err := resolveDefaultProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to resolve default LLM provider: %v", err)
	}
	queryGen := querysvc.New(llmClient, queryProviderConfig, queryBackend)

	adapter := chatengine.NewAdapter(llmClient, mcpFactory, cfg)
	publisher := events.NewEventPublisher(dbClient.DB())
	orchestrator := chatengine.NewOrchestrator(cfg, sessionService, messageService, interactionService, publisher, adapter)

	connManager := events.NewConnectionManager(orchestrator, connectionWriteTimeout)
	orchestrator.SetConnectionManager(connManager)

	notifyListener := events.NewNotifyListener(dbConnString(dbConfig), connManager)
	if err := notifyListener.Start(ctx); err != nil {
		log.Fatalf("Failed to start notify listener: %v", err)
	}
	defer notifyListener.Stop(ctx)

	server := api.NewServer(cfg, dbClient, warehouseExecutor, queryGen, savedQueryService, campaignService, connManager)

	slog.Info("starting gateway", "port", httpPort)
	if err := server.Start(":" + httpPort); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}

// resolveDefaultProvider resolves the session-default LLM provider for
// the SQL-generation endpoint, the same provider a new chat session would
// fall back to when it doesn't pick one explicitly.
func resolveDefaultProvider(cfg *config.Config) (*config.LLMProviderConfig, config.LLMBackend, error) {
	providerConfig, err := cfg.GetLLMProvider(cfg.Defaults.LLMProvider)
	if err != nil {
		return nil, "", err
	}
	backend := config.LLMBackendLangChain
	if providerConfig.Type == config.LLMProviderTypeGoogle || providerConfig.Type == config.LLMProviderTypeVertexAI {
		backend = config.LLMBackendNativeGemini
	}
	return providerConfig, backend, nil
}

func dbConnString(cfg database.Config) string {
	return "host=" + cfg.Host +
		" port=" + strconv.Itoa(cfg.Port) +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.Database +
		" sslmode=" + cfg.SSLMode
}
