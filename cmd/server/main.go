package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"voicecart/internal/cart"
	"voicecart/internal/catalog"
	"voicecart/internal/config"
	"voicecart/internal/handler"
	"voicecart/internal/model"
	"voicecart/internal/nlp"
	"voicecart/internal/repository"
	"voicecart/internal/resolver"
	"voicecart/internal/service"
	"voicecart/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("VoiceCart Command Engine")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize the catalog: PostgreSQL when configured, a small built-in
	// catalog otherwise so the engine still runs end to end.
	var (
		store catalog.Store
		repo  *repository.PostgresRepository
	)
	if cfg.PostgreSQL.Enabled {
		repo, err = repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer repo.Close()
		store = repo
		log.Println("✅ Connected to PostgreSQL catalog")
	} else {
		store = catalog.NewMemory(demoProducts())
		log.Println("⚠️  PostgreSQL is disabled - using the built-in demo catalog")
	}

	// Initialize OpenAI client
	var aiClient *service.OpenAIClient
	if cfg.OpenAI.Enabled {
		aiClient = service.NewOpenAIClient(&cfg.OpenAI)
		log.Printf("✅ OpenAI client initialized")
		log.Printf("   - API Base: %s", cfg.OpenAI.APIBase)
		log.Printf("   - Chat model: %s", cfg.OpenAI.ChatModel)
		log.Printf("   - Embedding model: %s", cfg.OpenAI.EmbeddingModel)
	} else {
		log.Println("⚠️  OpenAI is disabled - extraction and classification run degraded")
		log.Println("   Set OPENAI_API_KEY environment variable to enable model-backed parsing")
	}

	// Initialize services. Interface-typed views of the client stay nil
	// when the client is disabled, so consumers can compare against nil.
	var (
		primary     *nlp.ModelExtractor
		backend     nlp.IntentModel
		streamModel service.AIClient
	)
	if aiClient != nil {
		primary = nlp.NewModelExtractor(aiClient)
		backend = aiClient
		streamModel = aiClient
	}
	ensemble := nlp.NewEnsemble(primary, nlp.NewPatternExtractor(), cfg.NLP.DegradationFactor)
	classifier := nlp.NewClassifier(backend, cfg.NLP.IntentConfidenceThreshold)

	sessions := session.NewStore(cfg.Session)
	carts := cart.NewEngine(cfg.Cart)
	sessions.OnEvict = carts.Drop // carts expire together with their session
	entityResolver := resolver.New(store, cfg.NLP.MinCatalogSimilarity, cfg.NLP.AmbiguityMargin)

	var turnLogger service.TurnLogger
	if repo != nil {
		turnLogger = repo
	}
	pipeline := service.NewPipeline(&cfg.NLP, ensemble, classifier, entityResolver, sessions, carts, store, turnLogger)

	log.Println("✅ Services initialized")

	// Background session sweeper
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sessions.StartSweeper(sweepCtx)

	// Initialize handlers
	commandHandler := handler.NewCommandHandler(pipeline, streamModel)
	cartHandler := handler.NewCartHandler(carts, sessions, store)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "voicecart-command-engine",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Command endpoints
		apiV1.POST("/command", commandHandler.Command)
		apiV1.POST("/command/stream", commandHandler.CommandStream) // Streaming command processing

		// Cart and session endpoints
		apiV1.GET("/cart/:session_id", cartHandler.GetCart)
		apiV1.DELETE("/cart/:session_id", cartHandler.ClearCart)
		apiV1.GET("/session/:session_id", cartHandler.GetSession)

		// Catalog endpoints
		apiV1.GET("/products/:id", cartHandler.GetProduct)

		// Embedding endpoints need both the database and the AI client
		if repo != nil && aiClient != nil {
			embeddingService := service.NewEmbeddingService(repo, aiClient)
			embeddingHandler := handler.NewEmbeddingHandler(embeddingService)
			apiV1.POST("/search/semantic", embeddingHandler.SemanticSearch)
			apiV1.POST("/admin/embeddings/backfill", embeddingHandler.Backfill)
		}
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📝 API root: http://localhost:%d/api/v1", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	log.Println("✅ Server stopped")
}

// demoProducts is the built-in catalog used when PostgreSQL is disabled.
func demoProducts() []model.Product {
	str := func(s string) *string { return &s }
	return []model.Product{
		{ProductID: 1, Name: "Crew Shirt", Brand: str("Uniqlo"), Category: str("tops"), UnitPrice: 24.99, Stock: 120,
			Colors: model.JSONArray{"white", "black", "red"}, Sizes: model.JSONArray{"s", "m", "l", "xl"}, Materials: model.JSONArray{"cotton"}},
		{ProductID: 2, Name: "Blue Jeans", Brand: str("Levi's"), Category: str("bottoms"), UnitPrice: 59.99, Stock: 80,
			Colors: model.JSONArray{"blue", "black"}, Sizes: model.JSONArray{"s", "m", "l"}, Materials: model.JSONArray{"denim"}},
		{ProductID: 3, Name: "Leather Jacket", Brand: str("Zara"), Category: str("outerwear"), UnitPrice: 149.99, Stock: 15,
			Colors: model.JSONArray{"black", "brown"}, Sizes: model.JSONArray{"m", "l"}, Materials: model.JSONArray{"leather"}},
		{ProductID: 4, Name: "Summer Dress", Brand: str("Zara"), Category: str("dresses"), UnitPrice: 39.99, Stock: 45,
			Colors: model.JSONArray{"yellow", "white"}, Sizes: model.JSONArray{"xs", "s", "m"}, Materials: model.JSONArray{"linen"}},
		{ProductID: 5, Name: "Running Shoes", Brand: str("Nike"), Category: str("footwear"), UnitPrice: 89.99, Stock: 60,
			Colors: model.JSONArray{"white", "grey"}, Sizes: model.JSONArray{"7", "8", "9", "10", "11"}},
		{ProductID: 6, Name: "Wool Sweater", Brand: str("Uniqlo"), Category: str("tops"), UnitPrice: 49.99, Stock: 50,
			Colors: model.JSONArray{"navy", "cream"}, Sizes: model.JSONArray{"s", "m", "l"}, Materials: model.JSONArray{"wool"}},
	}
}
