package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"askdata-ai/internal/classify"
	"askdata-ai/internal/config"
	"askdata-ai/internal/handlers"
	"askdata-ai/internal/http"
	"askdata-ai/internal/llm"
	"askdata-ai/internal/ragpath"
	"askdata-ai/internal/ratelimit"
	"askdata-ai/internal/resolver"
	"askdata-ai/internal/schema"
	"askdata-ai/internal/sqlpath"
	"askdata-ai/internal/storage"
	"askdata-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := storage.Seed(db); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	ctx := context.Background()

	tables, err := storage.ListTables(ctx, db)
	if err != nil {
		log.Fatalf("Failed to introspect database schema: %v", err)
	}
	slog.Info("Schema introspected", "tables", len(tables))

	// Select vector store backend
	var vectorStore vectorstore.VectorStore
	if cfg.VectorBackend == "qdrant" {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		vectorStore = qdrantStore
	} else {
		vectorStore = vectorstore.NewMemoryStore()
	}
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.EmbeddingSize); err != nil {
		log.Fatalf("Failed to ensure document collection: %v", err)
	}
	slog.Info("Vector store ready", "backend", cfg.VectorBackend, "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.EmbeddingSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingSize)

	// Build the schema index over the live table definitions
	schemaIndex, err := schema.BuildIndex(ctx, embedder, tables)
	if err != nil {
		log.Fatalf("Failed to build schema index: %v", err)
	}
	slog.Info("Schema index built", "fragments", len(schemaIndex.AllFragments()))

	querier := storage.NewSQLQuerier(db)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	sqlPath := sqlpath.NewResolver(
		schemaIndex,
		sqlpath.NewLLMGenerator(llmClient),
		querier,
		llmClient,
		cfg.SchemaTopK,
	)
	ragPath := ragpath.NewResolver(
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		llmClient,
		cfg.RetrievalK,
		float32(cfg.MinSimilarity),
	)

	limiter := ratelimit.New(ratelimit.Options{
		Capacity:        cfg.RateLimitCapacity,
		RefillPerSecond: cfg.RateLimitRefillPerSec,
	})
	classifier := classify.NewLLMClassifier(llmClient)

	engine := resolver.New(limiter, classifier, sqlPath, ragPath, resolver.Options{
		PathTimeout: cfg.CallTimeout,
	})
	slog.Info("Query resolution engine initialized")

	var keyExtractor handlers.KeyExtractor = handlers.GlobalKey
	if cfg.RateLimitKey == "client_ip" {
		keyExtractor = handlers.ClientIPKey
	}

	// Create router with dependencies
	deps := &http.Deps{
		Resolver:       engine,
		SchemaIndex:    schemaIndex,
		DB:             db,
		VectorStore:    vectorStore,
		CollectionName: cfg.QdrantCollection,
		KeyExtractor:   keyExtractor,
	}
	router := http.NewRouter(deps)

	// Index row documents in background after router is ready
	corpusBuilder := ragpath.NewCorpusBuilder(querier, embedder, vectorStore, cfg.QdrantCollection)
	go func() {
		indexCtx := context.Background()
		slog.Info("Starting background indexing of row documents")
		if err := corpusBuilder.Build(indexCtx, tables); err != nil {
			slog.Error("Document indexing completed with errors", "error", err)
		} else {
			slog.Info("Document indexing completed successfully")
		}
	}()

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
