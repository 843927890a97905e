package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"

	"askdata-ai/internal/benchmark"
	"askdata-ai/internal/classify"
	"askdata-ai/internal/config"
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
	mdPath := flag.String("out", "report.md", "path for the Markdown report")
	htmlPath := flag.String("html", "report.html", "path for the HTML report")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

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

	ctx := context.Background()

	tables, err := storage.ListTables(ctx, db)
	if err != nil {
		log.Fatalf("Failed to introspect database schema: %v", err)
	}

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

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingSize)

	schemaIndex, err := schema.BuildIndex(ctx, embedder, tables)
	if err != nil {
		log.Fatalf("Failed to build schema index: %v", err)
	}

	querier := storage.NewSQLQuerier(db)

	// Benchmark runs need the full document corpus before the first question.
	corpusBuilder := ragpath.NewCorpusBuilder(querier, embedder, vectorStore, cfg.QdrantCollection)
	slog.Info("Indexing row documents")
	if err := corpusBuilder.Build(ctx, tables); err != nil {
		log.Fatalf("Failed to index row documents: %v", err)
	}

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

	// A generous bucket so admission control never skews the measurements.
	limiter := ratelimit.New(ratelimit.Options{
		Capacity:        1000,
		RefillPerSecond: 1000,
	})
	classifier := classify.NewLLMClassifier(llmClient)

	engine := resolver.New(limiter, classifier, sqlPath, ragPath, resolver.Options{
		PathTimeout: cfg.CallTimeout,
	})

	runner := benchmark.NewRunner(engine, nil, nil)
	slog.Info("Running benchmark", "questions", len(benchmark.SampleQuestions))
	results, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("Benchmark run failed: %v", err)
	}

	if err := writeReport(*mdPath, results, benchmark.WriteMarkdown); err != nil {
		log.Fatalf("Failed to write Markdown report: %v", err)
	}
	if err := writeReport(*htmlPath, results, benchmark.WriteHTML); err != nil {
		log.Fatalf("Failed to write HTML report: %v", err)
	}
	slog.Info("Benchmark complete", "markdown", *mdPath, "html", *htmlPath)
}

func writeReport(path string, results []benchmark.QuestionResult, write func(w io.Writer, results []benchmark.QuestionResult, modes []resolver.Mode) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return write(f, results, nil)
}
