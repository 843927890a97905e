package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the query resolution engine.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingSize      int

	DBPath string

	// VectorBackend selects the vector store implementation: "memory" or "qdrant".
	VectorBackend    string
	QdrantURL        string
	QdrantCollection string

	// Rate limiter (admission control) options.
	RateLimitCapacity     float64
	RateLimitRefillPerSec float64
	// RateLimitKey selects how bucket keys are derived: "global" or "client_ip".
	RateLimitKey string

	// SchemaTopK is the number of schema fragments the index returns for SQL generation.
	SchemaTopK int
	// RetrievalK is the number of documents the RAG path retrieves per question.
	RetrievalK int
	// MinSimilarity is the score below which RAG answers are flagged low-confidence.
	MinSimilarity float64
	// CallTimeout bounds each individual LLM/embedding/database call.
	CallTimeout time.Duration

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded automatically; environment variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Walk up a few directories to find a project-root .env.
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:             getEnv("DB_PATH", "./data/askdata.db"),
		VectorBackend:      getEnv("VECTOR_BACKEND", "memory"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "row_documents"),
		RateLimitKey:       getEnv("RATE_LIMIT_KEY", "global"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	var err error

	// EMBEDDING_SIZE must match the output dimension of the embeddings model.
	// If it changes, the vector collection must be rebuilt.
	sizeStr := getEnv("EMBEDDING_SIZE", "")
	if sizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_SIZE is required")
	}
	cfg.EmbeddingSize, err = strconv.Atoi(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_SIZE must be a valid integer: %w", err)
	}
	if cfg.EmbeddingSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_SIZE must be greater than 0")
	}

	if cfg.VectorBackend != "memory" && cfg.VectorBackend != "qdrant" {
		return nil, fmt.Errorf("VECTOR_BACKEND must be \"memory\" or \"qdrant\", got %q", cfg.VectorBackend)
	}
	if cfg.RateLimitKey != "global" && cfg.RateLimitKey != "client_ip" {
		return nil, fmt.Errorf("RATE_LIMIT_KEY must be \"global\" or \"client_ip\", got %q", cfg.RateLimitKey)
	}

	cfg.RateLimitCapacity, err = getEnvFloat("RATE_LIMIT_CAPACITY", 10)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitCapacity < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_CAPACITY must be at least 1")
	}
	cfg.RateLimitRefillPerSec, err = getEnvFloat("RATE_LIMIT_REFILL_PER_SEC", 10.0/60.0)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRefillPerSec <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REFILL_PER_SEC must be greater than 0")
	}

	cfg.SchemaTopK, err = getEnvInt("SCHEMA_TOP_K", 3)
	if err != nil {
		return nil, err
	}
	cfg.RetrievalK, err = getEnvInt("RETRIEVAL_K", 5)
	if err != nil {
		return nil, err
	}
	cfg.MinSimilarity, err = getEnvFloat("MIN_SIMILARITY", 0.35)
	if err != nil {
		return nil, err
	}

	timeoutStr := getEnv("CALL_TIMEOUT", "30s")
	cfg.CallTimeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("CALL_TIMEOUT must be a valid duration: %w", err)
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	// Create the data directory for the SQLite file if needed.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", raw)
	}
}
