// Package ragpath implements the RAG resolution path: rows rendered as
// documents, embedded once at setup, retrieved by similarity and synthesized
// into grounded answers.
package ragpath

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ragpath.go -package=mocks askdata-ai/internal/ragpath Embedder,LanguageModel

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"askdata-ai/internal/contextutil"
	"askdata-ai/internal/llm"
	"askdata-ai/internal/storage"
	"askdata-ai/internal/vectorstore"
)

// Embedder generates embedding vectors for texts (consumer-first interface).
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LanguageModel is the completion capability the RAG path needs for synthesis.
type LanguageModel interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Document is a retrieved row document, ranked by descending similarity.
type Document struct {
	RowID string
	Table string
	Text  string
	Score float32
}

// CorpusBuilder renders every row of the domain tables to a text document,
// embeds them in batches and upserts them into the vector store. It runs once
// at setup, not per query.
type CorpusBuilder struct {
	querier    storage.Querier
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	batchSize  int
}

// NewCorpusBuilder creates a corpus builder over the given tables.
func NewCorpusBuilder(querier storage.Querier, embedder Embedder, store vectorstore.VectorStore, collection string) *CorpusBuilder {
	return &CorpusBuilder{
		querier:    querier,
		embedder:   embedder,
		store:      store,
		collection: collection,
		batchSize:  32,
	}
}

// Build reads all rows of the given tables and indexes them as documents.
func (b *CorpusBuilder) Build(ctx context.Context, tables []storage.TableInfo) error {
	logger := contextutil.LoggerFromContext(ctx)

	var points []vectorstore.Point
	var texts []string

	for _, table := range tables {
		rows, err := b.querier.Query(ctx, fmt.Sprintf("SELECT * FROM %s", table.Name))
		if err != nil {
			return fmt.Errorf("failed to read rows from %s: %w", table.Name, err)
		}

		for _, row := range rows.Rows {
			text := renderRowDocument(table.Name, rows.Columns, row)
			texts = append(texts, text)
			points = append(points, vectorstore.Point{
				ID: uuid.NewString(),
				Meta: map[string]any{
					"table":  table.Name,
					"row_id": rowIdentifier(rows.Columns, row),
					"text":   text,
				},
			})
		}
		logger.DebugContext(ctx, "rendered row documents", "table", table.Name, "rows", len(rows.Rows))
	}

	for start := 0; start < len(points); start += b.batchSize {
		end := start + b.batchSize
		if end > len(points) {
			end = len(points)
		}

		vectors, err := b.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("failed to embed corpus batch: %w", err)
		}
		for i := range vectors {
			points[start+i].Vec = vectors[i]
		}

		if err := b.store.Upsert(ctx, b.collection, points[start:end]); err != nil {
			return fmt.Errorf("failed to upsert corpus batch: %w", err)
		}
	}

	logger.InfoContext(ctx, "corpus built", "documents", len(points), "collection", b.collection)
	return nil
}

// renderRowDocument renders one row through the document template.
func renderRowDocument(table string, columns []string, row []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", table)
	for i, col := range columns {
		if i < len(row) {
			fmt.Fprintf(&b, "%s: %s", col, renderCell(row[i]))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// rowIdentifier derives a stable row identifier from the first *_id column.
func rowIdentifier(columns []string, row []any) string {
	for i, col := range columns {
		if strings.HasSuffix(col, "_id") && i < len(row) {
			return fmt.Sprintf("%s=%s", col, renderCell(row[i]))
		}
	}
	return ""
}

func renderCell(v any) string {
	if bs, ok := v.([]byte); ok {
		return string(bs)
	}
	return fmt.Sprintf("%v", v)
}
