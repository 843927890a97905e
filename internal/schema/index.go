// Package schema builds and serves a semantic index over table descriptions so
// the SQL generator only sees schema fragments relevant to the question.
package schema

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks askdata-ai/internal/schema Embedder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"askdata-ai/internal/contextutil"
	"askdata-ai/internal/llm"
	"askdata-ai/internal/storage"
	"askdata-ai/internal/vectorstore"
)

// Embedder generates embedding vectors for texts.
// This interface is defined from the index's perspective (consumer-first).
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Fragment is one table's slice of the schema: columns, a natural-language
// description, and the description's embedding. Exactly one fragment exists per
// live table; fragments are immutable until the index is rebuilt.
type Fragment struct {
	Table       string
	Columns     []storage.ColumnInfo
	Definition  string
	Description string
	Vector      []float32
}

// Index serves ranked schema fragments for incoming questions.
type Index struct {
	embedder  Embedder
	fragments []Fragment // sorted by table name
}

// BuildIndex embeds each table's description once and returns the index.
// Rebuild whenever the schema text changes.
func BuildIndex(ctx context.Context, embedder Embedder, tables []storage.TableInfo) (*Index, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to index")
	}

	texts := make([]string, 0, len(tables))
	for _, t := range tables {
		texts = append(texts, describeForEmbedding(t))
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed schema descriptions: %w", err)
	}
	if len(vectors) != len(tables) {
		return nil, fmt.Errorf("expected %d vectors, got %d", len(tables), len(vectors))
	}

	fragments := make([]Fragment, 0, len(tables))
	for i, t := range tables {
		fragments = append(fragments, Fragment{
			Table:       t.Name,
			Columns:     t.Columns,
			Definition:  t.Definition,
			Description: t.Description,
			Vector:      vectors[i],
		})
	}

	sort.Slice(fragments, func(i, j int) bool { return fragments[i].Table < fragments[j].Table })

	return &Index{embedder: embedder, fragments: fragments}, nil
}

// describeForEmbedding renders the text the fragment embedding is computed from.
func describeForEmbedding(t storage.TableInfo) string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
	}
	return fmt.Sprintf("Table %s: %s Columns: %s", t.Name, t.Description, strings.Join(cols, ", "))
}

// Tables returns the names of all indexed tables, in stable order.
func (idx *Index) Tables() []string {
	names := make([]string, 0, len(idx.fragments))
	for _, f := range idx.fragments {
		names = append(names, f.Table)
	}
	return names
}

// AllFragments returns every fragment in stable table-name order.
func (idx *Index) AllFragments() []Fragment {
	out := make([]Fragment, len(idx.fragments))
	copy(out, idx.fragments)
	return out
}

// SelectTables embeds the question and returns the k fragments with highest
// cosine similarity, ordered by non-increasing score with ties broken by table
// name. The scan is O(tables), which is fine at the dozens-of-tables scale.
//
// If the embedding backend is unavailable the selection degrades to the full
// fragment list in stable order instead of failing the question.
func (idx *Index) SelectTables(ctx context.Context, question string, k int) ([]Fragment, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		k = len(idx.fragments)
	}

	vectors, err := idx.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		if errors.Is(err, llm.ErrEmbeddingUnavailable) {
			logger.WarnContext(ctx, "embedding backend unavailable, falling back to full schema", "error", err)
			return idx.AllFragments(), nil
		}
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	queryVec := vectors[0]

	type scored struct {
		fragment Fragment
		score    float32
	}
	ranked := make([]scored, 0, len(idx.fragments))
	for _, f := range idx.fragments {
		ranked = append(ranked, scored{
			fragment: f,
			score:    vectorstore.CosineSimilarity(queryVec, f.Vector),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].fragment.Table < ranked[j].fragment.Table
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	selected := make([]Fragment, 0, k)
	for i := 0; i < k; i++ {
		selected = append(selected, ranked[i].fragment)
	}

	logger.DebugContext(ctx, "schema fragments selected", "k", k, "tables", tableNames(selected))
	return selected, nil
}

func tableNames(fragments []Fragment) []string {
	names := make([]string, 0, len(fragments))
	for _, f := range fragments {
		names = append(names, f.Table)
	}
	return names
}

// RenderContext renders the fragments as LLM prompt context, one definition per
// table (the pruned schema the generator is constrained to).
func RenderContext(fragments []Fragment) string {
	var b strings.Builder
	for _, f := range fragments {
		fmt.Fprintf(&b, "-- %s\n%s\n\n", f.Description, f.Definition)
	}
	return strings.TrimRight(b.String(), "\n")
}
