package resolver

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"askdata-ai/internal/classify"
	"askdata-ai/internal/llm"
	"askdata-ai/internal/ragpath"
	"askdata-ai/internal/ratelimit"
	"askdata-ai/internal/schema"
	"askdata-ai/internal/sqlpath"
	"askdata-ai/internal/storage"
	"askdata-ai/internal/vectorstore"
)

// tableAxes maps each seeded table to one dimension of the fake embedding
// space, so similarity rankings in these tests are exact and deterministic.
var tableAxes = map[string]int{
	"customers":       0,
	"order_items":     1,
	"orders":          2,
	"products":        3,
	"reviews":         4,
	"support_tickets": 5,
}

// axisEmbedder embeds schema descriptions onto their table's axis and every
// question onto the orders/customers plane.
type axisEmbedder struct{}

func (axisEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(tableAxes))
		if rest, ok := strings.CutPrefix(text, "Table "); ok {
			name := rest[:strings.Index(rest, ":")]
			vec[tableAxes[name]] = 1
		} else {
			vec[tableAxes["orders"]] = 0.9
			vec[tableAxes["customers"]] = 0.8
		}
		out[i] = vec
	}
	return out, nil
}

type fixedModel struct {
	reply string
}

func (m fixedModel) ChatWithMessages(_ context.Context, _ []llm.Message, _ llm.ChatParams) (string, error) {
	return m.reply, nil
}

type fixedGenerator struct {
	sql string
}

func (g fixedGenerator) GenerateSQL(_ context.Context, _ string, _ []schema.Fragment, _ string) (string, error) {
	return g.sql, nil
}

const johnDoeOrdersSQL = "SELECT COUNT(*) FROM orders JOIN customers ON orders.customer_id = customers.customer_id WHERE customers.name = 'John Doe'"

// newEngine wires the full stack over a seeded database: real querier, schema
// index, memory vector store and both paths, with only the model boundary
// scripted.
func newEngine(t *testing.T) *Resolver {
	t.Helper()
	ctx := context.Background()

	db, err := storage.New(filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := storage.Seed(db); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	tables, err := storage.ListTables(ctx, db)
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}

	embedder := axisEmbedder{}
	index, err := schema.BuildIndex(ctx, embedder, tables)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}

	sqlRes := sqlpath.NewResolver(
		index,
		fixedGenerator{sql: johnDoeOrdersSQL},
		storage.NewSQLQuerier(db),
		fixedModel{reply: "John Doe has placed 2 orders."},
		2,
	)

	store := vectorstore.NewMemoryStore()
	if err := store.EnsureCollection(ctx, "documents", len(tableAxes)); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	err = store.Upsert(ctx, "documents", []vectorstore.Point{
		{
			ID:  "orders-1",
			Vec: []float32{0.7, 0, 0.7, 0, 0, 0},
			Meta: map[string]any{
				"table":  "orders",
				"row_id": "order_id=1",
				"text":   "Table: orders\norder_id: 1\ncustomer_id: 1\nstatus: delivered",
			},
		},
		{
			ID:  "customers-1",
			Vec: []float32{0.9, 0, 0.2, 0, 0, 0},
			Meta: map[string]any{
				"table":  "customers",
				"row_id": "customer_id=1",
				"text":   "Table: customers\ncustomer_id: 1\nname: John Doe\ncity: New York",
			},
		},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	ragRes := ragpath.NewResolver(embedder, store, "documents",
		fixedModel{reply: "John Doe shows up on a couple of delivered orders."}, 3, 0.35)

	limiter := ratelimit.New(ratelimit.Options{Capacity: 100, RefillPerSecond: 100})

	return New(limiter, classify.NewRuleClassifier(), sqlRes, ragRes, Options{})
}

func TestEngine_EndToEnd(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()
	question := "How many orders does John Doe have?"

	t.Run("hybrid enhanced fuses sql facts with rag context", func(t *testing.T) {
		result := engine.Resolve(ctx, Request{ID: "e2e-1", Question: question, Mode: ModeHybridEnhanced})

		if !result.Success {
			t.Fatalf("Success = false, reason %q, err %v", result.FailureReason, result.Err)
		}
		if result.Strategy != StrategySQL {
			t.Errorf("Strategy = %q, want %q", result.Strategy, StrategySQL)
		}
		if result.NumericValue == nil || *result.NumericValue != 2 {
			t.Errorf("NumericValue = %v, want 2", result.NumericValue)
		}
		if !strings.HasPrefix(result.Answer, "John Doe has placed 2 orders.") {
			t.Errorf("Answer = %q, want SQL narration first", result.Answer)
		}
		if !strings.Contains(result.Answer, "Additional context:") {
			t.Errorf("Answer = %q, want appended rag context", result.Answer)
		}
		if result.Classification != classify.LabelSQL {
			t.Errorf("Classification = %q, want %q", result.Classification, classify.LabelSQL)
		}
		if result.SQLDiagnostic != johnDoeOrdersSQL {
			t.Errorf("SQLDiagnostic = %q, want the executed statement", result.SQLDiagnostic)
		}
		if len(result.Documents) == 0 {
			t.Error("expected retrieved documents on the fused result")
		}
		if result.Degraded {
			t.Error("Degraded = true on a clean SQL answer")
		}
	})

	t.Run("sql agent mode", func(t *testing.T) {
		result := engine.Resolve(ctx, Request{ID: "e2e-2", Question: question, Mode: ModeSQLAgent})

		if !result.Success {
			t.Fatalf("Success = false, reason %q, err %v", result.FailureReason, result.Err)
		}
		if result.Strategy != StrategySQL {
			t.Errorf("Strategy = %q, want %q", result.Strategy, StrategySQL)
		}
		if result.NumericValue == nil || *result.NumericValue != 2 {
			t.Errorf("NumericValue = %v, want 2", result.NumericValue)
		}
		if result.Classification != "" {
			t.Errorf("Classification = %q, want empty in forced mode", result.Classification)
		}
	})

	t.Run("rag mode answers from the corpus", func(t *testing.T) {
		result := engine.Resolve(ctx, Request{ID: "e2e-3", Question: question, Mode: ModeRAG})

		if !result.Success {
			t.Fatalf("Success = false, reason %q, err %v", result.FailureReason, result.Err)
		}
		if result.Strategy != StrategyRAG {
			t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyRAG)
		}
		if result.LowConfidence {
			t.Error("LowConfidence = true with high-similarity documents upserted")
		}
		if len(result.Documents) != 2 {
			t.Errorf("len(Documents) = %d, want 2", len(result.Documents))
		}
	})
}
