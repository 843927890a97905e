package schema

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"askdata-ai/internal/llm"
	"askdata-ai/internal/schema/mocks"
	"askdata-ai/internal/storage"
)

func init() {
	// Silence log output during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testTables() []storage.TableInfo {
	return []storage.TableInfo{
		{
			Name:        "orders",
			Columns:     []storage.ColumnInfo{{Name: "order_id"}, {Name: "customer_id"}},
			Definition:  "CREATE TABLE orders (...)",
			Description: "Customer orders with status and totals",
		},
		{
			Name:        "customers",
			Columns:     []storage.ColumnInfo{{Name: "customer_id"}, {Name: "name"}},
			Definition:  "CREATE TABLE customers (...)",
			Description: "Registered customers",
		},
		{
			Name:        "reviews",
			Columns:     []storage.ColumnInfo{{Name: "review_id"}, {Name: "product_id"}},
			Definition:  "CREATE TABLE reviews (...)",
			Description: "Product reviews with ratings",
		},
	}
}

// axisVectors assigns each table description an orthogonal unit vector so
// similarity against a query vector is fully controlled by the test.
func axisVectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, n)
		v[i] = 1
		out[i] = v
	}
	return out
}

func TestBuildIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tables := testTables()
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(len(tables))).
		Return(axisVectors(len(tables)), nil)

	idx, err := BuildIndex(context.Background(), embedder, tables)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}

	// Fragments come back in table-name order regardless of input order.
	want := []string{"customers", "orders", "reviews"}
	got := idx.Tables()
	if len(got) != len(want) {
		t.Fatalf("Tables() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tables()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuildIndex_NoTables(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	if _, err := BuildIndex(context.Background(), embedder, nil); err == nil {
		t.Error("BuildIndex() with no tables should fail")
	}
}

func TestBuildIndex_VectorCountMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		Return([][]float32{{1}}, nil)

	if _, err := BuildIndex(context.Background(), embedder, testTables()); err == nil {
		t.Error("BuildIndex() with mismatched vector count should fail")
	}
}

func TestIndex_SelectTables(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tables := testTables()
	embedder := mocks.NewMockEmbedder(ctrl)

	// BuildIndex sees descriptions in input order: orders, customers, reviews.
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(3)).
		Return([][]float32{
			{1, 0, 0}, // orders
			{0, 1, 0}, // customers
			{0, 0, 1}, // reviews
		}, nil)

	idx, err := BuildIndex(context.Background(), embedder, tables)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}

	// Query vector closest to orders, then customers, then reviews.
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), []string{"How many orders does John Doe have?"}).
		Return([][]float32{{0.9, 0.4, 0.1}}, nil)

	selected, err := idx.SelectTables(context.Background(), "How many orders does John Doe have?", 2)
	if err != nil {
		t.Fatalf("SelectTables() error = %v", err)
	}

	if len(selected) != 2 {
		t.Fatalf("SelectTables() returned %d fragments, want 2", len(selected))
	}
	if selected[0].Table != "orders" {
		t.Errorf("SelectTables()[0].Table = %q, want orders", selected[0].Table)
	}
	if selected[1].Table != "customers" {
		t.Errorf("SelectTables()[1].Table = %q, want customers", selected[1].Table)
	}
	for _, f := range selected {
		if f.Table == "reviews" {
			t.Error("SelectTables() included a fragment beyond k")
		}
	}
}

func TestIndex_SelectTables_KLargerThanTables(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tables := testTables()
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(3)).
		Return(axisVectors(3), nil)

	idx, err := BuildIndex(context.Background(), embedder, tables)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(1)).
		Return([][]float32{{1, 0, 0}}, nil)

	selected, err := idx.SelectTables(context.Background(), "anything", 10)
	if err != nil {
		t.Fatalf("SelectTables() error = %v", err)
	}
	if len(selected) != 3 {
		t.Errorf("SelectTables() returned %d fragments, want 3", len(selected))
	}
}

func TestIndex_SelectTables_EmbeddingOutageFallsBackToFullSchema(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tables := testTables()
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(3)).
		Return(axisVectors(3), nil)

	idx, err := BuildIndex(context.Background(), embedder, tables)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(1)).
		Return(nil, llm.ErrEmbeddingUnavailable)

	selected, err := idx.SelectTables(context.Background(), "anything", 1)
	if err != nil {
		t.Fatalf("SelectTables() during outage error = %v, want nil", err)
	}
	if len(selected) != 3 {
		t.Errorf("SelectTables() during outage returned %d fragments, want the full schema (3)", len(selected))
	}
}

func TestIndex_SelectTables_OtherEmbeddingErrorSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tables := testTables()
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(3)).
		Return(axisVectors(3), nil)

	idx, err := BuildIndex(context.Background(), embedder, tables)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}

	wantErr := errors.New("question too long")
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(1)).
		Return(nil, wantErr)

	if _, err := idx.SelectTables(context.Background(), "anything", 1); !errors.Is(err, wantErr) {
		t.Errorf("SelectTables() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestRenderContext(t *testing.T) {
	fragments := []Fragment{
		{Description: "Registered customers", Definition: "CREATE TABLE customers (...)"},
		{Description: "Customer orders with status and totals", Definition: "CREATE TABLE orders (...)"},
	}

	got := RenderContext(fragments)
	if !strings.Contains(got, "-- Registered customers\nCREATE TABLE customers (...)") {
		t.Errorf("RenderContext() missing customers definition:\n%s", got)
	}
	if !strings.Contains(got, "-- Customer orders with status and totals\nCREATE TABLE orders (...)") {
		t.Errorf("RenderContext() missing orders definition:\n%s", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("RenderContext() should trim trailing newlines")
	}
}
