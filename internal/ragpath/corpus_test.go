package ragpath

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"askdata-ai/internal/ragpath/mocks"
	"askdata-ai/internal/storage"
	storage_mocks "askdata-ai/internal/storage/mocks"
	"askdata-ai/internal/vectorstore"
	vectorstore_mocks "askdata-ai/internal/vectorstore/mocks"
)

func TestRenderRowDocument(t *testing.T) {
	got := renderRowDocument("customers",
		[]string{"customer_id", "name", "city"},
		[]any{int64(1), "John Doe", []byte("New York")})

	want := "Table: customers\ncustomer_id: 1\nname: John Doe\ncity: New York"
	if got != want {
		t.Errorf("renderRowDocument() = %q, want %q", got, want)
	}
}

func TestRowIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		row     []any
		want    string
	}{
		{
			name:    "first id column wins",
			columns: []string{"order_id", "customer_id"},
			row:     []any{int64(5), int64(1)},
			want:    "order_id=5",
		},
		{
			name:    "no id column",
			columns: []string{"name", "city"},
			row:     []any{"John", "NY"},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowIdentifier(tt.columns, tt.row); got != tt.want {
				t.Errorf("rowIdentifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCorpusBuilder_Build(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	querier := storage_mocks.NewMockQuerier(ctrl)
	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	querier.EXPECT().
		Query(gomock.Any(), "SELECT * FROM customers").
		Return(&storage.RowSet{
			Columns: []string{"customer_id", "name"},
			Rows:    [][]any{{int64(1), "John Doe"}, {int64(2), "Jane Smith"}},
		}, nil)

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Len(2)).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			if !strings.Contains(texts[0], "name: John Doe") {
				t.Errorf("first document = %q, want rendered row", texts[0])
			}
			return [][]float32{{1, 0}, {0, 1}}, nil
		})

	store.EXPECT().
		Upsert(gomock.Any(), "documents", gomock.Len(2)).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			for _, p := range points {
				if p.ID == "" {
					t.Error("point has empty ID")
				}
				if p.Vec == nil {
					t.Error("point has no embedding vector")
				}
				if _, ok := p.Meta["text"].(string); !ok {
					t.Error("point meta missing text")
				}
			}
			if points[0].Meta["row_id"] != "customer_id=1" {
				t.Errorf("row_id = %v, want customer_id=1", points[0].Meta["row_id"])
			}
			return nil
		})

	b := NewCorpusBuilder(querier, embedder, store, "documents")
	tables := []storage.TableInfo{{Name: "customers"}}
	if err := b.Build(context.Background(), tables); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
}

func TestCorpusBuilder_Build_Batches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	querier := storage_mocks.NewMockQuerier(ctrl)
	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	// 70 rows at batch size 32 gives batches of 32, 32 and 6.
	rows := &storage.RowSet{Columns: []string{"product_id"}}
	for i := 0; i < 70; i++ {
		rows.Rows = append(rows.Rows, []any{int64(i)})
	}
	querier.EXPECT().
		Query(gomock.Any(), "SELECT * FROM products").
		Return(rows, nil)

	for _, size := range []int{32, 32, 6} {
		vecs := make([][]float32, size)
		for i := range vecs {
			vecs[i] = []float32{1}
		}
		embedder.EXPECT().
			EmbedTexts(gomock.Any(), gomock.Len(size)).
			Return(vecs, nil)
		store.EXPECT().
			Upsert(gomock.Any(), "documents", gomock.Len(size)).
			Return(nil)
	}

	b := NewCorpusBuilder(querier, embedder, store, "documents")
	if err := b.Build(context.Background(), []storage.TableInfo{{Name: "products"}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
}
