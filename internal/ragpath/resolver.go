package ragpath

import (
	"context"
	"fmt"
	"strings"

	"askdata-ai/internal/contextutil"
	"askdata-ai/internal/llm"
	"askdata-ai/internal/vectorstore"
)

// PathResult is the RAG path's output for one question.
type PathResult struct {
	Answer    string
	Documents []Document
	// LowConfidence marks answers where no retrieved document cleared the
	// similarity threshold; the path abstains instead of fabricating.
	LowConfidence bool
}

// LowConfidenceAnswer is returned when retrieval finds nothing relevant enough.
const LowConfidenceAnswer = "I couldn't find relevant information in the store data to answer this question confidently."

// Resolver answers questions by retrieving row documents and synthesizing a
// grounded answer.
type Resolver struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	model      LanguageModel
	k          int
	// minSimilarity is the score below which results are considered
	// low-confidence. Configurable; there is no universal constant.
	minSimilarity float32
}

// NewResolver creates a RAG path resolver.
func NewResolver(embedder Embedder, store vectorstore.VectorStore, collection string, model LanguageModel, k int, minSimilarity float32) *Resolver {
	return &Resolver{
		embedder:      embedder,
		store:         store,
		collection:    collection,
		model:         model,
		k:             k,
		minSimilarity: minSimilarity,
	}
}

// Retrieve returns the k most similar documents for the question, descending.
func (r *Resolver) Retrieve(ctx context.Context, question string, k int) ([]Document, error) {
	vectors, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := r.store.Search(ctx, r.collection, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to search corpus: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, res := range results {
		text, _ := res.Meta["text"].(string)
		table, _ := res.Meta["table"].(string)
		rowID, _ := res.Meta["row_id"].(string)
		docs = append(docs, Document{
			RowID: rowID,
			Table: table,
			Text:  text,
			Score: res.Score,
		})
	}
	return docs, nil
}

const synthesizePrompt = `You are a helpful assistant for an e-commerce customer support team.
Answer the question using ONLY the retrieved context below.
If the context does not contain enough information, say so instead of guessing.

Retrieved context:
%s

Question: %s

Answer:`

// Resolve retrieves documents and synthesizes an answer grounded in them.
// If no document clears the similarity threshold the result carries the
// low-confidence marker and no LLM call is made.
func (r *Resolver) Resolve(ctx context.Context, question string) (*PathResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := r.Retrieve(ctx, question, r.k)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 || docs[0].Score < r.minSimilarity {
		logger.InfoContext(ctx, "no document cleared similarity threshold",
			"docs", len(docs), "min_similarity", r.minSimilarity)
		return &PathResult{
			Answer:        LowConfidenceAnswer,
			Documents:     docs,
			LowConfidence: true,
		}, nil
	}

	var contextBuilder strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&contextBuilder, "[%d] (%s, score %.3f)\n%s\n\n", i+1, doc.Table, doc.Score, doc.Text)
	}

	answer, err := r.model.ChatWithMessages(ctx,
		[]llm.Message{{Role: "user", Content: fmt.Sprintf(synthesizePrompt, strings.TrimSpace(contextBuilder.String()), question)}},
		llm.ChatParams{Temperature: 0},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize answer: %w", err)
	}

	logger.InfoContext(ctx, "rag path resolved", "documents", len(docs), "answer_length", len(answer))
	return &PathResult{Answer: answer, Documents: docs}, nil
}
