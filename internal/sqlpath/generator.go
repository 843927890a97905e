package sqlpath

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks askdata-ai/internal/sqlpath Generator,LanguageModel

import (
	"context"
	"fmt"

	"askdata-ai/internal/llm"
	"askdata-ai/internal/schema"
)

// LanguageModel is the completion capability the SQL path needs for
// generation and narration.
type LanguageModel interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Generator produces a SQL statement for a question, constrained to the given
// schema fragments. errorHint carries the previous attempt's failure when the
// resolver retries; it is empty on the first attempt.
type Generator interface {
	GenerateSQL(ctx context.Context, question string, fragments []schema.Fragment, errorHint string) (string, error)
}

const generatePrompt = `You are an expert SQL query generator for SQLite.
Given the following database schema and a question, generate one SQL query that answers the question.
Use ONLY the tables and columns listed below. Return ONLY the SQL query, nothing else.

Database Schema:
%s

Question: %s`

// LLMGenerator implements Generator with an LLM call at temperature 0.
type LLMGenerator struct {
	model LanguageModel
}

// NewLLMGenerator creates a generator backed by the given model.
func NewLLMGenerator(model LanguageModel) *LLMGenerator {
	return &LLMGenerator{model: model}
}

// GenerateSQL prompts the model with the pruned schema only.
func (g *LLMGenerator) GenerateSQL(ctx context.Context, question string, fragments []schema.Fragment, errorHint string) (string, error) {
	prompt := fmt.Sprintf(generatePrompt, schema.RenderContext(fragments), question)
	if errorHint != "" {
		prompt += fmt.Sprintf("\n\nYour previous attempt failed: %s\nGenerate a corrected query.", errorHint)
	}

	sqlText, err := g.model.ChatWithMessages(ctx,
		[]llm.Message{{Role: "user", Content: prompt}},
		llm.ChatParams{Temperature: 0},
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate SQL: %w", err)
	}

	return stripCodeFences(sqlText), nil
}
