// Package classify labels questions as SQL-appropriate, RAG-appropriate or
// ambiguous so the hybrid resolver can route them.
package classify

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_classifier.go -package=mocks askdata-ai/internal/classify Classifier,LanguageModel

import (
	"context"
	"fmt"
	"strings"

	"askdata-ai/internal/contextutil"
)

// Label is the classification assigned to a question.
type Label string

const (
	// LabelSQL marks questions needing precise calculations, aggregations or
	// exact counts.
	LabelSQL Label = "sql"
	// LabelRAG marks questions needing context understanding or narrative
	// responses.
	LabelRAG Label = "rag"
	// LabelAmbiguous marks questions where neither strategy clearly fits;
	// the resolver then runs both paths.
	LabelAmbiguous Label = "ambiguous"
)

// Classifier labels a question. Classification failures are never fatal:
// implementations degrade to LabelAmbiguous instead of returning an error to
// the resolver.
type Classifier interface {
	Classify(ctx context.Context, question string) Label
}

// LanguageModel is the completion capability the LLM classifier needs.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const classifyPrompt = `You are a query classifier that determines whether a natural language query is better suited for:

1. SQL: queries requiring precise calculations, aggregations, exact counts, or structured data operations
2. RAG (Retrieval Augmented Generation): queries requiring context understanding, narrative responses, or inference from text

Examples of SQL queries:
- "How many orders does customer John Doe have?"
- "What is the average rating of products in Electronics category?"
- "List all customers with open support tickets"

Examples of RAG queries:
- "Why did customer Jane Smith contact support recently?"
- "What kinds of issues are customers having with headphones?"
- "Summarize John's purchase history and preferences"

For the following query, respond with ONLY "sql" or "rag" (lowercase):

Query: %s

Classification:`

// LLMClassifier classifies with a single LLM call.
type LLMClassifier struct {
	model LanguageModel
	// fallback handles backend failures; defaults to the rule-based classifier.
	fallback Classifier
}

// NewLLMClassifier creates an LLM-backed classifier that degrades to the
// rule-based classifier when the backend fails.
func NewLLMClassifier(model LanguageModel) *LLMClassifier {
	return &LLMClassifier{model: model, fallback: NewRuleClassifier()}
}

// Classify asks the model to label the question.
// A backend failure degrades to the rule-based fallback; an unparseable reply
// degrades to ambiguous. Neither is surfaced as an error.
func (c *LLMClassifier) Classify(ctx context.Context, question string) Label {
	logger := contextutil.LoggerFromContext(ctx)

	reply, err := c.model.Complete(ctx, fmt.Sprintf(classifyPrompt, question))
	if err != nil {
		logger.WarnContext(ctx, "classification backend failed, degrading", "error", err)
		if c.fallback != nil {
			return c.fallback.Classify(ctx, question)
		}
		return LabelAmbiguous
	}

	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "sql":
		return LabelSQL
	case "rag":
		return LabelRAG
	default:
		logger.WarnContext(ctx, "unparseable classification reply", "reply", reply)
		return LabelAmbiguous
	}
}
