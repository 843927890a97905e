package classify

import (
	"context"
	"strings"
)

// RuleClassifier is a deterministic keyword-based classifier used as the
// LLM classifier's degraded mode and in reproducible tests.
type RuleClassifier struct {
	sqlKeywords []string
	ragKeywords []string
}

// NewRuleClassifier creates a classifier with the default keyword sets.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		sqlKeywords: []string{
			"how many", "average", "total", "count", "sum", "minimum", "maximum",
			"most expensive", "cheapest", "highest", "lowest", "top", "out of stock",
			"more than", "less than", "revenue",
		},
		ragKeywords: []string{
			"why", "summarize", "summary", "describe", "explain", "what kinds",
			"what kind", "issues", "prefer", "preferences", "feel", "opinion",
			"experience", "recently",
		},
	}
}

// Classify scores the question against both keyword sets.
// A clear winner gets its label; a tie (including zero hits on both sides)
// is ambiguous and the resolver runs both paths.
func (c *RuleClassifier) Classify(_ context.Context, question string) Label {
	q := strings.ToLower(question)

	var sqlHits, ragHits int
	for _, kw := range c.sqlKeywords {
		if strings.Contains(q, kw) {
			sqlHits++
		}
	}
	for _, kw := range c.ragKeywords {
		if strings.Contains(q, kw) {
			ragHits++
		}
	}

	switch {
	case sqlHits > ragHits:
		return LabelSQL
	case ragHits > sqlHits:
		return LabelRAG
	default:
		return LabelAmbiguous
	}
}
