// Package benchmark times and validates every resolution strategy over a
// fixed question set and emits a comparison report.
package benchmark

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"askdata-ai/internal/resolver"
)

// SampleQuestions is the fixed benchmark question set.
var SampleQuestions = []string{
	"How many orders does customer John Doe have?",
	"What is the average rating of products in the Electronics category?",
	"Which customer has the most open support tickets?",
	"What are the top 3 most expensive products?",
	"How many orders were delivered in the last month?",
	"What is the total revenue from all orders?",
	"Which product has received the highest rating?",
	"How many customers have made more than one order?",
	"What is the status of the support ticket for Jane Smith?",
	"Which products are currently out of stock?",
}

// QueryResolver is the single operation the harness needs from the engine.
type QueryResolver interface {
	Resolve(ctx context.Context, req resolver.Request) resolver.Result
}

// Measurement is one strategy's outcome for one question.
type Measurement struct {
	Mode    resolver.Mode
	Latency time.Duration
	Success bool
	Answer  string
	Reason  string
}

// QuestionResult collects every strategy's measurement for one question.
type QuestionResult struct {
	Question     string
	Measurements []Measurement
}

// Runner issues the question set to each strategy sequentially and records
// wall-clock latency and success.
type Runner struct {
	resolver  QueryResolver
	questions []string
	modes     []resolver.Mode
	logger    *slog.Logger
}

// NewRunner creates a benchmark runner. Empty questions or modes fall back to
// the full sample set and all four modes.
func NewRunner(qr QueryResolver, questions []string, modes []resolver.Mode) *Runner {
	if len(questions) == 0 {
		questions = SampleQuestions
	}
	if len(modes) == 0 {
		modes = []resolver.Mode{
			resolver.ModeSQLAgent,
			resolver.ModeRAG,
			resolver.ModeHybridSimple,
			resolver.ModeHybridEnhanced,
		}
	}
	return &Runner{
		resolver:  qr,
		questions: questions,
		modes:     modes,
		logger:    slog.Default(),
	}
}

// Run executes the benchmark and returns per-question results.
func (r *Runner) Run(ctx context.Context) ([]QuestionResult, error) {
	results := make([]QuestionResult, 0, len(r.questions))

	for i, question := range r.questions {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r.logger.InfoContext(ctx, "benchmarking question",
			"index", i+1, "total", len(r.questions), "question", question)

		qr := QuestionResult{Question: question}
		for _, mode := range r.modes {
			started := time.Now()
			res := r.resolver.Resolve(ctx, resolver.Request{
				ID:       uuid.NewString(),
				Question: question,
				Mode:     mode,
			})
			qr.Measurements = append(qr.Measurements, Measurement{
				Mode:    mode,
				Latency: time.Since(started),
				Success: res.Success,
				Answer:  res.Answer,
				Reason:  res.FailureReason,
			})
		}
		results = append(results, qr)
	}

	return results, nil
}
