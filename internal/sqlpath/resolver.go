// Package sqlpath implements the SQL resolution path: schema pruning, SQL
// generation, safety validation, execution and narration.
package sqlpath

import (
	"context"
	"fmt"
	"strings"

	"askdata-ai/internal/contextutil"
	"askdata-ai/internal/llm"
	"askdata-ai/internal/schema"
	"askdata-ai/internal/storage"
)

// PathResult is the SQL path's output for one question.
type PathResult struct {
	Answer string
	// NumericValue carries a single-cell aggregation result verbatim from the
	// database engine; narration never alters it.
	NumericValue *float64
	// SQL is the executed statement, kept for diagnostics only and redacted
	// from user-facing text.
	SQL  string
	Rows *storage.RowSet
}

// Resolver runs a question through the full SQL path.
type Resolver struct {
	index     *schema.Index
	generator Generator
	querier   storage.Querier
	narrator  LanguageModel
	topK      int
}

// NewResolver creates a SQL path resolver.
// topK is the number of schema fragments exposed to the generator.
func NewResolver(index *schema.Index, generator Generator, querier storage.Querier, narrator LanguageModel, topK int) *Resolver {
	return &Resolver{
		index:     index,
		generator: generator,
		querier:   querier,
		narrator:  narrator,
		topK:      topK,
	}
}

// Resolve answers the question via generation, validation, execution and narration.
//
// Retries are bounded to one each: a generated statement referencing a table
// outside the pruned set triggers one regeneration naming the violation, then
// ErrSchemaViolation; an engine rejection triggers one regeneration with the
// engine error appended, then ErrExecution. Unsafe statements fail closed
// without retry and never reach the database.
func (r *Resolver) Resolve(ctx context.Context, question string) (*PathResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	fragments, err := r.index.SelectTables(ctx, question, r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to prune schema: %w", err)
	}

	allowed := make([]string, 0, len(fragments))
	for _, f := range fragments {
		allowed = append(allowed, f.Table)
	}
	known := r.index.Tables()
	logger.DebugContext(ctx, "schema pruned", "allowed_tables", allowed)

	sqlText, err := r.generateInScope(ctx, question, fragments, known, allowed)
	if err != nil {
		return nil, err
	}

	if err := ValidateReadOnly(sqlText); err != nil {
		logger.WarnContext(ctx, "unsafe query rejected before execution", "error", err)
		return nil, err
	}

	rows, sqlText, err := r.executeWithRetry(ctx, question, fragments, known, allowed, sqlText)
	if err != nil {
		return nil, err
	}

	result := &PathResult{SQL: sqlText, Rows: rows}
	if v, ok := rows.SingleValue(); ok {
		result.NumericValue = &v
	}

	answer, err := r.narrate(ctx, question, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to narrate result: %w", err)
	}
	result.Answer = answer

	logger.InfoContext(ctx, "sql path resolved", "rows", len(rows.Rows), "numeric", result.NumericValue != nil)
	return result, nil
}

// generateInScope generates SQL and enforces the pruned-table constraint,
// allowing exactly one regeneration on violation.
func (r *Resolver) generateInScope(ctx context.Context, question string, fragments []schema.Fragment, known, allowed []string) (string, error) {
	sqlText, err := r.generator.GenerateSQL(ctx, question, fragments, "")
	if err != nil {
		return "", fmt.Errorf("failed to generate SQL: %w", err)
	}

	violations := CheckTableScope(sqlText, known, allowed)
	if len(violations) == 0 {
		return sqlText, nil
	}

	hint := fmt.Sprintf("the query referenced tables outside the provided schema: %s; use only: %s",
		strings.Join(violations, ", "), strings.Join(allowed, ", "))
	sqlText, err = r.generator.GenerateSQL(ctx, question, fragments, hint)
	if err != nil {
		return "", fmt.Errorf("failed to regenerate SQL: %w", err)
	}

	if violations := CheckTableScope(sqlText, known, allowed); len(violations) > 0 {
		return "", &QueryError{
			Kind:      ErrSchemaViolation,
			Statement: sqlText,
			Detail:    fmt.Sprintf("references out-of-scope tables after retry: %s", strings.Join(violations, ", ")),
		}
	}
	return sqlText, nil
}

// executeWithRetry executes the statement, regenerating once on an engine
// error with that error appended as context.
func (r *Resolver) executeWithRetry(ctx context.Context, question string, fragments []schema.Fragment, known, allowed []string, sqlText string) (*storage.RowSet, string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	rows, execErr := r.querier.Query(ctx, sqlText)
	if execErr == nil {
		return rows, sqlText, nil
	}
	logger.WarnContext(ctx, "execution failed, regenerating once", "error", execErr)

	regenerated, err := r.generator.GenerateSQL(ctx, question, fragments,
		fmt.Sprintf("the query %q failed with: %v", sqlText, execErr))
	if err != nil {
		return nil, "", fmt.Errorf("failed to regenerate after execution error: %w", err)
	}

	// The regenerated statement goes through the same gates; no further retries.
	if violations := CheckTableScope(regenerated, known, allowed); len(violations) > 0 {
		return nil, "", &QueryError{
			Kind:      ErrSchemaViolation,
			Statement: regenerated,
			Detail:    fmt.Sprintf("regenerated query references out-of-scope tables: %s", strings.Join(violations, ", ")),
		}
	}
	if err := ValidateReadOnly(regenerated); err != nil {
		return nil, "", err
	}

	rows, retryErr := r.querier.Query(ctx, regenerated)
	if retryErr != nil {
		return nil, "", &QueryError{
			Kind:      ErrExecution,
			Statement: regenerated,
			Detail:    fmt.Sprintf("failed twice: %v; then: %v", execErr, retryErr),
		}
	}
	return rows, regenerated, nil
}

const narratePrompt = `You are a helpful assistant for an e-commerce customer support team.
Answer the question using only the query results below.
Report numeric values exactly as they appear; do not round or restate them differently.

Query Results:
%s

Question: %s

Answer:`

// narrate turns the row set into a natural-language answer.
func (r *Resolver) narrate(ctx context.Context, question string, rows *storage.RowSet) (string, error) {
	return r.narrator.ChatWithMessages(ctx,
		[]llm.Message{{Role: "user", Content: fmt.Sprintf(narratePrompt, renderRows(rows), question)}},
		llm.ChatParams{Temperature: 0},
	)
}

// renderRows renders the row set as prompt context, capped to keep prompts bounded.
func renderRows(rows *storage.RowSet) string {
	const maxRows = 25

	if rows == nil || len(rows.Rows) == 0 {
		return "(no rows)"
	}

	var b strings.Builder
	b.WriteString(strings.Join(rows.Columns, " | "))
	b.WriteString("\n")
	for i, row := range rows.Rows {
		if i >= maxRows {
			fmt.Fprintf(&b, "... (%d more rows)\n", len(rows.Rows)-maxRows)
			break
		}
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if bs, ok := cell.([]byte); ok {
				cells = append(cells, string(bs))
				continue
			}
			cells = append(cells, fmt.Sprintf("%v", cell))
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
