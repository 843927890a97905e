package sqlpath

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaViolation is returned when generated SQL references a table
	// outside the pruned fragment set, even after one regeneration.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrUnsafeQuery is returned when generated SQL is not a single read-only
	// statement. The statement never reaches the database.
	ErrUnsafeQuery = errors.New("unsafe query")

	// ErrExecution is returned when the database engine rejects the statement
	// twice (the first rejection triggers one regeneration).
	ErrExecution = errors.New("execution error")
)

// QueryError carries the offending statement for diagnostics. The statement is
// redacted from user-facing text but retained here for logs.
type QueryError struct {
	Kind      error  // one of the sentinel errors above
	Statement string // the offending SQL, diagnostic only
	Detail    string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

func (e *QueryError) Unwrap() error {
	return e.Kind
}
