package resolver

import "fmt"

// FusionError reports that both paths failed in enhanced mode.
// It retains both error details for diagnostics.
type FusionError struct {
	SQLErr error
	RAGErr error
}

func (e *FusionError) Error() string {
	return fmt.Sprintf("both resolution paths failed: sql: %v; rag: %v", e.SQLErr, e.RAGErr)
}
