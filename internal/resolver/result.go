package resolver

import (
	"time"

	"askdata-ai/internal/classify"
	"askdata-ai/internal/ragpath"
)

// Mode selects a resolution strategy for a question.
type Mode string

const (
	// ModeSQLAgent forces the SQL path.
	ModeSQLAgent Mode = "SQL_AGENT"
	// ModeRAG forces the RAG path.
	ModeRAG Mode = "RAG"
	// ModeHybridSimple classifies the question and delegates to one path;
	// a path failure is an overall failure (no silent fallback).
	ModeHybridSimple Mode = "HYBRID_SIMPLE"
	// ModeHybridEnhanced runs both paths concurrently and fuses the results.
	ModeHybridEnhanced Mode = "HYBRID_ENHANCED"
)

// ParseMode validates a mode string.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case ModeSQLAgent, ModeRAG, ModeHybridSimple, ModeHybridEnhanced:
		return Mode(raw), true
	default:
		return "", false
	}
}

// Strategy names the path that produced (or failed to produce) an answer.
type Strategy string

const (
	StrategySQL    Strategy = "sql"
	StrategyRAG    Strategy = "rag"
	StrategyHybrid Strategy = "hybrid"
)

// State tracks a question through the resolution state machine.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateAdmitted   State = "ADMITTED"
	StateRejected   State = "REJECTED"
	StateClassified State = "CLASSIFIED"
	StateResolved   State = "RESOLVED"
	StateFailed     State = "FAILED"
)

// Request is one incoming question.
type Request struct {
	// ID identifies the question; assigned by the caller (a UUID at the HTTP
	// boundary) or left empty.
	ID       string
	Question string
	Mode     Mode
	// ClientKey is the admission-control bucket key, derived by the caller's
	// key extractor. Empty means the global bucket.
	ClientKey string
}

// Result is the outcome of resolving one question. Immutable once produced.
type Result struct {
	ID       string `json:"id,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`

	// NumericValue carries a structured numeric answer taken verbatim from the
	// SQL path when one exists.
	NumericValue *float64 `json:"numeric_value,omitempty"`

	// Strategy is the path whose answer is authoritative.
	Strategy       Strategy       `json:"strategy,omitempty"`
	Mode           Mode           `json:"mode"`
	Classification classify.Label `json:"classification,omitempty"`

	Latency time.Duration `json:"latency_ns"`
	Success bool          `json:"success"`

	// FailureReason is human-readable; offending SQL is redacted from it.
	FailureReason  string   `json:"failure_reason,omitempty"`
	FailedStrategy Strategy `json:"failed_strategy,omitempty"`

	// Degraded marks answers produced after the preferred path failed
	// (e.g. RAG answering because SQL failed in enhanced mode).
	Degraded bool `json:"degraded,omitempty"`
	// LowConfidence marks RAG answers where retrieval cleared no threshold.
	LowConfidence bool `json:"low_confidence,omitempty"`

	// Documents are the retrieved row documents backing a RAG answer.
	Documents []ragpath.Document `json:"documents,omitempty"`

	// SQLDiagnostic retains the executed (or offending) statement for logs.
	// Never included in user-facing text.
	SQLDiagnostic string `json:"-"`

	// Err is the underlying error for programmatic inspection (errors.Is).
	Err error `json:"-"`
}
