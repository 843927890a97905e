// Package resolver orchestrates admission control, classification and the two
// resolution paths, fusing their outputs into one answer with provenance.
package resolver

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_paths.go -package=mocks askdata-ai/internal/resolver SQLPath,RAGPath,Admitter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"askdata-ai/internal/classify"
	"askdata-ai/internal/contextutil"
	"askdata-ai/internal/ragpath"
	"askdata-ai/internal/ratelimit"
	"askdata-ai/internal/sqlpath"
)

// SQLPath resolves a question through generation, validation, execution and narration.
type SQLPath interface {
	Resolve(ctx context.Context, question string) (*sqlpath.PathResult, error)
}

// RAGPath resolves a question through retrieval and synthesis.
type RAGPath interface {
	Resolve(ctx context.Context, question string) (*ragpath.PathResult, error)
}

// Admitter is the admission-control capability the resolver needs.
type Admitter interface {
	Allow(key string) error
}

// Options configures a Resolver.
type Options struct {
	// PathTimeout bounds each path invocation. Zero means no bound beyond the
	// caller's context.
	PathTimeout time.Duration
}

// Resolver is the hybrid fusion resolver. Each question is processed
// independently; many may be in flight concurrently. The rate limiter is the
// only shared mutable state.
type Resolver struct {
	limiter    Admitter
	classifier classify.Classifier
	sqlPath    SQLPath
	ragPath    RAGPath
	opts       Options
}

// New creates a Resolver.
func New(limiter Admitter, classifier classify.Classifier, sqlPath SQLPath, ragPath RAGPath, opts Options) *Resolver {
	return &Resolver{
		limiter:    limiter,
		classifier: classifier,
		sqlPath:    sqlPath,
		ragPath:    ragPath,
		opts:       opts,
	}
}

// Resolve runs one question through the state machine:
// RECEIVED -> ADMITTED/REJECTED -> CLASSIFIED -> {SQL_ONLY | RAG_ONLY | BOTH} ->
// RESOLVED | FAILED.
// The returned Result always carries a success flag and, on failure, the
// strategy that failed, never a bare error without attribution.
func (r *Resolver) Resolve(ctx context.Context, req Request) Result {
	logger := contextutil.LoggerFromContext(ctx)
	started := time.Now()

	result := Result{
		ID:       req.ID,
		Question: req.Question,
		Mode:     req.Mode,
	}

	finish := func(res Result) Result {
		res.Latency = time.Since(started)
		state := StateResolved
		if !res.Success {
			state = StateFailed
			if errors.Is(res.Err, ratelimit.ErrRateLimited) {
				state = StateRejected
			}
		}
		logger.InfoContext(ctx, "question resolved",
			"id", res.ID, "mode", res.Mode, "state", state,
			"strategy", res.Strategy, "latency", res.Latency, "success", res.Success)
		return res
	}

	// Admission control: rejected requests surface immediately, no retry here.
	if err := r.limiter.Allow(req.ClientKey); err != nil {
		result.Success = false
		result.Err = err
		result.FailureReason = "request rejected by rate limiter"
		result.FailedStrategy = strategyForMode(req.Mode)
		return finish(result)
	}

	switch req.Mode {
	case ModeSQLAgent:
		return finish(r.resolveSQLOnly(ctx, req, result))
	case ModeRAG:
		return finish(r.resolveRAGOnly(ctx, req, result))
	case ModeHybridSimple:
		result.Classification = r.classifier.Classify(ctx, req.Question)
		switch result.Classification {
		case classify.LabelSQL:
			return finish(r.resolveSQLOnly(ctx, req, result))
		case classify.LabelRAG:
			return finish(r.resolveRAGOnly(ctx, req, result))
		default:
			// Degraded or genuinely ambiguous classification: run both.
			return finish(r.resolveBoth(ctx, req, result))
		}
	case ModeHybridEnhanced:
		result.Classification = r.classifier.Classify(ctx, req.Question)
		return finish(r.resolveBoth(ctx, req, result))
	default:
		result.Success = false
		result.Err = fmt.Errorf("unknown mode %q", req.Mode)
		result.FailureReason = fmt.Sprintf("unknown resolution mode %q", req.Mode)
		return finish(result)
	}
}

func strategyForMode(mode Mode) Strategy {
	switch mode {
	case ModeSQLAgent:
		return StrategySQL
	case ModeRAG:
		return StrategyRAG
	default:
		return StrategyHybrid
	}
}

func (r *Resolver) resolveSQLOnly(ctx context.Context, req Request, result Result) Result {
	pathCtx, cancel := r.pathContext(ctx)
	defer cancel()

	res, err := r.sqlPath.Resolve(pathCtx, req.Question)
	if err != nil {
		return failResult(result, StrategySQL, err)
	}

	result.Success = true
	result.Strategy = StrategySQL
	result.Answer = res.Answer
	result.NumericValue = res.NumericValue
	result.SQLDiagnostic = res.SQL
	return result
}

func (r *Resolver) resolveRAGOnly(ctx context.Context, req Request, result Result) Result {
	pathCtx, cancel := r.pathContext(ctx)
	defer cancel()

	res, err := r.ragPath.Resolve(pathCtx, req.Question)
	if err != nil {
		return failResult(result, StrategyRAG, err)
	}

	result.Success = true
	result.Strategy = StrategyRAG
	result.Answer = res.Answer
	result.LowConfidence = res.LowConfidence
	result.Documents = res.Documents
	return result
}

// pathOutcome carries one path's result across the fan-in boundary.
// The two paths share no mutable state; each writes only its own outcome.
type pathOutcome[T any] struct {
	res *T
	err error
}

// resolveBoth fans out to both paths concurrently, awaits both, and fuses.
// SQL facts are authoritative; RAG narrative is appended, never overriding.
func (r *Resolver) resolveBoth(ctx context.Context, req Request, result Result) Result {
	var (
		wg     sync.WaitGroup
		sqlOut pathOutcome[sqlpath.PathResult]
		ragOut pathOutcome[ragpath.PathResult]
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		pathCtx, cancel := r.pathContext(ctx)
		defer cancel()
		sqlOut.res, sqlOut.err = r.sqlPath.Resolve(pathCtx, req.Question)
	}()
	go func() {
		defer wg.Done()
		pathCtx, cancel := r.pathContext(ctx)
		defer cancel()
		ragOut.res, ragOut.err = r.ragPath.Resolve(pathCtx, req.Question)
	}()
	wg.Wait()

	switch {
	case sqlOut.err == nil:
		// SQL succeeded: its structured result is authoritative for factual
		// and numeric content.
		result.Success = true
		result.Strategy = StrategySQL
		result.Answer = sqlOut.res.Answer
		result.NumericValue = sqlOut.res.NumericValue
		result.SQLDiagnostic = sqlOut.res.SQL
		if ragOut.err == nil && !ragOut.res.LowConfidence {
			result.Answer += "\n\nAdditional context: " + ragOut.res.Answer
			result.Documents = ragOut.res.Documents
		}
		return result

	case ragOut.err == nil:
		// SQL failed but RAG answered: degraded confidence.
		result.Success = true
		result.Strategy = StrategyRAG
		result.Degraded = true
		result.Answer = ragOut.res.Answer
		result.LowConfidence = ragOut.res.LowConfidence
		result.Documents = ragOut.res.Documents
		return result

	default:
		return failResult(result, StrategyHybrid, &FusionError{SQLErr: sqlOut.err, RAGErr: ragOut.err})
	}
}

func (r *Resolver) pathContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.PathTimeout > 0 {
		return context.WithTimeout(ctx, r.opts.PathTimeout)
	}
	return context.WithCancel(ctx)
}

// failResult fills failure attribution with the offending SQL redacted from
// the user-facing reason.
func failResult(result Result, strategy Strategy, err error) Result {
	result.Success = false
	result.Err = err
	result.FailedStrategy = strategy

	var qe *sqlpath.QueryError
	if errors.As(err, &qe) {
		result.SQLDiagnostic = qe.Statement
		result.FailureReason = fmt.Sprintf("%s path failed: %v", strategy, qe.Kind)
		return result
	}

	result.FailureReason = fmt.Sprintf("%s path failed: %v", strategy, err)
	return result
}
