package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"askdata-ai/internal/contextutil"
	"askdata-ai/internal/ratelimit"
	"askdata-ai/internal/resolver"
)

// QueryResolver is the engine operation the HTTP layer consumes.
type QueryResolver interface {
	Resolve(ctx context.Context, req resolver.Request) resolver.Result
}

// KeyExtractor derives the rate-limit bucket key from a request.
type KeyExtractor func(r *http.Request) string

// GlobalKey is the default extractor: every request shares one bucket.
func GlobalKey(_ *http.Request) string { return "" }

// ClientIPKey buckets requests by the client's remote address.
func ClientIPKey(r *http.Request) string { return r.RemoteAddr }

// QueryHandler handles HTTP requests for question resolution.
type QueryHandler struct {
	resolver   QueryResolver
	extractKey KeyExtractor
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(qr QueryResolver, extractKey KeyExtractor) *QueryHandler {
	if extractKey == nil {
		extractKey = GlobalKey
	}
	return &QueryHandler{resolver: qr, extractKey: extractKey}
}

// QueryRequest is the HTTP request payload.
type QueryRequest struct {
	Question string `json:"question"`
	// Mode is one of SQL_AGENT, RAG, HYBRID_SIMPLE, HYBRID_ENHANCED.
	// Empty defaults to HYBRID_ENHANCED.
	Mode string `json:"mode,omitempty"`
}

// ServeHTTP resolves a question and writes the Resolution Result.
// Rate-limited requests get 429; invalid input gets 400; everything else gets
// 200 with the result's own success flag and failure attribution.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	mode := resolver.ModeHybridEnhanced
	if req.Mode != "" {
		parsed, ok := resolver.ParseMode(req.Mode)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}
		mode = parsed
	}

	result := h.resolver.Resolve(ctx, resolver.Request{
		ID:        uuid.NewString(),
		Question:  req.Question,
		Mode:      mode,
		ClientKey: h.extractKey(r),
	})

	if errors.Is(result.Err, ratelimit.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.ErrorContext(ctx, "failed to encode query response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
