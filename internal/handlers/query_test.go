package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"askdata-ai/internal/ratelimit"
	"askdata-ai/internal/resolver"
)

func init() {
	// Silence log output during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// scriptedResolver replays a fixed result and records the request it saw.
type scriptedResolver struct {
	result resolver.Result
	last   resolver.Request
}

func (s *scriptedResolver) Resolve(_ context.Context, req resolver.Request) resolver.Result {
	s.last = req
	res := s.result
	res.ID = req.ID
	res.Question = req.Question
	res.Mode = req.Mode
	return res
}

func postQuery(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/query", &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestQueryHandler_ServeHTTP(t *testing.T) {
	sr := &scriptedResolver{result: resolver.Result{
		Success:  true,
		Answer:   "John Doe has 2 orders.",
		Strategy: resolver.StrategySQL,
	}}
	h := NewQueryHandler(sr, nil)

	w := postQuery(t, h, QueryRequest{Question: "How many orders does John Doe have?", Mode: "HYBRID_ENHANCED"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var result resolver.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.Answer != "John Doe has 2 orders." {
		t.Errorf("result = %+v", result)
	}
	if sr.last.Mode != resolver.ModeHybridEnhanced {
		t.Errorf("mode = %q, want HYBRID_ENHANCED", sr.last.Mode)
	}
	if sr.last.ID == "" {
		t.Error("request forwarded without an ID")
	}
}

func TestQueryHandler_DefaultsToEnhancedMode(t *testing.T) {
	sr := &scriptedResolver{result: resolver.Result{Success: true}}
	h := NewQueryHandler(sr, nil)

	if w := postQuery(t, h, QueryRequest{Question: "q"}); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if sr.last.Mode != resolver.ModeHybridEnhanced {
		t.Errorf("mode = %q, want HYBRID_ENHANCED", sr.last.Mode)
	}
}

func TestQueryHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "invalid json", body: "{not json"},
		{name: "missing question", body: QueryRequest{Mode: "RAG"}},
		{name: "unknown mode", body: QueryRequest{Question: "q", Mode: "ORACLE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := &scriptedResolver{}
			h := NewQueryHandler(sr, nil)

			if w := postQuery(t, h, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestQueryHandler_MethodNotAllowed(t *testing.T) {
	h := NewQueryHandler(&scriptedResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestQueryHandler_RateLimited(t *testing.T) {
	sr := &scriptedResolver{result: resolver.Result{
		Success:       false,
		Err:           ratelimit.ErrRateLimited,
		FailureReason: "request rejected by rate limiter",
	}}
	h := NewQueryHandler(sr, nil)

	w := postQuery(t, h, QueryRequest{Question: "q"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestQueryHandler_PathFailureStaysHTTP200(t *testing.T) {
	sr := &scriptedResolver{result: resolver.Result{
		Success:        false,
		FailureReason:  "sql path failed: execution error",
		FailedStrategy: resolver.StrategySQL,
	}}
	h := NewQueryHandler(sr, nil)

	w := postQuery(t, h, QueryRequest{Question: "q", Mode: "SQL_AGENT"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with failure attribution in the body", w.Code)
	}

	var result resolver.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Success {
		t.Error("Success = true, want false")
	}
	if result.FailedStrategy != resolver.StrategySQL {
		t.Errorf("FailedStrategy = %q, want sql", result.FailedStrategy)
	}
}

func TestQueryHandler_ClientIPKey(t *testing.T) {
	sr := &scriptedResolver{result: resolver.Result{Success: true}}
	h := NewQueryHandler(sr, ClientIPKey)

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(QueryRequest{Question: "q"})
	req := httptest.NewRequest(http.MethodPost, "/api/query", &buf)
	req.RemoteAddr = "203.0.113.9:4711"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if sr.last.ClientKey != "203.0.113.9:4711" {
		t.Errorf("ClientKey = %q, want the remote address", sr.last.ClientKey)
	}
}
