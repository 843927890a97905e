package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_ChatWithMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("messages = %+v", req.Messages)
		}

		resp := ChatResponse{
			Choices: []ChatChoice{{Message: ChatChoiceMessage{Role: "assistant", Content: "hi"}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key", "test-model")
	got, err := c.ChatWithMessages(context.Background(),
		[]Message{{Role: "user", Content: "hello"}}, ChatParams{})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
	if got != "hi" {
		t.Errorf("ChatWithMessages() = %q, want hi", got)
	}
}

func TestClient_ChatWithMessages_ModelOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "override" {
			t.Errorf("model = %q, want override", req.Model)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: ChatChoiceMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "k", "default-model")
	if _, err := c.ChatWithMessages(context.Background(),
		[]Message{{Role: "user", Content: "x"}}, ChatParams{Model: "override"}); err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
}

func TestClient_ChatWithMessages_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, "k", "m")
	_, err := c.ChatWithMessages(context.Background(),
		[]Message{{Role: "user", Content: "x"}}, ChatParams{})
	if err == nil {
		t.Fatal("ChatWithMessages() should fail on 503")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %v, want status code included", err)
	}
}

func TestClient_ChatWithMessages_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{})
	}))
	defer server.Close()

	c := NewClient(server.URL, "k", "m")
	if _, err := c.ChatWithMessages(context.Background(),
		[]Message{{Role: "user", Content: "x"}}, ChatParams{}); err == nil {
		t.Fatal("ChatWithMessages() should fail when no choices are returned")
	}
}

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want a single user message", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: ChatChoiceMessage{Content: "sql"}}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "k", "m")
	got, err := c.Complete(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "sql" {
		t.Errorf("Complete() = %q, want sql", got)
	}
}
