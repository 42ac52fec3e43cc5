package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-butler/internal/domain"
	"voice-butler/internal/infra/anthropic"
)

func TestClaudeClient_Chat(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("x-api-key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)

		response := map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": `{"device":"fan","action":"on","reply":"风扇开了"}`},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "claude-test", server.URL, nil)

	reply, err := client.Chat(context.Background(), "system prompt", "打开风扇")
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}

	if reply != `{"device":"fan","action":"on","reply":"风扇开了"}` {
		t.Errorf("reply: got %q", reply)
	}
	if got["system"] != "system prompt" || got["model"] != "claude-test" {
		t.Errorf("request: got %v", got)
	}
}

func TestClaudeClient_ChatUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"authentication_error"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("wrong", "claude-test", server.URL, nil)

	_, err := client.Chat(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("error: got %v, want ErrServiceUnavailable", err)
	}
}

func TestClaudeClient_ChatEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("k", "claude-test", server.URL, nil)

	if _, err := client.Chat(context.Background(), "s", "u"); err == nil {
		t.Error("expected error for empty content")
	}
}
