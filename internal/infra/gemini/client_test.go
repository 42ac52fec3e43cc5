package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-butler/internal/domain"
	"voice-butler/internal/infra/gemini"
)

func TestClient_ChatStripsFences(t *testing.T) {
	var gotPath, gotKey string
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		json.NewDecoder(r.Body).Decode(&got)

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{
					map[string]any{"text": "```json\n{\"device\":\"light\",\"action\":\"on\",\"reply\":\"好\"}\n```"},
				}}},
			},
		})
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("secret", "gemini-test", server.URL, nil)

	reply, err := client.Chat(context.Background(), "system prompt", "开灯")
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}

	if reply != `{"device":"light","action":"on","reply":"好"}` {
		t.Errorf("reply: got %q", reply)
	}
	if gotPath != "/models/gemini-test:generateContent" || gotKey != "secret" {
		t.Errorf("request: path %q key %q", gotPath, gotKey)
	}
	if _, ok := got["systemInstruction"]; !ok {
		t.Error("system instruction missing from request")
	}
}

func TestClient_ChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("secret", "gemini-test", server.URL, nil)

	_, err := client.Chat(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("error: got %v, want ErrServiceUnavailable", err)
	}
}
