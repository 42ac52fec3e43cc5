package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-butler/internal/domain"
	"voice-butler/internal/infra/ollama"
)

func TestClient_Chat(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "qwen2.5:1.5b",
			"message": map[string]string{"role": "assistant", "content": `{"device":"light","action":"on","reply":"好的"}`},
			"done":    true,
		})
	}))
	defer server.Close()

	client := ollama.NewClient(server.URL+"/", "qwen2.5:1.5b", nil)

	reply, err := client.Chat(context.Background(), "system prompt", "把灯打开")
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if reply != `{"device":"light","action":"on","reply":"好的"}` {
		t.Errorf("reply: got %q", reply)
	}

	if got["stream"] != false || got["model"] != "qwen2.5:1.5b" {
		t.Errorf("request: got %v", got)
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages: got %v", got["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" || first["content"] != "system prompt" {
		t.Errorf("system message: got %v", first)
	}
	if second, _ := msgs[1].(map[string]any); second["role"] != "user" || second["content"] != "把灯打开" {
		t.Errorf("user message: got %v", second)
	}
}

func TestClient_ChatErrors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}))
		defer server.Close()

		_, err := ollama.NewClient(server.URL, "missing", nil).Chat(context.Background(), "s", "u")
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("error: got %v, want ErrServiceUnavailable", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := ollama.NewClient(url, "", nil).Chat(context.Background(), "s", "u")
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("error: got %v, want ErrServiceUnavailable", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := ollama.NewClient(server.URL, "", nil).Chat(ctx, "s", "u")
		if !errors.Is(err, domain.ErrServiceTimeout) {
			t.Errorf("error: got %v, want ErrServiceTimeout", err)
		}
	})

	t.Run("bad envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>proxy error</html>"))
		}))
		defer server.Close()

		_, err := ollama.NewClient(server.URL, "", nil).Chat(context.Background(), "s", "u")
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("error: got %v, want ErrServiceUnavailable", err)
		}
	})
}
