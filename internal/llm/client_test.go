package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskforge/internal/config"
)

// completionStub emulates an OpenAI-compatible chat-completions endpoint.
func completionStub(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("Expected bearer auth, got %q", auth)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Request body is not JSON: %v", err)
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  req["model"],
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Error(err)
		}
	}))
}

func testLLMConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		BaseURL:     baseURL,
		APIKey:      "sk-test",
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   8192,
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	cfg := testLLMConfig("")
	cfg.APIKey = ""

	if _, err := NewClient(cfg); err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}
}

func TestGenerate_ReturnsCompletion(t *testing.T) {
	ts := completionStub(t, "print('generated')", http.StatusOK)
	defer ts.Close()

	client, err := NewClient(testLLMConfig(ts.URL + "/v1"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	got, err := client.Generate(context.Background(), "write a script")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "print('generated')" {
		t.Errorf("Expected completion content, got %q", got)
	}
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	ts := completionStub(t, "", http.StatusInternalServerError)
	defer ts.Close()

	client, err := NewClient(testLLMConfig(ts.URL + "/v1"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Generate(context.Background(), "write a script"); err == nil {
		t.Fatal("Expected error from failing upstream, got nil")
	}
}
