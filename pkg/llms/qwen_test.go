package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
)

func qwenFrame(content, finishReason string) string {
	frame, _ := json.Marshal(map[string]interface{}{
		"output": map[string]interface{}{
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": finishReason,
				},
			},
		},
	})
	// DashScope emits "data:" with no space after the colon.
	return fmt.Sprintf("id:1\nevent:result\ndata:%s\n\n", frame)
}

func TestNewQwenProviderFromConfig(t *testing.T) {
	if _, err := NewQwenProviderFromConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewQwenProviderFromConfig(&config.LLMProviderConfig{Model: "qwen-turbo"}); err == nil {
		t.Error("expected error for missing api key")
	}
}

func TestQwenStreamChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/services/aigc/text-generation/generation" {
			t.Errorf("path = %v", r.URL.Path)
		}
		if got := r.Header.Get("X-DashScope-SSE"); got != "enable" {
			t.Errorf("X-DashScope-SSE = %v, want enable", got)
		}

		var req qwenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Parameters.ResultFormat != "message" {
			t.Errorf("result_format = %v, want message", req.Parameters.ResultFormat)
		}
		if !req.Parameters.IncrementalOutput {
			t.Error("incremental_output should be requested")
		}

		fmt.Fprint(w, qwenFrame("你好", "null"))
		fmt.Fprint(w, qwenFrame("，世界", "stop"))
	}))
	defer server.Close()

	provider, err := NewQwenProviderFromConfig(testProviderConfig(t, "qwen", server.URL))
	if err != nil {
		t.Fatal(err)
	}

	content, err := provider.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "你好"}})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if content != "你好，世界" {
		t.Errorf("content = %q, want 你好，世界", content)
	}
}

func TestQwenAPIErrorFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data:{\"code\":\"Throttling\",\"message\":\"Requests throttled\"}\n\n")
	}))
	defer server.Close()

	provider, err := NewQwenProviderFromConfig(testProviderConfig(t, "qwen", server.URL))
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error from API error frame")
	}
	modelErr, ok := err.(*ModelError)
	if !ok || modelErr.Code != CodeStreamInterrupted {
		t.Errorf("error = %v, want stream_interrupted", err)
	}
}

func TestQwenBookkeepingLinesIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ":HTTP_STATUS/200\n")
		fmt.Fprint(w, "id:ignored\n")
		fmt.Fprint(w, qwenFrame("ok", "stop"))
	}))
	defer server.Close()

	provider, err := NewQwenProviderFromConfig(testProviderConfig(t, "qwen", server.URL))
	if err != nil {
		t.Fatal(err)
	}

	content, err := provider.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if content != "ok" {
		t.Errorf("content = %q, want ok", content)
	}
}
