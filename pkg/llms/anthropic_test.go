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

func anthropicStreamBody(chunks ...string) string {
	var body string
	body += "event: message_start\ndata: {\"type\":\"message_start\"}\n\n"
	for _, chunk := range chunks {
		frame, _ := json.Marshal(map[string]interface{}{
			"type":  "content_block_delta",
			"delta": map[string]string{"type": "text_delta", "text": chunk},
		})
		body += fmt.Sprintf("event: content_block_delta\ndata: %s\n\n", frame)
	}
	body += "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"
	return body
}

func TestNewAnthropicProviderFromConfig(t *testing.T) {
	if _, err := NewAnthropicProviderFromConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewAnthropicProviderFromConfig(&config.LLMProviderConfig{Model: "claude"}); err == nil {
		t.Error("expected error for missing api key")
	}
}

func TestAnthropicStreamChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %v, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %v", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %v", got)
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.System != "be helpful" {
			t.Errorf("system = %q, want hoisted system message", req.System)
		}
		for _, msg := range req.Messages {
			if msg.Role == RoleSystem {
				t.Error("system messages must not remain in the messages list")
			}
		}

		fmt.Fprint(w, anthropicStreamBody("Salut", " monde"))
	}))
	defer server.Close()

	provider, err := NewAnthropicProviderFromConfig(testProviderConfig(t, "anthropic", server.URL))
	if err != nil {
		t.Fatal(err)
	}

	content, err := provider.ChatCompletion(context.Background(), []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "salut"},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if content != "Salut monde" {
		t.Errorf("content = %q, want %q", content, "Salut monde")
	}
}

func TestAnthropicErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"overloaded\"}}\n\n")
	}))
	defer server.Close()

	provider, err := NewAnthropicProviderFromConfig(testProviderConfig(t, "anthropic", server.URL))
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error from error event")
	}
	modelErr, ok := err.(*ModelError)
	if !ok || modelErr.Code != CodeStreamInterrupted {
		t.Errorf("error = %v, want stream_interrupted", err)
	}
}

func TestAnthropicStreamEndsWithoutStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No message_stop; what was delivered must still be kept.
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"tail\"}}\n\n")
	}))
	defer server.Close()

	provider, err := NewAnthropicProviderFromConfig(testProviderConfig(t, "anthropic", server.URL))
	if err != nil {
		t.Fatal(err)
	}

	content, err := provider.ChatCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if content != "tail" {
		t.Errorf("content = %q, want tail", content)
	}
}
