package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/httpclient"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider implements Provider against the Anthropic messages API.
type AnthropicProvider struct {
	config     *config.LLMProviderConfig
	httpClient *httpclient.Client
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
}

// anthropicStreamEvent is the union of the event payloads we care about.
// Anthropic frames carry an event name line followed by a data line; the
// payload type field repeats the event name.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	cfg := &config.LLMProviderConfig{
		Type:   string(ProviderAnthropic),
		Model:  model,
		APIKey: apiKey,
	}
	cfg.SetDefaults()
	return &AnthropicProvider{
		config:     cfg,
		httpClient: newProviderHTTPClient(cfg, httpclient.ParseAnthropicHeaders),
	}
}

func NewAnthropicProviderFromConfig(cfg *config.LLMProviderConfig) (*AnthropicProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for anthropic provider")
	}
	return &AnthropicProvider{
		config:     cfg,
		httpClient: newProviderHTTPClient(cfg, httpclient.ParseAnthropicHeaders),
	}, nil
}

func (p *AnthropicProvider) GetType() ProviderType {
	return ProviderAnthropic
}

func (p *AnthropicProvider) GetModelName() string {
	return p.config.Model
}

func (p *AnthropicProvider) Close() error {
	return nil
}

func (p *AnthropicProvider) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	ch, err := p.StreamChat(ctx, messages)
	if err != nil {
		return "", err
	}
	return collect(ch)
}

func (p *AnthropicProvider) StreamChat(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	request := p.buildRequest(messages)

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.Host+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			drainAPIError(resp)
		}
		return nil, wrapTransportError(ProviderAnthropic, status, err)
	}

	outputCh := make(chan StreamDelta, 64)
	go func() {
		defer close(outputCh)
		defer resp.Body.Close()
		p.parseStream(resp.Body, outputCh)
	}()

	return outputCh, nil
}

// buildRequest hoists system messages into the top-level system field, which
// the messages API requires.
func (p *AnthropicProvider) buildRequest(messages []Message) anthropicRequest {
	request := anthropicRequest{
		Model:       p.config.Model,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
		Stream:      true,
	}

	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if request.System != "" {
				request.System += "\n\n"
			}
			request.System += msg.Content
			continue
		}
		request.Messages = append(request.Messages, msg)
	}

	return request
}

func (p *AnthropicProvider) parseStream(body io.Reader, outputCh chan<- StreamDelta) {
	reader := bufio.NewReader(body)
	yielded := false

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Stream ended without message_stop; treat as complete
				// rather than dropping what was already delivered.
				break
			}
			outputCh <- StreamDelta{Err: streamErrorFor(ProviderAnthropic, yielded, err)}
			return
		}

		line = bytes.TrimSpace(line)
		// Event name lines are redundant with the payload type field.
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		line = line[6:]

		var event anthropicStreamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				yielded = true
				outputCh <- StreamDelta{Content: event.Delta.Text}
			}
		case "message_stop":
			outputCh <- StreamDelta{Done: true}
			return
		case "error":
			msg := "unknown error"
			if event.Error != nil {
				msg = event.Error.Message
			}
			outputCh <- StreamDelta{Err: streamError(ProviderAnthropic,
				fmt.Errorf("API error: %s", msg))}
			return
		}
	}

	outputCh <- StreamDelta{Done: true}
}
