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

// OpenAIProvider implements Provider against an OpenAI-compatible
// chat-completions endpoint.
type OpenAIProvider struct {
	config     *config.LLMProviderConfig
	httpClient *httpclient.Client
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type openAIStreamResponse struct {
	Choices []openAIStreamChoice `json:"choices"`
	Error   *openAIError         `json:"error,omitempty"`
}

type openAIStreamChoice struct {
	Delta        openAIDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type openAIDelta struct {
	Content string `json:"content,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	cfg := &config.LLMProviderConfig{
		Type:   string(ProviderOpenAI),
		Model:  model,
		APIKey: apiKey,
	}
	cfg.SetDefaults()
	return &OpenAIProvider{
		config:     cfg,
		httpClient: newProviderHTTPClient(cfg, httpclient.ParseOpenAIHeaders),
	}
}

func NewOpenAIProviderFromConfig(cfg *config.LLMProviderConfig) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for openai provider")
	}
	return &OpenAIProvider{
		config:     cfg,
		httpClient: newProviderHTTPClient(cfg, httpclient.ParseOpenAIHeaders),
	}, nil
}

func (p *OpenAIProvider) GetType() ProviderType {
	return ProviderOpenAI
}

func (p *OpenAIProvider) GetModelName() string {
	return p.config.Model
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	ch, err := p.StreamChat(ctx, messages)
	if err != nil {
		return "", err
	}
	return collect(ch)
}

func (p *OpenAIProvider) StreamChat(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	request := openAIRequest{
		Model:       p.config.Model,
		Messages:    messages,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
		Stream:      true,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.Host+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			drainAPIError(resp)
		}
		return nil, wrapTransportError(ProviderOpenAI, status, err)
	}

	outputCh := make(chan StreamDelta, 64)
	go func() {
		defer close(outputCh)
		defer resp.Body.Close()
		p.parseStream(resp.Body, outputCh)
	}()

	return outputCh, nil
}

// parseStream reads line-delimited SSE frames ("data: {...}") terminated by
// the "[DONE]" sentinel. Malformed frames are skipped.
func (p *OpenAIProvider) parseStream(body io.Reader, outputCh chan<- StreamDelta) {
	reader := bufio.NewReader(body)
	yielded := false

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			outputCh <- StreamDelta{Err: streamErrorFor(ProviderOpenAI, yielded, err)}
			return
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		line = line[6:]

		if bytes.Equal(line, []byte("[DONE]")) {
			break
		}

		var streamResp openAIStreamResponse
		if err := json.Unmarshal(line, &streamResp); err != nil {
			continue
		}

		if streamResp.Error != nil {
			outputCh <- StreamDelta{Err: streamError(ProviderOpenAI,
				fmt.Errorf("API error: %s", streamResp.Error.Message))}
			return
		}

		if len(streamResp.Choices) == 0 {
			continue
		}

		if content := streamResp.Choices[0].Delta.Content; content != "" {
			yielded = true
			outputCh <- StreamDelta{Content: content}
		}
	}

	outputCh <- StreamDelta{Done: true}
}

// streamErrorFor distinguishes failures before and after the first delta. A
// broken connection before any content is a retryable network error for the
// caller; after content has flowed it is a terminal interruption.
func streamErrorFor(provider ProviderType, yielded bool, err error) *ModelError {
	if yielded {
		return streamError(provider, err)
	}
	return wrapTransportError(provider, 0, err)
}

// drainAPIError consumes and discards an error response body so the
// connection can be reused.
func drainAPIError(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}
}
