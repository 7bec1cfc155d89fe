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

// QwenProvider implements Provider against the DashScope native
// text-generation API used by the Qwen model family.
type QwenProvider struct {
	config     *config.LLMProviderConfig
	httpClient *httpclient.Client
}

type qwenRequest struct {
	Model      string         `json:"model"`
	Input      qwenInput      `json:"input"`
	Parameters qwenParameters `json:"parameters"`
}

type qwenInput struct {
	Messages []Message `json:"messages"`
}

type qwenParameters struct {
	ResultFormat      string  `json:"result_format"`
	IncrementalOutput bool    `json:"incremental_output"`
	MaxTokens         int     `json:"max_tokens,omitempty"`
	Temperature       float64 `json:"temperature,omitempty"`
}

type qwenStreamResponse struct {
	Output struct {
		Choices []struct {
			Message      Message `json:"message"`
			FinishReason string  `json:"finish_reason"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewQwenProvider(apiKey, model string) *QwenProvider {
	cfg := &config.LLMProviderConfig{
		Type:   string(ProviderQwen),
		Model:  model,
		APIKey: apiKey,
	}
	cfg.SetDefaults()
	return &QwenProvider{
		config:     cfg,
		httpClient: newProviderHTTPClient(cfg, httpclient.ParseOpenAIHeaders),
	}
}

func NewQwenProviderFromConfig(cfg *config.LLMProviderConfig) (*QwenProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for qwen provider")
	}
	return &QwenProvider{
		config:     cfg,
		httpClient: newProviderHTTPClient(cfg, httpclient.ParseOpenAIHeaders),
	}, nil
}

func (p *QwenProvider) GetType() ProviderType {
	return ProviderQwen
}

func (p *QwenProvider) GetModelName() string {
	return p.config.Model
}

func (p *QwenProvider) Close() error {
	return nil
}

func (p *QwenProvider) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	ch, err := p.StreamChat(ctx, messages)
	if err != nil {
		return "", err
	}
	return collect(ch)
}

func (p *QwenProvider) StreamChat(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	request := qwenRequest{
		Model: p.config.Model,
		Input: qwenInput{Messages: messages},
		Parameters: qwenParameters{
			ResultFormat:      "message",
			IncrementalOutput: true,
			MaxTokens:         p.config.MaxTokens,
			Temperature:       p.config.Temperature,
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.Host+"/api/v1/services/aigc/text-generation/generation",
		bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	req.Header.Set("X-DashScope-SSE", "enable")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			drainAPIError(resp)
		}
		return nil, wrapTransportError(ProviderQwen, status, err)
	}

	outputCh := make(chan StreamDelta, 64)
	go func() {
		defer close(outputCh)
		defer resp.Body.Close()
		p.parseStream(resp.Body, outputCh)
	}()

	return outputCh, nil
}

// parseStream reads DashScope SSE frames. DashScope emits "data:{...}"
// without a space after the colon and interleaves id:/event:/:HTTP_STATUS
// bookkeeping lines, all of which are skipped.
func (p *QwenProvider) parseStream(body io.Reader, outputCh chan<- StreamDelta) {
	reader := bufio.NewReader(body)
	yielded := false

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			outputCh <- StreamDelta{Err: streamErrorFor(ProviderQwen, yielded, err)}
			return
		}

		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		line = bytes.TrimSpace(line[5:])
		if len(line) == 0 {
			continue
		}

		var streamResp qwenStreamResponse
		if err := json.Unmarshal(line, &streamResp); err != nil {
			continue
		}

		if streamResp.Code != "" {
			outputCh <- StreamDelta{Err: streamError(ProviderQwen,
				fmt.Errorf("API error %s: %s", streamResp.Code, streamResp.Message))}
			return
		}

		if len(streamResp.Output.Choices) == 0 {
			continue
		}

		choice := streamResp.Output.Choices[0]
		if choice.Message.Content != "" {
			yielded = true
			outputCh <- StreamDelta{Content: choice.Message.Content}
		}

		if choice.FinishReason == "stop" {
			break
		}
	}

	outputCh <- StreamDelta{Done: true}
}
