package llms

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/httpclient"
)

// Provider is implemented by each supported model provider. StreamChat yields
// a lazy sequence of deltas; ChatCompletion concatenates the same stream.
type Provider interface {
	GetType() ProviderType

	GetModelName() string

	StreamChat(ctx context.Context, messages []Message) (<-chan StreamDelta, error)

	ChatCompletion(ctx context.Context, messages []Message) (string, error)

	Close() error
}

// collect drains a delta stream into the full response text.
func collect(ch <-chan StreamDelta) (string, error) {
	var sb strings.Builder
	for delta := range ch {
		if delta.Err != nil {
			return "", delta.Err
		}
		sb.WriteString(delta.Content)
	}
	return sb.String(), nil
}

// newProviderHTTPClient builds the retrying HTTP client shared by all
// providers, honoring the per-provider timeout and retry settings.
func newProviderHTTPClient(cfg *config.LLMProviderConfig, parser httpclient.RateLimitHeaderParser) *httpclient.Client {
	return httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Millisecond),
		httpclient.WithHeaderParser(parser),
	)
}
