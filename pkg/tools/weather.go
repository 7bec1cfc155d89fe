// Package tools provides the built-in inline tool servers: weather lookup,
// place search, and distance calculation. The protocol layer knows nothing
// about their semantics, only their descriptor/handler contract.
package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/httpclient"
	"github.com/wayfarer-ai/wayfarer/pkg/protocol"
)

// ServerName is the inline server all trip tools register under.
const ServerName = "trip-services"

// WeatherArgs are the arguments of the get_weather tool.
type WeatherArgs struct {
	City string `json:"city" jsonschema:"description=City to look up"`
	Days int    `json:"days,omitempty" jsonschema:"description=Forecast days"`
}

// WeatherTool looks up a weather forecast through the upstream proxy.
type WeatherTool struct {
	endpoint string
	client   *httpclient.Client
}

func NewWeatherTool(cfg config.ServiceConfig) *WeatherTool {
	return &WeatherTool{
		endpoint: cfg.WeatherURL,
		client:   newServiceClient(cfg),
	}
}

func (t *WeatherTool) Describe() protocol.ToolDescriptor {
	schema := protocol.MustReflectSchema(&WeatherArgs{})
	schema.Required = []string{"city"}
	return protocol.ToolDescriptor{
		Name:        "get_weather",
		Description: "Get the weather forecast for a city",
		InputSchema: schema,
	}
}

func (t *WeatherTool) Invoke(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var wa WeatherArgs
	if err := mapstructure.Decode(args, &wa); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if wa.City == "" {
		return nil, fmt.Errorf("city is required")
	}
	if wa.Days <= 0 {
		wa.Days = 3
	}

	query := url.Values{}
	query.Set("city", wa.City)
	query.Set("days", strconv.Itoa(wa.Days))

	return fetchText(ctx, t.client, t.endpoint+"?"+query.Encode())
}

// newServiceClient builds the retrying HTTP client the upstream tools share.
func newServiceClient(cfg config.ServiceConfig) *httpclient.Client {
	return httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithBaseDelay(time.Second),
	)
}

// fetchText performs a GET and returns the response body as text.
func fetchText(ctx context.Context, client *httpclient.Client, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read upstream response: %w", err)
	}
	return string(body), nil
}
