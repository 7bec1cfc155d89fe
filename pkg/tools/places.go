package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/httpclient"
	"github.com/wayfarer-ai/wayfarer/pkg/protocol"
)

// PlacesArgs are the arguments of the search_places tool.
type PlacesArgs struct {
	City  string `json:"city" jsonschema:"description=City to search in"`
	Query string `json:"query,omitempty" jsonschema:"description=Free-text search query"`
	Kind  string `json:"kind,omitempty" mapstructure:"kind" jsonschema:"description=Place kind,enum=hotel,enum=restaurant,enum=attraction"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum results"`
}

// PlacesTool searches places and hotels through the upstream proxy.
type PlacesTool struct {
	endpoint string
	client   *httpclient.Client
}

func NewPlacesTool(cfg config.ServiceConfig) *PlacesTool {
	return &PlacesTool{
		endpoint: cfg.PlacesURL,
		client:   newServiceClient(cfg),
	}
}

func (t *PlacesTool) Describe() protocol.ToolDescriptor {
	schema := protocol.MustReflectSchema(&PlacesArgs{})
	schema.Required = []string{"city"}
	return protocol.ToolDescriptor{
		Name:        "search_places",
		Description: "Search for hotels, restaurants, or attractions in a city",
		InputSchema: schema,
	}
}

func (t *PlacesTool) Invoke(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var pa PlacesArgs
	if err := mapstructure.Decode(args, &pa); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if pa.City == "" {
		return nil, fmt.Errorf("city is required")
	}
	if pa.Limit <= 0 || pa.Limit > 20 {
		pa.Limit = 10
	}

	query := url.Values{}
	query.Set("city", pa.City)
	query.Set("limit", strconv.Itoa(pa.Limit))
	if pa.Query != "" {
		query.Set("q", pa.Query)
	}
	if pa.Kind != "" {
		query.Set("kind", pa.Kind)
	}

	return fetchText(ctx, t.client, t.endpoint+"?"+query.Encode())
}
