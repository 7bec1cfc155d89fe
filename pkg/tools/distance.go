package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/protocol"
)

const earthRadiusKm = 6371.0

// DistanceArgs are the arguments of the calculate_distance tool.
type DistanceArgs struct {
	FromLat float64 `json:"from_lat" mapstructure:"from_lat" jsonschema:"description=Origin latitude"`
	FromLng float64 `json:"from_lng" mapstructure:"from_lng" jsonschema:"description=Origin longitude"`
	ToLat   float64 `json:"to_lat" mapstructure:"to_lat" jsonschema:"description=Destination latitude"`
	ToLng   float64 `json:"to_lng" mapstructure:"to_lng" jsonschema:"description=Destination longitude"`
}

// DistanceResult is the calculated great-circle distance.
type DistanceResult struct {
	DistanceKm float64 `json:"distance_km"`
}

// DistanceTool computes great-circle distance locally; no upstream involved.
type DistanceTool struct{}

func NewDistanceTool() *DistanceTool {
	return &DistanceTool{}
}

func (t *DistanceTool) Describe() protocol.ToolDescriptor {
	schema := protocol.MustReflectSchema(&DistanceArgs{})
	schema.Required = []string{"from_lat", "from_lng", "to_lat", "to_lng"}
	return protocol.ToolDescriptor{
		Name:        "calculate_distance",
		Description: "Calculate the great-circle distance between two coordinates in kilometers",
		InputSchema: schema,
	}
}

func (t *DistanceTool) Invoke(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var da DistanceArgs
	if err := mapstructure.Decode(args, &da); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := validateCoords(da); err != nil {
		return nil, err
	}

	return DistanceResult{DistanceKm: haversine(da.FromLat, da.FromLng, da.ToLat, da.ToLng)}, nil
}

func validateCoords(da DistanceArgs) error {
	for _, lat := range []float64{da.FromLat, da.ToLat} {
		if lat < -90 || lat > 90 {
			return fmt.Errorf("latitude %v out of range", lat)
		}
	}
	for _, lng := range []float64{da.FromLng, da.ToLng} {
		if lng < -180 || lng > 180 {
			return fmt.Errorf("longitude %v out of range", lng)
		}
	}
	return nil
}

func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusKm*c*100) / 100
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Register wires the built-in trip tools as one inline server on the
// protocol manager.
func Register(manager *protocol.Manager, cfg config.ServiceConfig) error {
	return manager.RegisterInline(ServerName,
		NewWeatherTool(cfg),
		NewPlacesTool(cfg),
		NewDistanceTool(),
	)
}
