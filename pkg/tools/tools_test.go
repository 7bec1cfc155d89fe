package tools

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/protocol"
)

func serviceConfig(weatherURL, placesURL string) config.ServiceConfig {
	cfg := config.ServiceConfig{
		WeatherURL: weatherURL,
		PlacesURL:  placesURL,
		Timeout:    5,
		MaxRetries: 1,
	}
	return cfg
}

func TestWeatherToolInvoke(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"city": r.URL.Query().Get("city"),
			"days": r.URL.Query().Get("days"),
		}
		w.Write([]byte("Tokyo: sunny, 22C"))
	}))
	defer srv.Close()

	tool := NewWeatherTool(serviceConfig(srv.URL, srv.URL))
	result, err := tool.Invoke(context.Background(), map[string]interface{}{
		"city": "Tokyo",
		"days": 5,
	})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	if result != "Tokyo: sunny, 22C" {
		t.Errorf("result = %v", result)
	}
	if gotQuery["city"] != "Tokyo" || gotQuery["days"] != "5" {
		t.Errorf("query = %v", gotQuery)
	}
}

func TestWeatherToolDefaultsDays(t *testing.T) {
	var days string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		days = r.URL.Query().Get("days")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tool := NewWeatherTool(serviceConfig(srv.URL, srv.URL))
	if _, err := tool.Invoke(context.Background(), map[string]interface{}{"city": "Paris"}); err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if days != "3" {
		t.Errorf("days = %q, want default 3", days)
	}
}

func TestWeatherToolRequiresCity(t *testing.T) {
	tool := NewWeatherTool(serviceConfig("http://localhost:1", "http://localhost:1"))
	if _, err := tool.Invoke(context.Background(), map[string]interface{}{}); err == nil {
		t.Fatal("expected error for missing city")
	}
}

func TestWeatherToolDescriptor(t *testing.T) {
	desc := NewWeatherTool(config.ServiceConfig{}).Describe()
	if desc.Name != "get_weather" {
		t.Errorf("Name = %q", desc.Name)
	}
	if desc.InputSchema == nil || desc.InputSchema.Type != "object" {
		t.Fatal("expected object input schema")
	}
	if len(desc.InputSchema.Required) != 1 || desc.InputSchema.Required[0] != "city" {
		t.Errorf("Required = %v, want [city]", desc.InputSchema.Required)
	}
	if _, ok := desc.InputSchema.Properties["city"]; !ok {
		t.Error("schema missing city property")
	}
}

func TestPlacesToolInvoke(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"city": q.Get("city"), "kind": q.Get("kind"),
			"q": q.Get("q"), "limit": q.Get("limit"),
		}
		w.Write([]byte("1. Senso-ji Temple"))
	}))
	defer srv.Close()

	tool := NewPlacesTool(serviceConfig(srv.URL, srv.URL))
	result, err := tool.Invoke(context.Background(), map[string]interface{}{
		"city":  "Tokyo",
		"kind":  "attraction",
		"query": "temple",
		"limit": 5,
	})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	if result != "1. Senso-ji Temple" {
		t.Errorf("result = %v", result)
	}
	if got["city"] != "Tokyo" || got["kind"] != "attraction" || got["q"] != "temple" || got["limit"] != "5" {
		t.Errorf("query = %v", got)
	}
}

func TestPlacesToolClampsLimit(t *testing.T) {
	var limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tool := NewPlacesTool(serviceConfig(srv.URL, srv.URL))
	if _, err := tool.Invoke(context.Background(), map[string]interface{}{"city": "Rome", "limit": 100}); err != nil {
		t.Fatal(err)
	}
	if limit != "10" {
		t.Errorf("limit = %q, want clamped 10", limit)
	}
}

func TestDistanceToolInvoke(t *testing.T) {
	tool := NewDistanceTool()

	// Narita airport to central Tokyo, roughly 60km.
	result, err := tool.Invoke(context.Background(), map[string]interface{}{
		"from_lat": 35.7653, "from_lng": 140.3856,
		"to_lat": 35.6762, "to_lng": 139.6503,
	})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	dist, ok := result.(DistanceResult)
	if !ok {
		t.Fatalf("result type = %T", result)
	}
	if dist.DistanceKm < 55 || dist.DistanceKm > 70 {
		t.Errorf("DistanceKm = %v, want roughly 60", dist.DistanceKm)
	}
}

func TestDistanceToolZeroDistance(t *testing.T) {
	result, err := NewDistanceTool().Invoke(context.Background(), map[string]interface{}{
		"from_lat": 48.8566, "from_lng": 2.3522,
		"to_lat": 48.8566, "to_lng": 2.3522,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.(DistanceResult).DistanceKm != 0 {
		t.Errorf("DistanceKm = %v, want 0", result.(DistanceResult).DistanceKm)
	}
}

func TestDistanceToolRejectsOutOfRange(t *testing.T) {
	tests := []map[string]interface{}{
		{"from_lat": 91.0, "from_lng": 0.0, "to_lat": 0.0, "to_lng": 0.0},
		{"from_lat": 0.0, "from_lng": -181.0, "to_lat": 0.0, "to_lng": 0.0},
		{"from_lat": 0.0, "from_lng": 0.0, "to_lat": -95.0, "to_lng": 0.0},
	}
	for _, args := range tests {
		if _, err := NewDistanceTool().Invoke(context.Background(), args); err == nil {
			t.Errorf("expected range error for %v", args)
		}
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Paris to London is about 344km.
	d := haversine(48.8566, 2.3522, 51.5074, -0.1278)
	if math.Abs(d-344) > 5 {
		t.Errorf("haversine = %v, want about 344", d)
	}
}

func TestRegisterWiresAllTools(t *testing.T) {
	manager := protocol.NewManager()

	if err := Register(manager, config.ServiceConfig{}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	tools, err := manager.ListTools(context.Background(), ServerName)
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	names := make(map[string]bool, len(tools))
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"get_weather", "search_places", "calculate_distance"} {
		if !names[want] {
			t.Errorf("missing registered tool %s", want)
		}
	}
}
