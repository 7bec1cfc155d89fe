package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/llms"
	"github.com/wayfarer-ai/wayfarer/pkg/observability"
	"github.com/wayfarer-ai/wayfarer/pkg/orchestrator"
	"github.com/wayfarer-ai/wayfarer/pkg/trip"
)

type scriptedProvider struct{}

func (p *scriptedProvider) GetType() llms.ProviderType { return llms.ProviderQwen }
func (p *scriptedProvider) GetModelName() string       { return "scripted" }
func (p *scriptedProvider) Close() error               { return nil }

func (p *scriptedProvider) StreamChat(ctx context.Context, messages []llms.Message) (<-chan llms.StreamDelta, error) {
	ch := make(chan llms.StreamDelta, 2)
	go func() {
		defer close(ch)
		ch <- llms.StreamDelta{Content: "section text"}
		ch <- llms.StreamDelta{Done: true}
	}()
	return ch, nil
}

func (p *scriptedProvider) ChatCompletion(ctx context.Context, messages []llms.Message) (string, error) {
	return "section text", nil
}

type fakeStore struct {
	trips map[string]*trip.Trip
}

func newFakeStore() *fakeStore {
	return &fakeStore{trips: make(map[string]*trip.Trip)}
}

func (s *fakeStore) SaveTrip(ctx context.Context, t *trip.Trip) error {
	if t.ID == "" {
		t.ID = fmt.Sprintf("trip-%d", len(s.trips)+1)
	}
	s.trips[t.ID] = t
	return nil
}

func (s *fakeStore) LoadTrips(ctx context.Context) ([]*trip.Trip, error) {
	out := make([]*trip.Trip, 0, len(s.trips))
	for _, t := range s.trips {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) LoadTrip(ctx context.Context, id string) (*trip.Trip, error) {
	t, ok := s.trips[id]
	if !ok {
		return nil, trip.ErrNotFound
	}
	return t, nil
}

func (s *fakeStore) DeleteTrip(ctx context.Context, id string) error {
	if _, ok := s.trips[id]; !ok {
		return trip.ErrNotFound
	}
	delete(s.trips, id)
	return nil
}

func (s *fakeStore) SavePreferences(ctx context.Context, p trip.Preferences) error { return nil }

func (s *fakeStore) LoadPreferences(ctx context.Context) (trip.Preferences, error) {
	return trip.Preferences{}, nil
}

func (s *fakeStore) Close() error { return nil }

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()

	cfg := config.OrchestratorConfig{}
	cfg.SetDefaults()
	orch, err := orchestrator.New(&scriptedProvider{}, nil, cfg)
	if err != nil {
		t.Fatalf("orchestrator.New() error: %v", err)
	}

	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, orch, opts...)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func readSSEEvents(t *testing.T, resp *http.Response) []orchestrator.Event {
	t.Helper()
	var events []orchestrator.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev orchestrator.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad SSE frame %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status body = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, WithMetrics(observability.NewMetrics()))

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestChatStreamsEvents(t *testing.T) {
	ts := newTestServer(t)

	body := `{"message": "5 days in Tokyo, love food"}`
	resp, err := http.Post(ts.URL+"/v1/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}

	events := readSSEEvents(t, resp)
	if len(events) == 0 {
		t.Fatal("no events streamed")
	}

	last := events[len(events)-1]
	if last.Type != orchestrator.EventDone {
		t.Errorf("last event type = %s, want done", last.Type)
	}
	if last.Progress != 100 {
		t.Errorf("final progress = %d, want 100", last.Progress)
	}

	var sawChunk bool
	for _, ev := range events {
		if ev.Type == orchestrator.EventChunk && ev.Content != "" {
			sawChunk = true
		}
	}
	if !sawChunk {
		t.Error("expected at least one content chunk")
	}
}

func TestChatAsksQuestion(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/chat", "application/json",
		strings.NewReader(`{"message": "plan me a trip"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	events := readSSEEvents(t, resp)
	if len(events) != 1 {
		t.Fatalf("got %d events, want one question", len(events))
	}
	if events[0].Type != orchestrator.EventQuestion || events[0].Question == nil {
		t.Fatalf("event = %+v, want question", events[0])
	}
	if events[0].Question.ContextKey != "destination" {
		t.Errorf("question key = %s, want destination", events[0].Question.ContextKey)
	}
}

func TestChatRejectsBadBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/chat", "application/json", strings.NewReader("{broken"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatRejectsEmptyTurn(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/chat", "application/json", strings.NewReader(`{"message": ""}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTripsEndpoints(t *testing.T) {
	store := newFakeStore()
	saved := &trip.Trip{Destination: "Kyoto", Days: 4, Itinerary: "plan", CreatedAt: time.Now()}
	if err := store.SaveTrip(context.Background(), saved); err != nil {
		t.Fatal(err)
	}

	ts := newTestServer(t, WithStore(store))

	resp, err := http.Get(ts.URL + "/v1/trips")
	if err != nil {
		t.Fatal(err)
	}
	var listing struct {
		Trips []*trip.Trip `json:"trips"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(listing.Trips) != 1 || listing.Trips[0].Destination != "Kyoto" {
		t.Fatalf("listing = %+v", listing)
	}

	resp, err = http.Get(ts.URL + "/v1/trips/" + saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	var got trip.Trip
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got.Destination != "Kyoto" {
		t.Errorf("trip = %+v", got)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/trips/"+saved.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/v1/trips/" + saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestTripsDisabledWithoutStore(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/trips")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}
