package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/intake"
	"github.com/wayfarer-ai/wayfarer/pkg/llms"
	"github.com/wayfarer-ai/wayfarer/pkg/logger"
	"github.com/wayfarer-ai/wayfarer/pkg/observability"
	"github.com/wayfarer-ai/wayfarer/pkg/progress"
	"github.com/wayfarer-ai/wayfarer/pkg/protocol"
	"github.com/wayfarer-ai/wayfarer/pkg/tools"
	"github.com/wayfarer-ai/wayfarer/pkg/trip"
)

// Orchestrator runs planning turns. It owns no mutable cross-turn state;
// accumulated context travels with each RunInput.
type Orchestrator struct {
	llm       llms.Provider
	tools     *protocol.Manager
	tracker   *progress.Tracker
	collector *intake.Collector
	store     trip.Store
	metrics   *observability.Metrics
	cfg       config.OrchestratorConfig
	logger    *slog.Logger
}

type Option func(*Orchestrator)

// WithStore enables trip persistence after successful runs.
func WithStore(s trip.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithTracker(t *progress.Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

func New(llm llms.Provider, toolManager *protocol.Manager, cfg config.OrchestratorConfig, opts ...Option) (*Orchestrator, error) {
	if llm == nil {
		return nil, fmt.Errorf("orchestrator requires a model provider")
	}
	o := &Orchestrator{
		llm:       llm,
		tools:     toolManager,
		tracker:   progress.NewTracker(),
		collector: intake.NewCollector(),
		cfg:       cfg,
		logger:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Tracker exposes the progress tracker for external observers.
func (o *Orchestrator) Tracker() *progress.Tracker {
	return o.tracker
}

type roleOutput struct {
	Role string
	Text string
}

// Run executes one planning turn and returns its event sequence. When
// required context is missing the sequence contains only the next question;
// otherwise it carries role-tagged chunks, phase transitions, and a single
// terminal done event. The channel is always closed when the turn ends.
func (o *Orchestrator) Run(ctx context.Context, in RunInput) (<-chan Event, error) {
	if strings.TrimSpace(in.Message) == "" && len(in.Context) == 0 {
		return nil, fmt.Errorf("empty turn: no message and no context")
	}
	if in.SessionID == "" {
		in.SessionID = uuid.New().String()
	}

	result := o.collector.Validate(in.Message, in.Context, in.Preferences)

	events := make(chan Event, 16)
	if !result.IsComplete {
		seq := o.collector.BuildQuestions(result.Missing)
		q := seq.Current()
		o.logger.Info("turn needs clarification", "session", in.SessionID, "question", q.ContextKey)
		events <- Event{Type: EventQuestion, Question: q, Context: result.Merged}
		close(events)
		return events, nil
	}

	go o.run(ctx, in, result.Merged, events)
	return events, nil
}

func (o *Orchestrator) run(ctx context.Context, in RunInput, merged map[string]interface{}, events chan<- Event) {
	defer close(events)

	defs := make([]progress.PhaseDef, 0, len(roleSequence))
	for _, r := range roleSequence {
		defs = append(defs, progress.PhaseDef{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			AgentType:   r.ID,
		})
	}
	o.tracker.StartSession(in.SessionID, defs)

	outputs := make([]roleOutput, 0, len(roleSequence))
	for _, role := range roleSequence {
		text, err := o.runPhase(ctx, role, in, merged, outputs, events)
		if err != nil {
			// Only cancellation aborts the run; model failures already
			// degraded to a fallback inside runPhase.
			o.tracker.FailSession("cancelled")
			o.metrics.RecordSession("cancelled")
			o.emit(ctx, events, Event{Type: EventError, Role: role.ID, Content: "run cancelled"})
			return
		}
		outputs = append(outputs, roleOutput{Role: role.ID, Text: text})
	}

	o.tracker.CompleteSession()
	o.metrics.RecordSession("completed")

	if o.store != nil && o.cfg.SaveTrips {
		if err := o.saveTrip(ctx, merged, outputs); err != nil {
			o.logger.Warn("failed to save trip", "session", in.SessionID, "error", err)
			o.emit(ctx, events, Event{Type: EventError, Content: fmt.Sprintf("trip not saved: %v", err)})
		}
	}

	o.emit(ctx, events, Event{Type: EventDone, Progress: o.tracker.TotalProgress(), Context: merged})
}

// runPhase drives one role: phase open, optional tool calls, prompt, stream.
// A non-nil error means the run was cancelled; model failures degrade to a
// labeled fallback and complete the phase normally.
func (o *Orchestrator) runPhase(ctx context.Context, role roleDef, in RunInput, merged map[string]interface{}, outputs []roleOutput, events chan<- Event) (string, error) {
	started := time.Now()
	o.tracker.StartPhase(role.ID)
	o.emit(ctx, events, Event{Type: EventPhase, Phase: role.ID, Status: "in_progress", Progress: o.tracker.TotalProgress()})

	var toolNotes string
	if role.ID == RolePlanner && o.tools != nil {
		toolNotes = o.gatherPlannerData(ctx, role.ID, merged)
		if err := ctx.Err(); err != nil {
			o.failPhaseCancelled(role.ID, started)
			return "", err
		}
		o.tracker.UpdatePhaseProgress(role.ID, 40)
	}

	messages := o.buildMessages(role.ID, in, merged, toolNotes, outputs)
	text, err := o.streamRole(ctx, role.ID, messages, events)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			o.failPhaseCancelled(role.ID, started)
			return "", err
		}
		o.logger.Warn("model unavailable, using fallback", "role", role.ID, "error", err)
		o.metrics.RecordModelError(string(o.llm.GetType()), modelErrorCode(err))
		text = fallbackReply(role.ID, merged)
		o.emit(ctx, events, Event{Type: EventChunk, Role: role.ID, Content: text})
	}

	o.tracker.CompletePhase(role.ID, map[string]interface{}{"chars": len(text)})
	o.metrics.RecordPhase(role.ID, string(progress.PhaseCompleted), time.Since(started))
	o.emit(ctx, events, Event{Type: EventPhase, Phase: role.ID, Status: string(progress.PhaseCompleted), Progress: o.tracker.TotalProgress()})
	return text, nil
}

func (o *Orchestrator) failPhaseCancelled(phaseID string, started time.Time) {
	o.tracker.CancelRunningToolCalls(phaseID)
	o.tracker.FailPhase(phaseID, "cancelled")
	o.metrics.RecordPhase(phaseID, string(progress.PhaseFailed), time.Since(started))
}

// streamRole consumes one model stream and forwards role-tagged chunks.
func (o *Orchestrator) streamRole(ctx context.Context, role string, messages []llms.Message, events chan<- Event) (string, error) {
	started := time.Now()
	stream, err := o.llm.StreamChat(ctx, messages)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return sb.String(), ctx.Err()
		case delta, ok := <-stream:
			if !ok {
				return sb.String(), nil
			}
			if delta.Err != nil {
				return sb.String(), delta.Err
			}
			if delta.Done {
				out := sb.String()
				o.metrics.RecordModelRequest(string(o.llm.GetType()), time.Since(started),
					llms.EstimateTokens(o.cfg.TokenModel, messages),
					llms.EstimateTokens(o.cfg.TokenModel, []llms.Message{{Role: llms.RoleAssistant, Content: out}}))
				return out, nil
			}
			if delta.Content != "" {
				sb.WriteString(delta.Content)
				o.emit(ctx, events, Event{Type: EventChunk, Role: role, Content: delta.Content})
			}
		}
	}
}

// gatherPlannerData issues the planner's tool calls concurrently. Individual
// failures are reported in the notes but never abort the phase.
func (o *Orchestrator) gatherPlannerData(ctx context.Context, phaseID string, merged map[string]interface{}) string {
	city, _ := merged["destination"].(string)
	days := asInt(merged["days"])
	if days <= 0 {
		days = 3
	}

	type call struct {
		label string
		tool  string
		args  map[string]interface{}
	}
	calls := []call{
		{"weather", "get_weather", map[string]interface{}{"city": city, "days": days}},
		{"places", "search_places", map[string]interface{}{"city": city, "kind": "attraction"}},
	}
	if coords, ok := cityCoords[strings.ToLower(city)]; ok {
		calls = append(calls, call{"distance", "calculate_distance", map[string]interface{}{
			"from_lat": coords.AirportLat, "from_lng": coords.AirportLng,
			"to_lat": coords.CenterLat, "to_lng": coords.CenterLng,
		}})
	}

	timeout := time.Duration(o.cfg.ToolTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	notes := make([]string, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range calls {
		i, c := i, c
		id := o.tracker.AddToolCall(c.tool, phaseID, c.args)
		g.Go(func() error {
			o.tracker.StartToolCall(id)
			callCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			// Tool metrics are recorded by the protocol manager's observer,
			// not here.
			result, err := o.tools.CallTool(callCtx, tools.ServerName, c.tool, c.args, nil)
			if err != nil {
				o.tracker.FailToolCall(id, err.Error())
				notes[i] = fmt.Sprintf("- %s: unavailable (%v)", c.label, err)
				return nil
			}
			text := resultText(result)
			if result.IsError {
				o.tracker.FailToolCall(id, text)
				notes[i] = fmt.Sprintf("- %s: failed (%s)", c.label, text)
				return nil
			}
			o.tracker.CompleteToolCall(id, text)
			notes[i] = fmt.Sprintf("- %s: %s", c.label, text)
			return nil
		})
	}
	_ = g.Wait()

	return strings.Join(notes, "\n")
}

func (o *Orchestrator) saveTrip(ctx context.Context, merged map[string]interface{}, outputs []roleOutput) error {
	t := &trip.Trip{
		Destination: stringify(merged["destination"]),
		Days:        asInt(merged["days"]),
		Budget:      asInt(merged["budget"]),
		Interests:   asStrings(merged["interests"]),
	}
	for _, out := range outputs {
		if out.Role == RoleFormatter {
			t.Itinerary = out.Text
		}
	}
	return o.store.SaveTrip(ctx, t)
}

// emit delivers an event unless the caller has gone away.
func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func resultText(result protocol.ToolResult) string {
	var parts []string
	for _, item := range result.Content {
		if item.Text != "" {
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func modelErrorCode(err error) string {
	var me *llms.ModelError
	if errors.As(err, &me) {
		return string(me.Code)
	}
	return "unknown"
}

func asInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}

func asStrings(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

type cityGeo struct {
	CenterLat, CenterLng   float64
	AirportLat, AirportLng float64
}

// Airport-to-center pairs for the destinations the collector recognizes.
// Used to seed the planner's distance lookup.
var cityCoords = map[string]cityGeo{
	"tokyo":    {35.6762, 139.6503, 35.5494, 139.7798},
	"kyoto":    {35.0116, 135.7681, 34.7855, 135.4382},
	"paris":    {48.8566, 2.3522, 49.0097, 2.5479},
	"london":   {51.5074, -0.1278, 51.4700, -0.4543},
	"new york": {40.7128, -74.0060, 40.6413, -73.7781},
	"beijing":  {39.9042, 116.4074, 40.0799, 116.6031},
	"shanghai": {31.2304, 121.4737, 31.1443, 121.8083},
	"bangkok":  {13.7563, 100.5018, 13.6900, 100.7501},
	"rome":     {41.9028, 12.4964, 41.8003, 12.2389},
	"sydney":   {-33.8688, 151.2093, -33.9399, 151.1753},
}
