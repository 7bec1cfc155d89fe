// Package orchestrator sequences the agent roles of a planning turn: intent
// recognition, itinerary planning, recommendations, booking advice, and
// document formatting. Each role owns one progress phase and streams its
// model output as role-tagged events.
package orchestrator

import (
	"github.com/wayfarer-ai/wayfarer/pkg/intake"
)

// EventType tags the events emitted by a planning run.
type EventType string

const (
	// EventQuestion carries the next clarification question when required
	// context is missing. The run ends after emitting it.
	EventQuestion EventType = "question"

	// EventChunk carries one role-tagged fragment of streamed model output.
	EventChunk EventType = "chunk"

	// EventPhase reports a phase transition together with total progress.
	EventPhase EventType = "phase"

	// EventError carries a non-fatal error notice. The run continues unless
	// a done or question event has already been emitted.
	EventError EventType = "error"

	// EventDone is the single terminal event of a successful run.
	EventDone EventType = "done"
)

// Event is one element of the lazy sequence Run produces.
type Event struct {
	Type     EventType        `json:"type"`
	Role     string           `json:"role,omitempty"`
	Content  string           `json:"content,omitempty"`
	Phase    string           `json:"phase,omitempty"`
	Status   string           `json:"status,omitempty"`
	Progress int              `json:"progress,omitempty"`
	Question *intake.Question `json:"question,omitempty"`

	// Context is the merged context as of this event, present on question
	// and done events so callers can carry it into the next turn.
	Context map[string]interface{} `json:"context,omitempty"`
}

// RunInput is one user turn. Context must be the caller's full accumulated
// context from prior turns; the orchestrator never persists it between runs.
type RunInput struct {
	SessionID   string                 `json:"sessionId"`
	Message     string                 `json:"message"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
}

// Agent roles in their fixed execution order.
const (
	RoleIntent      = "intent"
	RolePlanner     = "planner"
	RoleRecommender = "recommender"
	RoleBooking     = "booking"
	RoleFormatter   = "formatter"
)

type roleDef struct {
	ID          string
	Name        string
	Description string
}

var roleSequence = []roleDef{
	{RoleIntent, "Intent Recognition", "Understand what kind of trip the user wants"},
	{RolePlanner, "Itinerary Planning", "Draft a day-by-day itinerary"},
	{RoleRecommender, "Recommendations", "Suggest food, sights, and experiences"},
	{RoleBooking, "Booking Advice", "Advise on transport and accommodation booking"},
	{RoleFormatter, "Document Formatting", "Assemble the final trip document"},
}
