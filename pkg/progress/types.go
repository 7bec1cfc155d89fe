// Package progress tracks a session's multi-phase pipeline and the tool
// calls issued within each phase.
package progress

import "time"

// PhaseStatus is the lifecycle state of one pipeline phase.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseFailed     PhaseStatus = "failed"
	PhaseSkipped    PhaseStatus = "skipped"
)

// ToolCallStatus is the lifecycle state of one tracked tool call.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallRunning   ToolCallStatus = "running"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallFailed    ToolCallStatus = "failed"
	ToolCallCancelled ToolCallStatus = "cancelled"
)

// PhaseDef declares a phase at session start.
type PhaseDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AgentType   string `json:"agentType"`
}

// Phase is one stage of the agent pipeline.
type Phase struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	AgentType   string                 `json:"agentType"`
	Status      PhaseStatus            `json:"status"`
	Progress    int                    `json:"progress"`
	StartTime   *time.Time             `json:"startTime,omitempty"`
	EndTime     *time.Time             `json:"endTime,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ToolCall is one tracked invocation of an external capability.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	PhaseID   string                 `json:"phaseId"`
	Status    ToolCallStatus         `json:"status"`
	Input     map[string]interface{} `json:"input,omitempty"`
	Output    interface{}            `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	StartTime time.Time              `json:"startTime"`
	EndTime   *time.Time             `json:"endTime,omitempty"`
	Duration  time.Duration          `json:"duration,omitempty"`
}

// Session is one orchestration run. ToolCalls is append-only; entries are
// updated in place and never removed.
type Session struct {
	SessionID      string      `json:"sessionId"`
	Phases         []*Phase    `json:"phases"`
	ToolCalls      []*ToolCall `json:"toolCalls"`
	CurrentPhaseID string      `json:"currentPhaseId,omitempty"`
	IsRunning      bool        `json:"isRunning"`
	TotalProgress  int         `json:"totalProgress"`
	StartTime      time.Time   `json:"startTime"`
	EndTime        *time.Time  `json:"endTime,omitempty"`
}

// UpdateKind tags tracker state transitions for observers.
type UpdateKind string

const (
	UpdateSessionStarted   UpdateKind = "session_started"
	UpdateSessionCompleted UpdateKind = "session_completed"
	UpdateSessionFailed    UpdateKind = "session_failed"
	UpdateSessionReset     UpdateKind = "session_reset"
	UpdatePhaseStarted     UpdateKind = "phase_started"
	UpdatePhaseProgress    UpdateKind = "phase_progress"
	UpdatePhaseCompleted   UpdateKind = "phase_completed"
	UpdatePhaseFailed      UpdateKind = "phase_failed"
	UpdatePhaseSkipped     UpdateKind = "phase_skipped"
	UpdateToolCallAdded    UpdateKind = "tool_call_added"
	UpdateToolCallUpdated  UpdateKind = "tool_call_updated"
)

// Update describes one state transition.
type Update struct {
	Kind          UpdateKind `json:"kind"`
	SessionID     string     `json:"sessionId"`
	PhaseID       string     `json:"phaseId,omitempty"`
	ToolCallID    string     `json:"toolCallId,omitempty"`
	TotalProgress int        `json:"totalProgress"`
}

// Listener receives tracker updates. Listeners must not call back into the
// tracker and must not block.
type Listener func(Update)
