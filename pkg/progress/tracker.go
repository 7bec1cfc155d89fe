package progress

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker is the session-scoped progress state machine. Exactly one session
// is current at a time; every mutator is a no-op when no session is active,
// so observers can call them without guarding on session existence.
type Tracker struct {
	mu       sync.Mutex
	session  *Session
	listener Listener
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// SetListener installs the observer for state transitions.
func (t *Tracker) SetListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = l
}

// StartSession creates a new current session with all phases pending.
func (t *Tracker) StartSession(sessionID string, defs []PhaseDef) {
	t.mu.Lock()

	phases := make([]*Phase, 0, len(defs))
	for _, def := range defs {
		phases = append(phases, &Phase{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			AgentType:   def.AgentType,
			Status:      PhasePending,
		})
	}

	t.session = &Session{
		SessionID: sessionID,
		Phases:    phases,
		IsRunning: true,
		StartTime: time.Now(),
	}

	t.notifyLocked(Update{Kind: UpdateSessionStarted})
	t.mu.Unlock()
}

// ResetSession clears the current session.
func (t *Tracker) ResetSession() {
	t.mu.Lock()
	if t.session == nil {
		t.mu.Unlock()
		return
	}
	id := t.session.SessionID
	t.session = nil
	listener := t.listener
	t.mu.Unlock()

	if listener != nil {
		listener(Update{Kind: UpdateSessionReset, SessionID: id})
	}
}

// StartPhase marks a phase in_progress and makes it current. Other phases
// are untouched.
func (t *Tracker) StartPhase(phaseID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase := t.findPhaseLocked(phaseID)
	if phase == nil {
		return
	}

	now := time.Now()
	phase.Status = PhaseInProgress
	phase.Progress = 0
	phase.StartTime = &now
	t.session.CurrentPhaseID = phaseID

	t.recomputeLocked()
	t.notifyLocked(Update{Kind: UpdatePhaseStarted, PhaseID: phaseID})
}

// UpdatePhaseProgress clamps value into [0,100] and stores it.
func (t *Tracker) UpdatePhaseProgress(phaseID string, value int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase := t.findPhaseLocked(phaseID)
	if phase == nil {
		return
	}

	phase.Progress = clamp(value)

	t.recomputeLocked()
	t.notifyLocked(Update{Kind: UpdatePhaseProgress, PhaseID: phaseID})
}

// CompletePhase marks a phase completed with progress forced to 100 and
// merges the given metadata.
func (t *Tracker) CompletePhase(phaseID string, metadata map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase := t.findPhaseLocked(phaseID)
	if phase == nil {
		return
	}

	now := time.Now()
	phase.Status = PhaseCompleted
	phase.Progress = 100
	phase.EndTime = &now
	if len(metadata) > 0 {
		if phase.Metadata == nil {
			phase.Metadata = make(map[string]interface{}, len(metadata))
		}
		for k, v := range metadata {
			phase.Metadata[k] = v
		}
	}

	t.recomputeLocked()
	t.notifyLocked(Update{Kind: UpdatePhaseCompleted, PhaseID: phaseID})
}

// FailPhase marks a phase failed. The session keeps running; only
// FailSession halts the run.
func (t *Tracker) FailPhase(phaseID string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase := t.findPhaseLocked(phaseID)
	if phase == nil {
		return
	}

	now := time.Now()
	phase.Status = PhaseFailed
	phase.EndTime = &now
	phase.Error = errMsg

	t.recomputeLocked()
	t.notifyLocked(Update{Kind: UpdatePhaseFailed, PhaseID: phaseID})
}

// SkipPhase marks a phase skipped. Skipped phases count as done for the
// aggregate, so progress is forced to 100.
func (t *Tracker) SkipPhase(phaseID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase := t.findPhaseLocked(phaseID)
	if phase == nil {
		return
	}

	now := time.Now()
	phase.Status = PhaseSkipped
	phase.Progress = 100
	phase.EndTime = &now

	t.recomputeLocked()
	t.notifyLocked(Update{Kind: UpdatePhaseSkipped, PhaseID: phaseID})
}

// AddToolCall appends a pending tool call and returns its id immediately so
// callers can reference it before any status update.
func (t *Tracker) AddToolCall(name, phaseID string, input map[string]interface{}) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return ""
	}

	call := &ToolCall{
		ID:        uuid.NewString(),
		Name:      name,
		PhaseID:   phaseID,
		Status:    ToolCallPending,
		Input:     input,
		StartTime: time.Now(),
	}
	t.session.ToolCalls = append(t.session.ToolCalls, call)

	t.notifyLocked(Update{Kind: UpdateToolCallAdded, PhaseID: phaseID, ToolCallID: call.ID})
	return call.ID
}

// StartToolCall marks a tracked call as running.
func (t *Tracker) StartToolCall(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	call := t.findToolCallLocked(id)
	if call == nil {
		return
	}
	call.Status = ToolCallRunning
	t.notifyLocked(Update{Kind: UpdateToolCallUpdated, PhaseID: call.PhaseID, ToolCallID: id})
}

// CompleteToolCall records a successful result.
func (t *Tracker) CompleteToolCall(id string, output interface{}) {
	t.finishToolCall(id, ToolCallCompleted, output, "")
}

// FailToolCall records a failure.
func (t *Tracker) FailToolCall(id string, errMsg string) {
	t.finishToolCall(id, ToolCallFailed, nil, errMsg)
}

// CancelToolCall marks a call cancelled rather than leaving it running
// forever after a caller-initiated cancel.
func (t *Tracker) CancelToolCall(id string) {
	t.finishToolCall(id, ToolCallCancelled, nil, "cancelled")
}

// CancelRunningToolCalls cancels every pending or running call under a phase.
func (t *Tracker) CancelRunningToolCalls(phaseID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return
	}

	now := time.Now()
	for _, call := range t.session.ToolCalls {
		if call.PhaseID != phaseID {
			continue
		}
		if call.Status == ToolCallRunning || call.Status == ToolCallPending {
			call.Status = ToolCallCancelled
			call.Error = "cancelled"
			call.EndTime = &now
			call.Duration = now.Sub(call.StartTime)
			t.notifyLocked(Update{Kind: UpdateToolCallUpdated, PhaseID: phaseID, ToolCallID: call.ID})
		}
	}
}

func (t *Tracker) finishToolCall(id string, status ToolCallStatus, output interface{}, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	call := t.findToolCallLocked(id)
	if call == nil {
		return
	}

	now := time.Now()
	call.Status = status
	call.EndTime = &now
	if !call.StartTime.IsZero() {
		call.Duration = now.Sub(call.StartTime)
	}
	if output != nil {
		call.Output = output
	}
	if errMsg != "" {
		call.Error = errMsg
	}

	t.notifyLocked(Update{Kind: UpdateToolCallUpdated, PhaseID: call.PhaseID, ToolCallID: id})
}

// CompleteSession is the declared-success path: total progress is forced to
// 100 regardless of individual phase states.
func (t *Tracker) CompleteSession() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return
	}

	now := time.Now()
	t.session.IsRunning = false
	t.session.TotalProgress = 100
	t.session.EndTime = &now

	t.notifyLocked(Update{Kind: UpdateSessionCompleted})
}

// FailSession marks any in_progress phase failed with the given error and
// halts the run. Completed and pending phases are untouched.
func (t *Tracker) FailSession(errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return
	}

	now := time.Now()
	for _, phase := range t.session.Phases {
		if phase.Status == PhaseInProgress {
			phase.Status = PhaseFailed
			phase.EndTime = &now
			phase.Error = errMsg
		}
	}
	t.session.IsRunning = false
	t.session.CurrentPhaseID = ""
	t.session.EndTime = &now

	t.notifyLocked(Update{Kind: UpdateSessionFailed})
}

// Snapshot returns a deep copy of the current session, or nil when no
// session is active.
func (t *Tracker) Snapshot() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return nil
	}

	cp := *t.session
	cp.Phases = make([]*Phase, len(t.session.Phases))
	for i, phase := range t.session.Phases {
		p := *phase
		cp.Phases[i] = &p
	}
	cp.ToolCalls = make([]*ToolCall, len(t.session.ToolCalls))
	for i, call := range t.session.ToolCalls {
		c := *call
		cp.ToolCalls[i] = &c
	}
	return &cp
}

// TotalProgress reports the aggregate progress, 0 with no session.
func (t *Tracker) TotalProgress() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return 0
	}
	return t.session.TotalProgress
}

func (t *Tracker) findPhaseLocked(phaseID string) *Phase {
	if t.session == nil {
		return nil
	}
	for _, phase := range t.session.Phases {
		if phase.ID == phaseID {
			return phase
		}
	}
	return nil
}

func (t *Tracker) findToolCallLocked(id string) *ToolCall {
	if t.session == nil {
		return nil
	}
	for _, call := range t.session.ToolCalls {
		if call.ID == id {
			return call
		}
	}
	return nil
}

// recomputeLocked derives total progress as the rounded mean over all
// phases, not-yet-started ones included: "of the planned work, how much is
// done", not "of the work attempted so far".
func (t *Tracker) recomputeLocked() {
	if t.session == nil || len(t.session.Phases) == 0 {
		return
	}

	sum := 0
	for _, phase := range t.session.Phases {
		sum += phase.Progress
	}
	t.session.TotalProgress = int(math.Round(float64(sum) / float64(len(t.session.Phases))))
}

func (t *Tracker) notifyLocked(update Update) {
	if t.listener == nil || t.session == nil {
		return
	}
	update.SessionID = t.session.SessionID
	update.TotalProgress = t.session.TotalProgress
	t.listener(update)
}

func clamp(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
