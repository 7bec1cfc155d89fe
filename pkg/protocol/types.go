package protocol

import (
	"context"
	"time"
)

// InputSchema is the recursive structural type describing tool arguments.
type InputSchema struct {
	Type        string                  `json:"type,omitempty"`
	Description string                  `json:"description,omitempty"`
	Properties  map[string]*InputSchema `json:"properties,omitempty"`
	Required    []string                `json:"required,omitempty"`
	Items       *InputSchema            `json:"items,omitempty"`
	Enum        []interface{}           `json:"enum,omitempty"`
	Default     interface{}             `json:"default,omitempty"`
}

// ToolDescriptor describes one tool a server exposes.
type ToolDescriptor struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema *InputSchema `json:"inputSchema"`
}

// Tool is the capability interface inline servers register. Invoke returns
// the raw handler output; the manager normalizes it into a ToolResult.
type Tool interface {
	Describe() ToolDescriptor

	Invoke(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// ContentItem is one piece of normalized tool output.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is the single result shape all tool invocations normalize into.
// Handler failures surface as IsError with a text item, never as a Go error
// crossing the protocol boundary.
type ToolResult struct {
	Content  []ContentItem `json:"content"`
	IsError  bool          `json:"isError,omitempty"`
	Duration time.Duration `json:"-"`
}

// TextResult builds a single-item text result.
func TextResult(text string) ToolResult {
	return ToolResult{
		Content: []ContentItem{{Type: "text", Text: text}},
	}
}

// ErrorResult builds a failed result with one text content item.
func ErrorResult(text string) ToolResult {
	return ToolResult{
		Content: []ContentItem{{Type: "text", Text: text}},
		IsError: true,
	}
}

// ConnectionState reports a server's lifecycle position:
// disconnected → connected (uninitialized) → initialized.
type ConnectionState struct {
	IsConnected   bool
	IsInitialized bool
	ServerInfo    *ServerInfo
}

// EventType tags protocol events emitted for external observers.
type EventType string

const (
	EventToolCalled    EventType = "tool_called"
	EventToolCompleted EventType = "tool_completed"
	EventToolFailed    EventType = "tool_failed"
)

// Event is emitted around tool dispatch. ToolCalled is emitted before the
// handler runs; exactly one of ToolCompleted or ToolFailed follows.
type Event struct {
	Type     EventType
	Server   string
	Tool     string
	Args     map[string]interface{}
	Duration time.Duration
	Err      string
}

// Observer receives protocol events. Observers must not block.
type Observer func(Event)

// funcTool adapts a descriptor and handler function into a Tool.
type funcTool struct {
	descriptor ToolDescriptor
	handler    func(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

func (t *funcTool) Describe() ToolDescriptor {
	return t.descriptor
}

func (t *funcTool) Invoke(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return t.handler(ctx, args)
}

// NewTool wraps a plain function as a Tool.
func NewTool(descriptor ToolDescriptor, handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)) Tool {
	return &funcTool{descriptor: descriptor, handler: handler}
}
