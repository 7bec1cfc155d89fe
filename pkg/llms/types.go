// Package llms provides a uniform streaming client over multiple language
// model providers. Each provider adapts its own wire framing into a single
// lazy sequence of StreamDelta values.
package llms

// ProviderType identifies a supported provider family.
type ProviderType string

const (
	ProviderQwen      ProviderType = "qwen"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StreamDelta is one element of a streamed response. A well-formed stream
// carries zero or more content deltas followed by exactly one terminal
// element: either {Done: true} on success or {Err != nil} on failure. The
// channel is closed after the terminal element.
type StreamDelta struct {
	Content string
	Done    bool
	Err     error
}
