package llms

import (
	"github.com/pkoukk/tiktoken-go"
)

// EstimateTokens approximates the token count of a message list using the
// tiktoken encoding for the given model. When the encoding is unavailable
// (offline, unknown model) it falls back to a bytes/4 heuristic, which is
// good enough for prompt budgeting.
func EstimateTokens(model string, messages []Message) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		total := 0
		for _, msg := range messages {
			total += len(msg.Content)/4 + 4
		}
		return total
	}

	total := 0
	for _, msg := range messages {
		// Per-message framing overhead, role included.
		total += len(enc.Encode(msg.Content, nil, nil)) + 4
	}
	return total
}
