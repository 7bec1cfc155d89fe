package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wayfarer-ai/wayfarer/pkg/llms"
)

var rolePrompts = map[string]string{
	RoleIntent: "You are a travel intent analyst. Summarize what kind of trip " +
		"the user is asking for: destination, duration, budget level, and travel " +
		"style. Be brief and factual.",
	RolePlanner: "You are a travel itinerary planner. Using the trip context and " +
		"the tool results provided, draft a day-by-day itinerary. Account for the " +
		"weather forecast and keep daily travel distances reasonable.",
	RoleRecommender: "You are a local travel expert. Recommend food, sights, and " +
		"experiences that fit the trip context and the itinerary so far. Prefer " +
		"places from the search results when they are relevant.",
	RoleBooking: "You are a booking advisor. Give practical advice on booking " +
		"transport and accommodation for this trip: when to book, what to watch " +
		"for, and rough price expectations.",
	RoleFormatter: "You are a travel document editor. Assemble the prior sections " +
		"into one polished trip plan in Markdown, with a short title, an overview, " +
		"and the day-by-day schedule.",
}

// buildMessages assembles the prompt for one role from the merged context,
// the user message, tool results, and prior role outputs. Prior outputs are
// dropped oldest-first when the estimate exceeds the token budget.
func (o *Orchestrator) buildMessages(role string, in RunInput, merged map[string]interface{}, toolNotes string, outputs []roleOutput) []llms.Message {
	system := rolePrompts[role]

	var sb strings.Builder
	sb.WriteString("Trip context:\n")
	sb.WriteString(formatContext(merged))
	if toolNotes != "" {
		sb.WriteString("\nTool results:\n")
		sb.WriteString(toolNotes)
	}
	if len(outputs) > 0 {
		sb.WriteString("\nPrior sections:\n")
		for _, out := range outputs {
			fmt.Fprintf(&sb, "[%s]\n%s\n", out.Role, out.Text)
		}
	}
	fmt.Fprintf(&sb, "\nUser request: %s", in.Message)

	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: system},
		{Role: llms.RoleUser, Content: sb.String()},
	}

	budget := o.cfg.PromptBudget
	if budget <= 0 {
		return messages
	}
	for len(outputs) > 0 && llms.EstimateTokens(o.cfg.TokenModel, messages) > budget {
		outputs = outputs[1:]
		messages[1].Content = rebuildUserContent(in, merged, toolNotes, outputs)
	}
	return messages
}

func rebuildUserContent(in RunInput, merged map[string]interface{}, toolNotes string, outputs []roleOutput) string {
	var sb strings.Builder
	sb.WriteString("Trip context:\n")
	sb.WriteString(formatContext(merged))
	if toolNotes != "" {
		sb.WriteString("\nTool results:\n")
		sb.WriteString(toolNotes)
	}
	if len(outputs) > 0 {
		sb.WriteString("\nPrior sections:\n")
		for _, out := range outputs {
			fmt.Fprintf(&sb, "[%s]\n%s\n", out.Role, out.Text)
		}
	}
	fmt.Fprintf(&sb, "\nUser request: %s", in.Message)
	return sb.String()
}

func formatContext(merged map[string]interface{}) string {
	var sb strings.Builder
	for _, key := range []string{"destination", "days", "budget", "interests"} {
		if v, ok := merged[key]; ok {
			fmt.Fprintf(&sb, "- %s: %s\n", key, stringify(v))
		}
	}
	for key, v := range merged {
		switch key {
		case "destination", "days", "budget", "interests":
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", key, stringify(v))
	}
	return sb.String()
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

// fallbackReply is the clearly labeled reply used when the model stays
// unavailable after retries. The turn degrades instead of crashing.
func fallbackReply(role string, merged map[string]interface{}) string {
	dest, _ := merged["destination"].(string)
	if dest == "" {
		dest = "your destination"
	}
	switch role {
	case RoleIntent:
		return fmt.Sprintf("[offline fallback] Planning a trip to %s based on the details you provided.", dest)
	case RolePlanner:
		return fmt.Sprintf("[offline fallback] A balanced itinerary for %s: travel day, one day for major sights, one free day. The live planner is unavailable right now.", dest)
	case RoleRecommender:
		return fmt.Sprintf("[offline fallback] Look for well-reviewed local restaurants and the main attractions of %s.", dest)
	case RoleBooking:
		return "[offline fallback] Book transport and accommodation as early as possible and keep cancellation options open."
	case RoleFormatter:
		return fmt.Sprintf("[offline fallback] Trip plan for %s assembled from the sections above.", dest)
	}
	return "[offline fallback] The planning model is temporarily unavailable."
}
