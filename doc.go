// Package wayfarer is an agent-orchestrated trip planning runtime.
//
// Wayfarer turns a free-text travel request into a complete trip plan by
// sequencing five specialized agent roles over a streaming model client:
// intent recognition, itinerary planning, recommendations, booking advice,
// and document formatting. Missing trip details are collected through a
// clarification loop before any planning starts.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/wayfarer-ai/wayfarer/cmd/wayfarer@latest
//
// Write a minimal configuration:
//
//	llms:
//	  default-llm:
//	    type: "qwen"
//	    model: "qwen-turbo"
//	    api_key: "${DASHSCOPE_API_KEY}"
//
//	orchestrator:
//	  llm: "default-llm"
//	  save_trips: true
//
// Then plan from the terminal:
//
//	wayfarer chat "5 days in Tokyo, love food and culture"
//
// or serve the HTTP API:
//
//	wayfarer serve --config wayfarer.yaml
//
// # Using as Go Library
//
// Import the packages directly:
//
//	import (
//	    "github.com/wayfarer-ai/wayfarer/pkg/orchestrator"
//	    "github.com/wayfarer-ai/wayfarer/pkg/llms"
//	    "github.com/wayfarer-ai/wayfarer/pkg/config"
//	)
//
// # Key Packages
//
//   - pkg/orchestrator: sequences the agent roles and streams run events
//   - pkg/llms: streaming client over qwen, openai, and anthropic providers
//   - pkg/protocol: JSON-RPC 2.0 tool layer with inline and remote servers
//   - pkg/intake: trip context validation and the clarification loop
//   - pkg/progress: session, phase, and tool-call progress tracking
//   - pkg/trip: SQLite persistence for finished trips and preferences
package wayfarer
