// Package protocol implements the JSON-RPC 2.0 tool protocol: request
// correlation, per-server connection state, and dispatch of tool invocations
// to inline handlers or remote transports.
package protocol

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const jsonRPCVersion = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

var requestCounter atomic.Int64

// nextRequestID returns a process-unique request id: a monotonic counter with
// a timestamp suffix so ids stay unique across restarts talking to the same
// server.
func nextRequestID() string {
	return fmt.Sprintf("%d-%d", requestCounter.Add(1), time.Now().UnixMilli())
}

// NewRequest builds a request with a fresh id.
func NewRequest(method string, params interface{}) *Request {
	return &Request{
		JSONRPC: jsonRPCVersion,
		ID:      nextRequestID(),
		Method:  method,
		Params:  params,
	}
}

// InitializeParams is the handshake payload sent to a remote tool server.
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ClientInfo      ClientInfo   `json:"clientInfo"`
}

type Capabilities struct {
	Resources bool `json:"resources"`
	Tools     bool `json:"tools"`
	Prompts   bool `json:"prompts"`
}

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo is what a remote server reports about itself during initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CallParams is the payload for tools/call.
type CallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}
