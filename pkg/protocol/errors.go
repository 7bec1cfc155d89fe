package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrServerNotConnected is returned when a call targets a server that is
	// not in the initialized state.
	ErrServerNotConnected = errors.New("server not connected")

	// ErrToolNotFound is returned when an initialized server has no tool with
	// the requested name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrConnectionClosed rejects pending requests when their server
	// disconnects or a request times out.
	ErrConnectionClosed = errors.New("connection closed")
)

// ProtocolError marks a malformed or unexpected JSON-RPC exchange.
type ProtocolError struct {
	Server  string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error (server %s): %s: %v", e.Server, e.Message, e.Err)
	}
	return fmt.Sprintf("protocol error (server %s): %s", e.Server, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
