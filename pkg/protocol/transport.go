package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
)

// Transport moves JSON-RPC messages to and from a remote tool server. Send
// and Receive may be called from different goroutines; Receive is called from
// a single reader loop.
type Transport interface {
	Send(req *Request) error

	Receive() (*Response, error)

	Close() error
}

// jsonLineTransport frames messages as newline-delimited JSON over any
// byte stream. Both the socket and process-pipe transports reduce to this.
type jsonLineTransport struct {
	rwc     io.ReadWriteCloser
	reader  *bufio.Reader
	writeMu sync.Mutex
}

func newJSONLineTransport(rwc io.ReadWriteCloser) *jsonLineTransport {
	return &jsonLineTransport{
		rwc:    rwc,
		reader: bufio.NewReader(rwc),
	}
}

func (t *jsonLineTransport) Send(req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.rwc.Write(data); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

func (t *jsonLineTransport) Receive() (*Response, error) {
	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, &ProtocolError{Message: "malformed response frame", Err: err}
	}
	return &resp, nil
}

func (t *jsonLineTransport) Close() error {
	return t.rwc.Close()
}

// DialSocket opens a TCP or unix socket transport to a tool server.
func DialSocket(network, addr string) (Transport, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial tool server at %s: %w", addr, err)
	}
	return newJSONLineTransport(conn), nil
}

// NewPipeTransport wraps an already-open stdio-style pipe pair as a
// transport. Spawning the child process is the caller's concern; the
// connection state machine is identical to the socket case.
func NewPipeTransport(rwc io.ReadWriteCloser) Transport {
	return newJSONLineTransport(rwc)
}
