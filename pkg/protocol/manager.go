package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const protocolVersion = "2024-11-05"

type serverKind string

const (
	serverInline serverKind = "inline"
	serverSocket serverKind = "socket"
	serverPipe   serverKind = "pipe"
)

type serverState struct {
	name        string
	kind        serverKind
	connected   bool
	initialized bool
	serverInfo  *ServerInfo
	tools       map[string]Tool
	transport   Transport
}

type callOutcome struct {
	result json.RawMessage
	err    error
}

type pendingRequest struct {
	id     string
	server string
	method string
	done   chan callOutcome
}

// Manager owns all per-server connection state and the pending-request table.
// Both are mutated only through Manager methods.
type Manager struct {
	mu      sync.Mutex
	servers map[string]*serverState
	pending map[string]*pendingRequest

	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
	info     ClientInfo
}

type ManagerOption func(*Manager)

func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = d
	}
}

func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		m.observer = o
	}
}

func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

func WithClientInfo(info ClientInfo) ManagerOption {
	return func(m *Manager) {
		m.info = info
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		servers: make(map[string]*serverState),
		pending: make(map[string]*pendingRequest),
		timeout: 30 * time.Second,
		logger:  slog.Default(),
		info:    ClientInfo{Name: "wayfarer", Version: "dev"},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterInline registers an in-process tool server. Inline servers need no
// handshake and are immediately initialized.
func (m *Manager) RegisterInline(name string, tools ...Tool) error {
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	toolMap := make(map[string]Tool, len(tools))
	for _, t := range tools {
		desc := t.Describe()
		if desc.Name == "" {
			return fmt.Errorf("tool descriptor on server '%s' has no name", name)
		}
		if _, exists := toolMap[desc.Name]; exists {
			return fmt.Errorf("duplicate tool '%s' on server '%s'", desc.Name, name)
		}
		toolMap[desc.Name] = t
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.servers[name]; exists {
		return fmt.Errorf("server '%s' already registered", name)
	}

	m.servers[name] = &serverState{
		name:        name,
		kind:        serverInline,
		connected:   true,
		initialized: true,
		serverInfo:  &ServerInfo{Name: name, Version: "inline"},
		tools:       toolMap,
	}
	return nil
}

// ConnectSocket dials a socket-based tool server and runs the initialize
// handshake. The server is usable only after this returns nil.
func (m *Manager) ConnectSocket(ctx context.Context, name, network, addr string) error {
	transport, err := DialSocket(network, addr)
	if err != nil {
		return err
	}
	return m.connect(ctx, name, serverSocket, transport)
}

// ConnectPipe attaches an already-open process pipe as a tool server. The
// state machine is identical to the socket case.
func (m *Manager) ConnectPipe(ctx context.Context, name string, rwc io.ReadWriteCloser) error {
	return m.connect(ctx, name, serverPipe, NewPipeTransport(rwc))
}

func (m *Manager) connect(ctx context.Context, name string, kind serverKind, transport Transport) error {
	if name == "" {
		transport.Close()
		return fmt.Errorf("server name cannot be empty")
	}

	m.mu.Lock()
	if _, exists := m.servers[name]; exists {
		m.mu.Unlock()
		transport.Close()
		return fmt.Errorf("server '%s' already registered", name)
	}
	st := &serverState{
		name:      name,
		kind:      kind,
		connected: true,
		transport: transport,
	}
	m.servers[name] = st
	m.mu.Unlock()

	go m.readLoop(name, transport)

	raw, err := m.call(ctx, name, "initialize", InitializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    Capabilities{Tools: true},
		ClientInfo:      m.info,
	})
	if err != nil {
		m.Disconnect(name)
		return fmt.Errorf("initialize handshake with '%s' failed: %w", name, err)
	}

	var initResult struct {
		ProtocolVersion string     `json:"protocolVersion"`
		ServerInfo      ServerInfo `json:"serverInfo"`
	}
	if err := json.Unmarshal(raw, &initResult); err != nil {
		m.Disconnect(name)
		return &ProtocolError{Server: name, Message: "malformed initialize result", Err: err}
	}

	m.mu.Lock()
	if st, ok := m.servers[name]; ok {
		st.initialized = true
		st.serverInfo = &initResult.ServerInfo
	}
	m.mu.Unlock()

	m.logger.Info("tool server initialized",
		"server", name,
		"kind", string(kind),
		"remote", initResult.ServerInfo.Name)
	return nil
}

// Disconnect tears a server down. All pending requests attributable to it are
// rejected with a connection-closed error before its state is removed, so no
// caller hangs on a dropped connection.
func (m *Manager) Disconnect(name string) {
	m.mu.Lock()
	st, ok := m.servers[name]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.servers, name)

	var rejected []*pendingRequest
	for id, p := range m.pending {
		if p.server == name {
			delete(m.pending, id)
			rejected = append(rejected, p)
		}
	}
	m.mu.Unlock()

	for _, p := range rejected {
		p.done <- callOutcome{err: fmt.Errorf("%w: server '%s' (method %s)", ErrConnectionClosed, name, p.method)}
	}

	if st.transport != nil {
		st.transport.Close()
	}
}

// State reports a server's connection state. Unknown servers are fully
// disconnected.
func (m *Manager) State(name string) ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.servers[name]
	if !ok {
		return ConnectionState{}
	}
	return ConnectionState{
		IsConnected:   st.connected,
		IsInitialized: st.initialized,
		ServerInfo:    st.serverInfo,
	}
}

// Servers returns the names of all registered servers.
func (m *Manager) Servers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListTools returns the descriptors a server exposes.
func (m *Manager) ListTools(ctx context.Context, name string) ([]ToolDescriptor, error) {
	m.mu.Lock()
	st, ok := m.servers[name]
	if !ok || !st.initialized {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrServerNotConnected, name)
	}
	kind := st.kind
	var descriptors []ToolDescriptor
	if kind == serverInline {
		for _, t := range st.tools {
			descriptors = append(descriptors, t.Describe())
		}
	}
	m.mu.Unlock()

	if kind == serverInline {
		sort.Slice(descriptors, func(i, j int) bool {
			return descriptors[i].Name < descriptors[j].Name
		})
		return descriptors, nil
	}

	raw, err := m.call(ctx, name, "tools/list", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var listResult struct {
		Tools []ToolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(raw, &listResult); err != nil {
		return nil, &ProtocolError{Server: name, Message: "malformed tools/list result", Err: err}
	}
	return listResult.Tools, nil
}

// CallTool dispatches a tool invocation. Dispatch-level failures (server not
// initialized, unknown tool, dead connection) return an error; handler-level
// failures return a ToolResult with IsError set and a nil error.
func (m *Manager) CallTool(ctx context.Context, server, tool string, args, execCtx map[string]interface{}) (ToolResult, error) {
	m.mu.Lock()
	st, ok := m.servers[server]
	if !ok || !st.initialized {
		m.mu.Unlock()
		return ToolResult{}, fmt.Errorf("%w: %s", ErrServerNotConnected, server)
	}
	kind := st.kind
	var target Tool
	if kind == serverInline {
		target = st.tools[tool]
	}
	m.mu.Unlock()

	if kind == serverInline && target == nil {
		return ToolResult{}, fmt.Errorf("%w: '%s' on server '%s'", ErrToolNotFound, tool, server)
	}

	m.emit(Event{Type: EventToolCalled, Server: server, Tool: tool, Args: args})

	start := time.Now()
	var result ToolResult

	if kind == serverInline {
		result = m.invokeInline(ctx, target, args, execCtx)
	} else {
		var err error
		result, err = m.callRemoteTool(ctx, server, tool, args)
		if err != nil {
			m.emit(Event{Type: EventToolFailed, Server: server, Tool: tool,
				Duration: time.Since(start), Err: err.Error()})
			return ToolResult{}, err
		}
	}

	result.Duration = time.Since(start)

	if result.IsError {
		m.emit(Event{Type: EventToolFailed, Server: server, Tool: tool,
			Duration: result.Duration, Err: firstText(result)})
	} else {
		m.emit(Event{Type: EventToolCompleted, Server: server, Tool: tool,
			Duration: result.Duration})
	}
	return result, nil
}

// invokeInline runs an inline handler, converting errors and panics into an
// IsError result so handler failures never cross the protocol boundary as
// Go-level failures.
func (m *Manager) invokeInline(ctx context.Context, t Tool, args, execCtx map[string]interface{}) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ErrorResult(fmt.Sprintf("tool handler panicked: %v", r))
		}
	}()

	merged := make(map[string]interface{}, len(args)+1)
	for k, v := range args {
		merged[k] = v
	}
	if execCtx != nil {
		merged["context"] = execCtx
	}

	out, err := t.Invoke(ctx, merged)
	if err != nil {
		return ErrorResult(fmt.Sprintf("tool execution failed: %v", err))
	}
	return normalizeResult(out)
}

func (m *Manager) callRemoteTool(ctx context.Context, server, tool string, args map[string]interface{}) (ToolResult, error) {
	raw, err := m.call(ctx, server, "tools/call", CallParams{Name: tool, Arguments: args})
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			// The remote handler failed; normalize like an inline failure.
			return ErrorResult(rpcErr.Message), nil
		}
		return ToolResult{}, err
	}

	var result ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ToolResult{}, &ProtocolError{Server: server, Message: "malformed tools/call result", Err: err}
	}
	return result, nil
}

// call sends a request and waits for its correlated response. Timeouts and
// context cancellation reject exactly like a disconnect.
func (m *Manager) call(ctx context.Context, server, method string, params interface{}) (json.RawMessage, error) {
	req := NewRequest(method, params)
	id := fmt.Sprintf("%v", req.ID)

	p := &pendingRequest{
		id:     id,
		server: server,
		method: method,
		done:   make(chan callOutcome, 1),
	}

	m.mu.Lock()
	st, ok := m.servers[server]
	if !ok || st.transport == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrServerNotConnected, server)
	}
	transport := st.transport
	m.pending[id] = p
	m.mu.Unlock()

	if err := transport.Send(req); err != nil {
		m.takePending(id)
		return nil, &ProtocolError{Server: server, Message: "failed to send request", Err: err}
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case outcome := <-p.done:
		return outcome.result, outcome.err
	case <-timer.C:
		m.takePending(id)
		return nil, fmt.Errorf("%w: server '%s' (method %s)", ErrConnectionClosed, server, method)
	case <-ctx.Done():
		m.takePending(id)
		return nil, ctx.Err()
	}
}

// takePending removes and returns a pending request; only the holder of the
// returned entry may resolve it.
func (m *Manager) takePending(id string) *pendingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[id]
	if !ok {
		return nil
	}
	delete(m.pending, id)
	return p
}

// readLoop routes responses from one transport until the connection dies.
func (m *Manager) readLoop(name string, transport Transport) {
	for {
		resp, err := transport.Receive()
		if err != nil {
			var protoErr *ProtocolError
			if errors.As(err, &protoErr) {
				// One bad frame does not kill the connection.
				m.logger.Warn("dropping malformed response frame", "server", name, "error", err)
				continue
			}
			m.handleTransportFailure(name, transport, err)
			return
		}
		m.route(name, resp)
	}
}

// route correlates a response to its pending request. Unmatched responses are
// logged and dropped, never fatal.
func (m *Manager) route(server string, resp *Response) {
	id := fmt.Sprintf("%v", resp.ID)

	p := m.takePending(id)
	if p == nil {
		m.logger.Warn("dropping unmatched response", "server", server, "id", id)
		return
	}

	if resp.Error != nil {
		p.done <- callOutcome{err: resp.Error}
		return
	}
	p.done <- callOutcome{result: resp.Result}
}

// handleTransportFailure resets a dead server unless it was already replaced.
func (m *Manager) handleTransportFailure(name string, transport Transport, err error) {
	m.mu.Lock()
	st, ok := m.servers[name]
	current := ok && st.transport == transport
	m.mu.Unlock()

	if !current {
		return
	}

	if !errors.Is(err, io.EOF) {
		m.logger.Warn("tool server connection lost", "server", name, "error", err)
	}
	m.Disconnect(name)
}

func (m *Manager) emit(event Event) {
	if m.observer != nil {
		m.observer(event)
	}
}

// normalizeResult converts arbitrary handler output into the single result
// shape: strings pass through, ToolResults pass through, everything else is
// JSON-encoded.
func normalizeResult(out interface{}) ToolResult {
	switch v := out.(type) {
	case nil:
		return TextResult("")
	case string:
		return TextResult(v)
	case ToolResult:
		return v
	case *ToolResult:
		return *v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ErrorResult(fmt.Sprintf("tool returned unencodable result: %v", err))
		}
		return TextResult(string(data))
	}
}

// firstText extracts the first text item of a result for event reporting.
func firstText(result ToolResult) string {
	for _, item := range result.Content {
		if item.Type == "text" {
			return item.Text
		}
	}
	return ""
}
