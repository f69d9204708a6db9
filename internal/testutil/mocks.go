package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/davidrioja/reelforge/internal/core"
)

// MockTool implements core.ToolAdapter for testing.
type MockTool struct {
	name       core.ToolName
	kind       core.ToolKind
	invokeFunc func(context.Context, core.ToolInput) (*core.ToolOutput, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a call to the mock.
type MockCall struct {
	Input     core.ToolInput
	Timestamp time.Time
}

// NewMockTool creates a mock for the given tool name.
func NewMockTool(name core.ToolName) *MockTool {
	kind, _ := core.KindOf(name)
	return &MockTool{name: name, kind: kind}
}

// Name returns the tool name.
func (m *MockTool) Name() core.ToolName { return m.name }

// Kind returns the tool kind.
func (m *MockTool) Kind() core.ToolKind { return m.kind }

// Invoke records the call and runs the configured function.
func (m *MockTool) Invoke(ctx context.Context, input core.ToolInput) (*core.ToolOutput, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Input: input, Timestamp: time.Now()})
	m.mu.Unlock()

	if m.invokeFunc != nil {
		return m.invokeFunc(ctx, input)
	}
	return &core.ToolOutput{
		Code: "export default function MockScene() {\n  return <AbsoluteFill />;\n}",
		Name: "Mock scene",
	}, nil
}

// WithInvokeFunc sets a custom invoke function.
func (m *MockTool) WithInvokeFunc(fn func(context.Context, core.ToolInput) (*core.ToolOutput, error)) *MockTool {
	m.invokeFunc = fn
	return m
}

// WithOutput configures a fixed output.
func (m *MockTool) WithOutput(out *core.ToolOutput) *MockTool {
	m.invokeFunc = func(context.Context, core.ToolInput) (*core.ToolOutput, error) {
		return out, nil
	}
	return m
}

// WithError configures the mock to fail.
func (m *MockTool) WithError(err error) *MockTool {
	m.invokeFunc = func(context.Context, core.ToolInput) (*core.ToolOutput, error) {
		return nil, err
	}
	return m
}

// Calls returns the recorded calls.
func (m *MockTool) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the tool was invoked.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockChat implements core.ChatClient with scripted responses. Each call
// consumes the next response; the last one repeats once exhausted.
type MockChat struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []core.ChatRequest
}

// NewMockChat creates a scripted chat client.
func NewMockChat(responses ...string) *MockChat {
	return &MockChat{responses: responses}
}

// WithError configures the client to fail every call.
func (m *MockChat) WithError(err error) *MockChat {
	m.err = err
	return m
}

// Complete records the request and returns the next scripted response.
func (m *MockChat) Complete(_ context.Context, req core.ChatRequest) (*core.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &core.ChatResponse{Content: ""}, nil
	}
	content := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return &core.ChatResponse{Content: content, Model: "mock"}, nil
}

// Requests returns the recorded requests.
func (m *MockChat) Requests() []core.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// MockRegistry implements core.ToolRegistry over a fixed set of mocks.
type MockRegistry struct {
	mu    sync.RWMutex
	tools map[core.ToolName]core.ToolAdapter
}

// NewMockRegistry creates a registry with the given tools.
func NewMockRegistry(tools ...core.ToolAdapter) *MockRegistry {
	r := &MockRegistry{tools: make(map[core.ToolName]core.ToolAdapter)}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Register adds or replaces a tool.
func (r *MockRegistry) Register(tool core.ToolAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *MockRegistry) Get(name core.ToolName) (core.ToolAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, core.ErrNotFound("tool", string(name))
	}
	return tool, nil
}

// List returns all registered tool names.
func (r *MockRegistry) List() []core.ToolName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]core.ToolName, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
