package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ndewijer/exchange-rate-oracle/internal/transport"
)

// ErrNoResponse is returned by a MockTransport without a responder.
var ErrNoResponse = errors.New("mock transport: no response configured")

// Responder produces the body for one outbound request.
type Responder func(req transport.Request) ([]byte, error)

// MockTransport is a mock implementation of transport.Getter for testing.
// It returns what its Responder produces instead of making network calls.
type MockTransport struct {
	mu        sync.Mutex
	responder Responder
	delay     time.Duration
	calls     []transport.Request
	// gate, when set, blocks every call until it is closed.
	gate chan struct{}
}

// NewMockTransport creates a mock transport that fails every request.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Get records req and returns the configured response.
func (m *MockTransport) Get(ctx context.Context, req transport.Request) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	responder, delay, gate := m.responder, m.delay, m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if responder == nil {
		return nil, ErrNoResponse
	}
	return responder(req)
}

// WithResponder configures the function that answers every request.
func (m *MockTransport) WithResponder(r Responder) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = r
	return m
}

// WithError configures the mock to fail every request with err.
func (m *MockTransport) WithError(err error) *MockTransport {
	return m.WithResponder(func(transport.Request) ([]byte, error) { return nil, err })
}

// WithDelay delays every response by d.
func (m *MockTransport) WithDelay(d time.Duration) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithGate blocks every request until the returned function is called.
func (m *MockTransport) WithGate() (*MockTransport, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.gate = gate
	var once sync.Once
	return m, func() { once.Do(func() { close(gate) }) }
}

// CallCount returns how many requests were made.
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of every recorded request.
func (m *MockTransport) Calls() []transport.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transport.Request(nil), m.calls...)
}

// Reset forgets recorded requests.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
