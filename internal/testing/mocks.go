package testing

import (
	"context"
	"sync"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/execution"
)

// MockExecutor is a mock implementation of execution.Executor for testing.
// By default it answers every request with all shots on the all-zero outcome.
type MockExecutor struct {
	mu       sync.RWMutex
	requests []execution.Request
	counts   func(req execution.Request) domain.Counts
	err      error
}

// NewMockExecutor creates a new mock executor
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// SetCounts sets the function producing counts for a request
func (m *MockExecutor) SetCounts(fn func(req execution.Request) domain.Counts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = fn
}

// SetError sets the error to return
func (m *MockExecutor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns the requests received so far
func (m *MockExecutor) Requests() []execution.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]execution.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Execute records the request and returns the configured counts or error
func (m *MockExecutor) Execute(_ context.Context, req execution.Request) (*execution.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	var counts domain.Counts
	if m.counts != nil {
		counts = m.counts(req)
	} else {
		zero := make([]byte, req.Circuit.NumClbits)
		for i := range zero {
			zero[i] = '0'
		}
		counts = domain.Counts{string(zero): req.Shots}
	}
	return &execution.Result{Counts: counts, Shots: req.Shots, Backend: "mock"}, nil
}
