// Package testutil provides a scripted llm.Completer for stage tests.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/ontogenia/llm"
)

// MockLLMClient replays canned completions and records every request.
//
//	mock := &testutil.MockLLMClient{
//	    Responses: []*llm.Response{{Content: "```xml\n<rdf:RDF/>\n```"}},
//	}
//
// Err, when set, is returned for every call instead of a response.
type MockLLMClient struct {
	mu            sync.Mutex
	Responses     []*llm.Response
	Err           error
	requests      []llm.Request
	lastContext   context.Context
	responseIndex int
}

var _ llm.Completer = (*MockLLMClient)(nil)

// Complete returns the next scripted response. Once the script is exhausted
// the last response is repeated.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastContext = ctx
	m.requests = append(m.requests, req)

	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(m.Responses) == 0 {
		return &llm.Response{RequestID: "mock", Model: "mock-model"}, nil
	}
	resp := m.Responses[m.responseIndex]
	if m.responseIndex < len(m.Responses)-1 {
		m.responseIndex++
	}
	out := *resp
	if out.RequestID == "" {
		out.RequestID = "mock"
	}
	return &out, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockLLMClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockLLMClient) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}

// LastContext returns the context passed to the latest Complete call.
func (m *MockLLMClient) LastContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastContext
}

// CallCount returns the number of Complete calls.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
