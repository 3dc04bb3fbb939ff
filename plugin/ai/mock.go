package ai

import (
	"context"
	"sync"
)

// MockGenerator is a scripted Generator for tests.
type MockGenerator struct {
	mu sync.Mutex

	// Verdict is returned by ClassifyShouldRespond (default RESPOND).
	Verdict ShouldRespond
	// Extractions maps a schema name to the fields ExtractStructured returns.
	Extractions map[string]map[string]any
	// Completion is returned by Complete.
	Completion string

	CompleteErr error
	ClassifyErr error
	ExtractErr  error

	Calls   map[string]int
	Prompts []string
}

var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock that answers RESPOND and extracts nothing.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Verdict:     Respond,
		Extractions: make(map[string]map[string]any),
		Completion:  "ok",
		Calls:       make(map[string]int),
	}
}

func (m *MockGenerator) record(method, prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[method]++
	m.Prompts = append(m.Prompts, prompt)
}

func (m *MockGenerator) Complete(_ context.Context, prompt string) (string, error) {
	m.record("Complete", prompt)
	if m.CompleteErr != nil {
		return "", m.CompleteErr
	}
	return m.Completion, nil
}

func (m *MockGenerator) ClassifyShouldRespond(_ context.Context, prompt string) (ShouldRespond, error) {
	m.record("ClassifyShouldRespond", prompt)
	if m.ClassifyErr != nil {
		return "", m.ClassifyErr
	}
	return m.Verdict, nil
}

func (m *MockGenerator) ExtractStructured(_ context.Context, prompt string, schema *Schema) (map[string]any, error) {
	m.record("ExtractStructured:"+schema.Name, prompt)
	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}
	fields := make(map[string]any)
	for k, v := range m.Extractions[schema.Name] {
		fields[k] = v
	}
	return fields, nil
}

// CallCount returns how often method was invoked.
func (m *MockGenerator) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}
