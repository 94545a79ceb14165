package operations

import (
	"context"
	"sync"
)

// mockStep is a configurable Step that records its calls
type mockStep struct {
	BaseStep

	executeFunc  func(ctx context.Context, state *RunState) error
	validateFunc func(state *RunState) error

	mu           sync.Mutex
	executeCalls int
}

func newMockStep(id string, deps ...string) *mockStep {
	return &mockStep{BaseStep: NewBaseStep(id, "Step "+id, deps...)}
}

func (m *mockStep) Execute(ctx context.Context, state *RunState) error {
	m.mu.Lock()
	m.executeCalls++
	m.mu.Unlock()

	if m.executeFunc != nil {
		return m.executeFunc(ctx, state)
	}
	return nil
}

func (m *mockStep) Validate(state *RunState) error {
	if m.validateFunc != nil {
		return m.validateFunc(state)
	}
	return nil
}

func (m *mockStep) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

func stepIDs(steps []Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}
