package llm

import (
	"context"
)

// MockProvider is a configurable mock for testing provider-dependent code.
// Set the function fields to control behavior in tests.
type MockProvider struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// ExecuteStructuredFunc is called when ExecuteStructured is invoked.
	// If nil, returns an empty JSON object result.
	ExecuteStructuredFunc func(ctx context.Context, call *StructuredCall) (*Result, error)

	// GenerateTextFunc is called when GenerateText is invoked.
	// If nil, returns an empty text result.
	GenerateTextFunc func(ctx context.Context, req *TextRequest) (*Result, error)

	// Meter, when set, records calls like the real providers do so tests
	// can exercise usage-based provider attribution.
	Meter *UsageMeter

	// Call tracking for verification
	ExecuteStructuredCalls int
	GenerateTextCalls      int
}

// NewMockProvider creates a new mock with sensible defaults.
func NewMockProvider(name string) *MockProvider {
	if name == "" {
		name = "mock"
	}
	return &MockProvider{ProviderName: name}
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// ExecuteStructured implements Provider.
func (m *MockProvider) ExecuteStructured(ctx context.Context, call *StructuredCall) (*Result, error) {
	m.ExecuteStructuredCalls++
	if m.ExecuteStructuredFunc != nil {
		result, err := m.ExecuteStructuredFunc(ctx, call)
		m.record(result, err)
		return result, err
	}
	result := &Result{Data: []byte(`{}`), Quality: 0.9, Provider: m.Name()}
	m.record(result, nil)
	return result, nil
}

// GenerateText implements Provider.
func (m *MockProvider) GenerateText(ctx context.Context, req *TextRequest) (*Result, error) {
	m.GenerateTextCalls++
	if m.GenerateTextFunc != nil {
		result, err := m.GenerateTextFunc(ctx, req)
		m.record(result, err)
		return result, err
	}
	result := &Result{Text: "", Quality: 0.9, Provider: m.Name()}
	m.record(result, nil)
	return result, nil
}

func (m *MockProvider) record(result *Result, err error) {
	if m.Meter == nil {
		return
	}
	if err != nil {
		m.Meter.RecordFailure(m.Name())
		return
	}
	m.Meter.Record(m.Name(), result)
}

// Reset clears call tracking counters.
func (m *MockProvider) Reset() {
	m.ExecuteStructuredCalls = 0
	m.GenerateTextCalls = 0
}

// TotalCalls returns the combined number of structured and text calls.
func (m *MockProvider) TotalCalls() int {
	return m.ExecuteStructuredCalls + m.GenerateTextCalls
}

// Ensure MockProvider implements Provider at compile time.
var _ Provider = (*MockProvider)(nil)
