package llm

import (
	"sync"
)

// Usage accumulates token counts for one provider, for cost accounting.
type Usage struct {
	Calls            int64 `json:"calls"`
	Failures         int64 `json:"failures"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// UsageMeter tracks per-provider token usage across all in-flight requests.
// It is the only shared mutable state between independent generation runs.
type UsageMeter struct {
	mu         sync.Mutex
	byProvider map[string]*Usage
}

// NewUsageMeter creates an empty meter.
func NewUsageMeter() *UsageMeter {
	return &UsageMeter{byProvider: make(map[string]*Usage)}
}

// Record adds a successful call's token counts to the provider's totals.
func (m *UsageMeter) Record(provider string, r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.usage(provider)
	u.Calls++
	if r != nil {
		u.PromptTokens += int64(r.PromptTokens)
		u.CompletionTokens += int64(r.CompletionTokens)
		u.TotalTokens += int64(r.TotalTokens)
	}
}

// RecordFailure counts a failed call against the provider.
func (m *UsageMeter) RecordFailure(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.usage(provider)
	u.Calls++
	u.Failures++
}

// Snapshot returns a copy of the per-provider usage totals.
func (m *UsageMeter) Snapshot() map[string]Usage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Usage, len(m.byProvider))
	for name, u := range m.byProvider {
		out[name] = *u
	}
	return out
}

func (m *UsageMeter) usage(provider string) *Usage {
	u, ok := m.byProvider[provider]
	if !ok {
		u = &Usage{}
		m.byProvider[provider] = u
	}
	return u
}
