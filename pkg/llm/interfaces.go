// Package llm wraps the external AI backends (OpenAI, Gemini, Anthropic)
// behind a uniform structured-call / free-text contract.
package llm

import (
	"context"
	"encoding/json"
)

// Provider names used for routing and attribution.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// StructuredCall requests output conforming to a named, typed function-call
// schema. Parameters is a JSON-Schema object describing the expected shape.
type StructuredCall struct {
	Name        string
	Description string
	Parameters  map[string]any
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TextRequest is an unstructured completion request.
type TextRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Result is the outcome of a provider call. Data is set for structured
// calls, Text for free-text calls. Quality is the provider's confidence in
// the response, in the 0-1 range.
type Result struct {
	Data             json.RawMessage
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Quality          float64
	Provider         string
}

// Provider is the uniform contract every AI backend implements.
// Callers must be provider-agnostic; retries and fallback are the
// orchestrator's responsibility, not the adapter's.
type Provider interface {
	// Name returns the provider identifier for routing and attribution.
	Name() string

	// ExecuteStructured sends a structured function-call request and parses
	// the response into Result.Data. Non-conforming payloads fail with a
	// format-classified *Error.
	ExecuteStructured(ctx context.Context, call *StructuredCall) (*Result, error)

	// GenerateText sends a free-text completion request.
	GenerateText(ctx context.Context, req *TextRequest) (*Result, error)
}

// ParameterProperty defines a parameter property in JSON Schema format.
type ParameterProperty struct {
	Type        string
	Description string
	Enum        []string
	Items       map[string]any
}

// NewFunctionSpec builds the Parameters object for a structured call from a
// flat property map.
func NewFunctionSpec(properties map[string]ParameterProperty, required []string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, p := range properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Items != nil {
			prop["items"] = p.Items
		}
		props[name] = prop
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
