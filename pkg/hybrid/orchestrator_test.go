package hybrid

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/codegen"
	"github.com/matura-ai/matura-engine/pkg/figma"
	"github.com/matura-ai/matura-engine/pkg/llm"
	"github.com/matura-ai/matura-engine/pkg/models"
	"github.com/matura-ai/matura-engine/pkg/repair"
	"github.com/matura-ai/matura-engine/pkg/retry"
	schemapkg "github.com/matura-ai/matura-engine/pkg/schema"
)

const expenseComponent = `import { useState, useEffect } from 'react';

export default function Expenses() {
  const [items, setItems] = useState([]);
  useEffect(() => { fetch('/api/crud/expenses').then(r => r.json()).then(setItems); }, []);
  const create = (body) => fetch('/api/crud/expenses', { method: 'POST', body: JSON.stringify(body) });
  const update = (id, body) => fetch('/api/crud/expenses?id=' + id, { method: 'PUT', body: JSON.stringify(body) });
  const remove = (id) => fetch('/api/crud/expenses?id=' + id, { method: 'DELETE' });
  return null;
}`

// fullServiceMock answers every pipeline call the way a healthy provider
// would: structured calls by function name, text calls with the component.
func fullServiceMock(name string, meter *llm.UsageMeter) *llm.MockProvider {
	mock := llm.NewMockProvider(name)
	mock.Meter = meter
	mock.ExecuteStructuredFunc = func(ctx context.Context, call *llm.StructuredCall) (*llm.Result, error) {
		var payload any
		switch call.Name {
		case "analyze_intent":
			payload = map[string]any{
				"category":        "finance",
				"primary_purpose": "Track household spending",
				"key_features":    []string{"add expense", "view totals"},
				"complexity":      "simple",
			}
		case "infer_schema":
			payload = map[string]any{
				"table_name": "expense",
				"fields": []map[string]any{
					{"name": "description", "type": "text", "required": true},
					{"name": "amount", "type": "number", "required": true},
				},
			}
		case "score_quality":
			payload = map[string]any{
				"structure": 85, "completeness": 90, "accessibility": 70, "overall": 82,
			}
		default:
			return nil, errors.New("unexpected call " + call.Name)
		}
		data, _ := json.Marshal(payload)
		return &llm.Result{Data: data, Quality: 0.9, Provider: name}, nil
	}
	mock.GenerateTextFunc = func(ctx context.Context, req *llm.TextRequest) (*llm.Result, error) {
		return &llm.Result{Text: expenseComponent, Provider: name}, nil
	}
	return mock
}

func fastRetry() *retry.Config {
	return &retry.Config{
		MaxRetries:   1,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newOrchestrator(design figma.DesignProvider, providers ...*llm.MockProvider) (*Orchestrator, *llm.Registry) {
	meter := llm.NewUsageMeter()
	registry := llm.NewRegistry(meter)
	for _, p := range providers {
		if p.Meter == nil {
			p.Meter = meter
		}
		registry.Register(p)
	}
	logger := zap.NewNop()
	schemaEngine := schemapkg.NewEngine(registry, nil, logger)
	schemaEngine.SetRetryConfig(fastRetry())
	codegenEngine := codegen.NewEngine(registry, nil, logger)
	codegenEngine.SetRetryConfig(fastRetry())
	repairLoop := repair.NewLoop(codegenEngine, 2, logger)
	return NewOrchestrator(registry, schemaEngine, codegenEngine, repairLoop, design, nil, logger), registry
}

func TestGenerateEmptyIdea(t *testing.T) {
	mock := fullServiceMock(llm.ProviderOpenAI, nil)
	orch, _ := newOrchestrator(nil, mock)

	_, err := orch.Generate(context.Background(), &Request{Idea: "  ", Tier: models.TierQuick})
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, mock.TotalCalls())
}

func TestGenerateNoProviders(t *testing.T) {
	orch, _ := newOrchestrator(nil)

	_, err := orch.Generate(context.Background(), &Request{Idea: "家計簿アプリ", Tier: models.TierQuick})
	var genErr *apperrors.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "setup", genErr.Stage)
}

func TestGenerateFullPipeline(t *testing.T) {
	mock := fullServiceMock(llm.ProviderOpenAI, nil)
	orch, _ := newOrchestrator(nil, mock)

	result, err := orch.Generate(context.Background(), &Request{
		Idea: "家計簿アプリを作りたい",
		Tier: models.TierQuick,
	})
	require.NoError(t, err)

	assert.Equal(t, "expenses", result.Schema.TableName)
	assert.Equal(t, models.CategoryFinance, result.Intent.Category)
	assert.NoError(t, codegen.VerifyCRUDContract(result.Code, "expenses"))
	assert.Equal(t, 82, result.Quality.Overall)
	assert.Equal(t, []string{llm.ProviderOpenAI}, result.Providers)
	assert.Greater(t, result.Confidence, 0.5)
	assert.Nil(t, result.Design)
}

func TestGenerateDesignStageFailureDegrades(t *testing.T) {
	mock := fullServiceMock(llm.ProviderOpenAI, nil)
	design := &figma.MockDesignProvider{
		FetchFunc: func(ctx context.Context) (*models.DesignConfig, error) {
			return nil, errors.New("figma returned HTTP 503")
		},
	}
	orch, _ := newOrchestrator(design, mock)

	result, err := orch.Generate(context.Background(), &Request{
		Idea:            "task tracker",
		Tier:            models.TierQuick,
		UseDesignSystem: true,
	})
	require.NoError(t, err)

	// Code still generated; design absent.
	assert.Equal(t, 1, design.FetchCalls)
	assert.Nil(t, result.Design)
	assert.NotEmpty(t, result.Code)
}

func TestGenerateDesignTokensFlowIntoResult(t *testing.T) {
	mock := fullServiceMock(llm.ProviderOpenAI, nil)
	design := &figma.MockDesignProvider{
		FetchFunc: func(ctx context.Context) (*models.DesignConfig, error) {
			return &models.DesignConfig{Theme: "dark", PrimaryColor: "#222", Source: "figma"}, nil
		},
	}
	orch, _ := newOrchestrator(design, mock)

	result, err := orch.Generate(context.Background(), &Request{
		Idea:            "task tracker",
		Tier:            models.TierQuick,
		UseDesignSystem: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Design)
	assert.Equal(t, "dark", result.Design.Theme)
}

func TestGenerateAttributionExcludesFailedProvider(t *testing.T) {
	meter := llm.NewUsageMeter()

	failing := llm.NewMockProvider(llm.ProviderOpenAI)
	failing.Meter = meter
	failing.ExecuteStructuredFunc = func(ctx context.Context, call *llm.StructuredCall) (*llm.Result, error) {
		return nil, errors.New("503 service unavailable")
	}
	failing.GenerateTextFunc = func(ctx context.Context, req *llm.TextRequest) (*llm.Result, error) {
		return nil, errors.New("503 service unavailable")
	}

	working := fullServiceMock(llm.ProviderGemini, meter)

	registry := llm.NewRegistry(meter)
	registry.Register(failing)
	registry.Register(working)

	logger := zap.NewNop()
	schemaEngine := schemapkg.NewEngine(registry, nil, logger)
	schemaEngine.SetRetryConfig(fastRetry())
	codegenEngine := codegen.NewEngine(registry, nil, logger)
	codegenEngine.SetRetryConfig(fastRetry())
	repairLoop := repair.NewLoop(codegenEngine, 2, logger)
	orch := NewOrchestrator(registry, schemaEngine, codegenEngine, repairLoop, nil, nil, logger)

	result, err := orch.Generate(context.Background(), &Request{Idea: "expense tracker", Tier: models.TierQuick})
	require.NoError(t, err)

	assert.Equal(t, []string{llm.ProviderGemini}, result.Providers)
	assert.Greater(t, failing.TotalCalls(), 0)
}

func TestGenerateAttributionIgnoresConcurrentRuns(t *testing.T) {
	meter := llm.NewUsageMeter()

	// This run's OpenAI calls all fail, while a parallel run keeps landing
	// successful OpenAI calls on the shared meter.
	failing := llm.NewMockProvider(llm.ProviderOpenAI)
	failing.Meter = meter
	failing.ExecuteStructuredFunc = func(ctx context.Context, call *llm.StructuredCall) (*llm.Result, error) {
		meter.Record(llm.ProviderOpenAI, &llm.Result{Provider: llm.ProviderOpenAI})
		return nil, errors.New("invalid api key")
	}
	failing.GenerateTextFunc = func(ctx context.Context, req *llm.TextRequest) (*llm.Result, error) {
		meter.Record(llm.ProviderOpenAI, &llm.Result{Provider: llm.ProviderOpenAI})
		return nil, errors.New("invalid api key")
	}

	working := fullServiceMock(llm.ProviderGemini, meter)

	orch, _ := newOrchestratorOn(meter, failing, working)

	result, err := orch.Generate(context.Background(), &Request{Idea: "expense tracker", Tier: models.TierQuick})
	require.NoError(t, err)

	// Only the provider that served this run is attributed, even though
	// OpenAI's global success count rose during the window.
	assert.Equal(t, []string{llm.ProviderGemini}, result.Providers)
}

func newOrchestratorOn(meter *llm.UsageMeter, providers ...*llm.MockProvider) (*Orchestrator, *llm.Registry) {
	registry := llm.NewRegistry(meter)
	for _, p := range providers {
		registry.Register(p)
	}
	logger := zap.NewNop()
	schemaEngine := schemapkg.NewEngine(registry, nil, logger)
	schemaEngine.SetRetryConfig(fastRetry())
	codegenEngine := codegen.NewEngine(registry, nil, logger)
	codegenEngine.SetRetryConfig(fastRetry())
	repairLoop := repair.NewLoop(codegenEngine, 2, logger)
	return NewOrchestrator(registry, schemaEngine, codegenEngine, repairLoop, nil, nil, logger), registry
}

func TestGenerateQualityDegradesToHeuristic(t *testing.T) {
	mock := fullServiceMock(llm.ProviderOpenAI, nil)
	inner := mock.ExecuteStructuredFunc
	mock.ExecuteStructuredFunc = func(ctx context.Context, call *llm.StructuredCall) (*llm.Result, error) {
		if call.Name == "score_quality" {
			return nil, errors.New("timeout")
		}
		return inner(ctx, call)
	}
	orch, _ := newOrchestrator(nil, mock)

	result, err := orch.Generate(context.Background(), &Request{Idea: "expense tracker", Tier: models.TierQuick})
	require.NoError(t, err)

	// Heuristic scores: non-zero, bounded.
	assert.Greater(t, result.Quality.Overall, 0)
	assert.LessOrEqual(t, result.Quality.Overall, 100)
}
