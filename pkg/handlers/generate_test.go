package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/codegen"
	"github.com/matura-ai/matura-engine/pkg/config"
	"github.com/matura-ai/matura-engine/pkg/hybrid"
	"github.com/matura-ai/matura-engine/pkg/llm"
	"github.com/matura-ai/matura-engine/pkg/models"
	"github.com/matura-ai/matura-engine/pkg/repair"
	"github.com/matura-ai/matura-engine/pkg/repositories"
	schemapkg "github.com/matura-ai/matura-engine/pkg/schema"
	"github.com/matura-ai/matura-engine/pkg/store"
)

const tasksComponent = `import { useState, useEffect } from 'react';

export default function Tasks() {
  const [items, setItems] = useState([]);
  useEffect(() => { fetch('/api/crud/tasks').then(r => r.json()).then(setItems); }, []);
  const create = (body) => fetch('/api/crud/tasks', { method: 'POST', body: JSON.stringify(body) });
  const update = (id, body) => fetch('/api/crud/tasks?id=' + id, { method: 'PUT', body: JSON.stringify(body) });
  const remove = (id) => fetch('/api/crud/tasks?id=' + id, { method: 'DELETE' });
  return null;
}`

// pipelineMock answers every stage of the pipeline for a task app.
func pipelineMock(meter *llm.UsageMeter) *llm.MockProvider {
	mock := llm.NewMockProvider(llm.ProviderOpenAI)
	mock.Meter = meter
	mock.ExecuteStructuredFunc = func(ctx context.Context, call *llm.StructuredCall) (*llm.Result, error) {
		var payload any
		switch call.Name {
		case "analyze_intent":
			payload = map[string]any{
				"category":        "productivity",
				"primary_purpose": "Manage daily tasks",
				"key_features":    []string{"add a task", "mark complete"},
				"complexity":      "simple",
			}
		case "infer_schema":
			payload = map[string]any{
				"table_name": "task",
				"fields": []map[string]any{
					{"name": "title", "type": "text", "required": true},
					{"name": "completed", "type": "boolean"},
				},
			}
		case "score_quality":
			payload = map[string]any{"structure": 80, "completeness": 85, "accessibility": 60, "overall": 78}
		default:
			return nil, errors.New("unexpected call " + call.Name)
		}
		data, _ := json.Marshal(payload)
		return &llm.Result{Data: data, Provider: mock.Name()}, nil
	}
	mock.GenerateTextFunc = func(ctx context.Context, req *llm.TextRequest) (*llm.Result, error) {
		return &llm.Result{Text: tasksComponent, Provider: mock.Name()}, nil
	}
	return mock
}

// failingRepo simulates a broken persistence layer.
type failingRepo struct {
	repositories.AppRepository
}

func (r *failingRepo) Create(ctx context.Context, app *models.GeneratedApp) error {
	return apperrors.NewPersistenceError("create", errors.New("connection refused"))
}

func newGenerateServer(t *testing.T, mock *llm.MockProvider, repo repositories.AppRepository) (*httptest.Server, *store.TableStore) {
	t.Helper()

	meter := llm.NewUsageMeter()
	if mock.Meter == nil {
		mock.Meter = meter
	}
	registry := llm.NewRegistry(meter)
	registry.Register(mock)

	logger := zap.NewNop()
	schemaEngine := schemapkg.NewEngine(registry, nil, logger)
	codegenEngine := codegen.NewEngine(registry, nil, logger)
	repairLoop := repair.NewLoop(codegenEngine, 2, logger)
	orchestrator := hybrid.NewOrchestrator(registry, schemaEngine, codegenEngine, repairLoop, nil, nil, logger)

	if repo == nil {
		repo = repositories.NewMemoryAppRepository()
	}
	tables := store.New(logger)
	pipeline := &config.PipelineConfig{DefaultTier: "quick", MaxRepairRetries: 2}

	mux := http.NewServeMux()
	NewGenerateHandler(orchestrator, repo, tables, pipeline, logger).RegisterRoutes(mux)
	NewCRUDHandler(tables, logger).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, tables
}

func postGenerate(t *testing.T, url, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestGenerateEmptyIdeaRejectedBeforeProviderCalls(t *testing.T) {
	mock := pipelineMock(nil)
	srv, _ := newGenerateServer(t, mock, nil)

	resp, _ := postGenerate(t, srv.URL+"/api/generate", `{"idea": "   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	if mock.TotalCalls() != 0 {
		t.Errorf("expected zero provider calls, got %d", mock.TotalCalls())
	}
}

func TestGenerateInvalidMode(t *testing.T) {
	mock := pipelineMock(nil)
	srv, _ := newGenerateServer(t, mock, nil)

	resp, _ := postGenerate(t, srv.URL+"/api/generate", `{"idea": "task app", "mode": "ultra"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	srv, _ := newGenerateServer(t, pipelineMock(nil), nil)

	resp, body := postGenerate(t, srv.URL+"/api/generate", `{"idea": "an app to manage my tasks"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var response GenerateResponse
	full, _ := json.Marshal(body)
	if err := json.Unmarshal(full, &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Result.Schema.TableName != "tasks" {
		t.Errorf("expected table 'tasks', got %q", response.Result.Schema.TableName)
	}
	if !strings.Contains(response.Result.Code, "/api/crud/tasks") {
		t.Error("expected generated code to target /api/crud/tasks")
	}
	if !response.Saved {
		t.Error("expected app to be saved")
	}
	if response.App.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected app to have an assigned id")
	}

	// The generated table serves CRUD traffic immediately.
	crudResp, err := http.Post(srv.URL+"/api/crud/tasks", "application/json",
		strings.NewReader(`{"title": "first task"}`))
	if err != nil {
		t.Fatalf("crud request failed: %v", err)
	}
	defer crudResp.Body.Close()
	if crudResp.StatusCode != http.StatusCreated {
		t.Errorf("expected status %d from generated table, got %d", http.StatusCreated, crudResp.StatusCode)
	}
}

func TestGeneratePersistenceFailureStillReturnsApp(t *testing.T) {
	srv, _ := newGenerateServer(t, pipelineMock(nil), &failingRepo{})

	resp, body := postGenerate(t, srv.URL+"/api/generate", `{"idea": "task app"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var response GenerateResponse
	full, _ := json.Marshal(body)
	if err := json.Unmarshal(full, &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Saved {
		t.Error("expected saved=false when persistence fails")
	}
	if response.Result == nil || response.Result.Code == "" {
		t.Error("expected generation result despite persistence failure")
	}
}

func TestGenerateHybridOptions(t *testing.T) {
	mock := pipelineMock(nil)
	srv, _ := newGenerateServer(t, mock, nil)

	resp, _ := postGenerate(t, srv.URL+"/api/generate/hybrid",
		`{"idea": "task app", "mode": "premium", "enhance_idea": true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	// Premium runs requirements, architecture, implementation and review
	// passes plus the enhancement rewrite.
	if mock.GenerateTextCalls < 4 {
		t.Errorf("expected at least 4 text passes for premium, got %d", mock.GenerateTextCalls)
	}
}
