// Package schema infers a data schema from free-text app ideas, with a
// deterministic keyword fallback so inference never fails outright.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/llm"
	"github.com/matura-ai/matura-engine/pkg/logging"
	"github.com/matura-ai/matura-engine/pkg/models"
	"github.com/matura-ai/matura-engine/pkg/prompts"
	"github.com/matura-ai/matura-engine/pkg/retry"
)

// Engine derives schemas and intents from idea text.
type Engine struct {
	registry  *llm.Registry
	preferred []string
	retry     *retry.Config
	logger    *zap.Logger
}

// NewEngine creates a schema inference engine. preferred names the provider
// order to try for AI-backed inference.
func NewEngine(registry *llm.Registry, preferred []string, logger *zap.Logger) *Engine {
	return &Engine{
		registry:  registry,
		preferred: preferred,
		retry:     retry.DefaultConfig(),
		logger:    logger.Named("schema"),
	}
}

// SetRetryConfig overrides the backoff applied to transient provider
// failures before falling through to the next provider.
func (e *Engine) SetRetryConfig(cfg *retry.Config) {
	if cfg != nil {
		e.retry = cfg
	}
}

// structuredCall runs one structured call against a provider, retrying
// transient failures with backoff.
func (e *Engine) structuredCall(ctx context.Context, provider llm.Provider, call *llm.StructuredCall) (*llm.Result, error) {
	var result *llm.Result
	err := retry.DoIfRetryable(ctx, e.retry, func() error {
		r, err := provider.ExecuteStructured(ctx, call)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// aiSchemaResponse is the raw shape of the infer_schema structured call.
type aiSchemaResponse struct {
	TableName string `json:"table_name"`
	Fields    []struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Required bool   `json:"required"`
		Label    string `json:"label"`
	} `json:"fields"`
}

// InferSchema derives a table name and typed field list from idea text.
// It attempts a structured AI call first and falls back to deterministic
// keyword matching on any provider or validation failure, so it never
// fails for a non-empty idea.
func (e *Engine) InferSchema(ctx context.Context, idea string) (*models.Schema, error) {
	if strings.TrimSpace(idea) == "" {
		return nil, apperrors.NewValidationError("idea", "must not be empty")
	}

	for _, provider := range e.registry.Chain(e.preferred...) {
		result, err := e.structuredCall(ctx, provider, &llm.StructuredCall{
			Name:        "infer_schema",
			Description: "Derive the data table an app manages",
			Parameters:  prompts.SchemaFunctionSpec(),
			System:      prompts.SchemaSystemPrompt,
			Prompt:      prompts.BuildSchemaPrompt(idea, ""),
			Temperature: 0.2,
			MaxTokens:   1024,
		})
		if err != nil {
			e.logger.Warn("schema inference call failed",
				zap.String("provider", provider.Name()),
				zap.String("idea", logging.TruncateForLog(idea, 80)),
				zap.String("error", logging.Sanitize(err.Error())))
			continue
		}

		schema, err := e.convertResponse(result.Data)
		if err != nil {
			e.logger.Warn("schema inference returned unusable payload",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}

		llm.RecordContribution(ctx, provider.Name())
		e.logger.Info("schema inferred",
			zap.String("provider", provider.Name()),
			zap.String("table", schema.TableName),
			zap.Int("fields", len(schema.Fields)))
		return schema, nil
	}

	// Deterministic fallback: availability over fidelity.
	schema := FallbackSchema(idea)
	schema.EnsureBaseFields()
	e.logger.Info("schema inferred via keyword fallback",
		zap.String("table", schema.TableName))
	return schema, nil
}

// convertResponse validates the AI payload and converts it to a Schema.
func (e *Engine) convertResponse(data json.RawMessage) (*models.Schema, error) {
	var resp aiSchemaResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode schema payload: %w", err)
	}
	if resp.TableName == "" {
		return nil, fmt.Errorf("missing table name")
	}
	if len(resp.Fields) == 0 {
		return nil, fmt.Errorf("empty field list")
	}

	tableName, err := DeriveTableName(resp.TableName)
	if err != nil {
		return nil, err
	}

	schema := &models.Schema{TableName: tableName}
	seen := make(map[string]bool, len(resp.Fields))
	for _, f := range resp.Fields {
		name := normalizeFieldName(f.Name)
		if name == "" || seen[name] {
			continue
		}
		switch name {
		case models.SystemFieldID, models.SystemFieldCreatedAt, models.SystemFieldUpdatedAt:
			continue // implicit, appended below
		}
		seen[name] = true
		schema.Fields = append(schema.Fields, models.Field{
			Name:     name,
			Type:     normalizeFieldType(f.Type),
			Required: f.Required,
			Label:    f.Label,
		})
	}
	if len(schema.Fields) == 0 {
		return nil, fmt.Errorf("no usable fields after normalization")
	}

	schema.EnsureBaseFields()
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}

// normalizeFieldName lowercases and snake-cases a field name, dropping
// anything that does not survive as a valid identifier.
func normalizeFieldName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	name = strings.Trim(b.String(), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return ""
	}
	return name
}

// normalizeFieldType coerces loose AI type names onto the supported enum.
func normalizeFieldType(raw string) models.FieldType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "number", "integer", "int", "float", "numeric", "currency":
		return models.FieldTypeNumber
	case "boolean", "bool", "checkbox":
		return models.FieldTypeBoolean
	case "date", "datetime", "timestamp", "time":
		return models.FieldTypeDate
	case "select", "enum", "choice", "option":
		return models.FieldTypeSelect
	default:
		return models.FieldTypeText
	}
}

// AnalyzeIntent extracts a structured Intent from idea text. Like schema
// inference it degrades to a deterministic guess rather than failing.
func (e *Engine) AnalyzeIntent(ctx context.Context, idea string) (*models.Intent, error) {
	if strings.TrimSpace(idea) == "" {
		return nil, apperrors.NewValidationError("idea", "must not be empty")
	}

	for _, provider := range e.registry.Chain(e.preferred...) {
		result, err := e.structuredCall(ctx, provider, &llm.StructuredCall{
			Name:        "analyze_intent",
			Description: "Extract structured intent from an app idea",
			Parameters:  prompts.IntentFunctionSpec(),
			System:      prompts.IntentSystemPrompt,
			Prompt:      prompts.BuildIntentPrompt(idea),
			Temperature: 0.2,
			MaxTokens:   1024,
		})
		if err != nil {
			e.logger.Warn("intent analysis call failed",
				zap.String("provider", provider.Name()),
				zap.String("error", logging.Sanitize(err.Error())))
			continue
		}

		var intent models.Intent
		if err := json.Unmarshal(result.Data, &intent); err != nil {
			e.logger.Warn("intent analysis returned unusable payload", zap.Error(err))
			continue
		}
		llm.RecordContribution(ctx, provider.Name())
		return models.NormalizeIntent(&intent), nil
	}

	return fallbackIntent(idea), nil
}

// fallbackIntent builds a minimal intent from the fallback schema's table.
func fallbackIntent(idea string) *models.Intent {
	schema := FallbackSchema(idea)
	category := models.CategoryOther
	switch schema.TableName {
	case "tasks", "notes", "events":
		category = models.CategoryProductivity
	case "expenses":
		category = models.CategoryFinance
	case "habits", "workouts":
		category = models.CategoryHealth
	case "customers", "stock_items":
		category = models.CategoryEcommerce
	}
	return &models.Intent{
		Category:       category,
		PrimaryPurpose: fmt.Sprintf("Manage %s", strings.ReplaceAll(schema.TableName, "_", " ")),
		KeyFeatures:    []string{"create records", "list records", "edit records", "delete records"},
		Complexity:     models.ComplexitySimple,
	}
}
