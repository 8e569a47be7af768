// Package codegen turns a schema and intent into UI component source.
// Quality tiers differ in the number of LLM passes: quick is one shot,
// advanced and premium feed each pass's output into the next.
package codegen

import (
	"context"
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

// Stage names reported in generation errors.
const (
	StageRequirements   = "requirements"
	StageArchitecture   = "architecture"
	StageImplementation = "implementation"
	StageReview         = "review"
)

// Engine generates component source against the registered providers.
type Engine struct {
	registry  *llm.Registry
	preferred []string
	retry     *retry.Config
	logger    *zap.Logger
}

// NewEngine creates a code generation engine. preferred names the provider
// order to try for generation passes.
func NewEngine(registry *llm.Registry, preferred []string, logger *zap.Logger) *Engine {
	return &Engine{
		registry:  registry,
		preferred: preferred,
		retry:     retry.DefaultConfig(),
		logger:    logger.Named("codegen"),
	}
}

// SetRetryConfig overrides the backoff applied to transient provider
// failures before falling through to the next provider.
func (e *Engine) SetRetryConfig(cfg *retry.Config) {
	if cfg != nil {
		e.retry = cfg
	}
}

// GenerateComponent produces a self-contained UI component for the schema.
// The returned source always honors the /api/crud/{table} contract; a
// violation or failed pass surfaces as a *apperrors.GenerationError naming
// the stage, never as silently truncated source.
func (e *Engine) GenerateComponent(
	ctx context.Context,
	schema *models.Schema,
	intent *models.Intent,
	design *models.DesignConfig,
	tier models.QualityTier,
) (string, error) {
	var stageContext string

	switch tier {
	case models.TierQuick:
		// single pass, no accumulated context

	case models.TierAdvanced:
		requirements, err := e.textPass(ctx, StageRequirements, prompts.BuildRequirementsPrompt(schema, intent), 0.3)
		if err != nil {
			return "", err
		}
		stageContext = "### Requirements\n\n" + requirements

	case models.TierPremium:
		requirements, err := e.textPass(ctx, StageRequirements, prompts.BuildRequirementsPrompt(schema, intent), 0.3)
		if err != nil {
			return "", err
		}
		architecture, err := e.textPass(ctx, StageArchitecture, prompts.BuildArchitecturePrompt(requirements), 0.3)
		if err != nil {
			return "", err
		}
		stageContext = "### Requirements\n\n" + requirements + "\n\n### Architecture\n\n" + architecture

	default:
		return "", apperrors.NewValidationError("mode", fmt.Sprintf("unknown quality tier %q", tier))
	}

	code, err := e.textPass(ctx, StageImplementation,
		prompts.BuildComponentPrompt(schema, intent, design, stageContext), 0.5)
	if err != nil {
		return "", err
	}

	if tier == models.TierPremium {
		reviewed, err := e.textPass(ctx, StageReview, prompts.BuildReviewPrompt(code), 0.3)
		if err == nil && strings.TrimSpace(reviewed) != "" {
			// A failed review pass keeps the draft rather than failing the run.
			code = reviewed
		}
	}

	code = llm.StripCode(code)
	if err := VerifyCRUDContract(code, schema.TableName); err != nil {
		return "", apperrors.NewGenerationError(StageImplementation, "contract violation", err)
	}

	e.logger.Info("component generated",
		zap.String("table", schema.TableName),
		zap.String("tier", string(tier)),
		zap.Int("source_len", len(code)))
	return code, nil
}

// RegenerateWithErrors re-invokes generation with the validation errors
// appended to the prompt context. Used by the self-repair loop.
func (e *Engine) RegenerateWithErrors(
	ctx context.Context,
	schema *models.Schema,
	intent *models.Intent,
	code string,
	errors []string,
) (string, error) {
	repaired, err := e.textPass(ctx, StageImplementation,
		prompts.BuildRepairPrompt(schema, intent, code, errors), 0.3)
	if err != nil {
		return "", err
	}

	repaired = llm.StripCode(repaired)
	if err := VerifyCRUDContract(repaired, schema.TableName); err != nil {
		return "", apperrors.NewGenerationError(StageImplementation, "contract violation after repair", err)
	}
	return repaired, nil
}

// textPass runs one free-text generation pass against the provider chain.
// Transient failures are retried with backoff on the same provider before
// falling through to the next one; permanent failures fall through at once.
func (e *Engine) textPass(ctx context.Context, stage, prompt string, temperature float64) (string, error) {
	var lastErr error

	for _, provider := range e.registry.Chain(e.preferred...) {
		var result *llm.Result
		err := retry.DoIfRetryable(ctx, e.retry, func() error {
			r, err := provider.GenerateText(ctx, &llm.TextRequest{
				System:      prompts.CodegenSystemPrompt,
				Prompt:      prompt,
				Temperature: temperature,
				MaxTokens:   8192,
			})
			if err != nil {
				return err
			}
			result = r
			return nil
		})
		if err != nil {
			lastErr = err
			e.logger.Warn("generation pass failed",
				zap.String("stage", stage),
				zap.String("provider", provider.Name()),
				zap.String("error", logging.Sanitize(err.Error())))
			continue
		}
		if strings.TrimSpace(result.Text) == "" {
			lastErr = fmt.Errorf("provider %s returned empty output", provider.Name())
			continue
		}
		llm.RecordContribution(ctx, provider.Name())
		return result.Text, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers available")
	}
	return "", apperrors.NewGenerationError(stage, "all providers failed", lastErr)
}
