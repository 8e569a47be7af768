// Package hybrid runs the full idea-to-app pipeline: idea enhancement,
// intent analysis, schema inference, design synthesis, code generation with
// self-repair, and quality scoring. Each stage degrades independently so a
// single provider outage never fails the whole run.
package hybrid

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/codegen"
	"github.com/matura-ai/matura-engine/pkg/figma"
	"github.com/matura-ai/matura-engine/pkg/llm"
	"github.com/matura-ai/matura-engine/pkg/models"
	"github.com/matura-ai/matura-engine/pkg/prompts"
	"github.com/matura-ai/matura-engine/pkg/repair"
	schemapkg "github.com/matura-ai/matura-engine/pkg/schema"
)

// Request is one pipeline invocation.
type Request struct {
	Idea string
	// Tier selects the code generation depth.
	Tier models.QualityTier
	// UseDesignSystem enables the design synthesis stage. When the stage
	// fails the run proceeds without a design config.
	UseDesignSystem bool
	// EnhanceIdea runs a creative rewrite of vague ideas before analysis.
	EnhanceIdea bool
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	registry     *llm.Registry
	schemaEngine *schemapkg.Engine
	codegen      *codegen.Engine
	repairLoop   *repair.Loop
	design       figma.DesignProvider // nil when no design backend is configured
	preferred    []string
	logger       *zap.Logger
}

// NewOrchestrator creates a pipeline orchestrator. design may be nil.
func NewOrchestrator(
	registry *llm.Registry,
	schemaEngine *schemapkg.Engine,
	codegenEngine *codegen.Engine,
	repairLoop *repair.Loop,
	design figma.DesignProvider,
	preferred []string,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:     registry,
		schemaEngine: schemaEngine,
		codegen:      codegenEngine,
		repairLoop:   repairLoop,
		design:       design,
		preferred:    preferred,
		logger:       logger.Named("hybrid"),
	}
}

// Generate runs the full pipeline. Validation errors on the request surface
// before any provider call; downstream stage failures degrade where the
// stage is optional and return typed errors where it is not.
func (o *Orchestrator) Generate(ctx context.Context, req *Request) (*models.GenerationResult, error) {
	if strings.TrimSpace(req.Idea) == "" {
		return nil, apperrors.NewValidationError("idea", "must not be empty")
	}
	if o.registry.Empty() {
		return nil, apperrors.NewGenerationError("setup", "no AI providers configured", nil)
	}

	start := time.Now()
	// Attribution is collected per request; the shared usage meter keeps
	// running totals across parallel runs and cannot tell them apart.
	ctx, contrib := llm.WithContributions(ctx)

	idea := req.Idea
	if req.EnhanceIdea {
		idea = o.enhanceIdea(ctx, idea)
	}

	intent, err := o.schemaEngine.AnalyzeIntent(ctx, idea)
	if err != nil {
		return nil, err
	}

	schema, err := o.schemaEngine.InferSchema(ctx, idea)
	if err != nil {
		return nil, err
	}

	var design *models.DesignConfig
	if req.UseDesignSystem {
		design = o.fetchDesign(ctx)
	}

	code, err := o.codegen.GenerateComponent(ctx, schema, intent, design, req.Tier)
	if err != nil {
		return nil, err
	}

	repaired, err := o.repairLoop.ValidateAndRepair(ctx, schema, intent, code)
	if err != nil {
		return nil, err
	}
	code = repaired.Code

	quality := o.scoreQuality(ctx, code, schema)

	result := &models.GenerationResult{
		Intent:     intent,
		Schema:     schema,
		Code:       code,
		Design:     design,
		Quality:    quality,
		Providers:  contrib.Names(),
		Duration:   time.Since(start),
		Confidence: confidence(quality, len(repaired.Remaining)),
	}

	o.logger.Info("pipeline complete",
		zap.String("table", schema.TableName),
		zap.String("tier", string(req.Tier)),
		zap.Strings("providers", result.Providers),
		zap.Int("quality_overall", quality.Overall),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// enhanceIdea rewrites a vague idea into a sharper product description.
// Any failure keeps the original idea.
func (o *Orchestrator) enhanceIdea(ctx context.Context, idea string) string {
	// Prefer the creative backend for the rewrite when it is registered.
	chain := o.registry.Chain(llm.ProviderAnthropic)
	for _, provider := range chain {
		result, err := provider.GenerateText(ctx, &llm.TextRequest{
			System:      "You are a product strategist who sharpens vague app ideas.",
			Prompt:      prompts.BuildEnhancementPrompt(idea),
			Temperature: 0.7,
			MaxTokens:   512,
		})
		if err != nil || strings.TrimSpace(result.Text) == "" {
			continue
		}
		llm.RecordContribution(ctx, provider.Name())
		o.logger.Debug("idea enhanced", zap.String("provider", provider.Name()))
		return result.Text
	}
	return idea
}

// fetchDesign pulls design tokens; on any failure the run proceeds without
// a design system rather than failing.
func (o *Orchestrator) fetchDesign(ctx context.Context) *models.DesignConfig {
	if o.design == nil {
		return nil
	}
	design, err := o.design.FetchDesignTokens(ctx)
	if err != nil {
		o.logger.Warn("design stage skipped", zap.Error(err))
		return nil
	}
	return design
}

// scoreQuality asks a provider for per-dimension scores and falls back to
// a deterministic heuristic when no provider can answer.
func (o *Orchestrator) scoreQuality(ctx context.Context, code string, schema *models.Schema) models.QualityScores {
	for _, provider := range o.registry.Chain(o.preferred...) {
		result, err := provider.ExecuteStructured(ctx, &llm.StructuredCall{
			Name:        "score_quality",
			Description: "Score generated component quality per dimension",
			Parameters:  prompts.QualityFunctionSpec(),
			System:      "You are a strict code reviewer. Score conservatively.",
			Prompt:      prompts.BuildQualityPrompt(code),
			Temperature: 0.1,
			MaxTokens:   256,
		})
		if err != nil {
			continue
		}
		var scores models.QualityScores
		if err := json.Unmarshal(result.Data, &scores); err != nil {
			continue
		}
		if scores.Overall <= 0 || scores.Overall > 100 {
			continue
		}
		llm.RecordContribution(ctx, provider.Name())
		return clampScores(scores)
	}
	return heuristicScores(code, schema)
}

// heuristicScores derives scores from observable properties of the source
// when AI scoring is unavailable.
func heuristicScores(code string, schema *models.Schema) models.QualityScores {
	scores := models.QualityScores{Structure: 50, Completeness: 40, Accessibility: 40}

	if strings.Contains(code, "export default") {
		scores.Structure += 15
	}
	if strings.Contains(code, "useState") && strings.Contains(code, "useEffect") {
		scores.Structure += 10
	}
	if codegen.VerifyCRUDContract(code, schema.TableName) == nil {
		scores.Completeness += 35
	}
	if strings.Contains(code, "<label") || strings.Contains(code, "aria-") {
		scores.Accessibility += 25
	}

	scores.Overall = (scores.Structure + scores.Completeness + scores.Accessibility) / 3
	return clampScores(scores)
}

func clampScores(s models.QualityScores) models.QualityScores {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}
	s.Structure = clamp(s.Structure)
	s.Completeness = clamp(s.Completeness)
	s.Accessibility = clamp(s.Accessibility)
	s.Overall = clamp(s.Overall)
	return s
}

// confidence folds the quality score and unresolved validation issues into
// a single 0-1 confidence figure.
func confidence(q models.QualityScores, remainingIssues int) float64 {
	c := float64(q.Overall) / 100
	c -= 0.1 * float64(remainingIssues)
	if c < 0.1 {
		c = 0.1
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}
