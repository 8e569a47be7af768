package repair

import (
	"context"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/models"
)

// DefaultMaxRetries bounds the regeneration attempts in a repair loop.
const DefaultMaxRetries = 3

// Regenerator re-generates source given the previous attempt and its
// validation errors. Satisfied by codegen.Engine.
type Regenerator interface {
	RegenerateWithErrors(ctx context.Context, schema *models.Schema, intent *models.Intent, code string, errors []string) (string, error)
}

// Loop runs validation and bounded regeneration over generated source.
type Loop struct {
	regen      Regenerator
	maxRetries int
	logger     *zap.Logger
}

// NewLoop creates a repair loop. maxRetries <= 0 selects the default.
func NewLoop(regen Regenerator, maxRetries int, logger *zap.Logger) *Loop {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Loop{
		regen:      regen,
		maxRetries: maxRetries,
		logger:     logger.Named("repair"),
	}
}

// Result reports the outcome of a repair run.
type Result struct {
	Code     string
	Attempts int
	// Remaining holds issues still present after the loop exhausted its
	// budget. Empty means the code validates cleanly.
	Remaining []Issue
}

// ValidateAndRepair validates code, applies deterministic fixes, and
// regenerates while fatal issues remain, up to the retry budget. It
// returns the best code seen so far even when issues remain; the error is
// non-nil only when regeneration itself failed and nothing usable exists.
func (l *Loop) ValidateAndRepair(
	ctx context.Context,
	schema *models.Schema,
	intent *models.Intent,
	code string,
) (*Result, error) {
	current := AutoFix(code)
	issues := Validate(current)

	attempts := 0
	for HasFatal(issues) && attempts < l.maxRetries {
		attempts++
		l.logger.Info("regenerating after validation failure",
			zap.Int("attempt", attempts),
			zap.Int("issues", len(issues)))

		regenerated, err := l.regen.RegenerateWithErrors(ctx, schema, intent, current, Messages(issues))
		if err != nil {
			// Keep the last valid-enough draft rather than discarding work.
			l.logger.Warn("regeneration failed", zap.Int("attempt", attempts), zap.Error(err))
			if attempts == 1 && current == "" {
				return nil, apperrors.NewGenerationError("repair", "regeneration failed", err)
			}
			break
		}

		current = AutoFix(regenerated)
		issues = Validate(current)
	}

	result := &Result{Code: current, Attempts: attempts, Remaining: issues}
	if len(issues) > 0 {
		l.logger.Warn("repair loop finished with unresolved issues",
			zap.Int("attempts", attempts),
			zap.Strings("issues", Messages(issues)))
	}
	return result, nil
}
