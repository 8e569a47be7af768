package models

import (
	"time"

	"github.com/google/uuid"
)

// QualityTier controls how many refinement passes the code generation
// engine runs.
type QualityTier string

const (
	TierQuick    QualityTier = "quick"
	TierAdvanced QualityTier = "advanced"
	TierPremium  QualityTier = "premium"
)

// ParseTier maps a request mode string to a tier, falling back to the
// given default for the empty string. Unknown values are rejected.
func ParseTier(mode, fallback string) (QualityTier, bool) {
	if mode == "" {
		mode = fallback
	}
	switch QualityTier(mode) {
	case TierQuick, TierAdvanced, TierPremium:
		return QualityTier(mode), true
	}
	return "", false
}

// DesignConfig carries UI/style metadata applied during code generation.
type DesignConfig struct {
	Theme        string            `json:"theme,omitempty"`
	PrimaryColor string            `json:"primary_color,omitempty"`
	AccentColor  string            `json:"accent_color,omitempty"`
	Layout       string            `json:"layout,omitempty"`
	Tokens       map[string]string `json:"tokens,omitempty"`
	Source       string            `json:"source,omitempty"` // which backend produced it
}

// QualityScores holds per-dimension scores in the 0-100 range.
type QualityScores struct {
	Structure     int `json:"structure"`
	Completeness  int `json:"completeness"`
	Accessibility int `json:"accessibility"`
	Overall       int `json:"overall"`
}

// GenerationResult is the bundle produced by a full pipeline run.
// It is created at the end of a run and never mutated.
type GenerationResult struct {
	Intent     *Intent       `json:"intent"`
	Schema     *Schema       `json:"schema"`
	Code       string        `json:"code"`
	Design     *DesignConfig `json:"design,omitempty"`
	Quality    QualityScores `json:"quality"`
	Providers  []string      `json:"providers"`
	Duration   time.Duration `json:"duration"`
	Confidence float64       `json:"confidence"`
}

// GeneratedApp is the persisted record of a successful generation.
type GeneratedApp struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IdeaText    string     `json:"idea_text"`
	Schema      *Schema    `json:"schema"`
	Code        string     `json:"code"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
