// Package prompts builds the prompt and function-call specs for every
// pipeline stage. Keeping them here isolates prompt shape from control flow.
package prompts

import (
	"fmt"
	"strings"

	"github.com/matura-ai/matura-engine/pkg/llm"
)

// IntentSystemPrompt frames the model as a product analyst.
const IntentSystemPrompt = "You are a product analyst. You turn free-text app ideas into structured requirements. Ideas may be written in any language, including Japanese."

// IntentFunctionSpec is the structured-call schema for intent analysis.
func IntentFunctionSpec() map[string]any {
	return llm.NewFunctionSpec(map[string]llm.ParameterProperty{
		"category": {
			Type:        "string",
			Description: "The app domain",
			Enum: []string{"productivity", "finance", "health", "education",
				"social", "ecommerce", "entertainment", "other"},
		},
		"primary_purpose": {
			Type:        "string",
			Description: "One sentence describing what the app is for",
		},
		"target_users": {
			Type:        "array",
			Description: "Who will use the app",
			Items:       map[string]any{"type": "string"},
		},
		"key_features": {
			Type:        "array",
			Description: "The 3-6 most important features",
			Items:       map[string]any{"type": "string"},
		},
		"complexity": {
			Type:        "string",
			Description: "How involved the build is",
			Enum:        []string{"simple", "moderate", "complex"},
		},
	}, []string{"category", "primary_purpose", "key_features", "complexity"})
}

// BuildIntentPrompt creates the user prompt for intent analysis.
func BuildIntentPrompt(idea string) string {
	var b strings.Builder
	b.WriteString("Analyze the following app idea and extract its structured intent.\n\n")
	b.WriteString("## Idea\n\n")
	b.WriteString(idea)
	b.WriteString("\n\nKeep key_features short and concrete (e.g. \"add a task\", \"mark complete\").")
	return b.String()
}

// BuildEnhancementPrompt asks a creative backend to sharpen a vague idea
// before schema inference runs.
func BuildEnhancementPrompt(idea string) string {
	var b strings.Builder
	b.WriteString("Refine this app idea into a short, concrete product description.\n\n")
	b.WriteString("## Idea\n\n")
	b.WriteString(idea)
	b.WriteString("\n\nRespond with 2-4 sentences. Name the core entity the app manages ")
	b.WriteString("and the main actions users take on it. Do not invent features the idea does not imply.")
	return b.String()
}

// BuildQualityPrompt asks for per-dimension scores of generated source.
func BuildQualityPrompt(code string) string {
	var b strings.Builder
	b.WriteString("Score the following React component on a 0-100 scale for each dimension.\n\n")
	b.WriteString("## Source\n\n```tsx\n")
	b.WriteString(code)
	b.WriteString("\n```\n")
	return b.String()
}

// QualityFunctionSpec is the structured-call schema for quality scoring.
func QualityFunctionSpec() map[string]any {
	dim := func(desc string) llm.ParameterProperty {
		return llm.ParameterProperty{Type: "integer", Description: desc}
	}
	return llm.NewFunctionSpec(map[string]llm.ParameterProperty{
		"structure":     dim("Component structure and state management quality"),
		"completeness":  dim("CRUD coverage: list, create, update, delete all wired"),
		"accessibility": dim("Labels, semantics and keyboard support"),
		"overall":       dim("Overall production readiness"),
	}, []string{"structure", "completeness", "overall"})
}

// FormatFeatureList renders key features as a markdown list for inclusion
// in downstream prompts.
func FormatFeatureList(features []string) string {
	if len(features) == 0 {
		return "- (none specified)\n"
	}
	var b strings.Builder
	for _, f := range features {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}
