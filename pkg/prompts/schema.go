package prompts

import (
	"strings"

	"github.com/matura-ai/matura-engine/pkg/llm"
)

// SchemaSystemPrompt frames the model as a data modeler.
const SchemaSystemPrompt = "You are a data modeler. Given an app idea, you derive the single table the app manages and its typed fields."

// SchemaFunctionSpec is the structured-call schema for schema inference.
func SchemaFunctionSpec() map[string]any {
	return llm.NewFunctionSpec(map[string]llm.ParameterProperty{
		"table_name": {
			Type:        "string",
			Description: "Plural, lower_snake_case name of the data entity (e.g. tasks, expenses)",
		},
		"fields": {
			Type:        "array",
			Description: "The user-facing fields, excluding id and timestamps",
			Items: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string", "description": "lower_snake_case field name"},
					"type":     map[string]any{"type": "string", "enum": []string{"text", "number", "boolean", "date", "select"}},
					"required": map[string]any{"type": "boolean"},
					"label":    map[string]any{"type": "string", "description": "Human-readable label"},
				},
				"required": []string{"name", "type"},
			},
		},
	}, []string{"table_name", "fields"})
}

// BuildSchemaPrompt creates the user prompt for schema inference.
func BuildSchemaPrompt(idea string, intent string) string {
	var b strings.Builder
	b.WriteString("Derive the data table for this app idea.\n\n")
	b.WriteString("## Idea\n\n")
	b.WriteString(idea)
	if intent != "" {
		b.WriteString("\n\n## Analyzed intent\n\n")
		b.WriteString(intent)
	}
	b.WriteString("\n\nRules:\n")
	b.WriteString("- One table only, the app's core entity.\n")
	b.WriteString("- Do NOT include id, created_at or updated_at; they are implicit.\n")
	b.WriteString("- 3 to 8 fields. Prefer text/number/boolean/date/select types.\n")
	return b.String()
}
