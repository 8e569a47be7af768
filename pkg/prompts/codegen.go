package prompts

import (
	"fmt"
	"strings"

	"github.com/matura-ai/matura-engine/pkg/models"
)

// CodegenSystemPrompt frames the model as a React engineer.
const CodegenSystemPrompt = "You are a senior React/TypeScript engineer. You write complete, self-contained components with no placeholder comments."

// MaxRepairErrors bounds how many recent validation errors are carried into
// a regeneration prompt, so repeated repair passes cannot grow the context.
const MaxRepairErrors = 5

// describeSchema renders the schema's user fields as a markdown table.
func describeSchema(schema *models.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table `%s`:\n\n", schema.TableName)
	b.WriteString("| field | type | required |\n|---|---|---|\n")
	for _, f := range schema.UserFields() {
		fmt.Fprintf(&b, "| %s | %s | %t |\n", f.Name, f.Type, f.Required)
	}
	return b.String()
}

// crudContract spells out the fixed endpoint contract every generated
// component must target. The dynamic table store serves exactly this shape.
func crudContract(tableName string) string {
	base := "/api/crud/" + tableName
	var b strings.Builder
	b.WriteString("The component MUST perform all data access against these endpoints:\n")
	fmt.Fprintf(&b, "- GET %s - list all records\n", base)
	fmt.Fprintf(&b, "- POST %s - create a record (JSON body)\n", base)
	fmt.Fprintf(&b, "- PUT %s?id={id} - update a record (JSON body with changed fields)\n", base)
	fmt.Fprintf(&b, "- DELETE %s?id={id} - delete a record\n", base)
	b.WriteString("Records carry server-assigned `id`, `created_at` and `updated_at` fields.\n")
	return b.String()
}

// BuildComponentPrompt creates the implementation prompt. context carries
// the accumulated output of earlier passes (requirements, architecture,
// design) for the advanced and premium tiers; it is empty for quick runs.
func BuildComponentPrompt(schema *models.Schema, intent *models.Intent, design *models.DesignConfig, context string) string {
	var b strings.Builder
	b.WriteString("Write a complete React function component in TypeScript for this app.\n\n")
	fmt.Fprintf(&b, "## Purpose\n\n%s\n\n", intent.PrimaryPurpose)
	b.WriteString("## Data model\n\n")
	b.WriteString(describeSchema(schema))
	b.WriteString("\n## API contract\n\n")
	b.WriteString(crudContract(schema.TableName))

	if design != nil {
		b.WriteString("\n## Visual style\n\n")
		if design.Theme != "" {
			fmt.Fprintf(&b, "- Theme: %s\n", design.Theme)
		}
		if design.PrimaryColor != "" {
			fmt.Fprintf(&b, "- Primary color: %s\n", design.PrimaryColor)
		}
		if design.AccentColor != "" {
			fmt.Fprintf(&b, "- Accent color: %s\n", design.AccentColor)
		}
		if design.Layout != "" {
			fmt.Fprintf(&b, "- Layout: %s\n", design.Layout)
		}
		for k, v := range design.Tokens {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}

	if context != "" {
		b.WriteString("\n## Design context from earlier passes\n\n")
		b.WriteString(context)
		b.WriteString("\n")
	}

	b.WriteString("\n## Output rules\n\n")
	b.WriteString("- Single file, `export default` the component.\n")
	b.WriteString("- Use React hooks (useState/useEffect) and fetch; no external state libraries.\n")
	b.WriteString("- Include create form, list view, inline edit and delete for every record.\n")
	b.WriteString("- Return ONLY the source code, no explanation.\n")
	return b.String()
}

// BuildRequirementsPrompt is the first pass of the advanced/premium tiers.
func BuildRequirementsPrompt(schema *models.Schema, intent *models.Intent) string {
	var b strings.Builder
	b.WriteString("List the concrete functional requirements for a single-page CRUD app.\n\n")
	fmt.Fprintf(&b, "## Purpose\n\n%s\n\n", intent.PrimaryPurpose)
	b.WriteString("## Key features\n\n")
	b.WriteString(FormatFeatureList(intent.KeyFeatures))
	b.WriteString("\n## Data model\n\n")
	b.WriteString(describeSchema(schema))
	b.WriteString("\nRespond with a numbered requirements list, nothing else.")
	return b.String()
}

// BuildArchitecturePrompt is the premium tier's second pass.
func BuildArchitecturePrompt(requirements string) string {
	var b strings.Builder
	b.WriteString("Plan the component architecture for these requirements: ")
	b.WriteString("state shape, event handlers, fetch lifecycle, and render sections.\n\n")
	b.WriteString("## Requirements\n\n")
	b.WriteString(requirements)
	b.WriteString("\n\nRespond with a short plan, nothing else.")
	return b.String()
}

// BuildReviewPrompt is the premium tier's final refinement pass. It feeds
// the draft back for a corrected, production-ready version.
func BuildReviewPrompt(code string) string {
	var b strings.Builder
	b.WriteString("Review this React component and return a corrected version. ")
	b.WriteString("Fix bugs, missing imports, unhandled fetch errors and accessibility gaps. ")
	b.WriteString("Do not change the API endpoints it calls.\n\n```tsx\n")
	b.WriteString(code)
	b.WriteString("\n```\n\nReturn ONLY the corrected source code.")
	return b.String()
}

// BuildRepairPrompt creates the error-directed regeneration prompt for the
// self-repair loop. Only the most recent MaxRepairErrors messages are
// included to bound cost and latency across passes.
func BuildRepairPrompt(schema *models.Schema, intent *models.Intent, code string, errors []string) string {
	if len(errors) > MaxRepairErrors {
		errors = errors[len(errors)-MaxRepairErrors:]
	}

	var b strings.Builder
	b.WriteString("The following React component failed validation. Regenerate it with the errors fixed.\n\n")
	b.WriteString("## Validation errors\n\n")
	for _, e := range errors {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	b.WriteString("\n## Data model\n\n")
	b.WriteString(describeSchema(schema))
	b.WriteString("\n## API contract\n\n")
	b.WriteString(crudContract(schema.TableName))
	b.WriteString("\n## Current source\n\n```tsx\n")
	b.WriteString(code)
	b.WriteString("\n```\n\nReturn ONLY the corrected source code, no explanation.")
	return b.String()
}
