package schema

import (
	"strings"

	"github.com/matura-ai/matura-engine/pkg/models"
)

// keywordSchema pairs trigger keywords with a canned schema. Keywords cover
// English and Japanese since ideas arrive in both.
type keywordSchema struct {
	keywords []string
	schema   models.Schema
}

// fallbackSchemas is checked in order; the first keyword hit wins.
var fallbackSchemas = []keywordSchema{
	{
		keywords: []string{"task", "todo", "to-do", "タスク", "やること"},
		schema: models.Schema{
			TableName: "tasks",
			Fields: []models.Field{
				{Name: "title", Type: models.FieldTypeText, Required: true, Label: "Title"},
				{Name: "description", Type: models.FieldTypeText, Label: "Description"},
				{Name: "completed", Type: models.FieldTypeBoolean, Required: true, Label: "Completed", Default: false},
				{Name: "due_date", Type: models.FieldTypeDate, Label: "Due date"},
			},
		},
	},
	{
		keywords: []string{"expense", "budget", "spending", "家計簿", "支出", "出費"},
		schema: models.Schema{
			TableName: "expenses",
			Fields: []models.Field{
				{Name: "description", Type: models.FieldTypeText, Required: true, Label: "Description"},
				{Name: "amount", Type: models.FieldTypeNumber, Required: true, Label: "Amount"},
				{Name: "category", Type: models.FieldTypeSelect, Label: "Category"},
				{Name: "spent_at", Type: models.FieldTypeDate, Required: true, Label: "Date"},
			},
		},
	},
	{
		keywords: []string{"habit", "streak", "習慣"},
		schema: models.Schema{
			TableName: "habits",
			Fields: []models.Field{
				{Name: "name", Type: models.FieldTypeText, Required: true, Label: "Habit"},
				{Name: "frequency", Type: models.FieldTypeSelect, Label: "Frequency"},
				{Name: "streak", Type: models.FieldTypeNumber, Label: "Streak", Default: 0},
				{Name: "last_done", Type: models.FieldTypeDate, Label: "Last done"},
			},
		},
	},
	{
		keywords: []string{"recipe", "cooking", "meal", "レシピ", "料理", "献立"},
		schema: models.Schema{
			TableName: "recipes",
			Fields: []models.Field{
				{Name: "name", Type: models.FieldTypeText, Required: true, Label: "Recipe"},
				{Name: "ingredients", Type: models.FieldTypeText, Required: true, Label: "Ingredients"},
				{Name: "steps", Type: models.FieldTypeText, Label: "Steps"},
				{Name: "servings", Type: models.FieldTypeNumber, Label: "Servings"},
			},
		},
	},
	{
		keywords: []string{"inventory", "stock", "在庫"},
		schema: models.Schema{
			TableName: "stock_items",
			Fields: []models.Field{
				{Name: "name", Type: models.FieldTypeText, Required: true, Label: "Item"},
				{Name: "quantity", Type: models.FieldTypeNumber, Required: true, Label: "Quantity", Default: 0},
				{Name: "location", Type: models.FieldTypeText, Label: "Location"},
			},
		},
	},
	{
		keywords: []string{"customer", "client", "crm", "顧客"},
		schema: models.Schema{
			TableName: "customers",
			Fields: []models.Field{
				{Name: "name", Type: models.FieldTypeText, Required: true, Label: "Name"},
				{Name: "email", Type: models.FieldTypeText, Label: "Email"},
				{Name: "phone", Type: models.FieldTypeText, Label: "Phone"},
				{Name: "notes", Type: models.FieldTypeText, Label: "Notes"},
			},
		},
	},
	{
		keywords: []string{"workout", "exercise", "fitness", "筋トレ", "運動"},
		schema: models.Schema{
			TableName: "workouts",
			Fields: []models.Field{
				{Name: "exercise", Type: models.FieldTypeText, Required: true, Label: "Exercise"},
				{Name: "reps", Type: models.FieldTypeNumber, Label: "Reps"},
				{Name: "weight", Type: models.FieldTypeNumber, Label: "Weight"},
				{Name: "performed_at", Type: models.FieldTypeDate, Required: true, Label: "Date"},
			},
		},
	},
	{
		keywords: []string{"event", "schedule", "calendar", "予定", "イベント"},
		schema: models.Schema{
			TableName: "events",
			Fields: []models.Field{
				{Name: "title", Type: models.FieldTypeText, Required: true, Label: "Title"},
				{Name: "starts_at", Type: models.FieldTypeDate, Required: true, Label: "Starts"},
				{Name: "location", Type: models.FieldTypeText, Label: "Location"},
				{Name: "notes", Type: models.FieldTypeText, Label: "Notes"},
			},
		},
	},
	{
		keywords: []string{"note", "memo", "journal", "diary", "メモ", "日記"},
		schema: models.Schema{
			TableName: "notes",
			Fields: []models.Field{
				{Name: "title", Type: models.FieldTypeText, Required: true, Label: "Title"},
				{Name: "body", Type: models.FieldTypeText, Label: "Body"},
				{Name: "tags", Type: models.FieldTypeText, Label: "Tags"},
			},
		},
	},
}

// genericSchema is the last-resort schema for ideas no keyword matches.
// Availability over fidelity: unknown ideas still get a working app.
var genericSchema = models.Schema{
	TableName: "entries",
	Fields: []models.Field{
		{Name: "title", Type: models.FieldTypeText, Required: true, Label: "Title"},
		{Name: "description", Type: models.FieldTypeText, Label: "Description"},
		{Name: "status", Type: models.FieldTypeSelect, Label: "Status", Default: "active"},
	},
}

// FallbackSchema deterministically derives a schema from keyword matching.
// It never fails: unknown ideas fall through to the generic schema.
func FallbackSchema(idea string) *models.Schema {
	lower := strings.ToLower(idea)

	for _, ks := range fallbackSchemas {
		for _, kw := range ks.keywords {
			if strings.Contains(lower, kw) {
				return cloneSchema(&ks.schema)
			}
		}
	}
	return cloneSchema(&genericSchema)
}

// cloneSchema copies a canned schema so callers can append base fields
// without mutating the dictionary.
func cloneSchema(s *models.Schema) *models.Schema {
	out := &models.Schema{
		TableName: s.TableName,
		Fields:    make([]models.Field, len(s.Fields)),
	}
	copy(out.Fields, s.Fields)
	return out
}
