package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTableName(t *testing.T) {
	valid := []string{"tasks", "stock_items", "t2", "a"}
	for _, name := range valid {
		assert.True(t, ValidTableName(name), name)
	}

	invalid := []string{"", "Tasks", "2tasks", "_tasks", "task-items", "task items", "タスク"}
	for _, name := range invalid {
		assert.False(t, ValidTableName(name), name)
	}
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{
			name: "valid",
			schema: Schema{
				TableName: "tasks",
				Fields: []Field{
					{Name: "title", Type: FieldTypeText, Required: true},
					{Name: "completed", Type: FieldTypeBoolean},
				},
			},
		},
		{
			name:    "bad table name",
			schema:  Schema{TableName: "Bad Name", Fields: []Field{{Name: "a", Type: FieldTypeText}}},
			wantErr: true,
		},
		{
			name:    "no fields",
			schema:  Schema{TableName: "tasks"},
			wantErr: true,
		},
		{
			name: "duplicate field",
			schema: Schema{
				TableName: "tasks",
				Fields: []Field{
					{Name: "title", Type: FieldTypeText},
					{Name: "title", Type: FieldTypeText},
				},
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			schema: Schema{
				TableName: "tasks",
				Fields:    []Field{{Name: "title", Type: "varchar"}},
			},
			wantErr: true,
		},
		{
			name: "empty field name",
			schema: Schema{
				TableName: "tasks",
				Fields:    []Field{{Name: "", Type: FieldTypeText}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureBaseFieldsIdempotent(t *testing.T) {
	schema := &Schema{
		TableName: "tasks",
		Fields:    []Field{{Name: "title", Type: FieldTypeText, Required: true}},
	}

	schema.EnsureBaseFields()
	require.Len(t, schema.Fields, 4)
	assert.Equal(t, []string{"title", "id", "created_at", "updated_at"}, schema.FieldNames())

	// Second call changes nothing.
	schema.EnsureBaseFields()
	assert.Len(t, schema.Fields, 4)
}

func TestUserFields(t *testing.T) {
	schema := &Schema{
		TableName: "tasks",
		Fields:    []Field{{Name: "title", Type: FieldTypeText}},
	}
	schema.EnsureBaseFields()

	user := schema.UserFields()
	require.Len(t, user, 1)
	assert.Equal(t, "title", user[0].Name)
}

func TestNormalizeIntent(t *testing.T) {
	t.Run("nil input", func(t *testing.T) {
		intent := NormalizeIntent(nil)
		assert.Equal(t, CategoryOther, intent.Category)
		assert.Equal(t, ComplexitySimple, intent.Complexity)
	})

	t.Run("unknown enums coerced", func(t *testing.T) {
		intent := NormalizeIntent(&Intent{Category: "gaming", Complexity: "extreme"})
		assert.Equal(t, CategoryOther, intent.Category)
		assert.Equal(t, ComplexitySimple, intent.Complexity)
	})

	t.Run("valid values preserved", func(t *testing.T) {
		in := &Intent{Category: CategoryFinance, Complexity: ComplexityModerate, PrimaryPurpose: "track spending"}
		out := NormalizeIntent(in)
		assert.Equal(t, CategoryFinance, out.Category)
		assert.Equal(t, ComplexityModerate, out.Complexity)
		assert.Equal(t, "track spending", out.PrimaryPurpose)
	})
}

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier("", "quick")
	assert.True(t, ok)
	assert.Equal(t, TierQuick, tier)

	tier, ok = ParseTier("premium", "quick")
	assert.True(t, ok)
	assert.Equal(t, TierPremium, tier)

	_, ok = ParseTier("ultra", "quick")
	assert.False(t, ok)
}

func TestRecordClone(t *testing.T) {
	original := Record{"id": "abc", "title": "hello"}
	cloned := original.Clone()

	cloned["title"] = "changed"
	assert.Equal(t, "hello", original["title"])
	assert.Equal(t, "abc", cloned.ID())
}
