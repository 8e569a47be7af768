package models

import (
	"fmt"
	"regexp"
)

// FieldType enumerates the supported field types for generated app data.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
	FieldTypeSelect  FieldType = "select"
)

// Field describes one typed column of a generated app's data table.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Label    string    `json:"label,omitempty"`
	Default  any       `json:"default,omitempty"`
}

// Schema is a named, ordered list of typed fields describing the data a
// generated app manages. Produced by the schema inference engine, read by
// the code generation engine and the dynamic table store.
type Schema struct {
	TableName string  `json:"table_name"`
	Fields    []Field `json:"fields"`
}

// System field names present on every record.
const (
	SystemFieldID        = "id"
	SystemFieldCreatedAt = "created_at"
	SystemFieldUpdatedAt = "updated_at"
)

// tableNamePattern is the required shape of a table name.
var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidTableName reports whether name is a lower-snake identifier.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

// Validate checks the structural invariants of a schema: a valid table name,
// a non-empty field list, and unique non-empty field names with known types.
func (s *Schema) Validate() error {
	if !ValidTableName(s.TableName) {
		return fmt.Errorf("invalid table name %q", s.TableName)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %q has no fields", s.TableName)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %q has a field with an empty name", s.TableName)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %q has duplicate field %q", s.TableName, f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case FieldTypeText, FieldTypeNumber, FieldTypeBoolean, FieldTypeDate, FieldTypeSelect:
		default:
			return fmt.Errorf("field %q has unknown type %q", f.Name, f.Type)
		}
	}
	return nil
}

// EnsureBaseFields appends the implicit id and timestamp fields if absent.
// Calling it twice yields the same field set as calling it once.
func (s *Schema) EnsureBaseFields() {
	present := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		present[f.Name] = true
	}

	base := []Field{
		{Name: SystemFieldID, Type: FieldTypeText, Required: true, Label: "ID"},
		{Name: SystemFieldCreatedAt, Type: FieldTypeDate, Required: true, Label: "Created"},
		{Name: SystemFieldUpdatedAt, Type: FieldTypeDate, Required: true, Label: "Updated"},
	}
	for _, f := range base {
		if !present[f.Name] {
			s.Fields = append(s.Fields, f)
		}
	}
}

// FieldNames returns the ordered field names of the schema.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// UserFields returns the fields excluding the system id/timestamp fields.
func (s *Schema) UserFields() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Name {
		case SystemFieldID, SystemFieldCreatedAt, SystemFieldUpdatedAt:
			continue
		}
		out = append(out, f)
	}
	return out
}
