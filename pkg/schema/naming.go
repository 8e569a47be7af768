package schema

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/matura-ai/matura-engine/pkg/models"
)

// reservedNames are table names that would collide with SQL keywords or
// internal endpoints. Derivation rejects them; callers disambiguate.
var reservedNames = map[string]bool{
	"table":  true,
	"select": true,
	"insert": true,
	"update": true,
	"delete": true,
	"create": true,
	"drop":   true,
	"index":  true,
	"user":   true,
	"users":  true, // reserved for future auth records
	"order":  true,
	"group":  true,
	"api":    true,
	"crud":   true,
	"health": true,
	"apps":   true,
}

// DeriveTableName normalizes a raw entity name into a valid, pluralized
// lower_snake_case table name. Returns an error when nothing usable
// remains after normalization or the result is reserved.
func DeriveTableName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	name = strings.Trim(b.String(), "_")
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}

	if name == "" || !models.ValidTableName(name) {
		return "", fmt.Errorf("cannot derive table name from %q", raw)
	}

	// Pluralize the final segment: "expense_item" -> "expense_items".
	if idx := strings.LastIndex(name, "_"); idx >= 0 {
		name = name[:idx+1] + inflection.Plural(name[idx+1:])
	} else {
		name = inflection.Plural(name)
	}

	if reservedNames[name] {
		return "", fmt.Errorf("table name %q is reserved", name)
	}
	return name, nil
}

// Disambiguate appends a numeric suffix to resolve a session-level
// table-name collision.
func Disambiguate(name string, n int) string {
	return fmt.Sprintf("%s_%d", name, n)
}
