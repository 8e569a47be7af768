package codegen

import (
	"fmt"
	"strings"
)

// VerifyCRUDContract checks that generated source targets the fixed
// /api/crud/{table} endpoint contract for all four verbs. Every quality
// tier must honor this; the dynamic table store serves exactly this shape.
func VerifyCRUDContract(code, tableName string) error {
	endpoint := "/api/crud/" + tableName
	if !strings.Contains(code, endpoint) {
		return fmt.Errorf("generated code never references %s", endpoint)
	}

	// fetch() defaults to GET; the mutating verbs must appear explicitly.
	for _, method := range []string{"POST", "PUT", "DELETE"} {
		if !strings.Contains(code, method) {
			return fmt.Errorf("generated code is missing the %s verb against %s", method, endpoint)
		}
	}
	return nil
}
