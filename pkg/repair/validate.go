// Package repair validates generated component source and drives the
// bounded self-repair loop. Validation is deliberately lightweight string
// and token analysis: the goal is catching the failure modes LLM output
// actually exhibits, not reimplementing a JavaScript parser.
package repair

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity classifies a validation issue by how it can be resolved.
type Severity string

const (
	// SeverityAutoFixable issues are patched deterministically without an
	// LLM round trip.
	SeverityAutoFixable Severity = "auto_fixable"
	// SeverityFatal issues require regeneration.
	SeverityFatal Severity = "fatal"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Message  string
}

func (i Issue) String() string { return i.Message }

// reactHooks are the hooks whose use requires a matching react import.
var reactHooks = []string{"useState", "useEffect", "useMemo", "useCallback", "useRef", "useContext"}

var (
	reactImportPattern = regexp.MustCompile(`import\s+[^;\n]*from\s+['"]react['"]`)
	emptyCatchPattern  = regexp.MustCompile(`catch\s*(\([^)]*\))?\s*\{\s*\}`)
	varDeclPattern     = regexp.MustCompile(`(^|\n)\s*var\s+[A-Za-z_$]`)
	exportPattern      = regexp.MustCompile(`export\s+default\s`)
)

// Validate inspects generated source and returns all issues found.
// An empty slice means the code passed every check.
func Validate(code string) []Issue {
	var issues []Issue

	if missing := missingHookImports(code); len(missing) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityAutoFixable,
			Message:  fmt.Sprintf("missing react import for: %s", strings.Join(missing, ", ")),
		})
	}

	if err := checkBalance(code); err != nil {
		issues = append(issues, Issue{Severity: SeverityFatal, Message: err.Error()})
	}

	if !exportPattern.MatchString(code) {
		severity := SeverityAutoFixable
		if componentName(code) == "" {
			// Nothing to export; only regeneration can produce a component.
			severity = SeverityFatal
		}
		issues = append(issues, Issue{
			Severity: severity,
			Message:  "component has no export default",
		})
	}

	if strings.Contains(code, "debugger") {
		issues = append(issues, Issue{
			Severity: SeverityAutoFixable,
			Message:  "debugger statement left in generated code",
		})
	}
	if varDeclPattern.MatchString(code) {
		issues = append(issues, Issue{
			Severity: SeverityAutoFixable,
			Message:  "var declaration used; prefer const or let",
		})
	}
	if emptyCatchPattern.MatchString(code) {
		issues = append(issues, Issue{
			Severity: SeverityFatal,
			Message:  "empty catch block swallows errors",
		})
	}

	return issues
}

// HasFatal reports whether any issue requires regeneration.
func HasFatal(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Messages flattens issues into the strings fed back to the repair prompt.
func Messages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Message
	}
	return out
}

// missingHookImports returns hooks used in the source but absent from any
// react import line.
func missingHookImports(code string) []string {
	var missing []string
	importLine := ""
	if m := reactImportPattern.FindString(code); m != "" {
		importLine = m
	}
	for _, hook := range reactHooks {
		if !strings.Contains(code, hook+"(") {
			continue
		}
		if importLine != "" && strings.Contains(importLine, hook) {
			continue
		}
		missing = append(missing, hook)
	}
	return missing
}

// componentNamePattern matches the declaration of a capitalized component,
// either a function declaration or an arrow assigned to a const.
var componentNamePattern = regexp.MustCompile(`(?:function\s+|const\s+)([A-Z][A-Za-z0-9_]*)\s*[(=]`)

// componentName returns the first declared component name, or "" when the
// source declares none.
func componentName(code string) string {
	if m := componentNamePattern.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return ""
}

// checkBalance verifies delimiters pair up outside string and comment
// contexts, and that no string literal runs off the end of a line.
func checkBalance(code string) error {
	var stack []rune
	var inString rune // 0, '\'', '"', '`'
	inLineComment := false
	inBlockComment := false
	line := 1

	runes := []rune(code)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			line++
			if inLineComment {
				inLineComment = false
			}
			if inString == '\'' || inString == '"' {
				return fmt.Errorf("unterminated string literal near line %d", line-1)
			}
			continue
		}
		if inLineComment {
			continue
		}
		if inBlockComment {
			if r == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inBlockComment = false
				i++
			}
			continue
		}
		if inString != 0 {
			switch r {
			case '\\':
				i++
			case inString:
				inString = 0
			}
			continue
		}

		switch r {
		case '/':
			if i+1 < len(runes) {
				switch runes[i+1] {
				case '/':
					inLineComment = true
					i++
				case '*':
					inBlockComment = true
					i++
				}
			}
		case '\'', '"', '`':
			inString = r
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 {
				return fmt.Errorf("unmatched %q at line %d", r, line)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !matches(open, r) {
				return fmt.Errorf("mismatched %q at line %d", r, line)
			}
		}
	}

	if inString == '\'' || inString == '"' {
		return fmt.Errorf("unterminated string literal at end of file")
	}
	if len(stack) > 0 {
		return fmt.Errorf("%d unclosed delimiter(s), first %q", len(stack), stack[0])
	}
	return nil
}

func matches(open, close rune) bool {
	switch open {
	case '(':
		return close == ')'
	case '[':
		return close == ']'
	case '{':
		return close == '}'
	}
	return false
}
