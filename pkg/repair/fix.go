package repair

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	debuggerLinePattern = regexp.MustCompile(`(?m)^\s*debugger;?\s*$\n?`)
	varLeadPattern      = regexp.MustCompile(`(?m)^(\s*)var\s`)
)

// AutoFix applies deterministic patches for auto-fixable issues and
// returns the patched source. Fatal issues are left for regeneration.
func AutoFix(code string) string {
	code = fixHookImports(code)
	code = debuggerLinePattern.ReplaceAllString(code, "")
	// let rather than const: a rewritten binding may be reassigned below.
	code = varLeadPattern.ReplaceAllString(code, "${1}let ")
	code = fixExportDefault(code)
	return code
}

// fixExportDefault appends an export default for the declared component
// when the source has none. Sources declaring no component are left for
// regeneration.
func fixExportDefault(code string) string {
	if exportPattern.MatchString(code) {
		return code
	}
	name := componentName(code)
	if name == "" {
		return code
	}
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	return code + "\nexport default " + name + ";\n"
}

// fixHookImports inserts or extends the react import so every used hook
// is imported.
func fixHookImports(code string) string {
	missing := missingHookImports(code)
	if len(missing) == 0 {
		return code
	}

	if loc := reactImportPattern.FindStringIndex(code); loc != nil {
		existing := code[loc[0]:loc[1]]
		patched := extendReactImport(existing, missing)
		return code[:loc[0]] + patched + code[loc[1]:]
	}

	importLine := fmt.Sprintf("import { %s } from 'react';\n", strings.Join(missing, ", "))
	if strings.HasPrefix(code, "'use client'") || strings.HasPrefix(code, `"use client"`) {
		if idx := strings.Index(code, "\n"); idx >= 0 {
			return code[:idx+1] + importLine + code[idx+1:]
		}
	}
	return importLine + code
}

// extendReactImport adds hook names to an existing react import line.
func extendReactImport(importLine string, hooks []string) string {
	open := strings.Index(importLine, "{")
	close := strings.Index(importLine, "}")
	if open < 0 || close < 0 || close < open {
		// default-only import: rewrite as a combined form
		return fmt.Sprintf("import React, { %s } from 'react'", strings.Join(hooks, ", "))
	}
	existing := strings.TrimSpace(importLine[open+1 : close])
	combined := existing
	for _, h := range hooks {
		if combined == "" {
			combined = h
		} else {
			combined += ", " + h
		}
	}
	return importLine[:open+1] + " " + combined + " " + importLine[close:]
}
