package repair

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/models"
)

const validComponent = `import { useState, useEffect } from 'react';

export default function TaskList() {
  const [items, setItems] = useState([]);
  useEffect(() => {
    fetch('/api/crud/tasks').then(r => r.json()).then(setItems);
  }, []);
  return <ul>{items.map(i => <li key={i.id}>{i.title}</li>)}</ul>;
}
`

func TestValidateCleanCode(t *testing.T) {
	assert.Empty(t, Validate(validComponent))
}

func TestValidateMissingHookImport(t *testing.T) {
	code := strings.Replace(validComponent, "import { useState, useEffect } from 'react';\n\n", "", 1)

	issues := Validate(code)
	require.NotEmpty(t, issues)
	assert.Equal(t, SeverityAutoFixable, issues[0].Severity)
	assert.Contains(t, issues[0].Message, "useState")
	assert.Contains(t, issues[0].Message, "useEffect")
}

func TestValidateUnbalancedBraces(t *testing.T) {
	code := "export default function App() { return <div>hi</div>;"
	issues := Validate(code)
	assert.True(t, HasFatal(issues))
}

func TestValidateIgnoresBracesInStringsAndComments(t *testing.T) {
	code := `const label = "closing } brace";
// a comment with { an open brace
/* and another } in a block comment */
export default function App() { return null; }
`
	assert.Empty(t, Validate(code))
}

func TestValidateUnterminatedString(t *testing.T) {
	code := "const x = \"unterminated\nexport default function App() { return null; }"
	issues := Validate(code)
	assert.True(t, HasFatal(issues))
}

func TestValidateMissingExportDefault(t *testing.T) {
	// A declared component with no export is patchable.
	issues := Validate("function App() { return null; }")
	require.NotEmpty(t, issues)
	assert.Equal(t, SeverityAutoFixable, issues[0].Severity)
	assert.False(t, HasFatal(issues))

	// No component declaration at all requires regeneration.
	issues = Validate("const helper = () => null;")
	require.NotEmpty(t, issues)
	assert.True(t, HasFatal(issues))
}

func TestValidateLintFindings(t *testing.T) {
	code := `export default function App() {
  var old = 1;
  debugger;
  try { work(); } catch (e) {}
  return null;
}`
	issues := Validate(code)
	messages := strings.Join(Messages(issues), "; ")
	assert.Contains(t, messages, "var declaration")
	assert.Contains(t, messages, "debugger")
	assert.Contains(t, messages, "empty catch")
}

func TestAutoFixInsertsHookImport(t *testing.T) {
	code := strings.Replace(validComponent, "import { useState, useEffect } from 'react';\n\n", "", 1)

	fixed := AutoFix(code)
	assert.Contains(t, fixed, "from 'react'")
	assert.Empty(t, Validate(fixed))
}

func TestAutoFixExtendsExistingImport(t *testing.T) {
	code := `import { useState } from 'react';

export default function App() {
  const [a] = useState(0);
  useEffect(() => {}, []);
  return null;
}`
	fixed := AutoFix(code)
	assert.Contains(t, fixed, "useEffect")
	assert.Empty(t, Validate(fixed))
}

func TestAutoFixAppendsExportDefault(t *testing.T) {
	code := `function App() {
  return null;
}`
	fixed := AutoFix(code)
	assert.Contains(t, fixed, "export default App;")
	assert.Empty(t, Validate(fixed))

	// Arrow components are exported too.
	fixed = AutoFix("const TaskList = () => null;\n")
	assert.Contains(t, fixed, "export default TaskList;")

	// Already-exported code is untouched.
	assert.Equal(t, validComponent, AutoFix(validComponent))
}

func TestAutoFixRewritesVarDeclarations(t *testing.T) {
	code := `export default function App() {
  var count = 1;
  count = 2;
  return count;
}`
	fixed := AutoFix(code)
	assert.NotContains(t, fixed, "var count")
	assert.Contains(t, fixed, "let count = 1;")
	assert.Empty(t, Validate(fixed))
}

func TestAutoFixRemovesDebugger(t *testing.T) {
	code := `export default function App() {
  debugger;
  return null;
}`
	fixed := AutoFix(code)
	assert.NotContains(t, fixed, "debugger")
}

// mockRegenerator scripts the repair loop's regeneration results.
type mockRegenerator struct {
	results []string
	err     error
	calls   int
}

func (m *mockRegenerator) RegenerateWithErrors(_ context.Context, _ *models.Schema, _ *models.Intent, _ string, _ []string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	idx := m.calls - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx], nil
}

func testSchema() *models.Schema {
	s := &models.Schema{
		TableName: "tasks",
		Fields:    []models.Field{{Name: "title", Type: models.FieldTypeText, Required: true}},
	}
	s.EnsureBaseFields()
	return s
}

func TestLoopValidCodePassesWithoutRegeneration(t *testing.T) {
	regen := &mockRegenerator{}
	loop := NewLoop(regen, 3, zap.NewNop())

	result, err := loop.ValidateAndRepair(context.Background(), testSchema(), &models.Intent{}, validComponent)
	require.NoError(t, err)
	assert.Empty(t, result.Remaining)
	assert.Equal(t, 0, regen.calls)
}

func TestLoopPatchesLintIssuesWithoutRegeneration(t *testing.T) {
	code := `function App() {
  var count = 1;
  return count;
}`
	regen := &mockRegenerator{}
	loop := NewLoop(regen, 3, zap.NewNop())

	result, err := loop.ValidateAndRepair(context.Background(), testSchema(), &models.Intent{}, code)
	require.NoError(t, err)
	assert.Equal(t, 0, regen.calls)
	assert.Empty(t, result.Remaining)
	assert.Contains(t, result.Code, "export default App;")
	assert.Contains(t, result.Code, "let count")
}

func TestLoopRegeneratesUntilValid(t *testing.T) {
	broken := "function App() { return null;" // fatal: unbalanced, no export
	regen := &mockRegenerator{results: []string{broken, validComponent}}
	loop := NewLoop(regen, 3, zap.NewNop())

	result, err := loop.ValidateAndRepair(context.Background(), testSchema(), &models.Intent{}, broken)
	require.NoError(t, err)
	assert.Empty(t, result.Remaining)
	assert.Equal(t, 2, regen.calls)
}

func TestLoopBoundedByMaxRetries(t *testing.T) {
	broken := "function App() { return null;"
	regen := &mockRegenerator{results: []string{broken}}
	loop := NewLoop(regen, 2, zap.NewNop())

	result, err := loop.ValidateAndRepair(context.Background(), testSchema(), &models.Intent{}, broken)
	require.NoError(t, err)
	assert.Equal(t, 2, regen.calls)
	assert.NotEmpty(t, result.Remaining)
}

func TestLoopKeepsDraftWhenRegenerationFails(t *testing.T) {
	broken := "function App() { return null;"
	regen := &mockRegenerator{err: errors.New("all providers failed")}
	loop := NewLoop(regen, 3, zap.NewNop())

	result, err := loop.ValidateAndRepair(context.Background(), testSchema(), &models.Intent{}, broken)
	require.NoError(t, err)
	assert.Equal(t, 1, regen.calls)
	assert.NotEmpty(t, result.Code)
}
