package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "plain object",
			input:    `{"table_name":"tasks"}`,
			expected: `{"table_name":"tasks"}`,
		},
		{
			name:     "json code fence",
			input:    "```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "fence with surrounding prose",
			input:    "Here is the schema:\n```json\n{\"a\": 1}\n```\nLet me know!",
			expected: `{"a": 1}`,
		},
		{
			name:     "object embedded in prose",
			input:    `The result is {"a": {"b": 2}} as requested.`,
			expected: `{"a": {"b": 2}}`,
		},
		{
			name:     "array",
			input:    `[1, 2, 3]`,
			expected: `[1, 2, 3]`,
		},
		{
			name:     "think tags stripped",
			input:    "<think>reasoning about braces {</think>{\"a\": 1}",
			expected: `{"a": 1}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"text": "a } tricky { value"}`,
			expected: `{"text": "a } tricky { value"}`,
		},
		{
			name:    "no json at all",
			input:   "I could not produce a schema, sorry.",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			input:   `{"a": 1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, got)
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		TableName string `json:"table_name"`
	}

	got, err := ParseJSONResponse[payload]("```json\n{\"table_name\": \"tasks\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "tasks", got.TableName)

	_, err = ParseJSONResponse[payload]("not json")
	assert.Error(t, err)
}

func TestStripCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tsx fence",
			input:    "```tsx\nexport default function App() {}\n```",
			expected: "export default function App() {}",
		},
		{
			name:     "bare fence",
			input:    "```\nconst x = 1;\n```",
			expected: "const x = 1;",
		},
		{
			name:     "no fence passes through",
			input:    "  export default App;  ",
			expected: "export default App;",
		},
		{
			name:     "fence with leading prose",
			input:    "Here you go:\n```typescript\nconst x = 1;\n```",
			expected: "const x = 1;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCode(tt.input))
		})
	}
}
