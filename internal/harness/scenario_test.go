package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/cross-session-refresh.yaml")
	require.NoError(t, err)

	assert.Equal(t, "cross-session-refresh", s.Name)
	assert.NotEmpty(t, s.Description)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "b", s.Steps[0].Session)
	assert.NotEmpty(t, s.Steps[0].Query)
	require.NotNil(t, s.Steps[1].Register)
	assert.Equal(t, "Ada", s.Steps[1].Register.FirstName)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("testdata/does-not-exist.yaml")
	require.Error(t, err)
}

func TestLoadScenario_RejectsUnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: a step field is misspelled
steps:
  - session: a
    quarry: "SELECT 1"
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
steps:
  - session: a
    query: "SELECT 1"
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
steps:
  - session: a
    query: "SELECT 1"
`,
			wantErr: "description is required",
		},
		{
			name: "no steps",
			content: `
name: n
description: d
steps: []
`,
			wantErr: "steps list is required",
		},
		{
			name: "missing session",
			content: `
name: n
description: d
steps:
  - query: "SELECT 1"
`,
			wantErr: "session is required",
		},
		{
			name: "no action",
			content: `
name: n
description: d
steps:
  - session: a
`,
			wantErr: "exactly one of register, query, clear",
		},
		{
			name: "two actions",
			content: `
name: n
description: d
steps:
  - session: a
    query: "SELECT 1"
    clear: results
`,
			wantErr: "exactly one of register, query, clear",
		},
		{
			name: "bad clear target",
			content: `
name: n
description: d
steps:
  - session: a
    clear: everything
`,
			wantErr: `clear must be "results" or "form"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
