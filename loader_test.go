package orbit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const etlYAML = `
name: nightly-etl
description: Nightly warehouse load
tasks:
  - name: extract
    action: http_request
    with:
      url: https://api.example.com/export
    timeout: 30s
  - name: transform
    action: python_script
    with:
      script: transform.py
    depends_on: [extract]
    retry:
      max_attempts: 3
      initial_backoff: 1s
      max_backoff: 30s
      backoff_multiplier: 2.0
      jitter: true
  - name: load
    action: shell_command
    with:
      command: psql -f load.sql
    depends_on: [transform]
`

func TestLoadWorkflow(t *testing.T) {
	spec, err := LoadWorkflow(strings.NewReader(etlYAML))
	require.NoError(t, err)

	assert.Equal(t, "nightly-etl", spec.Name)
	assert.Equal(t, "Nightly warehouse load", spec.Description)
	require.Len(t, spec.Tasks, 3)

	assert.Equal(t, ActionHTTPRequest, spec.Tasks[0].ActionType)
	assert.Equal(t, "https://api.example.com/export", spec.Tasks[0].ActionPayload["url"])
	assert.Equal(t, 30*time.Second, spec.Tasks[0].Timeout)

	transform := spec.Tasks[1]
	assert.Equal(t, []string{"extract"}, transform.Dependencies)
	require.NotNil(t, transform.Retry)
	assert.Equal(t, 3, transform.Retry.MaxAttempts)
	assert.Equal(t, time.Second, transform.Retry.InitialBackoff)
	assert.Equal(t, 30*time.Second, transform.Retry.MaxBackoff)
	assert.True(t, transform.Retry.Jitter)
}

func TestLoadWorkflowFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(etlYAML), 0o644))

	spec, err := LoadWorkflowFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly-etl", spec.Name)

	_, err = LoadWorkflowFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadWorkflowRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"not yaml":     "{{{{",
		"missing name": "tasks:\n  - name: a\n    action: sleep\n",
		"missing task name": `
name: x
tasks:
  - action: sleep
`,
		"missing action": `
name: x
tasks:
  - name: a
`,
		"bad timeout": `
name: x
tasks:
  - name: a
    action: sleep
    timeout: soon
`,
		"bad backoff": `
name: x
tasks:
  - name: a
    action: sleep
    retry:
      max_attempts: 2
      initial_backoff: whenever
`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadWorkflow(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadWorkflowValidatesGraph(t *testing.T) {
	cyclic := `
name: cyclic
tasks:
  - name: a
    action: sleep
    depends_on: [b]
  - name: b
    action: sleep
    depends_on: [a]
`
	_, err := LoadWorkflow(strings.NewReader(cyclic))
	require.ErrorIs(t, err, ErrInvalidWorkflow)

	dangling := `
name: dangling
tasks:
  - name: a
    action: sleep
    depends_on: [ghost]
`
	_, err = LoadWorkflow(strings.NewReader(dangling))
	require.ErrorIs(t, err, ErrInvalidWorkflow)
}
