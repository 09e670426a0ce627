package orbit

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orbit-run/orbit/pkg/api"
)

// Workflows can be defined in YAML instead of through the builder:
//
//	name: nightly-etl
//	description: Nightly warehouse load
//	tasks:
//	  - name: extract
//	    action: http_request
//	    with:
//	      url: https://api.example.com/export
//	    timeout: 30s
//	  - name: transform
//	    action: python_script
//	    with:
//	      script: transform.py
//	    depends_on: [extract]
//	    retry:
//	      max_attempts: 3
//	      initial_backoff: 1s
//	      jitter: true

type yamlRetry struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialBackoff    string  `yaml:"initial_backoff"`
	MaxBackoff        string  `yaml:"max_backoff"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	Jitter            bool    `yaml:"jitter"`
}

type yamlTask struct {
	Name      string         `yaml:"name"`
	Action    string         `yaml:"action"`
	With      map[string]any `yaml:"with"`
	DependsOn []string       `yaml:"depends_on"`
	Timeout   string         `yaml:"timeout"`
	Retry     *yamlRetry     `yaml:"retry"`
}

type yamlWorkflow struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Tasks       []yamlTask `yaml:"tasks"`
}

// LoadWorkflow parses a YAML workflow definition and validates its
// dependency graph. The returned spec is ready to register.
func LoadWorkflow(r io.Reader) (WorkflowSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return WorkflowSpec{}, fmt.Errorf("reading workflow definition: %w", err)
	}

	var doc yamlWorkflow
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return WorkflowSpec{}, fmt.Errorf("parsing workflow definition: %w", err)
	}
	if doc.Name == "" {
		return WorkflowSpec{}, fmt.Errorf("workflow definition needs a name")
	}

	spec := WorkflowSpec{
		Name:        doc.Name,
		Description: doc.Description,
	}
	for _, t := range doc.Tasks {
		task, err := t.toSpec()
		if err != nil {
			return WorkflowSpec{}, fmt.Errorf("task %q: %w", t.Name, err)
		}
		spec.Tasks = append(spec.Tasks, task)
	}

	if err := Validate(spec); err != nil {
		return WorkflowSpec{}, err
	}
	return spec, nil
}

// LoadWorkflowFile is LoadWorkflow for a file on disk.
func LoadWorkflowFile(path string) (WorkflowSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return WorkflowSpec{}, err
	}
	defer f.Close()
	return LoadWorkflow(f)
}

func (t yamlTask) toSpec() (api.TaskSpec, error) {
	if t.Name == "" {
		return api.TaskSpec{}, fmt.Errorf("missing name")
	}
	if t.Action == "" {
		return api.TaskSpec{}, fmt.Errorf("missing action")
	}

	task := api.TaskSpec{
		Name:          t.Name,
		ActionType:    ActionType(t.Action),
		ActionPayload: t.With,
		Dependencies:  t.DependsOn,
	}

	if t.Timeout != "" {
		d, err := time.ParseDuration(t.Timeout)
		if err != nil {
			return api.TaskSpec{}, fmt.Errorf("invalid timeout: %w", err)
		}
		task.Timeout = d
	}

	if t.Retry != nil {
		policy := RetryPolicy{
			MaxAttempts:       t.Retry.MaxAttempts,
			BackoffMultiplier: t.Retry.BackoffMultiplier,
			Jitter:            t.Retry.Jitter,
		}
		if t.Retry.InitialBackoff != "" {
			d, err := time.ParseDuration(t.Retry.InitialBackoff)
			if err != nil {
				return api.TaskSpec{}, fmt.Errorf("invalid initial_backoff: %w", err)
			}
			policy.InitialBackoff = d
		}
		if t.Retry.MaxBackoff != "" {
			d, err := time.ParseDuration(t.Retry.MaxBackoff)
			if err != nil {
				return api.TaskSpec{}, fmt.Errorf("invalid max_backoff: %w", err)
			}
			policy.MaxBackoff = d
		}
		task.Retry = &policy
	}

	return task, nil
}
