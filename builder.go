package orbit

import (
	"fmt"
	"time"

	"github.com/orbit-run/orbit/pkg/api"
)

// Action is a reusable description of what one task does: an action type
// plus its payload. Construct one with HTTPRequest, ShellCommand,
// PythonScript, or Sleep, then refine it with With.
type Action struct {
	Type    ActionType
	Payload map[string]any
}

// With returns a copy of the action with the payload field key set to value.
// The receiver is not modified, so a base action can be shared across tasks.
func (a Action) With(key string, value any) Action {
	payload := make(map[string]any, len(a.Payload)+1)
	for k, v := range a.Payload {
		payload[k] = v
	}
	payload[key] = value
	return Action{Type: a.Type, Payload: payload}
}

// HTTPRequest describes an http_request action against the given URL.
// Method defaults to GET; use With to set "method", "headers", or "body".
func HTTPRequest(url string) Action {
	return Action{Type: ActionHTTPRequest, Payload: map[string]any{"url": url}}
}

// ShellCommand describes a shell_command action running the given command
// line through the shell.
func ShellCommand(command string) Action {
	return Action{Type: ActionShellCommand, Payload: map[string]any{"command": command}}
}

// PythonScript describes a python_script action. Script is a file path when
// such a file exists, otherwise inline source.
func PythonScript(script string, args ...string) Action {
	payload := map[string]any{"script": script}
	if len(args) > 0 {
		payload["args"] = args
	}
	return Action{Type: ActionPythonScript, Payload: payload}
}

// Sleep describes a cancellable sleep action of the given duration.
func Sleep(d time.Duration) Action {
	return Action{Type: ActionSleep, Payload: map[string]any{"duration_seconds": d.Seconds()}}
}

// TaskOption refines one task added through WorkflowBuilder.Task.
type TaskOption func(*api.TaskSpec)

// After declares dependencies: the task only becomes ready once every named
// task has succeeded.
func After(deps ...string) TaskOption {
	return func(t *api.TaskSpec) {
		t.Dependencies = append(t.Dependencies, deps...)
	}
}

// WithTimeout bounds one execution attempt of the task.
func WithTimeout(d time.Duration) TaskOption {
	return func(t *api.TaskSpec) { t.Timeout = d }
}

// WithRetry attaches a retry policy to the task. A copy of the policy is
// stored so callers can keep mutating theirs.
func WithRetry(policy RetryPolicy) TaskOption {
	return func(t *api.TaskSpec) {
		p := policy
		t.Retry = &p
	}
}

// WorkflowBuilder provides a fluent API for defining workflows:
//
//	wf := orbit.New("nightly-etl").
//	    Task("extract", orbit.HTTPRequest("https://api.example.com/export")).
//	    Task("transform", orbit.PythonScript("transform.py"), orbit.After("extract")).
//	    Task("load", orbit.ShellCommand("psql -f load.sql"), orbit.After("transform"))
//
//	if err := wf.Register(engine); err != nil {
//	    log.Fatal(err)
//	}
//
//	run, err := orbit.StartRun(ctx, engine, wf.Name(), orbit.RunOptions{})
type WorkflowBuilder struct {
	spec api.WorkflowSpec
}

// New creates a new workflow builder with the given name.
func New(name string) *WorkflowBuilder {
	return &WorkflowBuilder{
		spec: api.WorkflowSpec{
			Name:  name,
			Tasks: make([]api.TaskSpec, 0),
		},
	}
}

// Name returns the workflow name.
func (b *WorkflowBuilder) Name() string {
	return b.spec.Name
}

// Description sets the human-readable workflow description.
func (b *WorkflowBuilder) Description(text string) *WorkflowBuilder {
	b.spec.Description = text
	return b
}

// Spec returns the underlying WorkflowSpec.
// Typically used when interacting with lower-level APIs.
func (b *WorkflowBuilder) Spec() WorkflowSpec {
	return b.spec
}

// Task appends a task to the workflow. Tasks without After options are
// roots; among simultaneously ready tasks the engine dispatches in the
// order they were added here.
func (b *WorkflowBuilder) Task(name string, action Action, opts ...TaskOption) *WorkflowBuilder {
	if name == "" {
		panic("orbit: task name must not be empty")
	}
	if action.Type == "" {
		panic(fmt.Sprintf("orbit: task %q has no action", name))
	}

	task := api.TaskSpec{
		Name:          name,
		ActionType:    action.Type,
		ActionPayload: action.Payload,
	}
	for _, opt := range opts {
		opt(&task)
	}

	b.spec.Tasks = append(b.spec.Tasks, task)
	return b
}

// Register validates the built workflow and registers it with the engine.
func (b *WorkflowBuilder) Register(eng Engine) error {
	return eng.RegisterWorkflow(b.spec)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *WorkflowBuilder) MustRegister(eng Engine) {
	if err := b.Register(eng); err != nil {
		panic(err)
	}
}
