// Package action executes the configured action of a single task: an HTTP
// request, a subprocess (shell command or Python script), or a cancellable
// sleep. Each execution is local to its invocation; handlers share no
// mutable state across concurrent dispatches.
package action

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/orbit-run/orbit/pkg/api"
)

// Result is what one dispatch produces on success.
type Result struct {
	// Output is the action-specific result payload.
	Output map[string]any

	// Attempts counts executions made, including the first. Only the
	// retrying dispatcher ever reports a value above one.
	Attempts int
}

// Dispatcher executes one task's configured action. Implementations must
// honor ctx cancellation promptly and must return a well-formed
// *api.TaskExecutionError rather than panic: a single task's internal
// failure never takes down the coordinating scheduler.
type Dispatcher interface {
	Execute(ctx context.Context, task api.TaskSpec) (Result, error)
}

type handlerFunc func(ctx context.Context, payload map[string]any) (map[string]any, error)

// StandardDispatcher executes the built-in action set. Adding an action
// variant means adding a handler here; the scheduler never changes.
type StandardDispatcher struct {
	handlers map[api.ActionType]handlerFunc

	httpClient *http.Client
	pythonBin  string
	shellBin   string
	maxCapture int
}

// Option configures a StandardDispatcher.
type Option func(*StandardDispatcher)

// WithHTTPClient sets the client used for http_request actions.
func WithHTTPClient(c *http.Client) Option {
	return func(d *StandardDispatcher) { d.httpClient = c }
}

// WithPythonBinary sets the interpreter used for python_script actions.
// Defaults to "python3".
func WithPythonBinary(bin string) Option {
	return func(d *StandardDispatcher) { d.pythonBin = bin }
}

// WithShellBinary sets the shell used for shell_command actions.
// Defaults to "/bin/sh".
func WithShellBinary(bin string) Option {
	return func(d *StandardDispatcher) { d.shellBin = bin }
}

// WithMaxCapture caps how many bytes of subprocess output and HTTP response
// body are captured into the task result. Defaults to 64 KiB.
func WithMaxCapture(n int) Option {
	return func(d *StandardDispatcher) { d.maxCapture = n }
}

// NewStandardDispatcher creates a dispatcher with handlers for the full
// built-in action set.
func NewStandardDispatcher(opts ...Option) *StandardDispatcher {
	d := &StandardDispatcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pythonBin:  "python3",
		shellBin:   "/bin/sh",
		maxCapture: 64 * 1024,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = map[api.ActionType]handlerFunc{
		api.ActionHTTPRequest:  d.executeHTTPRequest,
		api.ActionShellCommand: d.executeShellCommand,
		api.ActionPythonScript: d.executePythonScript,
		api.ActionSleep:        executeSleep,
	}
	return d
}

var _ Dispatcher = (*StandardDispatcher)(nil)

// Execute runs the task's action once, enforcing the task timeout and
// converting any failure, timeout, cancellation, or panic into a
// *api.TaskExecutionError.
func (d *StandardDispatcher) Execute(ctx context.Context, task api.TaskSpec) (res Result, err error) {
	res.Attempts = 1

	defer func() {
		if r := recover(); r != nil {
			err = &api.TaskExecutionError{
				Task:   task.Name,
				Reason: api.ReasonActionFailure,
				Err:    fmt.Errorf("action panicked: %v", r),
			}
		}
	}()

	handler, ok := d.handlers[task.ActionType]
	if !ok {
		return res, &api.TaskExecutionError{
			Task:   task.Name,
			Reason: api.ReasonActionFailure,
			Err:    fmt.Errorf("unknown action type %q", task.ActionType),
		}
	}

	timeout := task.Timeout
	if timeout <= 0 {
		if secs, ok := floatField(task.ActionPayload, "timeout_seconds"); ok && secs > 0 {
			timeout = time.Duration(secs * float64(time.Second))
		}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, herr := handler(ctx, task.ActionPayload)
	// Keep whatever the handler captured (stdout/stderr, partial response)
	// even when the action failed; it is the most useful diagnostic.
	res.Output = output
	if herr != nil {
		return res, &api.TaskExecutionError{
			Task:   task.Name,
			Reason: classify(ctx, herr),
			Err:    herr,
		}
	}
	return res, nil
}

// classify maps a handler error to a failure reason, preferring the context
// state: deadline expiry is a timeout, caller cancellation is a cancel.
func classify(ctx context.Context, err error) api.FailureReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return api.ReasonTimeout
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return api.ReasonCancelled
	default:
		return api.ReasonActionFailure
	}
}

// stringField extracts a string payload field.
func stringField(payload map[string]any, key string) (string, bool) {
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// floatField extracts a numeric payload field. YAML and JSON decoders
// produce a mix of int, int64 and float64; accept them all.
func floatField(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// stringSliceField extracts a list-of-strings payload field.
func stringSliceField(payload map[string]any, key string) ([]string, error) {
	v, ok := payload[key]
	if !ok {
		return nil, nil
	}
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %q: expected string element, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q: expected list of strings, got %T", key, v)
	}
}
