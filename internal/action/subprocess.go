package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// executeShellCommand runs the payload's "command" through the configured
// shell in an isolated subprocess. Stdout and stderr are captured (bounded)
// into the task result; a non-zero exit fails the task.
func (d *StandardDispatcher) executeShellCommand(ctx context.Context, payload map[string]any) (map[string]any, error) {
	command, ok := stringField(payload, "command")
	if !ok || command == "" {
		return nil, errors.New("shell_command: missing required field \"command\"")
	}
	return d.runSubprocess(ctx, d.shellBin, "-c", command)
}

// executePythonScript runs the payload's "script" with the configured Python
// interpreter. The script is treated as a file path when such a file exists,
// otherwise as inline source passed via -c. Optional "args" are appended.
func (d *StandardDispatcher) executePythonScript(ctx context.Context, payload map[string]any) (map[string]any, error) {
	script, ok := stringField(payload, "script")
	if !ok || script == "" {
		return nil, errors.New("python_script: missing required field \"script\"")
	}

	args, err := stringSliceField(payload, "args")
	if err != nil {
		return nil, fmt.Errorf("python_script: %w", err)
	}

	argv := make([]string, 0, len(args)+2)
	if info, err := os.Stat(script); err == nil && !info.IsDir() {
		argv = append(argv, script)
	} else {
		argv = append(argv, "-c", script)
	}
	argv = append(argv, args...)

	return d.runSubprocess(ctx, d.pythonBin, argv...)
}

func (d *StandardDispatcher) runSubprocess(ctx context.Context, bin string, argv ...string) (map[string]any, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, bin, argv...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := map[string]any{
		"stdout": truncate(stdout.String(), d.maxCapture),
		"stderr": truncate(stderr.String(), d.maxCapture),
	}
	if cmd.ProcessState != nil {
		result["exit_code"] = cmd.ProcessState.ExitCode()
	}

	if runErr != nil {
		// Prefer the context error so timeouts and cancellations are
		// classified correctly; the process was killed, not broken.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = strings.TrimSpace(stdout.String())
			}
			return result, fmt.Errorf("exit status %d: %s", exitErr.ExitCode(), truncate(detail, 512))
		}
		return result, runErr
	}
	return result, nil
}

func truncate(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
