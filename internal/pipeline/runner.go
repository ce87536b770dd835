package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ToolResult captures one external tool invocation.
type ToolResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ToolRunner abstracts the downloader and media tool processes so the
// pipeline can be tested without real binaries.
type ToolRunner interface {
	Run(ctx context.Context, name string, args ...string) (ToolResult, error)
}

// ExecRunner runs tools via os/exec.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (ToolResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ToolResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}
