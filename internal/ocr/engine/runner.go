package engine

import (
	"context"
	"os/exec"
)

// Runner executes an external tool with an argument vector and returns its
// combined output. Commands are never assembled as shell strings; the
// argument vector goes straight to the process.
type Runner interface {
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

// execRunner runs commands via os/exec. Context cancellation kills the
// process, so a wall-clock timeout on ctx bounds every invocation.
type execRunner struct{}

// NewRunner returns the default process runner
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
