package export

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/samcharles93/onnxprep/internal/logger"
)

// Runner executes an external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands as subprocesses and streams their output through
// the logger in ctx at debug level.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	log := logger.FromContext(ctx).With("cmd", name)
	stdout := logger.NewLineWriter(log, "stdout")
	stderr := logger.NewLineWriter(log, "stderr")
	defer stdout.Flush()
	defer stderr.Flush()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Debug("exec", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, firstArgs(args, 2), err)
	}
	return nil
}

func firstArgs(args []string, n int) string {
	if len(args) > n {
		args = args[:n]
	}
	return strings.Join(args, " ")
}
