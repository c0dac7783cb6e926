package baseline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ricesearch/irtools/internal/evaluation"
	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// BuiltinPrefix marks programs served by in-process commands.
const BuiltinPrefix = "builtin:"

// Executor runs a single step, writing its standard output to stdout.
type Executor interface {
	Execute(ctx context.Context, step Step, stdout io.Writer) error
}

// ExecExecutor runs steps as child processes, or as registered builtin
// commands when the program carries BuiltinPrefix.
type ExecExecutor struct {
	// Dir is the working directory of child processes. Builtins resolve
	// paths against the current process directory.
	Dir      string
	Stderr   io.Writer
	Builtins map[string]evaluation.Command
}

// NewExecExecutor creates an executor with the evaluation builtins registered.
func NewExecExecutor(dir string) *ExecExecutor {
	return &ExecExecutor{
		Dir:      dir,
		Stderr:   os.Stderr,
		Builtins: evaluation.Builtins(),
	}
}

// Execute implements Executor.
func (e *ExecExecutor) Execute(ctx context.Context, step Step, stdout io.Writer) error {
	program, args, err := step.Resolve()
	if err != nil {
		return err
	}

	if name, ok := strings.CutPrefix(program, BuiltinPrefix); ok {
		cmd, found := e.Builtins[name]
		if !found {
			return errors.ValidationError(fmt.Sprintf("unknown builtin %q", name))
		}
		return cmd(ctx, args, stdout)
	}

	c := exec.CommandContext(ctx, program, args...)
	c.Dir = e.Dir
	c.Stdout = stdout
	c.Stderr = e.Stderr
	if err := c.Run(); err != nil {
		return errors.Wrap(errors.CodeEvaluation, fmt.Sprintf("running %s", program), err).
			WithDetail("step", step.Name)
	}
	return nil
}
