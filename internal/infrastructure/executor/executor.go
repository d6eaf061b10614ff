package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// LocalExecutor runs commands on the host shell.
type LocalExecutor struct {
	shell string
	// Stdout and Stderr, when set, receive output as it is produced in
	// addition to the captured copy.
	Stdout io.Writer
	Stderr io.Writer
}

// NewLocalExecutor builds a new executor, shell defaults to $SHELL then /bin/sh.
func NewLocalExecutor(shell string) *LocalExecutor {
	if shell == "" || shell == "auto" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &LocalExecutor{shell: shell}
}

// Shell returns the interpreter used for commands.
func (e *LocalExecutor) Shell() string {
	return e.shell
}

// Execute implements ports.CommandExecutor. A non-zero exit is reported through
// ExitCode, not as an error; the error is reserved for failures to launch.
func (e *LocalExecutor) Execute(ctx context.Context, dir, command string) (domain.ExecutionResult, error) {
	c := exec.CommandContext(ctx, e.shell, "-c", command)
	c.Dir = dir
	var stdout, stderr bytes.Buffer
	c.Stdout = tee(&stdout, e.Stdout)
	c.Stderr = tee(&stderr, e.Stderr)

	start := time.Now()
	err := c.Run()

	result := domain.ExecutionResult{
		Ran:      true,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		result.Ran = ctx.Err() != nil
		result.ExitCode = -1
		result.Err = fmt.Errorf("run %q: %w", command, err)
		if ctx.Err() != nil {
			result.Err = fmt.Errorf("run %q: %w", command, ctx.Err())
		}
		return result, result.Err
	}
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

var _ ports.CommandExecutor = (*LocalExecutor)(nil)
