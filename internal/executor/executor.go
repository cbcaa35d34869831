package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// Result holds the captured output of one run of the target program.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Failed reports whether the run produced diagnostics. Only stderr counts:
// a non-zero exit with an empty stderr is treated as healthy.
func (r *Result) Failed() bool {
	return r.Stderr != ""
}

// Runner executes a script under an interpreter.
type Runner interface {
	Run(ctx context.Context, interpreter, script string) (*Result, error)
}

// Executor runs target programs as child processes.
type Executor struct {
	// Dir is the working directory of the child process. Empty means the
	// current directory.
	Dir string
}

// New creates an Executor rooted at dir.
func New(dir string) *Executor {
	return &Executor{Dir: dir}
}

// Run executes `interpreter script` to completion. No timeout is applied; the
// call returns when the interpreter exits. An error is returned only when the
// interpreter could not be started or waited on; the program's own failure is
// reported through Result.
func (e *Executor) Run(ctx context.Context, interpreter, script string) (*Result, error) {
	cmd := exec.CommandContext(ctx, interpreter, script)
	cmd.Dir = e.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().
		Str("interpreter", interpreter).
		Str("script", script).
		Str("dir", e.Dir).
		Msg("Running target program")

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run %s %s: %w", interpreter, script, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	log.Debug().
		Int("exit_code", result.ExitCode).
		Int("stdout_bytes", len(result.Stdout)).
		Int("stderr_bytes", len(result.Stderr)).
		Msg("Target program finished")

	return result, nil
}
