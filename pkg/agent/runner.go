package agent

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrTimeout = goerr.New("agent invocation timed out")
	ErrFailed  = goerr.New("agent invocation failed")
)

// Runner executes agent CLIs
type Runner struct {
	stdout io.Writer
	stderr io.Writer
	dir    string
}

// RunnerOption is a functional option for Runner
type RunnerOption func(*Runner)

// WithOutput sets the writers receiving the agent's stdout and stderr
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithDir sets the working directory of the agent
func WithDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.dir = dir
	}
}

// NewRunner creates a Runner writing to the process stdout and stderr
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run invokes the agent once and waits for it. A profile without timeout
// uses DefaultTimeout. Failures are not retried.
func (r *Runner) Run(ctx context.Context, p Profile, instruction string, resume bool) error {
	if err := p.Validate(); err != nil {
		return err
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := p.Args(instruction, resume)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Dir = r.dir
	cmd.WaitDelay = 5 * time.Second

	logging.From(ctx).Debug("running agent", "profile", p.Name, "command", args[0], "resume", resume)

	started := time.Now()
	err := cmd.Run()
	if err == nil {
		logging.From(ctx).Debug("agent finished", "profile", p.Name, "elapsed", time.Since(started))
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return goerr.Wrap(ErrTimeout, "agent did not finish in time",
			goerr.V("profile", p.Name),
			goerr.V("timeout", timeout))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return goerr.Wrap(ErrFailed, "agent exited with error",
			goerr.V("profile", p.Name),
			goerr.V("exit_code", exitErr.ExitCode()))
	}
	return goerr.Wrap(err, "failed to run agent",
		goerr.V("profile", p.Name),
		goerr.V("command", args[0]))
}
