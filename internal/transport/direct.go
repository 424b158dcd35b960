package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Direct runs ddcutil as a fresh subprocess per call.
type Direct struct {
	path string
}

// Compile-time interface verification.
var _ Runner = (*Direct)(nil)

// NewDirect resolves the ddcutil binary and returns a Direct runner.
// An empty path means "look up ddcutil on PATH". Returns ErrToolNotFound
// when the binary cannot be resolved.
func NewDirect(path string) (*Direct, error) {
	if path == "" {
		path = "ddcutil"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)\n%s", ErrToolNotFound, path, InstallGuidance)
	}
	return &Direct{path: resolved}, nil
}

// Path returns the resolved binary path.
func (d *Direct) Path() string {
	return d.path
}

// waitGrace is how long Run keeps collecting output after the context has
// killed the child, before abandoning the pipes.
const waitGrace = time.Second

// Run spawns one ddcutil invocation and waits up to timeout. On timeout the
// child is killed rather than leaked, and the call fails with ErrTimeout.
func (d *Direct) Run(ctx context.Context, args []string, timeout time.Duration) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.path, args...)
	// Without WaitDelay, Wait blocks until every holder of the output pipes
	// exits — a grandchild that inherited them would pin Run long past the
	// deadline even though the child itself is dead.
	cmd.WaitDelay = waitGrace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	switch ctxErr := runCtx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		// CommandContext already killed the child.
		return Result{}, fmt.Errorf("%w after %s: ddcutil %v", ErrTimeout, timeout, args)
	case ctxErr != nil:
		// The caller's context was cancelled; the kill-induced exit error
		// must not masquerade as a normal non-zero exit.
		return Result{}, ctxErr
	}
	if err != nil && !isExitError(err) {
		return Result{}, fmt.Errorf("%w: %v", ErrProcessLaunchFailed, err)
	}

	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}, nil
}

// isExitError reports whether err is a normal non-zero exit rather than a
// spawn failure.
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
