package session

import (
	"context"
	"time"

	"github.com/monctl/monctl/internal/transport"
)

// Runner adapts a Session to the transport.Runner contract so the façade
// can route tool invocations through the elevated shell interchangeably
// with the direct transport. The embedded Session keeps its lifecycle
// methods (Start, Stop, Authenticated) on the adapter.
type Runner struct {
	*Session
}

// Compile-time interface verification.
var _ transport.Runner = (*Runner)(nil)

// Run executes ddcutil through the session. The shell merges nothing into
// stderr for us — command stderr goes to the shell's own stderr, which the
// session does not capture — so Result.Stderr is always empty here.
func (r *Runner) Run(ctx context.Context, args []string, timeout time.Duration) (transport.Result, error) {
	out, code, err := r.Session.RunTool(ctx, args, timeout)
	if err != nil {
		return transport.Result{}, err
	}
	return transport.Result{Stdout: out, ExitCode: code}, nil
}
