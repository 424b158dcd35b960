// Package session keeps one pkexec-elevated interactive shell alive for the
// lifetime of the application, so the user authenticates at most once, and
// multiplexes logical ddcutil commands over the shell's single stdin/stdout
// pair with marker-delimited framing.
//
// The framing is a deliberate low-tech pseudo-RPC: each command is written
// followed by a trailer that makes the shell echo a unique marker plus the
// command's exit code as its own last output line. Everything up to the
// marker line is the command's stdout. The marker embeds a per-session UUID
// and a monotonically increasing request id, so a response left over from a
// timed-out request is recognized and discarded instead of corrupting the
// next call's framing.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/monctl/monctl/internal/transport"
)

// State is the session lifecycle state. Terminated is irreversible: a new
// Session must be created to re-authenticate.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Terminated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Terminated:
		return "terminated"
	default:
		return "invalid"
	}
}

// stopGrace is how long Stop waits for the shell to exit after "exit"
// before force-killing it.
const stopGrace = 2 * time.Second

// procHandle is the running elevated shell as the session sees it. Tests
// substitute in-memory pipes for a real pkexec process.
type procHandle struct {
	stdin io.WriteCloser
	lines <-chan string
	kill  func() error
	wait  func() error
}

// Session owns a single elevated shell process. All methods are safe for
// concurrent use; Run serializes callers because the framing protocol has no
// request routing — only one command may be in flight on the shared pipes.
type Session struct {
	ddcutilPath string

	mu     sync.Mutex
	state  State
	proc   *procHandle
	marker string   // per-session marker base
	seq    uint64   // request id, incremented per framed command
	stale  []string // markers of timed-out requests not yet drained

	// spawn creates the elevated shell. Overridden in tests.
	spawn func(ctx context.Context) (*procHandle, error)
}

// New creates an unauthenticated session that will run ddcutil at the given
// path once started.
func New(ddcutilPath string) *Session {
	return &Session{
		ddcutilPath: ddcutilPath,
		marker:      fmt.Sprintf("__MONCTL_%s", uuid.NewString()),
		spawn:       spawnPkexec,
	}
}

// HasElevationHelper reports whether pkexec is available. Callers use this
// to hide the authenticate affordance entirely when elevation cannot work.
func HasElevationHelper() bool {
	_, err := exec.LookPath("pkexec")
	return err == nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated reports whether the session accepts Run calls.
func (s *Session) Authenticated() bool {
	return s.State() == Authenticated
}

// Start spawns the elevated shell (triggering the pkexec prompt) and proves
// it interactive by running a probe command through the framing protocol.
// Returns nil if already authenticated. Waits up to authTimeout for the
// probe echo, since the prompt blocks until the user acts.
//
// A cancelled prompt, a rejected authentication and a wrapper that produces
// no usable shell all surface uniformly as ErrAuthenticationFailed.
func (s *Session) Start(ctx context.Context, authTimeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Authenticated:
		return nil
	case Terminated:
		return fmt.Errorf("%w: session terminated, create a new one", transport.ErrNotAuthenticated)
	}

	proc, err := s.spawn(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", transport.ErrAuthenticationFailed, err)
	}
	s.proc = proc
	s.state = Authenticating

	out, _, err := s.runLocked(ctx, "echo authenticated", authTimeout)
	if err != nil || !strings.Contains(out, "authenticated") {
		s.teardownLocked()
		s.state = Unauthenticated
		s.proc = nil
		if err != nil {
			return fmt.Errorf("%w: %v", transport.ErrAuthenticationFailed, err)
		}
		return fmt.Errorf("%w: probe echo not observed", transport.ErrAuthenticationFailed)
	}

	s.state = Authenticated
	return nil
}

// Run executes one shell command through the session and returns its stdout
// and exit status. Callers queue on the session lock and are served in
// arrival order.
func (s *Session) Run(ctx context.Context, command string, timeout time.Duration) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Authenticated {
		return "", -1, fmt.Errorf("%w: session is %s", transport.ErrNotAuthenticated, s.state)
	}
	return s.runLocked(ctx, command, timeout)
}

// RunTool executes ddcutil with the given arguments through the session.
func (s *Session) RunTool(ctx context.Context, args []string, timeout time.Duration) (string, int, error) {
	return s.Run(ctx, s.ddcutilPath+" "+strings.Join(args, " "), timeout)
}

// Stop shuts the shell down: writes "exit", waits briefly for a graceful
// exit, force-kills otherwise. Idempotent — calling it twice, or on a
// session that never started, is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		if s.state != Unauthenticated {
			s.state = Terminated
		}
		return
	}
	fmt.Fprintln(s.proc.stdin, "exit")
	s.teardownLocked()
	s.proc = nil
	s.state = Terminated
}

// teardownLocked waits up to stopGrace for the process to exit, then kills
// it. Caller holds s.mu.
func (s *Session) teardownLocked() {
	proc := s.proc
	if proc == nil {
		return
	}
	proc.stdin.Close()

	done := make(chan struct{})
	go func() {
		proc.wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		proc.kill()
		<-done
	}
}

// runLocked frames one command over the shared pipes. Caller holds s.mu.
func (s *Session) runLocked(ctx context.Context, command string, timeout time.Duration) (string, int, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	// A previous call may have timed out with its framed response still in
	// flight. Drain it before writing, or the marker correlation breaks.
	if err := s.drainLocked(ctx, deadline.C); err != nil {
		return "", -1, err
	}

	s.seq++
	marker := fmt.Sprintf("%s_%d_", s.marker, s.seq)
	if _, err := fmt.Fprintf(s.proc.stdin, "%s; echo \"%s$?\";\n", command, marker); err != nil {
		s.terminateLocked()
		return "", -1, fmt.Errorf("%w: session input closed: %v", transport.ErrNotAuthenticated, err)
	}

	var out []string
	for {
		select {
		case line, ok := <-s.proc.lines:
			if !ok {
				// Output pipe closed under us: the process is gone.
				s.terminateLocked()
				return "", -1, fmt.Errorf("%w: session process exited", transport.ErrNotAuthenticated)
			}
			if rest, found := strings.CutPrefix(line, marker); found {
				code, err := strconv.Atoi(strings.TrimSpace(rest))
				if err != nil {
					code = -1
				}
				return strings.Join(out, "\n"), code, nil
			}
			if strings.HasPrefix(line, s.marker) {
				// Trailer of an older, timed-out request. Discard.
				s.dropStale(line)
				continue
			}
			out = append(out, line)
		case <-deadline.C:
			// The command may still complete later; remember its marker so
			// the next call can drain the late response. The session stays
			// open — one slow command does not kill it.
			s.stale = append(s.stale, marker)
			return "", -1, fmt.Errorf("%w after %s: %s", transport.ErrTimeout, timeout, command)
		case <-ctx.Done():
			s.stale = append(s.stale, marker)
			return "", -1, ctx.Err()
		}
	}
}

// drainLocked discards output from previously timed-out requests until all
// their markers have been seen, bounded by the current call's deadline.
func (s *Session) drainLocked(ctx context.Context, deadline <-chan time.Time) error {
	for len(s.stale) > 0 {
		select {
		case line, ok := <-s.proc.lines:
			if !ok {
				s.terminateLocked()
				return fmt.Errorf("%w: session process exited", transport.ErrNotAuthenticated)
			}
			if strings.HasPrefix(line, s.marker) {
				s.dropStale(line)
			}
		case <-deadline:
			return fmt.Errorf("%w: waiting for earlier command to finish", transport.ErrTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// dropStale removes the stale marker that prefixes line, if any.
func (s *Session) dropStale(line string) {
	for i, m := range s.stale {
		if strings.HasPrefix(line, m) {
			s.stale = append(s.stale[:i], s.stale[i+1:]...)
			return
		}
	}
}

// terminateLocked kills the process and marks the session Terminated.
// Caller holds s.mu.
func (s *Session) terminateLocked() {
	if s.proc != nil {
		s.proc.kill()
		go s.proc.wait()
		s.proc = nil
	}
	s.state = Terminated
}

// spawnPkexec starts "pkexec /bin/bash" with piped stdin/stdout and a
// goroutine feeding output lines into a channel. The channel closes on EOF,
// which is how Run detects that the shell died.
func spawnPkexec(ctx context.Context) (*procHandle, error) {
	pkexec, err := exec.LookPath("pkexec")
	if err != nil {
		return nil, fmt.Errorf("pkexec not found: cannot authenticate")
	}

	cmd := exec.CommandContext(ctx, pkexec, "/bin/bash")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", transport.ErrProcessLaunchFailed, err)
	}

	return &procHandle{
		stdin: stdin,
		lines: readLines(stdout),
		kill:  cmd.Process.Kill,
		wait:  cmd.Wait,
	}, nil
}

// readLines pumps stdout into a line channel, closing it on EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
