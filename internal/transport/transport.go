// Package transport runs the external ddcutil binary and classifies its
// failures.
//
// There is one operation: run an argument list under a timeout and get back
// both output streams and the exit status. Two implementations exist: Direct
// spawns a fresh process per call, and session.Runner routes through the
// long-lived elevated shell in the session package.
package transport

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Sentinel errors for the failure modes callers are expected to branch on.
var (
	// ErrToolNotFound means the ddcutil binary is not on PATH. Fatal at
	// startup; the message carries install guidance.
	ErrToolNotFound = errors.New("ddcutil not found")
	// ErrProcessLaunchFailed means the binary exists but could not be
	// spawned.
	ErrProcessLaunchFailed = errors.New("failed to launch process")
	// ErrTimeout means no response arrived within the call's timeout.
	// Recoverable; the caller may simply retry.
	ErrTimeout = errors.New("command timed out")
	// ErrPermissionDenied means the tool failed for lack of I2C device
	// access. Distinguished so the caller can offer privilege escalation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotAuthenticated means a session-routed call was attempted
	// without an authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAuthenticationFailed means the elevation prompt was rejected or
	// cancelled. Recoverable; the caller may retry authentication.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// InstallGuidance is appended to ErrToolNotFound messages shown to users.
const InstallGuidance = `Please install ddcutil:
  Fedora: sudo dnf install ddcutil
  Ubuntu: sudo apt install ddcutil
  Arch:   sudo pacman -S ddcutil`

// Result is the captured outcome of one tool invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes the external tool with the given arguments.
type Runner interface {
	// Run executes one invocation, waiting up to timeout for completion.
	// A non-zero exit status is not an error: it is reported in the
	// Result and left to the caller to interpret.
	Run(ctx context.Context, args []string, timeout time.Duration) (Result, error)
}

// DefaultPermissionIndicators are the stderr substrings that mark a
// non-zero exit as a permission failure. The heuristic is inherited and
// locale-dependent; the config file can override the list.
var DefaultPermissionIndicators = []string{"permission", "access"}

// ClassifyPermission inspects a finished invocation and returns
// ErrPermissionDenied when the exit status is non-zero and stderr contains
// one of the indicator substrings (case-insensitive). Returns nil otherwise.
// An empty indicators list falls back to the defaults.
func ClassifyPermission(res Result, indicators []string) error {
	if res.ExitCode == 0 {
		return nil
	}
	if len(indicators) == 0 {
		indicators = DefaultPermissionIndicators
	}
	stderr := strings.ToLower(res.Stderr)
	for _, needle := range indicators {
		if needle != "" && strings.Contains(stderr, strings.ToLower(needle)) {
			return ErrPermissionDenied
		}
	}
	return nil
}
