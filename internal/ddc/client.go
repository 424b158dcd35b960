// Package ddc is the orchestration layer over the ddcutil transports: it
// combines the feature catalog, the output parsers and the two transports
// into the operations callers actually use — detect monitors, read and
// write features, read capabilities — and decides per call whether to route
// through the privileged session.
package ddc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/monctl/monctl/internal/config"
	"github.com/monctl/monctl/internal/model"
	"github.com/monctl/monctl/internal/otel"
	"github.com/monctl/monctl/internal/parse"
	"github.com/monctl/monctl/internal/session"
	"github.com/monctl/monctl/internal/transport"
)

// Elevated is what the client needs from a privileged session. Satisfied by
// *session.Runner; tests substitute a double that never spawns a process.
type Elevated interface {
	transport.Runner
	Start(ctx context.Context, authTimeout time.Duration) error
	Authenticated() bool
	Stop()
}

// Client exposes the monitor-control operations.
//
// Reads flow Client → transport → ddcutil → parser → typed record; writes
// only check the exit status. Callers are expected to issue one operation
// per physical bus at a time: the session serializes its own calls, but
// concurrent direct calls against the same monitor are not guarded here.
type Client struct {
	cfg    *config.Config
	tel    *otel.Telemetry
	direct transport.Runner

	mu      sync.Mutex
	session Elevated

	// newSession creates a fresh privileged session. Overridden in tests.
	newSession func() Elevated
}

// New resolves the ddcutil binary and returns a Client. Fails with
// ErrToolNotFound when the tool is missing — fatal at startup, the error
// text carries install guidance.
func New(cfg *config.Config, tel *otel.Telemetry) (*Client, error) {
	direct, err := transport.NewDirect(cfg.DdcutilPath)
	if err != nil {
		return nil, err
	}
	toolPath := direct.Path()
	c := &Client{cfg: cfg, tel: tel, direct: direct}
	c.newSession = func() Elevated {
		return &session.Runner{Session: session.New(toolPath)}
	}
	return c, nil
}

// HasElevationHelper reports whether pkexec is available. When it is not,
// Authenticate cannot succeed and callers should not offer it.
func (c *Client) HasElevationHelper() bool {
	return session.HasElevationHelper()
}

// Authenticated reports whether a privileged session is active.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.Authenticated()
}

// Authenticate lazily creates and starts a privileged session, triggering
// the pkexec prompt. Idempotent: returns immediately when a session is
// already authenticated. Prompts at most once per successful call.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.Authenticated() {
		return nil
	}

	s := c.newSession()
	if err := s.Start(ctx, c.cfg.AuthTimeoutDuration); err != nil {
		c.tel.Metrics.RecordAuthentication(ctx, "failed")
		return err
	}
	c.session = s
	c.tel.Metrics.RecordAuthentication(ctx, "ok")
	return nil
}

// Deauthenticate stops the privileged session, if any. Subsequent calls
// route through the direct transport again.
func (c *Client) Deauthenticate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Stop()
		c.session = nil
	}
}

// DetectMonitors scans for connected displays. Always uses the direct
// transport: detection walks the hardware and needs the longer timeout, and
// its output is the baseline the session routing decisions build on.
func (c *Client) DetectMonitors(ctx context.Context) ([]model.MonitorIdentity, error) {
	res, err := c.run(ctx, c.direct, "direct", []string{"detect", "--terse"}, c.cfg.DetectTimeoutDuration)
	if err != nil {
		return nil, err
	}
	return parse.Detect(res.Stdout), nil
}

// GetFeature reads one feature. The bool is false when the monitor did not
// report the feature (absent from output is not an error).
func (c *Client) GetFeature(ctx context.Context, display int, code uint16) (model.FeatureValue, bool, error) {
	values, err := c.GetFeatures(ctx, display, []uint16{code})
	if err != nil {
		return model.FeatureValue{}, false, err
	}
	v, ok := values[code]
	return v, ok, nil
}

// GetFeatures reads several features in a single ddcutil invocation.
// Batching is what keeps polling a monitor's whole feature set tolerable:
// each invocation pays the bus setup cost once.
func (c *Client) GetFeatures(ctx context.Context, display int, codes []uint16) (map[uint16]model.FeatureValue, error) {
	if len(codes) == 0 {
		return map[uint16]model.FeatureValue{}, nil
	}

	args := []string{"getvcp"}
	for _, code := range codes {
		args = append(args, fmt.Sprintf("0x%02x", code))
	}
	args = append(args, "--display", fmt.Sprint(display), "--terse")

	timeout := c.cfg.CommandTimeoutDuration
	if len(codes) > 1 {
		timeout = c.cfg.DetectTimeoutDuration
	}

	runner, label := c.runner()
	res, err := c.run(ctx, runner, label, args, timeout)
	if err != nil {
		return nil, err
	}
	return parse.GetVCP(res.Stdout), nil
}

// SetFeature writes one feature value. Fire-and-forget: there is no output
// to parse, only the exit status to check.
func (c *Client) SetFeature(ctx context.Context, display int, code uint16, value uint32) error {
	args := []string{
		"setvcp", fmt.Sprintf("0x%02x", code), fmt.Sprint(value),
		"--display", fmt.Sprint(display),
	}
	runner, label := c.runner()
	res, err := c.run(ctx, runner, label, args, c.cfg.CommandTimeoutDuration)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("setvcp 0x%02x exited %d: %s", code, res.ExitCode, res.Stderr)
	}
	return nil
}

// Capabilities probes what a monitor supports. A failed probe degrades to
// an empty result — interpreted everywhere as "assume all features
// supported" — rather than failing the caller's whole setup pass.
func (c *Client) Capabilities(ctx context.Context, display int) parse.Capabilities {
	args := []string{"capabilities", "--display", fmt.Sprint(display)}
	runner, label := c.runner()
	res, err := c.run(ctx, runner, label, args, c.cfg.DetectTimeoutDuration)
	if err != nil || res.ExitCode != 0 {
		return parse.Capabilities{
			Supported: map[uint16]bool{},
			Options:   map[uint16][]model.FeatureOption{},
		}
	}
	return parse.ParseCapabilities(res.Stdout)
}

// LoadCapabilities runs the capability probe and stores the result on the
// monitor.
func (c *Client) LoadCapabilities(ctx context.Context, m *model.Monitor) {
	caps := c.Capabilities(ctx, m.DisplayNumber)
	m.Supported = caps.Supported
	m.Options = caps.Options
}

// RefreshMonitor batch-reads the monitor's probe set and stores the fresh
// values. A read failure for polled features leaves the old values in
// place; it never fails the monitor as a whole.
func (c *Client) RefreshMonitor(ctx context.Context, m *model.Monitor) error {
	values, err := c.GetFeatures(ctx, m.DisplayNumber, m.ProbeSet())
	if err != nil {
		return err
	}
	for _, v := range values {
		m.SetValue(v)
	}
	return nil
}

// runner picks the transport for feature operations: the privileged session
// when one is authenticated, the direct transport otherwise.
func (c *Client) runner() (transport.Runner, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Authenticated() {
		return c.session, "session"
	}
	return c.direct, "direct"
}

// run executes one invocation with tracing, metrics and permission
// classification.
func (c *Client) run(ctx context.Context, r transport.Runner, label string, args []string, timeout time.Duration) (transport.Result, error) {
	subcommand := args[0]
	ctx, span := c.tel.Tracer.Start(ctx, "ddcutil."+subcommand,
		trace.WithAttributes(
			attribute.String("ddcutil.transport", label),
			attribute.StringSlice("ddcutil.args", args),
		))
	defer span.End()

	start := time.Now()
	res, err := r.Run(ctx, args, timeout)
	elapsed := time.Since(start)

	if err == nil {
		if permErr := transport.ClassifyPermission(res, c.cfg.PermissionIndicators); permErr != nil {
			err = fmt.Errorf("%w accessing the display bus: %s", permErr, firstLine(res.Stderr))
		}
	}

	outcome := "ok"
	switch {
	case errors.Is(err, transport.ErrTimeout):
		outcome = "timeout"
		if label == "session" {
			c.tel.Metrics.RecordSessionTimeout(ctx)
		}
	case errors.Is(err, transport.ErrPermissionDenied):
		outcome = "permission_denied"
	case err != nil:
		outcome = "error"
	}
	c.tel.Metrics.RecordCommand(ctx, subcommand, label, outcome, elapsed)

	if err != nil {
		span.RecordError(err)
		return transport.Result{}, err
	}
	return res, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
