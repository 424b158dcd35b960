package ddc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/monctl/monctl/internal/config"
	"github.com/monctl/monctl/internal/model"
	"github.com/monctl/monctl/internal/otel"
	"github.com/monctl/monctl/internal/transport"
)

// fakeRunner replays scripted results and records the argument lists it saw.
type fakeRunner struct {
	results []scriptedResult
	calls   [][]string
}

type scriptedResult struct {
	res transport.Result
	err error
}

func (f *fakeRunner) Run(ctx context.Context, args []string, timeout time.Duration) (transport.Result, error) {
	f.calls = append(f.calls, args)
	if len(f.results) == 0 {
		return transport.Result{}, fmt.Errorf("fakeRunner: no scripted result for %v", args)
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next.res, next.err
}

func (f *fakeRunner) script(stdout string, exitCode int) {
	f.results = append(f.results, scriptedResult{res: transport.Result{Stdout: stdout, ExitCode: exitCode}})
}

func (f *fakeRunner) scriptErr(err error) {
	f.results = append(f.results, scriptedResult{err: err})
}

// fakeSession is an Elevated double that never spawns a process.
type fakeSession struct {
	fakeRunner
	startCalls    int
	startErr      error
	authenticated bool
	stopped       bool
}

func (f *fakeSession) Start(ctx context.Context, authTimeout time.Duration) error {
	f.startCalls++
	if f.startErr != nil {
		return f.startErr
	}
	f.authenticated = true
	return nil
}

func (f *fakeSession) Authenticated() bool { return f.authenticated }

func (f *fakeSession) Stop() {
	f.stopped = true
	f.authenticated = false
}

func newTestClient(t *testing.T, direct *fakeRunner) *Client {
	t.Helper()
	cfg := config.Defaults()
	cfg.CommandTimeoutDuration = time.Second
	cfg.DetectTimeoutDuration = time.Second
	cfg.AuthTimeoutDuration = time.Second

	tel, err := otel.Init(context.Background(), otel.Config{})
	if err != nil {
		t.Fatalf("otel init: %v", err)
	}
	return &Client{cfg: cfg, tel: tel, direct: direct}
}

func TestDetectMonitors(t *testing.T) {
	direct := &fakeRunner{}
	direct.script(`Display 1
   I2C bus:  /dev/i2c-4
   Mfg id:   DEL
   Model:    U2720Q
`, 0)
	c := newTestClient(t, direct)

	monitors, err := c.DetectMonitors(context.Background())
	if err != nil {
		t.Fatalf("DetectMonitors: %v", err)
	}
	if len(monitors) != 1 {
		t.Fatalf("expected 1 monitor, got %d", len(monitors))
	}
	if monitors[0].Model != "U2720Q" || monitors[0].BusID != 4 {
		t.Errorf("unexpected identity: %+v", monitors[0])
	}
	if got := direct.calls[0]; got[0] != "detect" || got[1] != "--terse" {
		t.Errorf("unexpected args: %v", got)
	}
}

func TestGetFeaturesBatchesIntoOneInvocation(t *testing.T) {
	direct := &fakeRunner{}
	direct.script("VCP 10 C 70 100\nVCP 12 C 40 100\n", 0)
	c := newTestClient(t, direct)

	values, err := c.GetFeatures(context.Background(), 1, []uint16{0x10, 0x12})
	if err != nil {
		t.Fatalf("GetFeatures: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}
	if len(direct.calls) != 1 {
		t.Fatalf("expected a single invocation, got %d", len(direct.calls))
	}
	args := strings.Join(direct.calls[0], " ")
	if !strings.Contains(args, "0x10") || !strings.Contains(args, "0x12") {
		t.Errorf("both codes should be in one invocation: %v", args)
	}
	if !strings.Contains(args, "--terse") || !strings.Contains(args, "--display 1") {
		t.Errorf("missing flags: %v", args)
	}
}

func TestGetFeaturesEmptyCodesSkipsInvocation(t *testing.T) {
	direct := &fakeRunner{}
	c := newTestClient(t, direct)
	values, err := c.GetFeatures(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("GetFeatures: %v", err)
	}
	if len(values) != 0 || len(direct.calls) != 0 {
		t.Errorf("expected no invocation, got %d calls", len(direct.calls))
	}
}

func TestSetFeaturePermissionDenied(t *testing.T) {
	direct := &fakeRunner{}
	direct.results = append(direct.results, scriptedResult{res: transport.Result{
		Stderr:   "Error: Permission denied accessing /dev/i2c-3",
		ExitCode: 1,
	}})
	c := newTestClient(t, direct)

	err := c.SetFeature(context.Background(), 1, 0x10, 50)
	if !errors.Is(err, transport.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestSetFeatureGenericFailure(t *testing.T) {
	direct := &fakeRunner{}
	direct.results = append(direct.results, scriptedResult{res: transport.Result{
		Stderr:   "Display not found",
		ExitCode: 1,
	}})
	c := newTestClient(t, direct)

	err := c.SetFeature(context.Background(), 1, 0x10, 50)
	if err == nil || errors.Is(err, transport.ErrPermissionDenied) {
		t.Fatalf("expected a generic failure, got %v", err)
	}
}

func TestCapabilitiesDegradesToAssumeAllSupported(t *testing.T) {
	direct := &fakeRunner{}
	direct.scriptErr(fmt.Errorf("%w after 1s", transport.ErrTimeout))
	c := newTestClient(t, direct)

	caps := c.Capabilities(context.Background(), 1)
	if len(caps.Supported) != 0 {
		t.Fatalf("expected empty supported set, got %v", caps.Supported)
	}

	// The empty set means "assume all supported", not "none supported".
	m := model.NewMonitor(model.MonitorIdentity{DisplayNumber: 1})
	m.Supported = caps.Supported
	if !m.Supports(0x10) {
		t.Error("empty capability set must be treated as all-supported")
	}
}

func TestCapabilitiesPopulated(t *testing.T) {
	direct := &fakeRunner{}
	direct.script(`   Feature: 10 (Brightness)
   Feature: 60 (Input Source)
      Values:
         11: HDMI-1
`, 0)
	c := newTestClient(t, direct)

	caps := c.Capabilities(context.Background(), 1)
	if !caps.Supported[0x10] || !caps.Supported[0x60] {
		t.Fatalf("supported: %v", caps.Supported)
	}

	m := model.NewMonitor(model.MonitorIdentity{DisplayNumber: 1})
	m.Supported = caps.Supported
	if m.Supports(0x12) {
		t.Error("0x12 is not in the populated capability set")
	}
}

func TestAuthenticateIsIdempotent(t *testing.T) {
	direct := &fakeRunner{}
	c := newTestClient(t, direct)
	fake := &fakeSession{}
	c.newSession = func() Elevated { return fake }

	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("second Authenticate: %v", err)
	}
	if fake.startCalls != 1 {
		t.Errorf("expected 1 Start call, got %d", fake.startCalls)
	}
	if !c.Authenticated() {
		t.Error("client should report authenticated")
	}
}

func TestAuthenticateFailureDiscardsSession(t *testing.T) {
	direct := &fakeRunner{}
	c := newTestClient(t, direct)
	fail := &fakeSession{startErr: fmt.Errorf("%w: prompt cancelled", transport.ErrAuthenticationFailed)}
	c.newSession = func() Elevated { return fail }

	err := c.Authenticate(context.Background())
	if !errors.Is(err, transport.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if c.Authenticated() {
		t.Error("client must not report authenticated after a failed start")
	}
}

func TestFeatureCallsRouteThroughAuthenticatedSession(t *testing.T) {
	direct := &fakeRunner{}
	c := newTestClient(t, direct)
	fake := &fakeSession{}
	fake.script("VCP 10 C 70 100\n", 0)
	c.newSession = func() Elevated { return fake }

	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	v, ok, err := c.GetFeature(context.Background(), 1, 0x10)
	if err != nil || !ok {
		t.Fatalf("GetFeature: ok=%v err=%v", ok, err)
	}
	if v.Current != 70 {
		t.Errorf("current: got %d, want 70", v.Current)
	}
	if len(direct.calls) != 0 {
		t.Errorf("direct transport used while session authenticated: %v", direct.calls)
	}
	if len(fake.calls) != 1 {
		t.Errorf("expected 1 session call, got %d", len(fake.calls))
	}
}

func TestDeauthenticateFallsBackToDirect(t *testing.T) {
	direct := &fakeRunner{}
	direct.script("VCP 10 C 70 100\n", 0)
	c := newTestClient(t, direct)
	fake := &fakeSession{}
	c.newSession = func() Elevated { return fake }

	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	c.Deauthenticate()
	if !fake.stopped {
		t.Error("Deauthenticate must stop the session")
	}

	if _, _, err := c.GetFeature(context.Background(), 1, 0x10); err != nil {
		t.Fatalf("GetFeature after deauthenticate: %v", err)
	}
	if len(direct.calls) != 1 {
		t.Errorf("expected direct call after deauthenticate, got %d", len(direct.calls))
	}
}

func TestLoadCapabilitiesStoresOnMonitor(t *testing.T) {
	direct := &fakeRunner{}
	direct.script(`   Feature: 10 (Brightness)
   Feature: 60 (Input Source)
      Values:
         11: HDMI-1
`, 0)
	c := newTestClient(t, direct)

	m := model.NewMonitor(model.MonitorIdentity{DisplayNumber: 1})
	c.LoadCapabilities(context.Background(), m)
	if !m.Supported[0x10] || !m.Supported[0x60] {
		t.Fatalf("supported set not stored: %v", m.Supported)
	}
	if opts := m.OptionsFor(0x60); len(opts) != 1 || opts[0].Name != "HDMI-1" {
		t.Errorf("options not stored: %v", opts)
	}
}

func TestRefreshMonitorStoresValuesAndToleratesPartial(t *testing.T) {
	direct := &fakeRunner{}
	// The monitor only answers for brightness even though more were asked.
	direct.script("VCP 10 C 70 100\n", 0)
	c := newTestClient(t, direct)

	m := model.NewMonitor(model.MonitorIdentity{DisplayNumber: 1})
	m.Supported = map[uint16]bool{0x10: true, 0x12: true}
	if err := c.RefreshMonitor(context.Background(), m); err != nil {
		t.Fatalf("RefreshMonitor: %v", err)
	}
	if _, ok := m.Value(0x10); !ok {
		t.Error("brightness value should be cached")
	}
	if _, ok := m.Value(0x12); ok {
		t.Error("contrast was not reported and must stay absent, not fail")
	}
}
