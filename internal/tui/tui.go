// Package tui is the terminal control panel: per-monitor tabs, feature
// groups with sliders for continuous features and option cyclers for
// discrete ones. It only calls the ddc client and renders what comes back.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/monctl/monctl/internal/ddc"
	"github.com/monctl/monctl/internal/model"
	"github.com/monctl/monctl/internal/parse"
	"github.com/monctl/monctl/internal/transport"
	"github.com/monctl/monctl/internal/vcp"
)

// Styles
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	tabStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
	activeTab     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8")).Padding(0, 1)
	groupStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// writeDebounce is how long a slider value must sit still before it is
// written to the monitor. Keeps a held arrow key from issuing a setvcp per
// repeat.
const writeDebounce = 250 * time.Millisecond

// featureRow is one controllable line in the panel.
type featureRow struct {
	group string // non-empty on the first row of a group
	code  uint16
}

// messages
//
// Commands run on their own goroutines and must not touch the shared
// monitor state; everything they learn rides back in the message and is
// applied in Update on the program goroutine.
type detectedMsg struct {
	monitors []model.MonitorIdentity
	err      error
}

type monitorLoadedMsg struct {
	index  int
	caps   parse.Capabilities
	values map[uint16]model.FeatureValue
	err    error
}

type wroteMsg struct {
	index int
	code  uint16
	value model.FeatureValue
	read  bool // value holds a successful read-back
	err   error
}

type authMsg struct {
	err error
}

type flushMsg struct {
	index int
	code  uint16
	stamp time.Time
}

// TUI runs the interactive control panel.
type TUI struct {
	Client *ddc.Client
}

// Run blocks until the user quits.
func (t *TUI) Run(ctx context.Context) error {
	m := newModel(ctx, t.Client)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// pendingWrite is a debounced slider change not yet sent to the monitor.
type pendingWrite struct {
	value uint32
	stamp time.Time
}

type tuiModel struct {
	ctx    context.Context
	client *ddc.Client

	monitors []*model.Monitor
	active   int // selected monitor tab
	rows     []featureRow
	cursor   int

	// Debounced writes per feature of the active monitor.
	pending map[uint16]pendingWrite

	slider  progress.Model
	spin    spinner.Model
	loading bool

	width  int
	height int

	message   string
	authState string
}

func newModel(ctx context.Context, client *ddc.Client) *tuiModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &tuiModel{
		ctx:     ctx,
		client:  client,
		pending: map[uint16]pendingWrite{},
		slider:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spin:    sp,
		loading: true,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.detectCmd())
}

// detectCmd scans for monitors.
func (m *tuiModel) detectCmd() tea.Cmd {
	return func() tea.Msg {
		monitors, err := m.client.DetectMonitors(m.ctx)
		return detectedMsg{monitors: monitors, err: err}
	}
}

// loadMonitorCmd probes capabilities and batch-reads values for one
// monitor. One command per monitor, sequentially issued: the bus tolerates
// one operation at a time.
func (m *tuiModel) loadMonitorCmd(index int) tea.Cmd {
	display := m.monitors[index].DisplayNumber
	return func() tea.Msg {
		caps := m.client.Capabilities(m.ctx, display)
		values, err := m.client.GetFeatures(m.ctx, display, probeSet(caps))
		return monitorLoadedMsg{index: index, caps: caps, values: values, err: err}
	}
}

// probeSet is the catalog filtered by a capability probe; an empty
// supported set means the probe failed and every feature is polled.
func probeSet(caps parse.Capabilities) []uint16 {
	var codes []uint16
	for _, code := range vcp.AllFeatures() {
		if len(caps.Supported) == 0 || caps.Supported[code] {
			codes = append(codes, code)
		}
	}
	return codes
}

// writeCmd sends one feature value and reads it back.
func (m *tuiModel) writeCmd(index int, code uint16, value uint32) tea.Cmd {
	display := m.monitors[index].DisplayNumber
	return func() tea.Msg {
		msg := wroteMsg{index: index, code: code}
		msg.err = m.client.SetFeature(m.ctx, display, code, value)
		if msg.err == nil {
			if v, ok, readErr := m.client.GetFeature(m.ctx, display, code); readErr == nil && ok {
				msg.value, msg.read = v, true
			}
		}
		return msg
	}
}

func (m *tuiModel) authCmd() tea.Cmd {
	return func() tea.Msg {
		return authMsg{err: m.client.Authenticate(m.ctx)}
	}
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.slider.Width = min(40, max(10, msg.Width-40))
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case detectedMsg:
		m.loading = false
		if msg.err != nil {
			m.message = renderErr(msg.err)
			return m, nil
		}
		if len(msg.monitors) == 0 {
			m.message = "no monitors detected"
			return m, nil
		}
		m.monitors = nil
		for _, id := range msg.monitors {
			m.monitors = append(m.monitors, model.NewMonitor(id))
		}
		m.active = 0
		m.loading = true
		return m, tea.Batch(m.spin.Tick, m.loadMonitorCmd(0))

	case monitorLoadedMsg:
		if msg.index < len(m.monitors) {
			mon := m.monitors[msg.index]
			mon.Supported = msg.caps.Supported
			mon.Options = msg.caps.Options
			for _, v := range msg.values {
				mon.SetValue(v)
			}
		}
		if msg.index == m.active {
			m.loading = false
			m.rebuildRows()
		}
		if msg.err != nil {
			m.message = renderErr(msg.err)
		}
		// Load remaining monitors in the background, one at a time.
		if next := msg.index + 1; next < len(m.monitors) {
			return m, m.loadMonitorCmd(next)
		}
		return m, nil

	case wroteMsg:
		if msg.err != nil {
			m.message = renderErr(msg.err)
			return m, nil
		}
		m.message = ""
		if msg.read && msg.index < len(m.monitors) {
			m.monitors[msg.index].SetValue(msg.value)
		}
		return m, nil

	case authMsg:
		if msg.err != nil {
			m.authState = ""
			m.message = renderErr(msg.err)
			return m, nil
		}
		m.authState = "elevated"
		m.message = okStyle.Render("authenticated — commands now run through the privileged session")
		// Re-read everything: reads that failed on permissions work now.
		if len(m.monitors) > 0 {
			m.loading = true
			return m, tea.Batch(m.spin.Tick, m.loadMonitorCmd(0))
		}
		return m, nil

	case flushMsg:
		p, ok := m.pending[msg.code]
		if !ok || !p.stamp.Equal(msg.stamp) {
			// Superseded by a newer change; its own flush will fire.
			return m, nil
		}
		delete(m.pending, msg.code)
		return m, m.writeCmd(msg.index, msg.code, p.value)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.client.Deauthenticate()
		return m, tea.Quit

	case "tab", "]":
		if len(m.monitors) > 1 {
			m.switchMonitor((m.active + 1) % len(m.monitors))
		}
		return m, nil
	case "shift+tab", "[":
		if len(m.monitors) > 1 {
			m.switchMonitor((m.active - 1 + len(m.monitors)) % len(m.monitors))
		}
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil

	case "left", "h":
		return m, m.adjust(-1)
	case "right", "l":
		return m, m.adjust(+1)
	case "pgdown":
		return m, m.adjust(-10)
	case "pgup":
		return m, m.adjust(+10)

	case "r":
		if len(m.monitors) > 0 {
			m.loading = true
			return m, tea.Batch(m.spin.Tick, m.loadMonitorCmd(m.active))
		}
		return m, nil

	case "a":
		if !m.client.HasElevationHelper() {
			m.message = renderErr(fmt.Errorf("%w: pkexec not installed", transport.ErrAuthenticationFailed))
			return m, nil
		}
		m.authState = "authenticating"
		m.message = noticeStyle.Render("waiting for the authentication prompt...")
		return m, m.authCmd()
	}
	return m, nil
}

// adjust changes the selected feature by delta steps: value steps for
// continuous features, option positions for discrete ones. The write is
// debounced; the displayed value updates immediately.
func (m *tuiModel) adjust(delta int) tea.Cmd {
	if m.loading || len(m.monitors) == 0 || m.cursor >= len(m.rows) {
		return nil
	}
	mon := m.monitors[m.active]
	code := m.rows[m.cursor].code
	cur, ok := mon.Value(code)
	if !ok {
		return nil
	}

	var next uint32
	switch vcp.KindOf(code) {
	case vcp.Discrete:
		opts := mon.OptionsFor(code)
		if len(opts) == 0 {
			return nil
		}
		pos := 0
		for i, o := range opts {
			if o.Value == cur.Current {
				pos = i
				break
			}
		}
		pos = (pos + delta%len(opts) + len(opts)) % len(opts)
		next = opts[pos].Value
	default:
		v := int64(pendingOr(m.pending, code, cur.Current)) + int64(delta)
		if v < 0 {
			v = 0
		}
		if cur.Maximum > 0 && v > int64(cur.Maximum) {
			v = int64(cur.Maximum)
		}
		next = uint32(v)
	}

	// Optimistic display value, superseded by the post-write read-back.
	mon.SetValue(model.FeatureValue{Code: code, Current: next, Maximum: cur.Maximum, Name: cur.Name})

	stamp := time.Now()
	m.pending[code] = pendingWrite{value: next, stamp: stamp}
	index := m.active
	return tea.Tick(writeDebounce, func(time.Time) tea.Msg {
		return flushMsg{index: index, code: code, stamp: stamp}
	})
}

func pendingOr(pending map[uint16]pendingWrite, code uint16, fallback uint32) uint32 {
	if p, ok := pending[code]; ok {
		return p.value
	}
	return fallback
}

func (m *tuiModel) switchMonitor(index int) {
	m.active = index
	m.cursor = 0
	m.pending = map[uint16]pendingWrite{}
	m.rebuildRows()
}

// rebuildRows lays out the active monitor's features group by group,
// keeping only features the monitor actually reported a value for.
func (m *tuiModel) rebuildRows() {
	m.rows = nil
	if len(m.monitors) == 0 {
		return
	}
	mon := m.monitors[m.active]
	for _, g := range vcp.Groups {
		name := g.Name
		for _, code := range g.Codes {
			if !mon.Supports(code) {
				continue
			}
			if _, ok := mon.Value(code); !ok {
				continue
			}
			m.rows = append(m.rows, featureRow{group: name, code: code})
			name = ""
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = 0
	}
}

func (m *tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("monctl"))
	if m.authState == "elevated" {
		b.WriteString("  " + okStyle.Render("[elevated]"))
	}
	b.WriteString("\n\n")

	if m.loading && len(m.monitors) == 0 {
		b.WriteString(m.spin.View() + " detecting monitors...\n")
		return b.String()
	}
	if len(m.monitors) == 0 {
		if m.message != "" {
			b.WriteString(m.message + "\n")
		}
		b.WriteString(statusStyle.Render("q quit  r retry") + "\n")
		return b.String()
	}

	// Monitor tabs
	var tabs []string
	for i, mon := range m.monitors {
		label := mon.ShortName()
		if i == m.active {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	b.WriteString(strings.Join(tabs, " ") + "\n")
	mon := m.monitors[m.active]
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s  display %d  bus %d", mon.DisplayName(), mon.DisplayNumber, mon.BusID)) + "\n\n")

	if m.loading {
		b.WriteString(m.spin.View() + " reading features...\n")
	} else {
		b.WriteString(m.viewRows(mon))
	}

	if m.message != "" {
		b.WriteString("\n" + m.message + "\n")
	}
	b.WriteString("\n" + statusStyle.Render("←/→ adjust  ↑/↓ select  tab monitor  r refresh  a authenticate  q quit"))
	return b.String()
}

func (m *tuiModel) viewRows(mon *model.Monitor) string {
	var b strings.Builder
	for i, row := range m.rows {
		if row.group != "" {
			b.WriteString(groupStyle.Render(row.group) + "\n")
		}
		v, _ := mon.Value(row.code)

		label := fmt.Sprintf("  %-14s", v.Name)
		if i == m.cursor {
			label = selectedStyle.Render("▸ " + label[2:])
		}
		b.WriteString(label)

		switch vcp.KindOf(row.code) {
		case vcp.Discrete:
			b.WriteString(" " + m.viewDiscrete(mon, v))
		default:
			b.WriteString(" " + m.slider.ViewAs(v.Percentage()/100))
			b.WriteString(dimStyle.Render(fmt.Sprintf(" %3d/%d", v.Current, v.Maximum)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *tuiModel) viewDiscrete(mon *model.Monitor, v model.FeatureValue) string {
	name := vcp.DefaultValueName(v.Code, v.Current)
	for _, o := range mon.OptionsFor(v.Code) {
		if o.Value == v.Current {
			name = o.Name
			break
		}
	}
	if len(mon.OptionsFor(v.Code)) > 0 {
		return fmt.Sprintf("◂ %s ▸", name)
	}
	return dimStyle.Render(name)
}

// renderErr maps the transport taxonomy to user-facing lines.
func renderErr(err error) string {
	switch {
	case errors.Is(err, transport.ErrPermissionDenied):
		return noticeStyle.Render("permission denied — press a to authenticate")
	case errors.Is(err, transport.ErrTimeout):
		return noticeStyle.Render("command timed out — press r to retry")
	case errors.Is(err, transport.ErrAuthenticationFailed):
		return errorStyle.Render("authentication failed or cancelled — press a to retry")
	case errors.Is(err, transport.ErrNotAuthenticated):
		return errorStyle.Render("privileged session ended — press a to authenticate again")
	default:
		return errorStyle.Render(err.Error())
	}
}
