package model

import (
	"fmt"

	"github.com/monctl/monctl/internal/vcp"
)

// FeatureValue is one read of a VCP feature. Values are immutable once
// constructed; a later read produces a new FeatureValue that supersedes the
// old one in the caller's cache.
type FeatureValue struct {
	// Code is the tool's native numeric feature code.
	Code uint16 `json:"code"`
	// Current is the value the monitor reported.
	Current uint32 `json:"current"`
	// Maximum is the upper bound of the value scale. 0 means not yet known.
	Maximum uint32 `json:"maximum"`
	// Name is the human-readable feature name.
	Name string `json:"name"`
}

// Percentage returns Current as a percentage of Maximum, or 0 when the
// maximum is not yet known.
func (v FeatureValue) Percentage() float64 {
	if v.Maximum == 0 {
		return 0
	}
	return float64(v.Current) / float64(v.Maximum) * 100
}

// FeatureOption is one allowed value of a discrete feature.
type FeatureOption struct {
	Value uint32 `json:"value"`
	Name  string `json:"name"`
}

// MonitorIdentity is the result of one detection pass for one display.
// DisplayNumber values are unique within a pass but may be renumbered by a
// fresh detection.
type MonitorIdentity struct {
	// DisplayNumber is the tool's display index.
	DisplayNumber int `json:"display_number"`
	// BusID is the I2C bus number, -1 when detection did not report one.
	BusID int `json:"bus_id"`
	// Manufacturer and Model default to "Unknown" when absent.
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	EDID         string `json:"edid,omitempty"`
}

// Monitor is a detected display plus everything learned about it since:
// last-known feature values, the supported feature set from the capability
// probe, and the allowed options for discrete features.
type Monitor struct {
	MonitorIdentity

	// Values maps feature code to the last-known reading.
	Values map[uint16]FeatureValue `json:"values,omitempty"`
	// Supported is the feature set from the capability probe. An empty set
	// means the probe failed or was skipped and every feature is assumed
	// supported — not that none are.
	Supported map[uint16]bool `json:"supported,omitempty"`
	// Options maps discrete feature codes to their allowed values, in the
	// order the capabilities output listed them.
	Options map[uint16][]FeatureOption `json:"options,omitempty"`
}

// NewMonitor wraps a detection identity in an empty Monitor.
func NewMonitor(id MonitorIdentity) *Monitor {
	return &Monitor{
		MonitorIdentity: id,
		Values:          make(map[uint16]FeatureValue),
		Supported:       make(map[uint16]bool),
		Options:         make(map[uint16][]FeatureOption),
	}
}

// SetValue records a fresh reading, superseding any previous one.
func (m *Monitor) SetValue(v FeatureValue) {
	m.Values[v.Code] = v
}

// Value returns the last-known reading for a feature, if any.
func (m *Monitor) Value(code uint16) (FeatureValue, bool) {
	v, ok := m.Values[code]
	return v, ok
}

// Supports reports whether the monitor supports a feature. With no
// capability data every feature is assumed supported.
func (m *Monitor) Supports(code uint16) bool {
	if len(m.Supported) == 0 {
		return true
	}
	return m.Supported[code]
}

// OptionsFor returns the allowed values of a discrete feature, or nil when
// the capability probe did not list any.
func (m *Monitor) OptionsFor(code uint16) []FeatureOption {
	return m.Options[code]
}

// DisplayName is a user-friendly name for headers and tab labels.
func (m *Monitor) DisplayName() string {
	if m.Model != "" && m.Model != "Unknown" {
		return fmt.Sprintf("%s %s", m.Manufacturer, m.Model)
	}
	return fmt.Sprintf("Display %d", m.DisplayNumber)
}

// ShortName is a compact label, truncated for narrow layouts.
func (m *Monitor) ShortName() string {
	if m.Model != "" && m.Model != "Unknown" {
		if len(m.Model) > 20 {
			return m.Model[:17] + "..."
		}
		return m.Model
	}
	return fmt.Sprintf("Display %d", m.DisplayNumber)
}

// ProbeSet returns the catalog features this monitor should be polled for:
// every catalog feature, filtered by the supported set when one is known.
func (m *Monitor) ProbeSet() []uint16 {
	var codes []uint16
	for _, code := range vcp.AllFeatures() {
		if m.Supports(code) {
			codes = append(codes, code)
		}
	}
	return codes
}
