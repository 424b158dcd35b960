// Package vcp holds the static VCP feature catalog: the feature codes
// monctl knows how to control, their human-readable names, whether they are
// continuous (slider-like) or discrete (dropdown-like), and fallback names
// for well-known discrete values.
//
// Everything here is lookup tables — the codes and semantics come from the
// VESA MCCS tables that ddcutil itself implements.
package vcp

import "fmt"

// Common VCP feature codes.
const (
	Brightness  uint16 = 0x10
	Contrast    uint16 = 0x12
	Backlight   uint16 = 0x13
	ColorPreset uint16 = 0x14
	RedGain     uint16 = 0x16
	GreenGain   uint16 = 0x18
	BlueGain    uint16 = 0x1A
	InputSource uint16 = 0x60
	Volume      uint16 = 0x62
	Sharpness   uint16 = 0x87
	AudioMute   uint16 = 0x8D
	DisplayMode uint16 = 0xDC
)

// Kind distinguishes how a feature's value space behaves.
type Kind int

const (
	// Continuous features take any value on a bounded integer scale.
	Continuous Kind = iota
	// Discrete features take one of an enumerated, named set of values.
	Discrete
	// Unknown covers codes outside the catalog.
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	default:
		return "unknown"
	}
}

// featureNames maps feature codes to display names.
var featureNames = map[uint16]string{
	Brightness:  "Brightness",
	Contrast:    "Contrast",
	Backlight:   "Backlight",
	ColorPreset: "Color Preset",
	RedGain:     "Red Gain",
	GreenGain:   "Green Gain",
	BlueGain:    "Blue Gain",
	InputSource: "Input Source",
	Volume:      "Volume",
	AudioMute:   "Audio Mute",
	Sharpness:   "Sharpness",
	DisplayMode: "Display Mode",
}

var continuousFeatures = map[uint16]bool{
	Brightness: true,
	Contrast:   true,
	Backlight:  true,
	RedGain:    true,
	GreenGain:  true,
	BlueGain:   true,
	Volume:     true,
	Sharpness:  true,
}

var discreteFeatures = map[uint16]bool{
	ColorPreset: true,
	InputSource: true,
	AudioMute:   true,
	DisplayMode: true,
}

// Group is a named set of features, in UI presentation order.
type Group struct {
	Name  string
	Codes []uint16
}

// Groups lists the catalog features organized for presentation.
var Groups = []Group{
	{Name: "Display", Codes: []uint16{Brightness, Contrast, Backlight}},
	{Name: "Color", Codes: []uint16{ColorPreset, RedGain, GreenGain, BlueGain}},
	{Name: "Input", Codes: []uint16{InputSource}},
	{Name: "Audio", Codes: []uint16{Volume, AudioMute}},
	{Name: "Image", Codes: []uint16{Sharpness, DisplayMode}},
}

// defaultValueNames provides names for well-known discrete values, used when
// a monitor's capabilities string does not name them itself.
var defaultValueNames = map[uint16]map[uint32]string{
	AudioMute: {
		0x01: "Mute",
		0x02: "Unmute",
	},
	InputSource: {
		0x01: "VGA-1",
		0x02: "VGA-2",
		0x03: "DVI-1",
		0x04: "DVI-2",
		0x0F: "DisplayPort-1",
		0x10: "DisplayPort-2",
		0x11: "HDMI-1",
		0x12: "HDMI-2",
		0x13: "HDMI-3",
		0x14: "HDMI-4",
	},
	ColorPreset: {
		0x01: "sRGB",
		0x02: "Native",
		0x03: "4000K",
		0x04: "5000K",
		0x05: "6500K",
		0x06: "7500K",
		0x07: "8200K",
		0x08: "9300K",
		0x09: "10000K",
		0x0A: "11500K",
		0x0B: "User 1",
		0x0C: "User 2",
		0x0D: "User 3",
	},
	DisplayMode: {
		0x00: "Standard",
		0x01: "Productivity",
		0x02: "Mixed",
		0x03: "Movie",
		0x04: "User",
		0x05: "Games",
		0x06: "Sports",
		0x07: "Professional",
		0x08: "Standard 2",
		0xF0: "Dynamic Contrast",
	},
}

// FeatureName returns the display name for a feature code, or a generic
// "Feature 0x??" placeholder for codes outside the catalog.
func FeatureName(code uint16) string {
	if name, ok := featureNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Feature 0x%02x", code)
}

// KindOf classifies a feature code.
func KindOf(code uint16) Kind {
	switch {
	case continuousFeatures[code]:
		return Continuous
	case discreteFeatures[code]:
		return Discrete
	default:
		return Unknown
	}
}

// DefaultValueName returns the fallback name for a discrete feature value,
// or a generic "Value 0x??" placeholder when none is known.
func DefaultValueName(code uint16, value uint32) string {
	if name, ok := defaultValueNames[code][value]; ok {
		return name
	}
	return fmt.Sprintf("Value 0x%02x", value)
}

// AllFeatures returns every catalog feature code in group order. This is the
// default probe set for a freshly detected monitor.
func AllFeatures() []uint16 {
	var codes []uint16
	for _, g := range Groups {
		codes = append(codes, g.Codes...)
	}
	return codes
}
