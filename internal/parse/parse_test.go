package parse

import (
	"testing"

	"github.com/monctl/monctl/internal/vcp"
)

// --- Detection parser tests ---

func TestDetect_TwoDisplays(t *testing.T) {
	output := `Display 1
   I2C bus:  /dev/i2c-4
   Mfg id:   DEL
   Model:    DELL U2720Q
   Serial number: ABC123
Display 2
   I2C bus:  /dev/i2c-5
   Mfg id:   GSM
   Model:    LG HDR 4K
`
	monitors := Detect(output)
	if len(monitors) != 2 {
		t.Fatalf("expected 2 monitors, got %d", len(monitors))
	}

	first := monitors[0]
	if first.DisplayNumber != 1 {
		t.Errorf("display number: got %d, want 1", first.DisplayNumber)
	}
	if first.BusID != 4 {
		t.Errorf("bus id: got %d, want 4", first.BusID)
	}
	if first.Manufacturer != "DEL" {
		t.Errorf("manufacturer: got %q, want %q", first.Manufacturer, "DEL")
	}
	if first.Model != "DELL U2720Q" {
		t.Errorf("model: got %q, want %q", first.Model, "DELL U2720Q")
	}
	if first.Serial != "ABC123" {
		t.Errorf("serial: got %q, want %q", first.Serial, "ABC123")
	}

	second := monitors[1]
	if second.DisplayNumber != 2 || second.BusID != 5 {
		t.Errorf("second monitor: got display %d bus %d, want 2/5", second.DisplayNumber, second.BusID)
	}
	if second.Serial != "" {
		t.Errorf("second serial: got %q, want empty", second.Serial)
	}
}

func TestDetect_HeaderOnlyYieldsDefaults(t *testing.T) {
	monitors := Detect("Display 3\n")
	if len(monitors) != 1 {
		t.Fatalf("expected 1 monitor, got %d", len(monitors))
	}
	m := monitors[0]
	if m.DisplayNumber != 3 {
		t.Errorf("display number: got %d, want 3", m.DisplayNumber)
	}
	if m.BusID != -1 {
		t.Errorf("bus id: got %d, want -1", m.BusID)
	}
	if m.Manufacturer != "Unknown" || m.Model != "Unknown" {
		t.Errorf("defaults: got %q/%q, want Unknown/Unknown", m.Manufacturer, m.Model)
	}
}

func TestDetect_LastSeenValueWins(t *testing.T) {
	output := `Display 1
   Model: First
   Model: Second
`
	monitors := Detect(output)
	if len(monitors) != 1 {
		t.Fatalf("expected 1 monitor, got %d", len(monitors))
	}
	if monitors[0].Model != "Second" {
		t.Errorf("model: got %q, want %q", monitors[0].Model, "Second")
	}
}

func TestDetect_SkipsNoise(t *testing.T) {
	output := `Invalid display
   garbage line without separator
Display 1
   Monitor Mfg: ACME
   EDID: 00ffffffffffff00
random trailing noise
`
	monitors := Detect(output)
	if len(monitors) != 1 {
		t.Fatalf("expected 1 monitor, got %d", len(monitors))
	}
	if monitors[0].Manufacturer != "ACME" {
		t.Errorf("manufacturer: got %q, want %q", monitors[0].Manufacturer, "ACME")
	}
	if monitors[0].EDID != "00ffffffffffff00" {
		t.Errorf("edid: got %q", monitors[0].EDID)
	}
}

func TestDetect_Empty(t *testing.T) {
	if monitors := Detect(""); len(monitors) != 0 {
		t.Errorf("expected no monitors, got %d", len(monitors))
	}
}

// --- Feature-value parser tests ---

func TestGetVCP_Continuous(t *testing.T) {
	values := GetVCP("VCP 10 C 70 100\n")
	v, ok := values[0x10]
	if !ok {
		t.Fatal("expected value for 0x10")
	}
	if v.Current != 70 || v.Maximum != 100 {
		t.Errorf("got %d/%d, want 70/100", v.Current, v.Maximum)
	}
	if v.Name != "Brightness" {
		t.Errorf("name: got %q, want Brightness", v.Name)
	}
	if v.Current > v.Maximum {
		t.Errorf("invariant violated: current %d > maximum %d", v.Current, v.Maximum)
	}
}

func TestGetVCP_ContinuousDefaultMaximum(t *testing.T) {
	values := GetVCP("VCP 12 C 55\n")
	v, ok := values[0x12]
	if !ok {
		t.Fatal("expected value for 0x12")
	}
	if v.Maximum != 100 {
		t.Errorf("maximum: got %d, want default 100", v.Maximum)
	}
}

func TestGetVCP_DiscreteHexValue(t *testing.T) {
	values := GetVCP("VCP 60 SNC x11\n")
	v, ok := values[0x60]
	if !ok {
		t.Fatal("expected value for 0x60")
	}
	if v.Current != 0x11 {
		t.Errorf("current: got %#x, want 0x11", v.Current)
	}
	if v.Maximum != 255 {
		t.Errorf("discrete maximum: got %d, want 255", v.Maximum)
	}
}

func TestGetVCP_DiscreteDecimalValue(t *testing.T) {
	values := GetVCP("VCP 8d NC 2\n")
	v, ok := values[0x8D]
	if !ok {
		t.Fatal("expected value for 0x8d")
	}
	if v.Current != 2 {
		t.Errorf("current: got %d, want 2", v.Current)
	}
	if v.Maximum != 255 {
		t.Errorf("discrete maximum: got %d, want 255", v.Maximum)
	}
}

func TestGetVCP_SkipsMalformedLines(t *testing.T) {
	output := `VCP
VCP zz C 70 100
VCP 10 C notanumber 100
VCP 12 C 40 100
something else entirely
VCP 10 C 70
`
	values := GetVCP(output)
	if len(values) != 2 {
		t.Fatalf("expected 2 parsed values, got %d", len(values))
	}
	if _, ok := values[0x12]; !ok {
		t.Error("expected 0x12 to survive malformed neighbors")
	}
	if _, ok := values[0x10]; !ok {
		t.Error("expected the well-formed 0x10 line to parse")
	}
}

func TestGetVCP_BatchedRoundTrip(t *testing.T) {
	brightness := "VCP 10 C 70 100\n"
	input := "VCP 60 SNC x0f\n"

	single1 := GetVCP(brightness)
	single2 := GetVCP(input)
	combined := GetVCP(brightness + input)

	if len(combined) != 2 {
		t.Fatalf("expected 2 values in combined parse, got %d", len(combined))
	}
	if combined[0x10] != single1[0x10] {
		t.Errorf("0x10: combined %+v != single %+v", combined[0x10], single1[0x10])
	}
	if combined[0x60] != single2[0x60] {
		t.Errorf("0x60: combined %+v != single %+v", combined[0x60], single2[0x60])
	}
}

// --- Capabilities parser tests ---

func TestParseCapabilities_PerLineValues(t *testing.T) {
	output := `MCCS version: 2.1
   Feature: 10 (Brightness)
   Feature: 60 (Input Source)
      Values:
         0f: DisplayPort-1
         11: HDMI-1
`
	caps := ParseCapabilities(output)
	if !caps.Supported[0x10] || !caps.Supported[0x60] {
		t.Fatalf("supported set incomplete: %v", caps.Supported)
	}
	opts := caps.Options[0x60]
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if opts[0].Value != 0x0F || opts[0].Name != "DisplayPort-1" {
		t.Errorf("first option: got %+v", opts[0])
	}
	if opts[1].Value != 0x11 || opts[1].Name != "HDMI-1" {
		t.Errorf("second option: got %+v", opts[1])
	}
}

func TestParseCapabilities_InlineValues(t *testing.T) {
	output := `   Feature: 60 (Input Source)
      Values: 0f 11 (interpretation unavailable)
`
	caps := ParseCapabilities(output)
	opts := caps.Options[0x60]
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	// Inline values are named from the default table.
	if opts[0].Name != "DisplayPort-1" {
		t.Errorf("first option name: got %q, want DisplayPort-1", opts[0].Name)
	}
	if opts[1].Name != "HDMI-1" {
		t.Errorf("second option name: got %q, want HDMI-1", opts[1].Name)
	}
}

func TestParseCapabilities_FormatIndependence(t *testing.T) {
	perLine := ParseCapabilities(`   Feature: 8d (Audio Mute)
      Values:
         01: Mute
         02: Unmute
`)
	inline := ParseCapabilities(`   Feature: 8d (Audio Mute)
      Values: 01 02
`)

	a, b := perLine.Options[0x8D], inline.Options[0x8D]
	if len(a) != len(b) {
		t.Fatalf("option counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("option %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestParseCapabilities_UnknownInlineValueGetsPlaceholder(t *testing.T) {
	caps := ParseCapabilities(`   Feature: 60 (Input Source)
      Values: 05
`)
	opts := caps.Options[0x60]
	if len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
	if opts[0].Name != "Value 0x05" {
		t.Errorf("placeholder name: got %q, want %q", opts[0].Name, "Value 0x05")
	}
}

func TestParseCapabilities_ValueLinesBeforeAnyFeatureIgnored(t *testing.T) {
	caps := ParseCapabilities(`      01: stray value
   Feature: 10 (Brightness)
`)
	if len(caps.Options) != 0 {
		t.Errorf("expected no options, got %v", caps.Options)
	}
	if !caps.Supported[0x10] {
		t.Error("expected 0x10 supported")
	}
}

func TestParseCapabilities_Empty(t *testing.T) {
	caps := ParseCapabilities("")
	if len(caps.Supported) != 0 || len(caps.Options) != 0 {
		t.Errorf("expected empty result, got %+v", caps)
	}
}

// Continuous features never appear in the default name table, so sanity
// check the catalog wiring the parser depends on.
func TestCatalogKinds(t *testing.T) {
	if vcp.KindOf(0x10) != vcp.Continuous {
		t.Error("0x10 should be continuous")
	}
	if vcp.KindOf(0x60) != vcp.Discrete {
		t.Error("0x60 should be discrete")
	}
}
