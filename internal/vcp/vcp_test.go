package vcp

import "testing"

func TestFeatureName(t *testing.T) {
	tests := []struct {
		code uint16
		want string
	}{
		{Brightness, "Brightness"},
		{InputSource, "Input Source"},
		{AudioMute, "Audio Mute"},
		{0xE7, "Feature 0xe7"},
	}
	for _, tt := range tests {
		if got := FeatureName(tt.code); got != tt.want {
			t.Errorf("FeatureName(0x%02x) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		code uint16
		want Kind
	}{
		{Brightness, Continuous},
		{Volume, Continuous},
		{InputSource, Discrete},
		{DisplayMode, Discrete},
		{0xE7, Unknown},
	}
	for _, tt := range tests {
		if got := KindOf(tt.code); got != tt.want {
			t.Errorf("KindOf(0x%02x) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestKindsArePartitioned(t *testing.T) {
	// Every catalog feature is exactly one of continuous or discrete.
	for _, code := range AllFeatures() {
		if KindOf(code) == Unknown {
			t.Errorf("catalog feature 0x%02x has no kind", code)
		}
		if continuousFeatures[code] && discreteFeatures[code] {
			t.Errorf("feature 0x%02x is both continuous and discrete", code)
		}
	}
}

func TestDefaultValueName(t *testing.T) {
	if got := DefaultValueName(InputSource, 0x11); got != "HDMI-1" {
		t.Errorf("InputSource 0x11: got %q, want HDMI-1", got)
	}
	if got := DefaultValueName(AudioMute, 0x01); got != "Mute" {
		t.Errorf("AudioMute 0x01: got %q, want Mute", got)
	}
	if got := DefaultValueName(InputSource, 0x99); got != "Value 0x99" {
		t.Errorf("unknown value: got %q, want placeholder", got)
	}
	if got := DefaultValueName(Brightness, 0x01); got != "Value 0x01" {
		t.Errorf("continuous feature has no value names: got %q", got)
	}
}

func TestAllFeaturesCoversGroups(t *testing.T) {
	all := AllFeatures()
	seen := make(map[uint16]bool, len(all))
	for _, code := range all {
		if seen[code] {
			t.Errorf("feature 0x%02x listed twice", code)
		}
		seen[code] = true
	}

	var total int
	for _, g := range Groups {
		total += len(g.Codes)
		for _, code := range g.Codes {
			if !seen[code] {
				t.Errorf("group %s feature 0x%02x missing from AllFeatures", g.Name, code)
			}
		}
	}
	if len(all) != total {
		t.Errorf("AllFeatures has %d codes, groups have %d", len(all), total)
	}

	// Group order is the probe and presentation order: Display first.
	if all[0] != Brightness {
		t.Errorf("first feature: got 0x%02x, want brightness", all[0])
	}
}
