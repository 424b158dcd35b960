// Package parse turns ddcutil's free-form text output into typed records.
//
// ddcutil has no machine-readable output mode for the commands monctl uses,
// so each parser here is a small line-oriented state machine over the text
// formats the tool actually emits (which vary between versions). Malformed
// or unexpected lines are skipped, never fatal: a partial result beats a
// failed call when the alternative is losing the whole read.
package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/monctl/monctl/internal/model"
	"github.com/monctl/monctl/internal/vcp"
)

var (
	displayHeaderRe = regexp.MustCompile(`^Display\s+(\d+)`)
	i2cBusRe        = regexp.MustCompile(`/dev/i2c-(\d+)`)
)

// Detect parses "ddcutil detect --terse" output into monitor identities,
// one per "Display N" header, in header order.
//
// Each record accumulates the "key: value" lines that follow its header.
// Key matching is case-insensitive and substring-based because ddcutil has
// renamed these keys across versions ("I2C bus", "Mfg id", "Monitor Mfg").
// A header with no key/value lines still yields an identity with default
// fields.
func Detect(output string) []model.MonitorIdentity {
	var monitors []model.MonitorIdentity
	var current *pendingMonitor

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := displayHeaderRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				monitors = append(monitors, current.identity())
			}
			n, _ := strconv.Atoi(m[1])
			current = &pendingMonitor{displayNumber: n}
			continue
		}

		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch {
		case strings.Contains(key, "i2c bus"):
			if m := i2cBusRe.FindStringSubmatch(value); m != nil {
				bus, _ := strconv.Atoi(m[1])
				current.busID = &bus
			}
		case key == "manufacturer" || strings.Contains(key, "mfg"):
			current.manufacturer = value
		case key == "model":
			current.model = value
		case strings.Contains(key, "serial") || key == "sn":
			current.serial = value
		case key == "edid":
			current.edid = value
		}
	}

	if current != nil {
		monitors = append(monitors, current.identity())
	}
	return monitors
}

// pendingMonitor collects detection fields until the record is flushed.
type pendingMonitor struct {
	displayNumber int
	busID         *int
	manufacturer  string
	model         string
	serial        string
	edid          string
}

func (p *pendingMonitor) identity() model.MonitorIdentity {
	id := model.MonitorIdentity{
		DisplayNumber: p.displayNumber,
		BusID:         -1,
		Manufacturer:  "Unknown",
		Model:         "Unknown",
		Serial:        p.serial,
		EDID:          p.edid,
	}
	if p.busID != nil {
		id.BusID = *p.busID
	}
	if p.manufacturer != "" {
		id.Manufacturer = p.manufacturer
	}
	if p.model != "" {
		id.Model = p.model
	}
	return id
}

// discreteMaximum is the reported maximum for SNC/NC features, which have
// an enumerated value set rather than a meaningful upper bound.
const discreteMaximum = 255

// GetVCP parses "ddcutil getvcp --terse" output, one feature per "VCP" line:
//
//	VCP 10 C 70 100        (continuous: current 70, max 100)
//	VCP 60 SNC x11         (discrete: value 0x11)
//	VCP 8d NC 2            (discrete: decimal value)
//
// Lines with non-numeric tokens or too few tokens are skipped. The returned
// map handles single- and multi-feature output identically, so batched reads
// go through the same path as single reads.
func GetVCP(output string) map[uint16]model.FeatureValue {
	results := make(map[uint16]model.FeatureValue)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "VCP") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}

		code64, err := strconv.ParseUint(parts[1], 16, 16)
		if err != nil {
			continue
		}
		code := uint16(code64)

		switch parts[2] {
		case "C":
			current, err := strconv.ParseUint(parts[3], 10, 32)
			if err != nil {
				continue
			}
			maximum := uint64(100)
			if len(parts) > 4 {
				maximum, err = strconv.ParseUint(parts[4], 10, 32)
				if err != nil {
					continue
				}
			}
			results[code] = model.FeatureValue{
				Code:    code,
				Current: uint32(current),
				Maximum: uint32(maximum),
				Name:    vcp.FeatureName(code),
			}
		case "SNC", "NC":
			// Discrete values appear either decimal or hex with a
			// lowercase "x" prefix (x11).
			raw := parts[3]
			var current uint64
			if after, ok := strings.CutPrefix(raw, "x"); ok {
				current, err = strconv.ParseUint(after, 16, 32)
			} else {
				current, err = strconv.ParseUint(raw, 10, 32)
			}
			if err != nil {
				continue
			}
			results[code] = model.FeatureValue{
				Code:    code,
				Current: uint32(current),
				Maximum: discreteMaximum,
				Name:    vcp.FeatureName(code),
			}
		}
	}

	return results
}

var (
	capFeatureRe    = regexp.MustCompile(`^\s*Feature:\s*([0-9A-Fa-f]{2})\s*\(([^)]+)\)`)
	capValueLineRe  = regexp.MustCompile(`^\s*([0-9A-Fa-f]{2}):\s*(.+)`)
	capTrailingPaRe = regexp.MustCompile(`\([^)]*\)\s*$`)
	capHexTokenRe   = regexp.MustCompile(`\b([0-9A-Fa-f]{2})\b`)
)

// Capabilities is the parsed result of "ddcutil capabilities".
type Capabilities struct {
	// Supported is the set of feature codes the monitor advertises.
	Supported map[uint16]bool
	// Options maps discrete feature codes to their advertised values, in
	// order of appearance.
	Options map[uint16][]model.FeatureOption
}

// ParseCapabilities parses "ddcutil capabilities --display N" output.
//
// A "Feature: 60 (Input Source)" line opens a feature context and marks the
// code supported. Within a context, value listings come in two shapes
// depending on ddcutil version and feature:
//
//	Values: 01 03 11 (interpretation unavailable)    (inline, this line)
//	   11: HDMI-1                                    (one value per line)
//
// Inline values are named from the vcp default tables; per-line values use
// the monitor's own text verbatim. Both shapes may appear in one output.
func ParseCapabilities(output string) Capabilities {
	caps := Capabilities{
		Supported: make(map[uint16]bool),
		Options:   make(map[uint16][]model.FeatureOption),
	}
	currentFeature := -1

	for _, line := range strings.Split(output, "\n") {
		if m := capFeatureRe.FindStringSubmatch(line); m != nil {
			code64, _ := strconv.ParseUint(m[1], 16, 16)
			currentFeature = int(code64)
			caps.Supported[uint16(code64)] = true
			continue
		}
		if currentFeature < 0 {
			continue
		}
		code := uint16(currentFeature)

		if _, after, ok := strings.Cut(line, "Values:"); ok {
			// Strip a trailing parenthetical annotation before pulling
			// out the 2-hex-digit value tokens.
			after = strings.TrimSpace(capTrailingPaRe.ReplaceAllString(after, ""))
			for _, m := range capHexTokenRe.FindAllStringSubmatch(after, -1) {
				v, _ := strconv.ParseUint(m[1], 16, 32)
				caps.Options[code] = append(caps.Options[code], model.FeatureOption{
					Value: uint32(v),
					Name:  vcp.DefaultValueName(code, uint32(v)),
				})
			}
			continue
		}

		if m := capValueLineRe.FindStringSubmatch(line); m != nil {
			v, _ := strconv.ParseUint(m[1], 16, 32)
			caps.Options[code] = append(caps.Options[code], model.FeatureOption{
				Value: uint32(v),
				Name:  strings.TrimSpace(m[2]),
			})
		}
	}

	return caps
}
