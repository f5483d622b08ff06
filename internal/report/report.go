// Package report parses the column-aligned text report printed by
// `npu-smi info` into typed device and process records. The parser never
// fails on malformed input: rows it cannot make sense of are dropped or
// zero-filled, and the drops are counted in ParseStats.
package report

import "strings"

// processMarker separates the device table from the process table. The
// first occurrence wins; device rows never contain it.
const processMarker = "Process id"

// DeviceRecord is one NPU as reported by a pair of device table lines.
type DeviceRecord struct {
	ID             int
	Name           string
	Health         string
	Power          float64 // watts
	Temperature    int     // celsius, may be negative
	HugepagesUsed  int
	HugepagesTotal int
	ChipID         string
	BusID          string
	AICore         int // percentage
	MemoryUsed     int // MB
	MemoryTotal    int // MB
	HBMUsed        int // MB
	HBMTotal       int // MB
}

// ProcessRecord is one row of the process table. PID stays a digit string;
// nothing downstream does arithmetic on it.
type ProcessRecord struct {
	PID      string
	Name     string
	MemoryMB int
}

// ParseStats counts the rows a single Parse call had to discard.
type ParseStats struct {
	DroppedDevicePairs  int // device id column did not parse
	UnpairedDeviceLines int // trailing candidate line with no partner
	DroppedProcessRows  int // process row whose device id did not parse
}

// Drops is the total number of discarded rows.
func (s ParseStats) Drops() int {
	return s.DroppedDevicePairs + s.UnpairedDeviceLines + s.DroppedProcessRows
}

// Snapshot is the parsed form of one report. Devices keep report order.
// ProcessesByDevice holds an explicit empty slice for every device the
// report declares idle, so "known idle" and "not mentioned" stay distinct.
type Snapshot struct {
	Devices           []DeviceRecord
	ProcessesByDevice map[int][]ProcessRecord
	Stats             ParseStats
}

// Parse converts raw report text into a Snapshot. Empty or unrecognizable
// input yields an empty Snapshot, never an error.
func Parse(text string) Snapshot {
	deviceSection, processSection := splitSections(text)

	snap := Snapshot{ProcessesByDevice: make(map[int][]ProcessRecord)}
	snap.Devices = parseDeviceSection(deviceSection, &snap.Stats)
	parseProcessSection(processSection, snap.ProcessesByDevice, &snap.Stats)
	return snap
}

func splitSections(text string) (string, string) {
	if idx := strings.Index(text, processMarker); idx >= 0 {
		return text[:idx], text[idx:]
	}
	return text, ""
}

// segments splits a table line on '|' into trimmed non-empty cells.
func segments(line string) []string {
	var out []string
	for _, f := range strings.Split(line, "|") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func segmentAt(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// cellContent strips the outer delimiters and padding from a table line.
func cellContent(line string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "|"))
}
