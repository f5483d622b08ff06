package report

import (
	"strconv"
	"strings"
)

// Token positions inside the stats cell of the first line of a device pair,
// e.g. "88.2        39                0    / 0". Keeping these as data makes
// vendor column drift a one-line change.
const (
	posPower          = 0
	posTemperature    = 1
	posHugepagesUsed  = 2
	posHugepagesTotal = 4

	healthStatsLen = 5
)

// Token positions inside the stats cell of the second line,
// e.g. "0           0    / 0          3043 / 32768".
const (
	posAICore      = 0
	posMemoryUsed  = 1
	posMemoryTotal = 3
	posHBMUsed     = 4
	posHBMTotal    = 6

	usageStatsLen = 7
)

func parseDeviceSection(section string, stats *ParseStats) []DeviceRecord {
	lines := deviceDataLines(section)

	var devices []DeviceRecord
	for i := 0; i+1 < len(lines); i += 2 {
		dev, ok := parseDevicePair(lines[i], lines[i+1])
		if !ok {
			stats.DroppedDevicePairs++
			continue
		}
		devices = append(devices, dev)
	}
	if len(lines)%2 == 1 {
		stats.UnpairedDeviceLines++
	}
	return devices
}

// deviceDataLines keeps the lines that carry device values: delimited rows
// whose content starts with a digit. Headers, banners and borders all start
// with something else.
func deviceDataLines(section string) []string {
	var out []string
	for _, line := range strings.Split(section, "\n") {
		if !strings.HasPrefix(line, "|") {
			continue
		}
		content := cellContent(line)
		if content == "" {
			continue
		}
		if content[0] >= '0' && content[0] <= '9' {
			out = append(out, line)
		}
	}
	return out
}

// parseDevicePair builds one record from a line pair. Only an unparseable
// device id rejects the pair; every other field degrades to its zero value.
func parseDevicePair(lineA, lineB string) (DeviceRecord, bool) {
	fieldsA := segments(lineA)

	idTokens := strings.Fields(segmentAt(fieldsA, 0))
	if len(idTokens) == 0 {
		return DeviceRecord{}, false
	}
	id, err := strconv.Atoi(idTokens[0])
	if err != nil {
		return DeviceRecord{}, false
	}

	dev := DeviceRecord{
		ID:     id,
		Name:   strings.Join(idTokens[1:], " "),
		Health: segmentAt(fieldsA, 1),
	}

	health := splitGluedSlash(strings.Fields(segmentAt(fieldsA, 2)))
	if len(health) > posPower {
		if v, err := strconv.ParseFloat(health[posPower], 64); err == nil {
			dev.Power = v
		}
	}
	if len(health) > posTemperature {
		if v, err := strconv.Atoi(health[posTemperature]); err == nil {
			dev.Temperature = v
		}
	}
	if len(health) >= healthStatsLen {
		if v, err := strconv.Atoi(health[posHugepagesUsed]); err == nil {
			dev.HugepagesUsed = v
		}
		if v, err := strconv.Atoi(health[posHugepagesTotal]); err == nil {
			dev.HugepagesTotal = v
		}
	}

	fieldsB := segments(lineB)
	if chipTokens := strings.Fields(segmentAt(fieldsB, 0)); len(chipTokens) > 0 {
		dev.ChipID = chipTokens[0]
	}
	dev.BusID = segmentAt(fieldsB, 1)

	usage := splitGluedSlash(strings.Fields(segmentAt(fieldsB, 2)))
	if len(usage) >= usageStatsLen {
		if v, err := strconv.Atoi(usage[posAICore]); err == nil {
			dev.AICore = v
		}
		if v, err := strconv.Atoi(usage[posMemoryUsed]); err == nil {
			dev.MemoryUsed = v
		}
		if v, err := strconv.Atoi(usage[posMemoryTotal]); err == nil {
			dev.MemoryTotal = v
		}
		if v, err := strconv.Atoi(usage[posHBMUsed]); err == nil {
			dev.HBMUsed = v
		}
		if v, err := strconv.Atoi(usage[posHBMTotal]); err == nil {
			dev.HBMTotal = v
		}
	}

	return dev, true
}

// splitGluedSlash restores the token grid when the tool prints a value
// flush against the following slash ("30431/ 32768"). Any token longer
// than one character that ends in '/' becomes two tokens, in place.
func splitGluedSlash(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) > 1 && strings.HasSuffix(tok, "/") {
			out = append(out, strings.TrimSuffix(tok, "/"), "/")
			continue
		}
		out = append(out, tok)
	}
	return out
}
