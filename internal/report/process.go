package report

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// memoryHeaderCell, together with processMarker, identifies the header
	// row that opens the process table.
	memoryHeaderCell = "Process memory(MB)"

	idlePrefix = "No running processes found in NPU"
)

var idleRe = regexp.MustCompile(`No running processes found in NPU\s+(\d+)`)

// parseProcessSection walks the process table with a two-state scan:
// nothing counts until the header row has been seen.
func parseProcessSection(section string, byDevice map[int][]ProcessRecord, stats *ParseStats) {
	inTable := false
	for _, line := range strings.Split(section, "\n") {
		if strings.Contains(line, processMarker) && strings.Contains(line, memoryHeaderCell) {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		if isBorder(line) {
			continue
		}
		if !strings.HasPrefix(line, "|") {
			continue
		}

		content := cellContent(line)
		if strings.HasPrefix(content, idlePrefix) {
			if m := idleRe.FindStringSubmatch(content); m != nil {
				if id, err := strconv.Atoi(m[1]); err == nil {
					// assignment, not append: repeated sentinels stay idempotent
					byDevice[id] = []ProcessRecord{}
				}
			}
			continue
		}

		fields := segments(line)
		if len(fields) < 4 {
			continue
		}
		tokens := strings.Fields(fields[0])
		if len(tokens) == 0 {
			continue
		}
		id, err := strconv.Atoi(tokens[0])
		if err != nil {
			stats.DroppedProcessRows++
			continue
		}

		rec := ProcessRecord{PID: fields[1], Name: fields[2]}
		if v, err := strconv.Atoi(fields[3]); err == nil {
			rec.MemoryMB = v
		}
		byDevice[id] = append(byDevice[id], rec)
	}
}

// isBorder matches separator rows drawn purely from '+', '-' and '='.
// An empty line counts too.
func isBorder(line string) bool {
	t := strings.TrimSpace(line)
	for _, r := range t {
		if r != '+' && r != '-' && r != '=' {
			return false
		}
	}
	return true
}
