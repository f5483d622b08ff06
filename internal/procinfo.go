package internal

import (
	"strconv"

	"github.com/shirou/gopsutil/process"
)

// ProcessUsage is live per-process detail joined onto a device process row
// at render time.
type ProcessUsage struct {
	CPUPercent float64
	Command    string
}

// InspectProcesses looks up CPU usage and the full command line for each
// pid. Pids that cannot be resolved (exited between the report and this
// call, non-numeric, or on another machine) are simply absent from the
// result; callers fall back to the name the report carried.
func InspectProcesses(pids []string) map[string]ProcessUsage {
	out := make(map[string]ProcessUsage, len(pids))
	for _, pid := range pids {
		id, err := strconv.ParseInt(pid, 10, 32)
		if err != nil {
			continue
		}
		proc, err := process.NewProcess(int32(id))
		if err != nil {
			continue
		}

		var usage ProcessUsage
		if v, err := proc.CPUPercent(); err == nil {
			usage.CPUPercent = v
		}
		if cmd, err := proc.Cmdline(); err == nil {
			usage.Command = cmd
		}
		out[pid] = usage
	}
	return out
}
