package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
	"go.uber.org/multierr"
)

// SystemInfo is one sample of host-level telemetry shown under the device
// tables. Both the local and the remote gatherer fill the same shape.
type SystemInfo struct {
	Hostname      string
	CPUPercent    float64
	CPUCount      int // 0 when unknown (remote hosts)
	MemoryUsed    uint64
	MemoryTotal   uint64
	MemoryPercent float64
	SwapPercent   float64
	Load1         float64
	Load5         float64
	Load15        float64
	Uptime        time.Duration
}

// GatherLocalSystemInfo samples this machine. Individual probe failures
// are accumulated and returned next to the fields that did work, so a
// hobbled /proc still yields a mostly useful panel.
func GatherLocalSystemInfo() (*SystemInfo, error) {
	info := &SystemInfo{}
	var errs error

	if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info.CPUPercent = percents[0]
	} else if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("cpu percent: %w", err))
	}

	if count, err := cpu.Counts(true); err == nil {
		info.CPUCount = count
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryUsed = vm.Used
		info.MemoryTotal = vm.Total
		info.MemoryPercent = vm.UsedPercent
	} else {
		errs = multierr.Append(errs, fmt.Errorf("virtual memory: %w", err))
	}

	if swap, err := mem.SwapMemory(); err == nil {
		info.SwapPercent = swap.UsedPercent
	} else {
		errs = multierr.Append(errs, fmt.Errorf("swap memory: %w", err))
	}

	if avg, err := load.Avg(); err == nil {
		info.Load1 = avg.Load1
		info.Load5 = avg.Load5
		info.Load15 = avg.Load15
	} else {
		errs = multierr.Append(errs, fmt.Errorf("load average: %w", err))
	}

	if seconds, err := host.Uptime(); err == nil {
		info.Uptime = time.Duration(seconds) * time.Second
	} else {
		errs = multierr.Append(errs, fmt.Errorf("uptime: %w", err))
	}

	return info, errs
}

const remoteCPUCommand = `top -bn1 | grep 'Cpu(s)' | sed 's/.*, *\([0-9.]*\)%* id.*/\1/' | awk '{print 100 - $1}'`

// GatherRemoteSystemInfo samples a monitored host over its SSH session
// using the same /proc surfaces the local gatherer reads through gopsutil.
func GatherRemoteSystemInfo(client *SSHClient) (*SystemInfo, error) {
	info := &SystemInfo{Hostname: client.host.Name}
	var errs error

	if out, err := client.ExecuteCommand(remoteCPUCommand); err == nil {
		if v, perr := strconv.ParseFloat(strings.TrimSpace(out), 64); perr == nil {
			info.CPUPercent = v
		}
	} else {
		errs = multierr.Append(errs, fmt.Errorf("remote cpu: %w", err))
	}

	if out, err := client.ExecuteCommand("free -b"); err == nil {
		parseFreeOutput(out, info)
	} else {
		errs = multierr.Append(errs, fmt.Errorf("remote memory: %w", err))
	}

	if out, err := client.ExecuteCommand("cat /proc/loadavg"); err == nil {
		info.Load1, info.Load5, info.Load15 = parseLoadAvg(out)
	} else {
		errs = multierr.Append(errs, fmt.Errorf("remote load: %w", err))
	}

	if out, err := client.ExecuteCommand("cat /proc/uptime"); err == nil {
		info.Uptime = parseUptime(out)
	} else {
		errs = multierr.Append(errs, fmt.Errorf("remote uptime: %w", err))
	}

	return info, errs
}

// parseFreeOutput fills memory and swap fields from `free -b` output.
func parseFreeOutput(out string, info *SystemInfo) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		total, terr := strconv.ParseUint(fields[1], 10, 64)
		used, uerr := strconv.ParseUint(fields[2], 10, 64)
		if terr != nil || uerr != nil {
			continue
		}

		switch fields[0] {
		case "Mem:":
			info.MemoryTotal = total
			info.MemoryUsed = used
			if total > 0 {
				info.MemoryPercent = float64(used) / float64(total) * 100
			}
		case "Swap:":
			if total > 0 {
				info.SwapPercent = float64(used) / float64(total) * 100
			}
		}
	}
}

// parseLoadAvg reads the three averages from /proc/loadavg.
func parseLoadAvg(out string) (float64, float64, float64) {
	fields := strings.Fields(out)
	if len(fields) < 3 {
		return 0, 0, 0
	}
	load1, _ := strconv.ParseFloat(fields[0], 64)
	load5, _ := strconv.ParseFloat(fields[1], 64)
	load15, _ := strconv.ParseFloat(fields[2], 64)
	return load1, load5, load15
}

// parseUptime reads elapsed seconds from /proc/uptime.
func parseUptime(out string) time.Duration {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
