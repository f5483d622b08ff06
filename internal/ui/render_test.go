package ui

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alpindale/npu-dashboard/internal"
	"github.com/alpindale/npu-dashboard/internal/report"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

// Styled output must be byte-stable for the assertions below, regardless
// of the terminal the tests run in.
func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func testDevice() report.DeviceRecord {
	return report.DeviceRecord{
		ID:             0,
		Name:           "910B",
		Health:         "OK",
		Power:          88.2,
		Temperature:    37,
		HugepagesUsed:  0,
		HugepagesTotal: 970,
		ChipID:         "0",
		BusID:          "0000:C1:00.0",
		AICore:         24,
		MemoryUsed:     3240,
		MemoryTotal:    19759,
		HBMUsed:        20480,
		HBMTotal:       32768,
	}
}

func TestRenderProgressBarClamps(t *testing.T) {
	over := renderProgressBar(150, 10, lipgloss.Color("10"))
	assert.Equal(t, 10, strings.Count(over, "█"))
	assert.Equal(t, 0, strings.Count(over, "░"))

	under := renderProgressBar(-5, 10, lipgloss.Color("10"))
	assert.Equal(t, 0, strings.Count(under, "█"))
	assert.Equal(t, 10, strings.Count(under, "░"))

	half := renderProgressBar(50, 10, lipgloss.Color("10"))
	assert.Equal(t, 5, strings.Count(half, "█"))
	assert.Equal(t, 5, strings.Count(half, "░"))
}

func TestUsageColor(t *testing.T) {
	assert.Equal(t, lipgloss.Color("10"), usageColor(0))
	assert.Equal(t, lipgloss.Color("10"), usageColor(74.9))
	assert.Equal(t, lipgloss.Color("208"), usageColor(75))
	assert.Equal(t, lipgloss.Color("196"), usageColor(90))
	assert.Equal(t, lipgloss.Color("196"), usageColor(140))
}

func TestHealthColor(t *testing.T) {
	assert.Equal(t, lipgloss.Color("10"), healthColor("OK"))
	assert.Equal(t, lipgloss.Color("10"), healthColor("Healthy"))
	assert.Equal(t, lipgloss.Color("11"), healthColor("Warning"))
	assert.Equal(t, lipgloss.Color("208"), healthColor("Alarm"))
	assert.Equal(t, lipgloss.Color("196"), healthColor("Fault"))
	assert.Equal(t, lipgloss.Color("240"), healthColor(""))
}

func TestMib(t *testing.T) {
	assert.Equal(t, "32 GiB", mib(32768))
	assert.Equal(t, "1.2 GiB", mib(1243))
	assert.Equal(t, "687 MiB", mib(687))
	assert.Equal(t, "0 B", mib(0))
	assert.Equal(t, "0 B", mib(-5))
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 0.0, percentOf(10, 0))
	assert.Equal(t, 50.0, percentOf(16384, 32768))
	assert.InDelta(t, 122.07, percentOf(40000, 32768), 0.01)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "3d 4h", formatUptime(76*time.Hour+30*time.Minute))
	assert.Equal(t, "2h 45m", formatUptime(2*time.Hour+45*time.Minute))
	assert.Equal(t, "12m", formatUptime(12*time.Minute))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "toolongfo…", truncate("toolongforthis", 10))
}

func TestAggregateDevices(t *testing.T) {
	devices := []report.DeviceRecord{
		{HBMUsed: 10, HBMTotal: 100, AICore: 30},
		{HBMUsed: 20, HBMTotal: 100, AICore: 50},
		{MemoryUsed: 5, MemoryTotal: 50, AICore: 10},
	}

	used, total, avgCore := aggregateDevices(devices)
	assert.Equal(t, 35, used)
	assert.Equal(t, 250, total)
	assert.InDelta(t, 30.0, avgCore, 0.001)

	used, total, avgCore = aggregateDevices(nil)
	assert.Zero(t, used)
	assert.Zero(t, total)
	assert.Zero(t, avgCore)
}

func TestProcessOrder(t *testing.T) {
	snap := &report.Snapshot{
		Devices: []report.DeviceRecord{{ID: 2}, {ID: 5}, {ID: 0}},
		ProcessesByDevice: map[int][]report.ProcessRecord{
			0: {{PID: "11"}},
			2: {},
			7: {{PID: "22"}},
			3: {{PID: "33"}},
		},
	}

	// Report order first, then ids only the process table knows, ascending.
	assert.Equal(t, []int{2, 0, 3, 7}, processOrder(snap))
}

func TestRenderSingleDevice(t *testing.T) {
	out := renderSingleDevice(testDevice())

	assert.Contains(t, out, "[0]")
	assert.Contains(t, out, "910B")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "88.2W")
	assert.Contains(t, out, "37°C")
	assert.Contains(t, out, "chip 0  bus 0000:C1:00.0")
	assert.Contains(t, out, "HBM 20 GiB / 32 GiB (62.5%)")
	assert.Contains(t, out, "AI Core 24%")
	assert.Contains(t, out, "mem 3240 / 19759 MB  hugepages 0 / 970")
}

func TestRenderSingleDeviceOversubscribed(t *testing.T) {
	dev := testDevice()
	dev.HBMUsed = 40960

	out := renderSingleDevice(dev)

	// Numbers stay raw while the bar itself clamps at full.
	assert.Contains(t, out, "HBM 40 GiB / 32 GiB (125.0%)")
	assert.Equal(t, 62, strings.Count(out, "█"), "full HBM bar plus a 24%% core bar")
}

func TestRenderSingleDeviceFallsBackToDDR(t *testing.T) {
	dev := testDevice()
	dev.HBMUsed, dev.HBMTotal = 0, 0

	out := renderSingleDevice(dev)

	assert.Contains(t, out, "MEM 3.2 GiB / 19 GiB")
	assert.NotContains(t, out, "mem 3240 / 19759 MB")
	assert.Contains(t, out, "hugepages 0 / 970")
}

func TestRenderProcessSection(t *testing.T) {
	snap := &report.Snapshot{
		Devices: []report.DeviceRecord{{ID: 1}, {ID: 0}},
		ProcessesByDevice: map[int][]report.ProcessRecord{
			0: {{PID: "2488494", Name: "python3.9", MemoryMB: 687}},
			1: {{PID: "901425", Name: "mindspore_serve", MemoryMB: 28921}},
		},
	}

	out := renderProcessSection(snap, nil)

	assert.Contains(t, out, "python3.9")
	assert.Contains(t, out, "mindspore_serve")
	assert.Contains(t, out, "28921")
	assert.Less(t, strings.Index(out, "901425"), strings.Index(out, "2488494"),
		"rows follow device report order")
	assert.NotContains(t, out, "COMMAND")
}

func TestRenderProcessSectionWithUsage(t *testing.T) {
	snap := &report.Snapshot{
		Devices: []report.DeviceRecord{{ID: 0}},
		ProcessesByDevice: map[int][]report.ProcessRecord{
			0: {{PID: "2488494", Name: "python3.9", MemoryMB: 687}},
		},
	}
	procs := map[string]internal.ProcessUsage{
		"2488494": {CPUPercent: 55.5, Command: "/usr/bin/python3.9 train.py"},
	}

	out := renderProcessSection(snap, procs)

	assert.Contains(t, out, "COMMAND")
	assert.Contains(t, out, "55.5")
	assert.Contains(t, out, "train.py")
}

func TestRenderProcessSectionIdle(t *testing.T) {
	snap := &report.Snapshot{
		Devices:           []report.DeviceRecord{{ID: 3}},
		ProcessesByDevice: map[int][]report.ProcessRecord{3: {}},
	}

	out := renderProcessSection(snap, nil)
	assert.Contains(t, out, "no running processes")
}

func TestRenderProcessSectionMissingTable(t *testing.T) {
	snap := &report.Snapshot{ProcessesByDevice: map[int][]report.ProcessRecord{}}

	out := renderProcessSection(snap, nil)
	assert.Contains(t, out, "process table not reported")
	assert.NotContains(t, out, "no running processes")
}

func TestRenderHostSection(t *testing.T) {
	info := &internal.SystemInfo{
		Hostname:      "ml-prod-1",
		CPUPercent:    12.3,
		CPUCount:      192,
		MemoryUsed:    34359738368,
		MemoryTotal:   68719476736,
		MemoryPercent: 50.0,
		SwapPercent:   25.0,
		Load1:         1.02,
		Load5:         0.95,
		Load15:        0.88,
		Uptime:        76 * time.Hour,
	}

	out := renderHostSection(info)

	assert.Contains(t, out, "ml-prod-1")
	assert.Contains(t, out, "CPU 12.3% (192 cores)")
	assert.Contains(t, out, "Load 1.02 0.95 0.88")
	assert.Contains(t, out, "Swap 25.0%")
	assert.Contains(t, out, "Up 3d 4h")
	assert.Contains(t, out, "MEM 32 GiB / 64 GiB (50.0%)")
}

func TestRenderHostSectionPartialInfo(t *testing.T) {
	out := renderHostSection(&internal.SystemInfo{Hostname: "bare"})

	assert.Contains(t, out, "bare")
	assert.NotContains(t, out, "MEM ")
	assert.NotContains(t, out, "Swap")
	assert.NotContains(t, out, "cores")
}

func TestRenderAggregateSection(t *testing.T) {
	devices := []report.DeviceRecord{
		{HBMUsed: 16384, HBMTotal: 32768, AICore: 40},
		{HBMUsed: 16384, HBMTotal: 32768, AICore: 60},
	}

	out := renderAggregateSection(devices)

	assert.Contains(t, out, "Total NPU Pressure")
	assert.Contains(t, out, "HBM 32 GiB / 64 GiB (50.0%) across 2 NPUs")
	assert.Contains(t, out, "AI Core 50.0% average")
}
