package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alpindale/npu-dashboard/internal"
	"github.com/alpindale/npu-dashboard/internal/report"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// renderProgressBar clamps into [0,100] before drawing. Raw used/total
// values stay unclamped everywhere else so oversubscription remains
// visible in the numbers.
func renderProgressBar(percent float64, width int, color lipgloss.Color) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	filled := int(float64(width) * percent / 100.0)
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(color)

	bar := filledStyle.Render(strings.Repeat("█", filled)) +
		subtleStyle.Render(strings.Repeat("░", empty))

	return bar
}

// usageColor grades a memory pressure percentage.
func usageColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 90:
		return lipgloss.Color("196") // Red
	case percent >= 75:
		return lipgloss.Color("208") // Orange
	default:
		return lipgloss.Color("10") // Green
	}
}

func healthColor(health string) lipgloss.Color {
	switch strings.ToLower(health) {
	case "ok", "healthy":
		return lipgloss.Color("10")
	case "warning":
		return lipgloss.Color("11")
	case "alarm":
		return lipgloss.Color("208")
	case "":
		return lipgloss.Color("240")
	default:
		return lipgloss.Color("196")
	}
}

// mib renders a mebibyte count in human units.
func mib(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n) * 1024 * 1024)
}

func percentOf(used, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}

// aggregateDevices sums memory in use across devices, preferring HBM and
// falling back to on-board DDR for parts that have none, and averages the
// AI Core load.
func aggregateDevices(devices []report.DeviceRecord) (usedMem, totalMem int, avgCore float64) {
	coreSum := 0
	for _, dev := range devices {
		used, total := dev.HBMUsed, dev.HBMTotal
		if total == 0 {
			used, total = dev.MemoryUsed, dev.MemoryTotal
		}
		usedMem += used
		totalMem += total
		coreSum += dev.AICore
	}
	if len(devices) > 0 {
		avgCore = float64(coreSum) / float64(len(devices))
	}
	return usedMem, totalMem, avgCore
}

// processOrder lists device ids in report order, then any ids the process
// table mentioned that the device table did not, ascending.
func processOrder(snap *report.Snapshot) []int {
	seen := make(map[int]bool)
	var order []int
	for _, dev := range snap.Devices {
		if _, ok := snap.ProcessesByDevice[dev.ID]; ok && !seen[dev.ID] {
			seen[dev.ID] = true
			order = append(order, dev.ID)
		}
	}

	var extras []int
	for id := range snap.ProcessesByDevice {
		if !seen[id] {
			extras = append(extras, id)
		}
	}
	sort.Ints(extras)

	return append(order, extras...)
}

func (m Model) renderConnectingProgress() string {
	var b strings.Builder

	title := "  NPU Dashboard - Connecting  "
	readyCount := 0
	for _, target := range m.selectedTargets {
		if m.runners[target.Name] != nil && m.snapshots[target.Name] != nil {
			readyCount++
		}
	}
	totalCount := len(m.selectedTargets)
	subtitle := fmt.Sprintf("v%s | Reaching %d target(s)... (%d/%d ready)", internal.ShortVersion(), totalCount, readyCount, totalCount)

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(subtitle))
	b.WriteString("\n\n")

	maxNameLen := 0
	for _, target := range m.selectedTargets {
		if len(target.Name) > maxNameLen {
			maxNameLen = len(target.Name)
		}
	}

	for _, target := range m.selectedTargets {
		statusIcon := m.spinner.View()
		statusText := "Connecting..."
		statusColor := lipgloss.Color("240")

		if m.runners[target.Name] != nil {
			if m.snapshots[target.Name] != nil {
				statusIcon = "✓"
				statusText = "Ready"
				statusColor = lipgloss.Color("10")
			} else {
				statusText = "Waiting for first report..."
				statusColor = lipgloss.Color("11")
			}
		}

		paddedName := target.Name + strings.Repeat(" ", maxNameLen-len(target.Name))
		nameText := headerStyle.Render("● " + paddedName)
		status := lipgloss.NewStyle().Foreground(statusColor).Render(fmt.Sprintf("%s %s", statusIcon, statusText))

		b.WriteString(fmt.Sprintf("  %s  %s\n", nameText, status))
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("Please wait..."))

	return b.String()
}

func (m Model) renderDashboard(target Target, indicator string) string {
	var b strings.Builder

	name := target.Name
	snap := m.snapshots[name]
	sysInfo := m.sysInfos[name]
	lastUpdate := m.lastUpdates[name]

	title := fmt.Sprintf("  NPU Dashboard - %s%s  ", name, indicator)
	navHint := ""
	if len(m.selectedTargets) > 1 {
		navHint = " | 'n' next | 't' overview"
	}
	toolNote := ""
	if v := m.toolVersions[name]; v != "" {
		toolNote = " | " + v
	}
	subtitle := fmt.Sprintf("v%s%s | Last Updated: %s | Interval: %s%s | 'r' refresh | 'c' targets | 'q' quit",
		internal.ShortVersion(), toolNote, lastUpdate.Format("15:04:05"), formatInterval(m.updateInterval), navHint)

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(subtitle))
	b.WriteString("\n\n")

	if sysInfo != nil {
		b.WriteString(renderHostSection(sysInfo))
		b.WriteString("\n")
	}

	if len(snap.Devices) > 1 {
		b.WriteString(renderAggregateSection(snap.Devices))
		b.WriteString("\n")
	}

	if len(snap.Devices) > 0 {
		b.WriteString(renderDeviceSection(snap.Devices))
	} else {
		b.WriteString(warnStyle.Render("  no NPU devices found in report"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderProcessSection(snap, m.procUsage[name]))

	if drops := snap.Stats.Drops(); drops > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("⚠ %d unparsed report row(s) skipped", drops)))
		b.WriteString("\n")
	}
	if err := m.lastErrs[name]; err != nil {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("⚠ stale since %s: %v", lastUpdate.Format("15:04:05"), err)))
		b.WriteString("\n")
	}

	return b.String()
}

func renderHostSection(info *internal.SystemInfo) string {
	var b strings.Builder

	name := info.Hostname
	if name == "" {
		name = "host"
	}
	b.WriteString(headerStyle.Render("● Host " + name))
	b.WriteString("\n")

	cpuText := fmt.Sprintf("CPU %.1f%%", info.CPUPercent)
	if info.CPUCount > 0 {
		cpuText += fmt.Sprintf(" (%d cores)", info.CPUCount)
	}
	parts := []string{
		cpuText,
		fmt.Sprintf("Load %.2f %.2f %.2f", info.Load1, info.Load5, info.Load15),
	}
	if info.SwapPercent > 0 {
		parts = append(parts, fmt.Sprintf("Swap %.1f%%", info.SwapPercent))
	}
	if info.Uptime > 0 {
		parts = append(parts, "Up "+formatUptime(info.Uptime))
	}
	b.WriteString("  " + strings.Join(parts, "  |  ") + "\n")

	if info.MemoryTotal > 0 {
		b.WriteString(fmt.Sprintf("  MEM %s / %s (%.1f%%)\n",
			humanize.IBytes(info.MemoryUsed), humanize.IBytes(info.MemoryTotal), info.MemoryPercent))
		b.WriteString("  ")
		b.WriteString(renderProgressBar(info.MemoryPercent, 50, usageColor(info.MemoryPercent)))
		b.WriteString("\n")
	}

	return b.String()
}

func renderAggregateSection(devices []report.DeviceRecord) string {
	var b strings.Builder

	usedMem, totalMem, avgCore := aggregateDevices(devices)
	memPercent := percentOf(usedMem, totalMem)

	b.WriteString(headerStyle.Render("● Total NPU Pressure"))
	b.WriteString("\n\n")

	const fullBarWidth = 106

	memLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render("HBM")
	b.WriteString(fmt.Sprintf("  %s %s / %s (%.1f%%) across %d NPUs\n", memLabel, mib(usedMem), mib(totalMem), memPercent, len(devices)))
	b.WriteString("  ")
	b.WriteString(renderProgressBar(memPercent, fullBarWidth, usageColor(memPercent)))
	b.WriteString("\n")

	coreLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("AI Core")
	b.WriteString(fmt.Sprintf("  %s %.1f%% average\n", coreLabel, avgCore))
	b.WriteString("  ")
	b.WriteString(renderProgressBar(avgCore, fullBarWidth, lipgloss.Color("208")))
	b.WriteString("\n")

	return b.String()
}

func renderDeviceSection(devices []report.DeviceRecord) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("● NPU Devices"))
	b.WriteString("\n\n")

	for i := 0; i < len(devices); i += 2 {
		left := renderSingleDevice(devices[i])

		if i+1 < len(devices) {
			right := renderSingleDevice(devices[i+1])
			row := lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
			b.WriteString(row)
		} else {
			b.WriteString(left)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderSingleDevice(dev report.DeviceRecord) string {
	var b strings.Builder

	idxText := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Render(fmt.Sprintf("[%d]", dev.ID))

	nameText := subtleStyle.Render(dev.Name)

	healthText := lipgloss.NewStyle().
		Foreground(healthColor(dev.Health)).
		Render(dev.Health)

	var tempColor lipgloss.Color
	if dev.Temperature < 70 {
		tempColor = lipgloss.Color("10") // Green
	} else if dev.Temperature < 80 {
		tempColor = lipgloss.Color("11") // Yellow
	} else if dev.Temperature < 85 {
		tempColor = lipgloss.Color("208") // Orange
	} else {
		tempColor = lipgloss.Color("196") // Red
	}
	tempText := lipgloss.NewStyle().
		Foreground(tempColor).
		Render(fmt.Sprintf("%d°C", dev.Temperature))

	b.WriteString(fmt.Sprintf("  %s  %s  %s  %.1fW  %s\n", idxText, nameText, healthText, dev.Power, tempText))
	b.WriteString("  ")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("chip %s  bus %s", dev.ChipID, dev.BusID)))
	b.WriteString("\n")

	// 910-class parts report HBM; chips without it still report DDR.
	memLabel, used, total := "HBM", dev.HBMUsed, dev.HBMTotal
	if total == 0 && dev.MemoryTotal > 0 {
		memLabel, used, total = "MEM", dev.MemoryUsed, dev.MemoryTotal
	}
	memPercent := percentOf(used, total)

	const barWidth = 50

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render(memLabel)
	b.WriteString(fmt.Sprintf("  %s %s / %s (%.1f%%)\n", label, mib(used), mib(total), memPercent))
	b.WriteString("  ")
	b.WriteString(renderProgressBar(memPercent, barWidth, usageColor(memPercent)))
	b.WriteString("\n")

	coreLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("AI Core")
	b.WriteString(fmt.Sprintf("  %s %d%%\n", coreLabel, dev.AICore))
	b.WriteString("  ")
	b.WriteString(renderProgressBar(float64(dev.AICore), barWidth, lipgloss.Color("208")))
	b.WriteString("\n")

	details := fmt.Sprintf("hugepages %d / %d", dev.HugepagesUsed, dev.HugepagesTotal)
	if memLabel == "HBM" && dev.MemoryTotal > 0 {
		details = fmt.Sprintf("mem %d / %d MB  ", dev.MemoryUsed, dev.MemoryTotal) + details
	}
	b.WriteString("  ")
	b.WriteString(subtleStyle.Render(details))
	b.WriteString("\n")

	return b.String()
}

func renderProcessSection(snap *report.Snapshot, procs map[string]internal.ProcessUsage) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("● Processes"))
	b.WriteString("\n")

	if len(snap.ProcessesByDevice) == 0 {
		b.WriteString(subtleStyle.Render("  process table not reported"))
		b.WriteString("\n")
		return b.String()
	}

	withUsage := len(procs) > 0
	header := fmt.Sprintf("  %-4s %-10s %-24s %9s", "NPU", "PID", "NAME", "MEM(MB)")
	if withUsage {
		header += fmt.Sprintf("  %6s  %s", "CPU%", "COMMAND")
	}
	b.WriteString(subtleStyle.Render(header))
	b.WriteString("\n")

	rows := 0
	for _, id := range processOrder(snap) {
		for _, p := range snap.ProcessesByDevice[id] {
			rows++
			line := fmt.Sprintf("  %-4d %-10s %-24s %9d", id, p.PID, truncate(p.Name, 24), p.MemoryMB)
			if u, ok := procs[p.PID]; ok {
				line += fmt.Sprintf("  %6.1f  %s", u.CPUPercent, truncate(u.Command, 48))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if rows == 0 {
		b.WriteString(subtleStyle.Render("  no running processes"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderOverview() string {
	var b strings.Builder

	title := fmt.Sprintf("  Overview - All Targets (%d)  ", len(m.selectedTargets))
	subtitle := fmt.Sprintf("v%s | Last Updated: %s | Interval: %s | 't' per-target | 'r' refresh | 'c' targets | 'q' quit",
		internal.ShortVersion(), time.Now().Format("15:04:05"), formatInterval(m.updateInterval))

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(subtitle))
	b.WriteString("\n\n")

	for i := 0; i < len(m.selectedTargets); i += 2 {
		left := m.renderSingleTargetOverview(m.selectedTargets[i])

		if i+1 < len(m.selectedTargets) {
			right := m.renderSingleTargetOverview(m.selectedTargets[i+1])
			row := lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
			b.WriteString(row)
		} else {
			b.WriteString(left)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderSingleTargetOverview(target Target) string {
	var b strings.Builder

	snap := m.snapshots[target.Name]

	if snap == nil {
		b.WriteString(headerStyle.Render(fmt.Sprintf("● %s", target.Name)))
		b.WriteString("  ")
		b.WriteString(subtleStyle.Render("Loading..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("● %s", target.Name)))
	if m.lastErrs[target.Name] != nil {
		b.WriteString("  ")
		b.WriteString(warnStyle.Render("stale"))
	}
	b.WriteString("\n")

	usedMem, totalMem, avgCore := aggregateDevices(snap.Devices)
	memPercent := percentOf(usedMem, totalMem)

	procCount := 0
	for _, procs := range snap.ProcessesByDevice {
		procCount += len(procs)
	}

	const barWidth = 50

	b.WriteString(fmt.Sprintf("  NPUs: %d  Processes: %d\n", len(snap.Devices), procCount))
	b.WriteString(fmt.Sprintf("  HBM %s / %s (%.1f%%)\n", mib(usedMem), mib(totalMem), memPercent))
	b.WriteString("  " + renderProgressBar(memPercent, barWidth, usageColor(memPercent)) + "\n")
	b.WriteString(fmt.Sprintf("  AI Core %.1f%% avg\n", avgCore))
	b.WriteString("  " + renderProgressBar(avgCore, barWidth, lipgloss.Color("208")) + "\n")

	return b.String()
}
