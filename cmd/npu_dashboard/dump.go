package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/alpindale/npu-dashboard/internal"
	"github.com/alpindale/npu-dashboard/internal/npu"
	"github.com/alpindale/npu-dashboard/internal/report"
	"github.com/alpindale/npu-dashboard/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

// dumpOnce prints one parsed snapshot per target as plain tables, for
// scripts and quick checks without the full-screen UI. Targets that fail
// are reported on stderr and the first failure becomes the exit status.
func dumpOnce(targets []ui.Target) error {
	var firstErr error
	for i, target := range targets {
		if i > 0 {
			fmt.Println()
		}
		if err := dumpTarget(os.Stdout, target); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", target.Name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func dumpTarget(w io.Writer, target ui.Target) error {
	runner, closer, err := runnerFor(target)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	raw, err := npu.Collect(runner)
	if err != nil {
		return err
	}
	snap := report.Parse(raw)

	header := target.Name
	if v := npu.ToolVersion(raw); v != "" {
		header += " (" + v + ")"
	}
	fmt.Fprintln(w, header)

	if len(snap.Devices) == 0 {
		fmt.Fprintln(w, "no NPU devices found in report")
	} else {
		printDeviceTable(w, snap.Devices)
	}
	printProcessTable(w, &snap)
	if target.Local {
		printHostSummary(w)
	}

	if drops := snap.Stats.Drops(); drops > 0 {
		fmt.Fprintf(w, "warning: %d unparsed report row(s) skipped\n", drops)
	}
	return nil
}

// printHostSummary appends one line of host telemetry to a local dump.
func printHostSummary(w io.Writer) {
	info, err := internal.GatherLocalSystemInfo()
	if err != nil {
		internal.Log().Warn("partial local telemetry", zap.Error(err))
	}
	fmt.Fprintf(w, "host %s: CPU %.1f%%  MEM %s / %s (%.1f%%)  load %.2f %.2f %.2f\n",
		info.Hostname, info.CPUPercent,
		humanize.IBytes(info.MemoryUsed), humanize.IBytes(info.MemoryTotal), info.MemoryPercent,
		info.Load1, info.Load5, info.Load15)
}

// runnerFor opens the acquisition seam for a target the same way the
// dashboard does, plus a closer for SSH sessions.
func runnerFor(target ui.Target) (npu.RunCmdFunc, func(), error) {
	switch {
	case target.ReportFile != "":
		return npu.FileRunner(target.ReportFile), nil, nil

	case target.Local:
		runner := npu.LocalRunner()
		if !npu.Detect(runner) {
			return nil, nil, errors.New("npu-smi not found in PATH")
		}
		return runner, nil, nil

	default:
		client, err := internal.NewSSHClient(target.Host)
		if err != nil {
			return nil, nil, err
		}
		return npu.RunCmdFunc(client.ExecuteCommand), func() { client.Close() }, nil
	}
}

func setupTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func printDeviceTable(w io.Writer, devices []report.DeviceRecord) {
	table := setupTable(w, []string{"NPU", "Name", "Health", "Power(W)", "Temp(C)", "AI Core", "Memory", "HBM", "Bus"})

	for _, dev := range devices {
		table.Append([]string{
			strconv.Itoa(dev.ID),
			dev.Name,
			dev.Health,
			fmt.Sprintf("%.1f", dev.Power),
			strconv.Itoa(dev.Temperature),
			fmt.Sprintf("%d%%", dev.AICore),
			usageCell(dev.MemoryUsed, dev.MemoryTotal),
			usageCell(dev.HBMUsed, dev.HBMTotal),
			dev.BusID,
		})
	}
	table.Render()
}

func printProcessTable(w io.Writer, snap *report.Snapshot) {
	if len(snap.ProcessesByDevice) == 0 {
		fmt.Fprintln(w, "process table not reported")
		return
	}

	ids := make([]int, 0, len(snap.ProcessesByDevice))
	for id := range snap.ProcessesByDevice {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	table := setupTable(w, []string{"NPU", "PID", "Name", "Memory(MB)"})
	rows := 0
	for _, id := range ids {
		for _, p := range snap.ProcessesByDevice[id] {
			rows++
			table.Append([]string{strconv.Itoa(id), p.PID, p.Name, strconv.Itoa(p.MemoryMB)})
		}
	}

	if rows == 0 {
		fmt.Fprintln(w, "no running processes")
		return
	}
	table.Render()
}

// usageCell renders used/total mebibytes in human units.
func usageCell(used, total int) string {
	if total <= 0 && used <= 0 {
		return "-"
	}
	if used < 0 {
		used = 0
	}
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%s / %s", humanize.IBytes(uint64(used)*1024*1024), humanize.IBytes(uint64(total)*1024*1024))
}
