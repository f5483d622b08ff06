package ui

import (
	"errors"
	"fmt"
	"time"

	"github.com/alpindale/npu-dashboard/internal"
	"github.com/alpindale/npu-dashboard/internal/npu"
	"github.com/alpindale/npu-dashboard/internal/report"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func checkForUpdates() tea.Cmd {
	return func() tea.Msg {
		return UpdateCheckMsg(internal.CheckForUpdates())
	}
}

func (m Model) connectTargets() tea.Cmd {
	var cmds []tea.Cmd
	for _, target := range m.selectedTargets {
		cmds = append(cmds, m.connectTarget(target))
	}
	if len(cmds) > 0 {
		return tea.Batch(cmds...)
	}
	return nil
}

// connectTarget establishes whatever a target needs before polling can
// start: an SSH session for remote hosts, a readability check for report
// files, a tool check for the local machine.
func (m Model) connectTarget(target Target) tea.Cmd {
	t := target
	return func() tea.Msg {
		switch {
		case t.ReportFile != "":
			runner := npu.FileRunner(t.ReportFile)
			if _, err := runner(""); err != nil {
				return ConnectedMsg{targetName: t.Name, err: err}
			}
			return ConnectedMsg{targetName: t.Name, runner: runner}

		case t.Local:
			runner := npu.LocalRunner()
			if !npu.Detect(runner) {
				return ConnectedMsg{targetName: t.Name, err: errors.New("npu-smi not found in PATH")}
			}
			return ConnectedMsg{targetName: t.Name, runner: runner}

		default:
			client, err := internal.NewSSHClient(t.Host)
			if err != nil {
				internal.Log().Warn("connect failed", zap.String("target", t.Name), zap.Error(err))
				return ConnectedMsg{targetName: t.Name, err: err}
			}
			runner := npu.RunCmdFunc(client.ExecuteCommand)
			if !npu.Detect(runner) {
				client.Close()
				return ConnectedMsg{targetName: t.Name, err: fmt.Errorf("npu-smi not found on %s", t.Host.Name)}
			}
			return ConnectedMsg{targetName: t.Name, client: client, runner: runner}
		}
	}
}

func (m Model) connectNewTargets() tea.Cmd {
	var cmds []tea.Cmd
	for _, target := range m.selectedTargets {
		if m.runners[target.Name] == nil {
			cmds = append(cmds, m.connectTarget(target))
		}
	}
	if len(cmds) > 0 {
		return tea.Batch(cmds...)
	}
	return nil
}

func (m Model) refreshAll() tea.Cmd {
	var cmds []tea.Cmd
	for _, target := range m.selectedTargets {
		if m.runners[target.Name] != nil {
			cmds = append(cmds, m.refreshTarget(target))
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) refreshNamed(name string) tea.Cmd {
	for _, target := range m.selectedTargets {
		if target.Name == name {
			return m.refreshTarget(target)
		}
	}
	return nil
}

// refreshTarget runs one full polling pass against a target and reports
// the outcome as a single message, so a failed pass can never leave the
// model holding half of a refresh.
func (m Model) refreshTarget(target Target) tea.Cmd {
	t := target
	runner := m.runners[t.Name]
	client := m.clients[t.Name]
	return func() tea.Msg {
		return gatherRefresh(t, runner, client)
	}
}

func gatherRefresh(t Target, runner npu.RunCmdFunc, client *internal.SSHClient) RefreshMsg {
	raw, err := npu.Collect(runner)
	if err != nil {
		internal.Log().Warn("refresh failed", zap.String("target", t.Name), zap.Error(err))
		return RefreshMsg{targetName: t.Name, err: err}
	}

	snap := report.Parse(raw)
	if drops := snap.Stats.Drops(); drops > 0 {
		internal.Log().Warn("unparsed report rows", zap.String("target", t.Name), zap.Int("dropped", drops))
	}
	msg := RefreshMsg{
		targetName:  t.Name,
		snapshot:    &snap,
		toolVersion: npu.ToolVersion(raw),
	}

	switch {
	case t.ReportFile != "":
		// A replayed capture says nothing about the machine reading it,
		// so no host telemetry and no process inspection.
	case t.Local:
		info, err := internal.GatherLocalSystemInfo()
		if err != nil {
			internal.Log().Warn("partial local telemetry", zap.Error(err))
		}
		msg.sysInfo = info
		msg.procs = internal.InspectProcesses(snapshotPIDs(&snap))
	default:
		info, err := internal.GatherRemoteSystemInfo(client)
		if err != nil {
			internal.Log().Warn("partial remote telemetry", zap.String("target", t.Name), zap.Error(err))
		}
		msg.sysInfo = info
	}
	return msg
}

// snapshotPIDs flattens every PID the report mentions, deduplicated.
func snapshotPIDs(snap *report.Snapshot) []string {
	seen := make(map[string]bool)
	var pids []string
	for _, procs := range snap.ProcessesByDevice {
		for _, p := range procs {
			if !seen[p.PID] {
				seen[p.PID] = true
				pids = append(pids, p.PID)
			}
		}
	}
	return pids
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.updateInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
