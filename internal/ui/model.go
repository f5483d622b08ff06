package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/alpindale/npu-dashboard/internal"
	"github.com/alpindale/npu-dashboard/internal/npu"
	"github.com/alpindale/npu-dashboard/internal/report"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Screen int

const (
	ScreenTargetList Screen = iota
	ScreenConnecting
	ScreenDashboard
	ScreenOverview
)

// Target is one place to read NPU reports from: this machine, a captured
// report file, or a remote host reached over SSH.
type Target struct {
	Name       string
	Local      bool
	ReportFile string
	Host       internal.SSHHost
}

type Model struct {
	screen           Screen
	targets          []Target
	selectedTargets  []Target
	currentTargetIdx int
	list             list.Model
	spinner          spinner.Model
	clients          map[string]*internal.SSHClient
	runners          map[string]npu.RunCmdFunc
	snapshots        map[string]*report.Snapshot
	sysInfos         map[string]*internal.SystemInfo
	procUsage        map[string]map[string]internal.ProcessUsage
	toolVersions     map[string]string
	lastUpdates      map[string]time.Time
	lastErrs         map[string]error
	failedTargets    map[string]error
	updateInterval   time.Duration
	updateInfo       internal.UpdateInfo
	width            int
	height           int
}

type TickMsg time.Time

type ConnectedMsg struct {
	targetName string
	client     *internal.SSHClient
	runner     npu.RunCmdFunc
	err        error
}

// RefreshMsg carries everything one polling pass learned about a target.
// When err is set the model keeps showing the previous snapshot and the
// error lands in the footer instead.
type RefreshMsg struct {
	targetName  string
	snapshot    *report.Snapshot
	sysInfo     *internal.SystemInfo
	procs       map[string]internal.ProcessUsage
	toolVersion string
	err         error
}

type UpdateCheckMsg internal.UpdateInfo

type targetItem struct {
	target   Target
	selected bool
}

func (t targetItem) FilterValue() string { return t.target.Name }
func (t targetItem) Title() string {
	prefix := "  "
	if t.selected {
		prefix = "✓ "
	}
	return prefix + t.target.Name
}
func (t targetItem) Description() string {
	switch {
	case t.target.Local:
		return "  this machine"
	case t.target.ReportFile != "":
		return "  report file " + t.target.ReportFile
	case t.target.Host.Hostname != "":
		return fmt.Sprintf("  %s@%s:%s", t.target.Host.User, censorHostname(t.target.Host.Hostname), t.target.Host.Port)
	}
	return ""
}

func censorHostname(hostname string) string {
	if hostname == "" {
		return ""
	}

	if strings.Contains(hostname, ".") {
		parts := strings.Split(hostname, ".")
		if len(parts) >= 4 {
			lastOctet := parts[len(parts)-1]
			lastPart := lastOctet
			if len(lastOctet) > 2 {
				lastPart = lastOctet[len(lastOctet)-2:]
			}
			return fmt.Sprintf("%s.***.***%s", parts[0], lastPart)
		}
	}

	if len(hostname) <= 8 {
		if len(hostname) <= 3 {
			return hostname
		}
		return hostname[:2] + strings.Repeat("*", len(hostname)-2)
	}

	return hostname[:3] + strings.Repeat("*", 5) + hostname[len(hostname)-3:]
}

func formatInterval(interval time.Duration) string {
	seconds := interval.Seconds()
	if seconds < 1 {
		return fmt.Sprintf("%.2fs", seconds)
	} else if seconds < 10 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	return fmt.Sprintf("%.0fs", seconds)
}

func newTargetList(targets []Target, selected map[string]bool) list.Model {
	items := make([]list.Item, len(targets))
	for i, t := range targets {
		items[i] = targetItem{target: t, selected: selected[t.Name]}
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = "Select NPU Targets to Monitor (Space to select, Enter to confirm)"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	return l
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return s
}

func baseModel(targets []Target, updateInterval time.Duration, selected map[string]bool) Model {
	return Model{
		screen:         ScreenTargetList,
		targets:        targets,
		list:           newTargetList(targets, selected),
		spinner:        newSpinner(),
		clients:        make(map[string]*internal.SSHClient),
		runners:        make(map[string]npu.RunCmdFunc),
		snapshots:      make(map[string]*report.Snapshot),
		sysInfos:       make(map[string]*internal.SystemInfo),
		procUsage:      make(map[string]map[string]internal.ProcessUsage),
		toolVersions:   make(map[string]string),
		lastUpdates:    make(map[string]time.Time),
		lastErrs:       make(map[string]error),
		failedTargets:  make(map[string]error),
		updateInterval: updateInterval,
	}
}

func InitialModel(targets []Target, updateInterval time.Duration) Model {
	return baseModel(targets, updateInterval, nil)
}

func InitialModelWithTarget(target Target, updateInterval time.Duration) Model {
	return InitialModelWithTargets([]Target{target}, []Target{target}, updateInterval)
}

func InitialModelWithTargets(allTargets, selectedTargets []Target, updateInterval time.Duration) Model {
	selected := make(map[string]bool)
	for _, t := range selectedTargets {
		selected[t.Name] = true
	}

	m := baseModel(allTargets, updateInterval, selected)
	m.screen = ScreenConnecting
	m.selectedTargets = selectedTargets
	return m
}

func (m *Model) updateListSelection() {
	items := m.list.Items()
	selected := make(map[string]bool)
	for _, t := range m.selectedTargets {
		selected[t.Name] = true
	}

	newItems := make([]list.Item, len(items))
	for i, item := range items {
		if ti, ok := item.(targetItem); ok {
			ti.selected = selected[ti.target.Name]
			newItems[i] = ti
		}
	}
	m.list.SetItems(newItems)
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, checkForUpdates()}
	if m.screen == ScreenConnecting && len(m.selectedTargets) > 0 {
		cmds = append(cmds, m.connectTargets())
	}
	return tea.Batch(cmds...)
}
