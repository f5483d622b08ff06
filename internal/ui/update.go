package ui

import (
	"time"

	"github.com/alpindale/npu-dashboard/internal"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			for _, client := range m.clients {
				if client != nil {
					client.Close()
				}
			}
			return m, tea.Quit
		case " ":
			if m.screen == ScreenTargetList {
				if item, ok := m.list.SelectedItem().(targetItem); ok {
					target := item.target
					found := false
					for i, t := range m.selectedTargets {
						if t.Name == target.Name {
							m.selectedTargets = append(m.selectedTargets[:i], m.selectedTargets[i+1:]...)
							found = true
							break
						}
					}
					if !found {
						m.selectedTargets = append(m.selectedTargets, target)
					}
					m.updateListSelection()
				}
			}
		case "enter":
			if m.screen == ScreenTargetList {
				if len(m.selectedTargets) == 0 {
					if item, ok := m.list.SelectedItem().(targetItem); ok {
						m.selectedTargets = append(m.selectedTargets, item.target)
					}
				}
				if len(m.selectedTargets) > 0 {
					m.failedTargets = make(map[string]error)

					if len(m.runners) > 0 {
						m.screen = ScreenDashboard
						if cmd := m.connectNewTargets(); cmd != nil {
							return m, cmd
						}
					} else {
						m.screen = ScreenConnecting
						return m, m.connectTargets()
					}
				}
			}
		case "n":
			if m.screen == ScreenDashboard && len(m.selectedTargets) > 1 {
				m.currentTargetIdx = (m.currentTargetIdx + 1) % len(m.selectedTargets)
				next := m.selectedTargets[m.currentTargetIdx]
				if m.runners[next.Name] == nil {
					return m, m.connectTarget(next)
				}
			}
		case "r":
			if m.screen == ScreenDashboard || m.screen == ScreenOverview {
				return m, m.refreshAll()
			}
		case "c":
			if m.screen == ScreenDashboard || m.screen == ScreenOverview {
				m.screen = ScreenTargetList
				m.updateListSelection()
			}
		case "t":
			if m.screen == ScreenDashboard && len(m.selectedTargets) > 1 {
				m.screen = ScreenOverview
			} else if m.screen == ScreenOverview {
				m.screen = ScreenDashboard
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)

	case ConnectedMsg:
		if msg.err != nil {
			m.dropTarget(msg.targetName, msg.err)
			return m, nil
		}
		if msg.client != nil {
			m.clients[msg.targetName] = msg.client
		}
		m.runners[msg.targetName] = msg.runner
		return m, m.refreshNamed(msg.targetName)

	case RefreshMsg:
		if msg.err != nil {
			if m.snapshots[msg.targetName] == nil {
				// Never produced data; treat it like a failed connect.
				m.dropTarget(msg.targetName, msg.err)
			} else {
				// Keep the last good snapshot on screen; the footer
				// carries the error until a pass succeeds again.
				m.lastErrs[msg.targetName] = msg.err
			}
			return m, nil
		}
		delete(m.lastErrs, msg.targetName)
		m.snapshots[msg.targetName] = msg.snapshot
		if msg.sysInfo != nil {
			m.sysInfos[msg.targetName] = msg.sysInfo
		}
		m.procUsage[msg.targetName] = msg.procs
		if msg.toolVersion != "" {
			m.toolVersions[msg.targetName] = msg.toolVersion
		}
		m.lastUpdates[msg.targetName] = time.Now()

		if m.screen == ScreenConnecting && len(m.selectedTargets) > 0 {
			first := m.selectedTargets[0]
			if m.runners[first.Name] != nil && m.snapshots[first.Name] != nil {
				m.screen = ScreenDashboard
				return m, m.tick()
			}
		}

	case UpdateCheckMsg:
		m.updateInfo = internal.UpdateInfo(msg)

	case TickMsg:
		return m, tea.Batch(m.refreshAll(), m.tick())
	}

	var spinnerCmd tea.Cmd
	m.spinner, spinnerCmd = m.spinner.Update(msg)

	if m.screen == ScreenTargetList {
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		return m, tea.Batch(spinnerCmd, listCmd)
	}

	return m, spinnerCmd
}

// dropTarget records a target failure and removes it from rotation,
// falling back to the selection screen when nothing is left.
func (m *Model) dropTarget(name string, err error) {
	m.failedTargets[name] = err
	delete(m.runners, name)
	if client := m.clients[name]; client != nil {
		client.Close()
		delete(m.clients, name)
	}

	for i, t := range m.selectedTargets {
		if t.Name == name {
			m.selectedTargets = append(m.selectedTargets[:i], m.selectedTargets[i+1:]...)
			break
		}
	}

	if len(m.selectedTargets) == 0 {
		m.screen = ScreenTargetList
		m.updateListSelection()
	} else if m.currentTargetIdx >= len(m.selectedTargets) {
		m.currentTargetIdx = len(m.selectedTargets) - 1
	}
}
