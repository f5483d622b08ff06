package ui

import (
	"fmt"
	"strings"

	"github.com/alpindale/npu-dashboard/internal"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) renderUpdateNotification() string {
	if !m.updateInfo.Available {
		return ""
	}

	updateStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("226")).
		Bold(true)

	currentVer := m.updateInfo.CurrentVersion
	if !strings.HasPrefix(currentVer, "v") {
		currentVer = "v" + currentVer
	}

	return updateStyle.Render(fmt.Sprintf("\n\n⬆  Update available! %s → %s",
		currentVer, m.updateInfo.LatestVersion))
}

func (m Model) View() string {
	switch m.screen {
	case ScreenTargetList:
		listView := m.list.View()
		if len(m.failedTargets) > 0 {
			failedDetails := make([]string, 0, len(m.failedTargets))
			for name, err := range m.failedTargets {
				failedDetails = append(failedDetails, fmt.Sprintf("%s (%v)", name, err))
			}
			warning := fmt.Sprintf("\n⚠ Failed to reach: %s", strings.Join(failedDetails, ", "))
			listView += warnStyle.Render(warning)
		}
		if len(m.selectedTargets) > 0 {
			selectedNames := make([]string, len(m.selectedTargets))
			for i, t := range m.selectedTargets {
				selectedNames[i] = t.Name
			}
			footer := fmt.Sprintf("\nSelected (%d): %s", len(m.selectedTargets), strings.Join(selectedNames, ", "))
			listView += lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(footer)
		}
		versionFooter := fmt.Sprintf("\nv%s", internal.ShortVersion())
		listView += subtleStyle.Render(versionFooter)
		listView += m.renderUpdateNotification()
		return listView

	case ScreenConnecting:
		return m.renderConnectingProgress()

	case ScreenDashboard:
		if len(m.selectedTargets) > 0 && m.currentTargetIdx < len(m.selectedTargets) {
			target := m.selectedTargets[m.currentTargetIdx]

			if m.runners[target.Name] == nil || m.snapshots[target.Name] == nil {
				return m.renderConnectingProgress()
			}

			indicator := ""
			if len(m.selectedTargets) > 1 {
				indicator = fmt.Sprintf(" [%d/%d]", m.currentTargetIdx+1, len(m.selectedTargets))
			}
			return m.renderDashboard(target, indicator) + m.renderUpdateNotification()
		}
		return m.renderConnectingProgress()

	case ScreenOverview:
		return m.renderOverview() + m.renderUpdateNotification()
	}

	return ""
}
