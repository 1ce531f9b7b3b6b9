package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezspanner/internal/session"
)

func (m Model) renderStatusBar() string {
	var parts []string

	// 1. State
	switch m.st.State {
	case session.Executing:
		parts = append(parts, ExecutingStyle.Render(m.spinner.View()+" EXECUTING"))
	case session.AwaitingConfirmation:
		parts = append(parts, AwaitingStyle.Render("CONFIRM"))
	default:
		parts = append(parts, StateStyle.Render("IDLE"))
	}

	// 2. Coordinates
	coords := m.st.Coordinates
	if coords.Project == "" {
		parts = append(parts, ConnectionStyle.Render("NO PROJECT"))
	} else {
		parts = append(parts, ConnectionStyle.Render(coordsLabel(coords.Project, coords.Instance, coords.Database)))
	}

	// 3. Notice
	if n := m.notice; n != nil {
		parts = append(parts, noticeView(*n, m.width/2))
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, parts...)
	return StatusBarStyle.Width(m.width).Render(content)
}

func coordsLabel(project, instance, database string) string {
	s := project
	if instance != "" {
		s += " / " + instance
	}
	if database != "" {
		s += " / " + database
	}
	return s
}

func noticeView(n session.Notification, width int) string {
	text := n.Message
	if n.Detail != "" {
		text += ": " + n.Detail
	}
	if width > 4 && len([]rune(text)) > width {
		text = string([]rune(text)[:width-3]) + "..."
	}
	switch n.Level {
	case session.LevelError:
		return ErrorStyle.Render("⚠ " + text)
	case session.LevelSuccess:
		return SuccessStyle.Render("✓ " + text)
	default:
		return InfoStyle.Render(text)
	}
}
