// internal/ui/handle_popup.go
package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/session"
)

// handlePopupKey routes keys to the topmost dialog.
func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popups.Top() {
	case DialogConfirm:
		return m.handleConfirmKey(msg)
	case DialogSettings:
		return m.handleSettingsKey(msg)
	case DialogResults:
		if key.Matches(msg, m.keys.Close) {
			m.popups.Pop()
			m.popupEntry = nil
			return m, nil
		}
		var cmd tea.Cmd
		m.popupTable, cmd = m.popupTable.Update(msg)
		return m, cmd
	default:
		if key.Matches(msg, m.keys.Close) || key.Matches(msg, m.keys.Help) {
			m.popups.Pop()
		}
		return m, nil
	}
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.popups.Remove(DialogConfirm)
		exec, err := m.mgr.Confirm()
		if err != nil {
			m.logger.Debug("confirm ignored", zap.Error(err))
			m = m.syncState()
			return m, nil
		}
		m = m.syncState()
		return m, tea.Batch(m.runCmd(exec), m.spinner.Tick)

	case key.Matches(msg, m.keys.Cancel):
		m.popups.Remove(DialogConfirm)
		if err := m.mgr.Cancel(); err != nil {
			m.logger.Debug("cancel ignored", zap.Error(err))
		}
		m = m.syncState()
		return m, nil
	}
	return m, nil
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.settingsIdx > 0 {
			m.settingsIdx--
		}
	case key.Matches(msg, m.keys.Down):
		if m.settingsIdx < len(session.Settings)-1 {
			m.settingsIdx++
		}
	case key.Matches(msg, m.keys.Toggle):
		s := session.Settings[m.settingsIdx]
		if err := m.mgr.ToggleSetting(s, !m.st.Setting(s)); err != nil {
			m.logger.Warn("toggle setting", zap.String("name", string(s)), zap.Error(err))
		}
		m = m.syncState()
	case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Settings):
		m.popups.Remove(DialogSettings)
	}
	return m, nil
}
