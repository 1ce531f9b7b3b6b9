// internal/ui/handle_history.go
package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/ezspanner/internal/session"
	eztable "github.com/nhath/ezspanner/internal/ui/components/table"
)

// handleHistoryKey handles keys on the history tab.
func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.history = m.history.MoveUp()
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.history = m.history.MoveDown()
		return m, nil
	case msg.String() == "home" || msg.String() == "g":
		m.history = m.history.SelectFirst()
		return m, nil
	case msg.String() == "end" || msg.String() == "G":
		m.history = m.history.SelectLast()
		return m, nil
	}

	entry, ok := m.history.SelectedEntry()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Rerun):
		m.tab = TabEditor
		m = m.setFocus(FocusEditor)
		m.editor.SetValue(entry.Query)
		exec, st := m.mgr.Rerun(entry)
		return m.afterRequest(exec, st)

	case key.Matches(msg, m.keys.CopyEntry):
		return m, copyCmd(entry.Query, session.MsgQueryCopied)

	case key.Matches(msg, m.keys.CopyOutput):
		return m, copyResultsCmd(entry.Results)

	case key.Matches(msg, m.keys.ViewResults):
		e := entry
		m.popupEntry = &e
		m.popupTable = eztable.FromQueryResult(e.Results, max(m.height-14, 5))
		m.popups.Push(DialogResults)
		return m, nil

	case key.Matches(msg, m.keys.Expand):
		m.history = m.history.ToggleExpanded()
		return m, nil
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}
