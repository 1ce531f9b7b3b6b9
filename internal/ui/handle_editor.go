// internal/ui/handle_editor.go
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/session"
)

// handleEditorKey handles keys on the editor tab.
func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FocusNext):
		return m.setFocus(m.focus.next()), nil
	case key.Matches(msg, m.keys.Format):
		m.mgr.SetQuery(m.editor.Value())
		m.editor.SetValue(m.mgr.Format())
		m = m.syncState()
		return m, nil
	case key.Matches(msg, m.keys.CopyQuery):
		return m, copyCmd(m.editor.Value(), session.MsgQueryCopied)
	case key.Matches(msg, m.keys.CopyResults):
		return m, copyResultsCmd(m.st.Result)
	}

	switch m.focus {
	case FocusProject:
		return m.handleProjectKey(msg)
	case FocusInstance, FocusDatabase:
		return m.handlePickerKey(msg)
	}

	var cmd tea.Cmd
	before := m.editor.Value()
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		m.mgr.SetQuery(after)
		m.st.Query = after
	}
	return m, cmd
}

// setFocus moves key input to f.
func (m Model) setFocus(f Focus) Model {
	m.focus = f
	m.editor.Blur()
	m.projectInput.Blur()
	switch f {
	case FocusEditor:
		m.editor.Focus()
	case FocusProject:
		m.projectInput.Focus()
	}
	return m
}

// handleProjectKey edits the project ID. Enter assigns it and loads its
// instances.
func (m Model) handleProjectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.projectInput, cmd = m.projectInput.Update(msg)
		return m, cmd
	}

	project := strings.TrimSpace(m.projectInput.Value())
	m.projectInput.SetValue(project)
	if project != m.st.Coordinates.Project {
		m.mgr.SetConnectionCoordinates(m.ctx, gateway.Coordinates{Project: project})
		m = m.syncState()
		if project != "" {
			// The assignment already reloads the instance list.
			return m, nil
		}
	}
	return m, m.initializeCmd()
}

// handlePickerKey cycles the instance or database through the listed
// values. Changing the instance clears the database.
func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var step int
	switch {
	case key.Matches(msg, m.keys.Prev):
		step = -1
	case key.Matches(msg, m.keys.Next):
		step = 1
	default:
		return m, nil
	}

	c := m.st.Coordinates
	if m.focus == FocusInstance {
		next, ok := cycle(m.st.Instances, c.Instance, step)
		if !ok || next == c.Instance {
			return m, nil
		}
		c.Instance, c.Database = next, ""
	} else {
		next, ok := cycle(m.st.Databases, c.Database, step)
		if !ok || next == c.Database {
			return m, nil
		}
		c.Database = next
	}

	m.mgr.SetConnectionCoordinates(m.ctx, c)
	m = m.syncState()
	return m, nil
}

// cycle returns the value step positions from current in values. An
// unknown current value selects the first or last entry.
func cycle(values []string, current string, step int) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	idx := -1
	for i, v := range values {
		if v == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		if step < 0 {
			return values[len(values)-1], true
		}
		return values[0], true
	}
	n := len(values)
	return values[((idx+step)%n+n)%n], true
}
