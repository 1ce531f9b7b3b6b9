package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezspanner/internal/session"
	"github.com/nhath/ezspanner/internal/ui/highlight"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	tabs := m.renderTabs()
	status := m.renderStatusBar()
	helpLine := MetaStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(tabs) - lipgloss.Height(status) - lipgloss.Height(helpLine)
	var body string
	if m.tab == TabHistory {
		body = m.renderHistory(bodyHeight)
	} else {
		body = m.renderEditorTab()
	}
	body = lipgloss.NewStyle().Height(max(bodyHeight, 1)).MaxHeight(max(bodyHeight, 1)).Render(body)

	main := lipgloss.JoinVertical(lipgloss.Left, header, tabs, body, status, helpLine)
	return m.renderPopups(main)
}

func (m Model) renderHeader() string {
	project := m.field("Project", m.projectInput.View(), m.focus == FocusProject)
	instance := m.field("Instance", pickerValue(m.st.Coordinates.Instance, len(m.st.Instances)), m.focus == FocusInstance)
	database := m.field("Database", pickerValue(m.st.Coordinates.Database, len(m.st.Databases)), m.focus == FocusDatabase)

	var flags []string
	for _, s := range session.Settings {
		mark := "○"
		if m.st.Setting(s) {
			mark = "●"
		}
		flags = append(flags, fmt.Sprintf("%s %s", mark, s.Label()))
	}
	settings := MetaStyle.Render(strings.Join(flags, "  "))

	fields := lipgloss.JoinHorizontal(lipgloss.Bottom, project, " ", instance, " ", database)
	return lipgloss.JoinVertical(lipgloss.Left, fields, " "+settings)
}

func (m Model) field(label, value string, focused bool) string {
	style := FieldStyle
	if focused && m.tab == TabEditor {
		style = FocusedFieldStyle
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		LabelStyle.Render(" "+label),
		style.Render(value),
	)
}

func pickerValue(v string, n int) string {
	switch {
	case v != "":
		return "‹ " + v + " ›"
	case n == 0:
		return "(none)"
	default:
		return fmt.Sprintf("select (%d)", n)
	}
}

func (m Model) renderTabs() string {
	var parts []string
	for _, t := range []Tab{TabEditor, TabHistory} {
		label := t.String()
		if t == TabHistory && m.history.Len() > 0 {
			label = fmt.Sprintf("%s (%d)", label, m.history.Len())
		}
		if t == m.tab {
			parts = append(parts, ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, parts...)
}

func (m Model) renderEditorTab() string {
	var editor string
	if m.focus == FocusEditor {
		editor = m.editor.View()
	} else {
		editor = m.highlightedQuery()
	}
	editor = EditorStyle.Width(max(m.width-2, 10)).Render(editor)

	if !m.st.HasResult {
		return editor
	}
	summary := MetaStyle.Render(" " + rowsReturned(m.st.Result.Len()))
	return lipgloss.JoinVertical(lipgloss.Left, editor, summary, m.results.View())
}

// highlightedQuery renders the live query with syntax colors at the
// editor's height.
func (m Model) highlightedQuery() string {
	q := m.editor.Value()
	if strings.TrimSpace(q) == "" {
		return MetaStyle.Render(m.editor.Placeholder)
	}
	lines := strings.Split(highlight.SQL(q), "\n")
	if h := m.editor.Height(); len(lines) > h {
		lines = lines[:h]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHistory(height int) string {
	return m.history.SetSize(m.width, max(height, 3)).View()
}

func rowsReturned(n int) string {
	if n == 1 {
		return "1 row returned"
	}
	return fmt.Sprintf("%d rows returned", n)
}
