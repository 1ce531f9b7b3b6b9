// Package historylist provides a scrollable list of history entries with
// selection and expansion.
package historylist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezspanner/internal/history"
)

// previewRows is how many result rows an expanded entry shows.
const previewRows = 3

// TimeLayout formats entry timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Styles for the list
type Styles struct {
	Item        lipgloss.Style
	Selected    lipgloss.Style
	Prompt      lipgloss.Style
	Meta        lipgloss.Style
	SuccessIcon lipgloss.Style
	Faint       lipgloss.Style
}

// DefaultStyles returns default styling
func DefaultStyles() Styles {
	textFaint := lipgloss.Color("#6272A4")
	successColor := lipgloss.Color("#50FA7B")

	return Styles{
		Item:        lipgloss.NewStyle().PaddingLeft(1),
		Selected:    lipgloss.NewStyle().PaddingLeft(1).Background(lipgloss.Color("#44475A")),
		Prompt:      lipgloss.NewStyle().Foreground(successColor).Bold(true),
		Meta:        lipgloss.NewStyle().Foreground(textFaint),
		SuccessIcon: lipgloss.NewStyle().Foreground(successColor),
		Faint:       lipgloss.NewStyle().Foreground(textFaint),
	}
}

// Model represents the list state
type Model struct {
	entries  []history.Entry
	selected int
	expanded map[string]bool
	width    int
	height   int
	viewport viewport.Model
	styles   Styles

	highlightFunc func(string) string
}

// New creates a new list model
func New() Model {
	return Model{
		expanded: make(map[string]bool),
		viewport: viewport.New(80, 10),
		styles:   DefaultStyles(),
	}
}

// SetEntries replaces the entries. When entries were appended the newest
// one is selected.
func (m Model) SetEntries(entries []history.Entry) Model {
	grew := len(entries) > len(m.entries)
	m.entries = entries
	if grew || m.selected >= len(entries) {
		m.selected = max(len(entries)-1, 0)
	}
	m.updateViewport()
	if grew {
		m.viewport.GotoBottom()
	}
	return m
}

// Len returns the number of entries.
func (m Model) Len() int {
	return len(m.entries)
}

// SetSize sets the component dimensions
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.updateViewport()
	return m.ensureVisible()
}

// SetStyles sets custom styles
func (m Model) SetStyles(s Styles) Model {
	m.styles = s
	return m
}

// SetHighlightFunc sets a syntax highlighting function for queries.
func (m Model) SetHighlightFunc(fn func(string) string) Model {
	m.highlightFunc = fn
	return m
}

// Selected returns the currently selected index
func (m Model) Selected() int {
	return m.selected
}

// SelectedEntry returns the selected entry, if any.
func (m Model) SelectedEntry() (history.Entry, bool) {
	if m.selected >= 0 && m.selected < len(m.entries) {
		return m.entries[m.selected], true
	}
	return history.Entry{}, false
}

// IsExpanded reports whether the entry with id is expanded.
func (m Model) IsExpanded(id string) bool {
	return m.expanded[id]
}

// ToggleExpanded toggles expansion for the selected entry.
func (m Model) ToggleExpanded() Model {
	if e, ok := m.SelectedEntry(); ok {
		m.expanded[e.ID] = !m.expanded[e.ID]
		m.updateViewport()
		m = m.ensureVisible()
	}
	return m
}

// MoveUp moves selection up
func (m Model) MoveUp() Model {
	if m.selected > 0 {
		m.selected--
		m.updateViewport()
		m = m.ensureVisible()
	}
	return m
}

// MoveDown moves selection down
func (m Model) MoveDown() Model {
	if m.selected < len(m.entries)-1 {
		m.selected++
		m.updateViewport()
		m = m.ensureVisible()
	}
	return m
}

// SelectFirst selects the oldest entry.
func (m Model) SelectFirst() Model {
	m.selected = 0
	m.updateViewport()
	m.viewport.GotoTop()
	return m
}

// SelectLast selects the newest entry.
func (m Model) SelectLast() Model {
	if len(m.entries) > 0 {
		m.selected = len(m.entries) - 1
		m.updateViewport()
		m.viewport.GotoBottom()
	}
	return m
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the list
func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) updateViewport() {
	if len(m.entries) == 0 {
		m.viewport.SetContent(m.styles.Faint.Render(" No queries executed yet."))
		return
	}

	sections := make([]string, len(m.entries))
	for i := range m.entries {
		sections[i] = m.renderItem(i)
	}
	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderItem(i int) string {
	if i < 0 || i >= len(m.entries) {
		return ""
	}
	e := m.entries[i]

	style := m.styles.Item
	if i == m.selected {
		style = m.styles.Selected
	}
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}

	var content strings.Builder

	content.WriteString(m.styles.Prompt.Render(fmt.Sprintf("%d>", i+1)))
	content.WriteString(" ")
	queryText := e.QueryPreview(max(m.width-10, 20))
	if m.expanded[e.ID] {
		queryText = e.Query
	}
	if m.highlightFunc != nil {
		queryText = m.highlightFunc(queryText)
	}
	content.WriteString(queryText)
	content.WriteString("\n")

	meta := fmt.Sprintf(" %s | %s", rowsLabel(e.RowCount()), e.ExecutedAt.Local().Format(TimeLayout))
	content.WriteString(m.styles.SuccessIcon.Render("  ✓") + m.styles.Meta.Render(meta))

	if m.expanded[e.ID] {
		if p := preview(e); p != "" {
			content.WriteString("\n")
			content.WriteString(m.styles.Faint.Padding(0, 4).Render(p))
		}
	}

	return style.Render(content.String())
}

func rowsLabel(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}

// preview renders the first rows of an entry as "col | col" lines.
func preview(e history.Entry) string {
	if len(e.Results.Columns) == 0 {
		return ""
	}
	lines := []string{strings.Join(e.Results.Columns, " | ")}
	for i, row := range e.Results.Strings() {
		if i == previewRows {
			lines = append(lines, "...")
			break
		}
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

// ensureVisible keeps the selected item in view
func (m Model) ensureVisible() Model {
	if len(m.entries) == 0 {
		return m
	}

	top := 0
	for i := 0; i < m.selected; i++ {
		top += lipgloss.Height(m.renderItem(i))
	}
	bottom := top + lipgloss.Height(m.renderItem(m.selected))

	vTop := m.viewport.YOffset
	vBottom := vTop + m.viewport.Height

	if top < vTop {
		m.viewport.SetYOffset(top)
	} else if bottom > vBottom {
		m.viewport.SetYOffset(bottom - m.viewport.Height)
	}
	return m
}
