// Package popup renders modal boxes over the console.
package popup

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

// Styles for the popup
type Styles struct {
	Box    lipgloss.Style
	Header lipgloss.Style
	Body   lipgloss.Style
	Footer lipgloss.Style
}

// DefaultStyles returns default styling
func DefaultStyles() Styles {
	return Styles{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8F8F2")),
		Body: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2")),
		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4")).
			Italic(true),
	}
}

// Model is an immutable popup description.
type Model struct {
	title     string
	content   string
	footer    string
	width     int
	maxHeight int
	styles    Styles
}

// New creates a popup with a title.
func New(title string) Model {
	return Model{title: title, width: 60, styles: DefaultStyles()}
}

// SetStyles sets custom styles
func (m Model) SetStyles(s Styles) Model {
	m.styles = s
	return m
}

// WithContent sets the body.
func (m Model) WithContent(content string) Model {
	m.content = content
	return m
}

// WithFooter sets the hint line under the body.
func (m Model) WithFooter(footer string) Model {
	m.footer = footer
	return m
}

// WithWidth sets the box width.
func (m Model) WithWidth(w int) Model {
	m.width = w
	return m
}

// WithMaxHeight caps the box height. Zero means no cap.
func (m Model) WithMaxHeight(h int) Model {
	m.maxHeight = h
	return m
}

// View renders the box alone.
func (m Model) View() string {
	var b strings.Builder

	if m.title != "" {
		b.WriteString(m.styles.Header.Render(m.title))
		b.WriteString("\n\n")
	}

	b.WriteString(m.styles.Body.Render(m.content))

	if m.footer != "" {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Footer.Render(m.footer))
	}

	box := m.styles.Box.Width(m.width)
	if m.maxHeight > 0 {
		box = box.MaxHeight(m.maxHeight)
	}
	return box.Render(b.String())
}

// Over composites the box centered on main.
func (m Model) Over(main string) string {
	return overlay.Composite(m.View(), main, overlay.Center, overlay.Center, 0, 0)
}
