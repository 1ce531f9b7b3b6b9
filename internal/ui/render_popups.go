package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezspanner/internal/session"
	"github.com/nhath/ezspanner/internal/ui/components/popup"
	"github.com/nhath/ezspanner/internal/ui/highlight"
)

// renderPopups layers open dialogs over main, bottom of the stack first.
func (m Model) renderPopups(main string) string {
	view := main
	for _, d := range m.popups.dialogs {
		switch d {
		case DialogConfirm:
			view = m.confirmPopup().Over(view)
		case DialogSettings:
			view = m.settingsPopup().Over(view)
		case DialogResults:
			view = m.resultsPopup().Over(view)
		case DialogHelp:
			view = m.helpPopup().Over(view)
		}
	}
	return view
}

func (m Model) newPopup(title string) popup.Model {
	return popup.New(title).
		SetStyles(popup.Styles{
			Box:    PopupStyle,
			Header: LabelStyle,
			Body:   lipgloss.NewStyle().Foreground(TextPrimary()),
			Footer: MetaStyle,
		}).
		WithWidth(min(max(m.width-10, 30), 100)).
		WithMaxHeight(max(m.height-2, 6))
}

func (m Model) confirmPopup() popup.Model {
	pending := m.st.Pending
	if strings.TrimSpace(pending) == "" {
		pending = MetaStyle.Render("(empty query)")
	} else {
		pending = highlight.SQL(pending)
	}
	target := coordsLabel(m.st.Coordinates.Project, m.st.Coordinates.Instance, m.st.Coordinates.Database)
	body := lipgloss.JoinVertical(lipgloss.Left,
		"Execute this query on "+target+"?",
		"",
		pending,
	)
	return m.newPopup("Confirm execution").
		WithContent(body).
		WithFooter(m.keys.Confirm.Help().Key + " run • " + m.keys.Cancel.Help().Key + " cancel")
}

func (m Model) settingsPopup() popup.Model {
	var lines []string
	for i, s := range session.Settings {
		box := "[ ]"
		if m.st.Setting(s) {
			box = "[x]"
		}
		line := fmt.Sprintf(" %s %s ", box, s.Label())
		if i == m.settingsIdx {
			line = SelectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return m.newPopup("Settings").
		WithWidth(44).
		WithContent(strings.Join(lines, "\n")).
		WithFooter("space toggle • esc close")
}

func (m Model) resultsPopup() popup.Model {
	title := "Results"
	if e := m.popupEntry; e != nil {
		title = fmt.Sprintf("Results • %s • %s", e.ExecutedAt.Format("15:04:05"), rowsReturned(e.RowCount()))
		if e.Results.Empty() {
			return m.newPopup(title).
				WithContent(MetaStyle.Render("No rows.")).
				WithFooter("esc close")
		}
	}
	return m.newPopup(title).
		WithContent(m.popupTable.View()).
		WithFooter("←/→ page • esc close")
}

func (m Model) helpPopup() popup.Model {
	return m.newPopup("Keys").
		WithContent(m.help.FullHelpView(m.keys.FullHelp())).
		WithFooter("esc close")
}
