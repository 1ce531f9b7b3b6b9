package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/nhath/ezspanner/internal/config"
)

// keyMap holds the bindings in effect. Configurable ones come from
// config.KeyMap; the rest are fixed.
type keyMap struct {
	Execute     key.Binding
	Format      key.Binding
	CopyQuery   key.Binding
	CopyResults key.Binding
	Settings    key.Binding
	SwitchTab   key.Binding
	Quit        key.Binding
	FocusNext   key.Binding
	Help        key.Binding

	// Header pickers
	Prev key.Binding
	Next key.Binding

	// History tab
	Up          key.Binding
	Down        key.Binding
	Rerun       key.Binding
	CopyEntry   key.Binding
	CopyOutput  key.Binding
	ViewResults key.Binding
	Expand      key.Binding

	// Dialogs
	Confirm key.Binding
	Cancel  key.Binding
	Close   key.Binding
	Toggle  key.Binding
}

func binding(keys []string, fallback []string, help string) key.Binding {
	if len(keys) == 0 {
		keys = fallback
	}
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(strings.Join(keys, "/"), help))
}

func newKeyMap(k config.KeyMap) keyMap {
	return keyMap{
		Execute:     binding(k.Execute, []string{"ctrl+d", "ctrl+e"}, "execute"),
		Format:      binding(k.Format, []string{"ctrl+f"}, "format"),
		CopyQuery:   binding(k.CopyQuery, []string{"ctrl+y"}, "copy query"),
		CopyResults: binding(k.CopyResults, []string{"ctrl+r"}, "copy results"),
		Settings:    binding(k.Settings, []string{"ctrl+s"}, "settings"),
		SwitchTab:   binding(k.SwitchTab, []string{"tab"}, "editor/history"),
		Quit:        binding(k.Exit, []string{"ctrl+c"}, "quit"),
		FocusNext:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "next field")),
		Help:        key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),

		Prev: key.NewBinding(key.WithKeys("left", "up"), key.WithHelp("←", "previous")),
		Next: key.NewBinding(key.WithKeys("right", "down"), key.WithHelp("→", "next")),

		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Rerun:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rerun")),
		CopyEntry:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy query")),
		CopyOutput:  key.NewBinding(key.WithKeys("Y"), key.WithHelp("Y", "copy results")),
		ViewResults: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "view results")),
		Expand:      key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "expand")),

		Confirm: key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y/enter", "run")),
		Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "cancel")),
		Close:   key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc/q", "close")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "toggle")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Execute, k.Format, k.CopyQuery, k.SwitchTab, k.Settings, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Execute, k.Format, k.CopyQuery, k.CopyResults, k.FocusNext, k.Prev, k.Next},
		{k.Up, k.Down, k.Rerun, k.CopyEntry, k.CopyOutput, k.ViewResults, k.Expand},
		{k.SwitchTab, k.Settings, k.Help, k.Close, k.Quit},
	}
}
