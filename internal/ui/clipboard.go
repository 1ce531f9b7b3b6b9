package ui

import (
	"encoding/json"
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/session"
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// copyCmd writes text to the system clipboard and reports msg on success.
func copyCmd(text, msg string) tea.Cmd {
	return func() tea.Msg {
		if err := writeClipboard(text); err != nil {
			return ClipboardCopiedMsg{Err: err}
		}
		return ClipboardCopiedMsg{Message: msg}
	}
}

// copyResultsCmd copies res as indented JSON.
func copyResultsCmd(res gateway.QueryResult) tea.Cmd {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return func() tea.Msg {
			return ClipboardCopiedMsg{Err: fmt.Errorf("encode results: %w", err)}
		}
	}
	return copyCmd(string(data), session.MsgResultsCopied)
}
