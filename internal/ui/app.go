// internal/ui/app.go
package ui

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/session"
	eztable "github.com/nhath/ezspanner/internal/ui/components/table"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m = m.resize()
		return m, nil

	case StateChangedMsg:
		m = m.syncState()
		return m, nil

	case NotificationMsg:
		return m.showNotice(msg.Notification)

	case ClipboardCopiedMsg:
		if msg.Err != nil {
			m.logger.Warn("clipboard write failed", zap.Error(msg.Err))
			return m.showNotice(session.ErrorNotification(session.MsgClipboardFailed, msg.Err))
		}
		return m.showNotice(session.SuccessNotification(msg.Message))

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case QueryFinishedMsg:
		if msg.Outcome.Err != nil && errors.Is(msg.Outcome.Err, session.ErrStaleExecution) {
			m.logger.Debug("stale execution result dropped")
		}
		m = m.syncState()
		return m, nil

	case spinner.TickMsg:
		if m.st.State != session.Executing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	if m.tab == TabEditor && m.focus == FocusEditor {
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if !m.popups.IsEmpty() {
		return m.handlePopupKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.popups.Push(DialogHelp)
		return m, nil
	case key.Matches(msg, m.keys.Settings):
		m.settingsIdx = 0
		m.popups.Push(DialogSettings)
		return m, nil
	case key.Matches(msg, m.keys.SwitchTab):
		return m.switchTab(), nil
	case key.Matches(msg, m.keys.Execute):
		return m.execute()
	}

	if m.tab == TabHistory {
		return m.handleHistoryKey(msg)
	}
	return m.handleEditorKey(msg)
}

func (m Model) switchTab() Model {
	if m.tab == TabEditor {
		m.tab = TabHistory
		m.editor.Blur()
		m.projectInput.Blur()
		return m
	}
	m.tab = TabEditor
	return m.setFocus(m.focus)
}

// execute asks the session to run the live query. Confirmation, when
// required, is collected by the confirm dialog.
func (m Model) execute() (tea.Model, tea.Cmd) {
	m.mgr.SetQuery(m.editor.Value())
	exec, st := m.mgr.RequestExecute()
	return m.afterRequest(exec, st)
}

// afterRequest reacts to the state an execute or rerun request reached.
func (m Model) afterRequest(exec *session.Execution, st session.State) (tea.Model, tea.Cmd) {
	m = m.syncState()
	switch {
	case st == session.AwaitingConfirmation:
		m.popups.Push(DialogConfirm)
		return m, nil
	case exec != nil:
		return m, tea.Batch(m.runCmd(exec), m.spinner.Tick)
	}
	return m, nil
}

// syncState copies the session snapshot into the model and rebuilds the
// views that depend on it.
func (m Model) syncState() Model {
	prev := m.st
	m.st = m.mgr.State()

	if !m.projectInput.Focused() && m.projectInput.Value() != m.st.Coordinates.Project {
		m.projectInput.SetValue(m.st.Coordinates.Project)
	}
	if m.editor.Value() != m.st.Query && m.st.State != session.Executing {
		m.editor.SetValue(m.st.Query)
	}
	if m.st.HistoryLen != prev.HistoryLen || m.history.Len() != m.mgr.History().Len() {
		m.history = m.history.SetEntries(m.mgr.History().All())
	}
	if m.st.HasResult && (!prev.HasResult || m.st.HistoryLen != prev.HistoryLen) {
		m.results = eztable.FromQueryResult(m.st.Result, m.resultPageSize())
	}
	if m.st.State != session.AwaitingConfirmation {
		m.popups.Remove(DialogConfirm)
	}
	return m
}

func (m Model) showNotice(n session.Notification) (tea.Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = &n
	return m, clearNoticeAfter(m.noticeSeq)
}

// resultPageSize is the number of result rows that fit under the editor.
func (m Model) resultPageSize() int {
	const chrome = 18 // header, tabs, editor, table borders, status and help
	if m.height <= chrome {
		return 5
	}
	return m.height - chrome
}

func (m Model) resize() Model {
	w := max(m.width-4, 20)
	m.editor.SetWidth(w)
	m.help.Width = m.width
	m.history = m.history.SetSize(m.width, max(m.height-6, 3))
	if m.st.HasResult {
		m.results = eztable.FromQueryResult(m.st.Result, m.resultPageSize())
	}
	return m
}
