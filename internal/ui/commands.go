// internal/ui/commands.go
// tea.Cmd constructors that call into the session manager
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/ezspanner/internal/session"
)

// noticeTTL is how long a notification stays in the status bar.
const noticeTTL = 4 * time.Second

// runCmd calls the gateway for exec off the Update goroutine.
func (m Model) runCmd(exec *session.Execution) tea.Cmd {
	if exec == nil {
		return nil
	}
	ctx, mgr := m.ctx, m.mgr
	return func() tea.Msg {
		return QueryFinishedMsg{Outcome: mgr.Run(ctx, exec)}
	}
}

// initializeCmd loads the instances of the current project. The outcome
// arrives as a notification.
func (m Model) initializeCmd() tea.Cmd {
	ctx, mgr := m.ctx, m.mgr
	return func() tea.Msg {
		_, _ = mgr.Initialize(ctx)
		return StateChangedMsg{}
	}
}

// refreshCmd reloads the instance and database lists for the current
// coordinates.
func (m Model) refreshCmd() tea.Cmd {
	ctx, mgr := m.ctx, m.mgr
	return func() tea.Msg {
		mgr.Refresh(ctx)
		mgr.Wait()
		return StateChangedMsg{}
	}
}

func clearNoticeAfter(seq int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
