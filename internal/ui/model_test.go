package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhath/ezspanner/internal/config"
	"github.com/nhath/ezspanner/internal/format"
	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/session"
)

type stubGateway struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (g *stubGateway) ListInstances(ctx context.Context, projectID string) ([]string, error) {
	return []string{"inst-a", "inst-b"}, nil
}

func (g *stubGateway) ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error) {
	return []string{instanceID + "-db"}, nil
}

func (g *stubGateway) ExecuteQuery(ctx context.Context, c gateway.Coordinates, query string) (gateway.QueryResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, query)
	if g.err != nil {
		return gateway.QueryResult{}, g.err
	}
	return gateway.QueryResult{Columns: []string{"n"}, Rows: [][]any{{int64(1)}, {int64(2)}}}, nil
}

func (g *stubGateway) executed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.queries...)
}

var coords = gateway.Coordinates{Project: "p", Instance: "inst-a", Database: "db"}

func newTestModel(t *testing.T, confirm bool) (Model, *stubGateway) {
	t.Helper()
	gw := &stubGateway{}
	logger := zaptest.NewLogger(t)
	mgr := session.New(gw,
		session.WithLogger(logger),
		session.WithCoordinates(coords),
		session.WithFormatting(format.Settings{Multiline: true}),
		session.WithExecution(session.ExecutionSettings{ConfirmBeforeExecute: confirm}),
	)
	m := NewModel(context.Background(), config.DefaultConfig(), mgr, logger)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), gw
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and every command it batches, feeding the resulting
// QueryFinishedMsg back into the model.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case QueryFinishedMsg:
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestExecute_WithoutConfirmation(t *testing.T) {
	m, gw := newTestModel(t, false)
	m.editor.SetValue("SELECT 1")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	require.NotNil(t, cmd)
	assert.Equal(t, session.Executing, m.st.State)
	assert.True(t, m.popups.IsEmpty())

	m = drain(t, m, cmd)
	assert.Equal(t, []string{"SELECT 1"}, gw.executed())
	assert.Equal(t, session.Idle, m.st.State)
	assert.True(t, m.st.HasResult)
	assert.Equal(t, 1, m.history.Len())
	assert.Contains(t, m.View(), "2 rows returned")
}

func TestExecute_ConfirmDialog(t *testing.T) {
	m, gw := newTestModel(t, true)
	m.editor.SetValue("DELETE FROM t")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Nil(t, cmd)
	assert.Equal(t, DialogConfirm, m.popups.Top())
	assert.Equal(t, session.AwaitingConfirmation, m.st.State)
	assert.Contains(t, m.View(), "Confirm execution")

	// A second request while waiting is ignored.
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Nil(t, cmd)

	m, cmd = press(t, m, runes("y"))
	require.NotNil(t, cmd)
	assert.False(t, m.popups.Has(DialogConfirm))
	assert.Equal(t, session.Executing, m.st.State)

	m = drain(t, m, cmd)
	assert.Equal(t, []string{"DELETE FROM t"}, gw.executed())
	assert.Equal(t, session.Idle, m.st.State)
}

func TestExecute_CancelDialog(t *testing.T) {
	m, gw := newTestModel(t, true)
	m.editor.SetValue("DELETE FROM t")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.True(t, m.popups.IsEmpty())
	assert.Equal(t, session.Idle, m.st.State)
	assert.Empty(t, gw.executed())
	assert.Equal(t, "DELETE FROM t", m.editor.Value())
}

func TestSettingsDialog_Toggle(t *testing.T) {
	m, _ := newTestModel(t, true)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, DialogSettings, m.popups.Top())

	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 1, m.settingsIdx)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	assert.False(t, m.mgr.State().Execution.ConfirmBeforeExecute)
	assert.True(t, m.mgr.State().Formatting.Multiline)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.popups.IsEmpty())
}

func TestFormatKey(t *testing.T) {
	m, _ := newTestModel(t, false)
	m.editor.SetValue("select a from t")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlF})
	want := format.Format("select a from t", format.Settings{Multiline: true})
	assert.Equal(t, want, m.editor.Value())
	assert.Equal(t, want, m.mgr.State().Query)
}

func TestHistory_Rerun(t *testing.T) {
	m, gw := newTestModel(t, false)
	m.editor.SetValue("SELECT 1")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m = drain(t, m, cmd)

	m.editor.SetValue("SELECT 2")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, TabHistory, m.tab)

	m, cmd = press(t, m, runes("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, TabEditor, m.tab)
	assert.Equal(t, "SELECT 1", m.editor.Value())

	m = drain(t, m, cmd)
	assert.Equal(t, []string{"SELECT 1", "SELECT 1"}, gw.executed())
	assert.Equal(t, 2, m.history.Len())
}

func TestHistory_ViewResults(t *testing.T) {
	m, _ := newTestModel(t, false)
	m.editor.SetValue("SELECT 1")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m = drain(t, m, cmd)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, DialogResults, m.popups.Top())
	require.NotNil(t, m.popupEntry)
	assert.Contains(t, m.View(), "2 rows returned")

	m, _ = press(t, m, runes("q"))
	assert.True(t, m.popups.IsEmpty())
	assert.Nil(t, m.popupEntry)
}

func TestCopyQuery(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { writeClipboard = orig })

	m, _ := newTestModel(t, false)
	m.editor.SetValue("SELECT 1")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, ClipboardCopiedMsg{Message: session.MsgQueryCopied}, msg)
	assert.Equal(t, "SELECT 1", copied)

	next, _ := m.Update(msg)
	m = next.(Model)
	require.NotNil(t, m.notice)
	assert.Equal(t, session.LevelSuccess, m.notice.Level)
}

func TestCopyFailureNotifies(t *testing.T) {
	orig := writeClipboard
	writeClipboard = func(string) error { return errors.New("no clipboard") }
	t.Cleanup(func() { writeClipboard = orig })

	m, _ := newTestModel(t, false)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	require.NotNil(t, m.notice)
	assert.Equal(t, session.LevelError, m.notice.Level)
	assert.Equal(t, session.MsgClipboardFailed, m.notice.Message)
	assert.False(t, m.mgr.State().HasResult)
}

func TestNoticeClearsOnlyCurrent(t *testing.T) {
	m, _ := newTestModel(t, false)

	next, _ := m.Update(NotificationMsg{Notification: session.SuccessNotification("first")})
	next, _ = next.Update(NotificationMsg{Notification: session.SuccessNotification("second")})
	next, _ = next.Update(clearNoticeMsg{seq: 1})
	m = next.(Model)
	require.NotNil(t, m.notice)
	assert.Equal(t, "second", m.notice.Message)

	next, _ = m.Update(clearNoticeMsg{seq: 2})
	assert.Nil(t, next.(Model).notice)
}

func TestPickers(t *testing.T) {
	m, _ := newTestModel(t, false)
	m.mgr.Refresh(context.Background())
	m.mgr.Wait()
	next, _ := m.Update(StateChangedMsg{})
	m = next.(Model)
	require.Equal(t, []string{"inst-a", "inst-b"}, m.st.Instances)

	m = m.setFocus(FocusInstance)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m.mgr.Wait()

	st := m.mgr.State()
	assert.Equal(t, "inst-b", st.Coordinates.Instance)
	assert.Empty(t, st.Coordinates.Database)
	assert.Equal(t, []string{"inst-b-db"}, st.Databases)

	next, _ = m.Update(StateChangedMsg{})
	m = next.(Model).setFocus(FocusDatabase)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "inst-b-db", m.mgr.State().Coordinates.Database)
}

func TestProjectEnterWithoutProject(t *testing.T) {
	m, _ := newTestModel(t, false)
	m = m.setFocus(FocusProject)
	m.projectInput.SetValue("")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m.mgr.Wait()
	require.NotNil(t, cmd)
	assert.Equal(t, StateChangedMsg{}, cmd())

	n := m.mgr.State().LastNotification
	require.NotNil(t, n)
	assert.Equal(t, session.MsgProjectRequired, n.Message)
}

func TestCycle(t *testing.T) {
	vals := []string{"a", "b", "c"}
	tests := []struct {
		current string
		step    int
		want    string
	}{
		{"a", 1, "b"},
		{"c", 1, "a"},
		{"a", -1, "c"},
		{"", 1, "a"},
		{"", -1, "c"},
		{"zz", 1, "a"},
	}
	for _, tt := range tests {
		got, ok := cycle(vals, tt.current, tt.step)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "%q%+d", tt.current, tt.step)
	}
	_, ok := cycle(nil, "", 1)
	assert.False(t, ok)
}

func TestViewBeforeResize(t *testing.T) {
	gw := &stubGateway{}
	mgr := session.New(gw)
	m := NewModel(context.Background(), config.DefaultConfig(), mgr, nil)
	assert.Equal(t, "Loading...", m.View())
}

func TestHelpPopup(t *testing.T) {
	m, _ := newTestModel(t, false)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF1})
	require.Equal(t, DialogHelp, m.popups.Top())
	assert.True(t, strings.Contains(m.View(), "Keys"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.popups.IsEmpty())
}
