package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/nhath/ezspanner/internal/format"
	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/history"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGateway records calls and returns canned answers. When block is set,
// ExecuteQuery signals started and waits for block to be closed.
type fakeGateway struct {
	mu        sync.Mutex
	queries   []string
	listCalls int

	instances []string
	databases map[string][]string
	result    gateway.QueryResult
	execErr   error
	listErr   error

	block   chan struct{}
	started chan struct{}
	dbGates map[string]chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		instances: []string{"inst-a", "inst-b"},
		databases: map[string][]string{
			"inst-a": {"db-1", "db-2"},
			"inst-b": {"db-3"},
		},
		result: gateway.QueryResult{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}},
	}
}

func (f *fakeGateway) ListInstances(ctx context.Context, projectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.instances...), nil
}

func (f *fakeGateway) ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error) {
	f.mu.Lock()
	gate := f.dbGates[instanceID]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.databases[instanceID]...), nil
}

func (f *fakeGateway) ExecuteQuery(ctx context.Context, c gateway.Coordinates, query string) (gateway.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return gateway.QueryResult{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return gateway.QueryResult{}, f.execErr
	}
	return f.result.Clone(), nil
}

func (f *fakeGateway) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type recorder struct {
	mu     sync.Mutex
	states []State
	notes  []Notification
}

func (r *recorder) onChange(s SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.states); n == 0 || r.states[n-1] != s.State {
		r.states = append(r.states, s.State)
	}
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) transitions() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

var testCoords = gateway.Coordinates{Project: "p", Instance: "inst-a", Database: "db-1"}

func newManager(t *testing.T, gw gateway.Gateway, confirm bool, opts ...Option) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{states: []State{Idle}}
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithNotifier(rec),
		WithOnChange(rec.onChange),
		WithExecution(ExecutionSettings{ConfirmBeforeExecute: confirm}),
		WithFormatting(format.Settings{Multiline: true}),
		WithCoordinates(testCoords),
	}
	return New(gw, append(base, opts...)...), rec
}

func TestRequiresConfirmation(t *testing.T) {
	assert.True(t, RequiresConfirmation(ExecutionSettings{ConfirmBeforeExecute: true}))
	assert.False(t, RequiresConfirmation(ExecutionSettings{}))
}

func TestRequestExecute_ConfirmationGating(t *testing.T) {
	t.Run("confirm on", func(t *testing.T) {
		gw := newFakeGateway()
		m, _ := newManager(t, gw, true)
		m.SetQuery("SELECT 1")

		exec, st := m.RequestExecute()
		assert.Nil(t, exec)
		assert.Equal(t, AwaitingConfirmation, st)
		assert.Equal(t, AwaitingConfirmation, m.State().State)
		assert.Equal(t, "SELECT 1", m.State().Pending)
		assert.Zero(t, gw.queryCount())
	})

	t.Run("confirm off", func(t *testing.T) {
		gw := newFakeGateway()
		m, _ := newManager(t, gw, false)
		m.SetQuery("SELECT 1")

		exec, st := m.RequestExecute()
		require.NotNil(t, exec)
		assert.Equal(t, Executing, st)
		assert.Equal(t, "SELECT 1", exec.Query)
		assert.Equal(t, testCoords, exec.Coordinates)
	})
}

func TestExecute_SuccessWithoutConfirmation(t *testing.T) {
	gw := newFakeGateway()
	m, rec := newManager(t, gw, false)
	m.SetQuery("select n from t")

	st, out := m.Execute(context.Background())
	require.NotNil(t, out)
	require.NoError(t, out.Err)
	assert.Equal(t, Executing, st)

	assert.Equal(t, []State{Idle, Executing, Idle}, rec.transitions())
	assert.Equal(t, 1, m.History().Len())

	s := m.State()
	assert.Equal(t, Idle, s.State)
	assert.True(t, s.HasResult)
	assert.Equal(t, gw.result, s.Result)
	assert.Empty(t, s.Pending)
	assert.Equal(t, 1, s.HistoryLen)
	assert.Equal(t, "select n from t", out.Entry.Query)
}

func TestExecute_CancelConfirmation(t *testing.T) {
	gw := newFakeGateway()
	m, rec := newManager(t, gw, true)
	m.SetQuery("DELETE FROM t")

	st, out := m.Execute(context.Background())
	assert.Equal(t, AwaitingConfirmation, st)
	assert.Nil(t, out)

	require.NoError(t, m.Cancel())

	assert.Equal(t, []State{Idle, AwaitingConfirmation, Idle}, rec.transitions())
	assert.Zero(t, m.History().Len())
	assert.Zero(t, gw.queryCount())
	assert.Empty(t, m.State().Pending)
}

func TestConfirmAndRun(t *testing.T) {
	gw := newFakeGateway()
	m, rec := newManager(t, gw, true)
	m.SetQuery("SELECT 1")
	m.RequestExecute()

	// Edits made while the dialog is open do not change what runs.
	m.SetQuery("SELECT 2")

	out, err := m.ConfirmAndRun(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Err)

	assert.Equal(t, []State{Idle, AwaitingConfirmation, Executing, Idle}, rec.transitions())
	assert.Equal(t, "SELECT 1", out.Entry.Query)
	assert.Equal(t, "SELECT 2", m.State().Query)
}

func TestConfirmCancel_NotAwaiting(t *testing.T) {
	m, _ := newManager(t, newFakeGateway(), false)

	_, err := m.Confirm()
	assert.ErrorIs(t, err, ErrNotAwaiting)
	assert.ErrorIs(t, m.Cancel(), ErrNotAwaiting)
	assert.Equal(t, Idle, m.State().State)
}

func TestExecute_FailureLeavesHistoryUnchanged(t *testing.T) {
	gw := newFakeGateway()
	gw.execErr = errors.New("permission denied")
	m, rec := newManager(t, gw, false)
	m.SetQuery("SELECT secret FROM vault")

	_, out := m.Execute(context.Background())
	require.NotNil(t, out)
	require.Error(t, out.Err)

	var gerr *gateway.GatewayError
	require.ErrorAs(t, out.Err, &gerr)
	assert.Equal(t, gateway.OpExecuteQuery, gerr.Op)

	s := m.State()
	assert.Equal(t, Idle, s.State)
	assert.Zero(t, m.History().Len())
	assert.False(t, s.HasResult)

	notes := rec.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, LevelError, notes[0].Level)
	assert.Equal(t, MsgQueryFailed, notes[0].Message)
	assert.Contains(t, notes[0].Detail, "permission denied")
	require.NotNil(t, s.LastNotification)
	assert.Equal(t, MsgQueryFailed, s.LastNotification.Message)
}

func TestExecute_FailureKeepsPreviousResult(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newManager(t, gw, false)
	m.SetQuery("SELECT 1")
	m.Execute(context.Background())

	gw.mu.Lock()
	gw.execErr = errors.New("boom")
	gw.mu.Unlock()
	m.Execute(context.Background())

	s := m.State()
	assert.True(t, s.HasResult)
	assert.Equal(t, gw.result, s.Result)
	assert.Equal(t, 1, s.HistoryLen)
}

func TestHistoryIntegrity(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newManager(t, gw, false)

	submitted := make([]string, 5)
	for i := range submitted {
		q := fmt.Sprintf("SELECT %d FROM t", i)
		submitted[i] = q
		m.SetQuery(q)
		_, out := m.Execute(context.Background())
		require.NoError(t, out.Err)
		m.SetQuery(q + " -- edited")
	}

	all := m.History().All()
	require.Len(t, all, len(submitted))
	for i, e := range all {
		assert.Equal(t, submitted[i], e.Query)
		if i > 0 {
			assert.True(t, e.ExecutedAt.After(all[i-1].ExecutedAt))
		}
	}
}

func TestReentrancyGuard(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	gw.started = make(chan struct{}, 1)
	m, _ := newManager(t, gw, false)
	m.SetQuery("SELECT 1")

	exec, st := m.RequestExecute()
	require.NotNil(t, exec)
	require.Equal(t, Executing, st)

	done := make(chan Outcome, 1)
	go func() { done <- m.Run(context.Background(), exec) }()
	<-gw.started

	again, st := m.RequestExecute()
	assert.Nil(t, again)
	assert.Equal(t, Executing, st)

	rerun, st := m.Rerun(history.Entry{Query: "SELECT 2"})
	assert.Nil(t, rerun)
	assert.Equal(t, Executing, st)

	stale := m.Run(context.Background(), exec)
	assert.ErrorIs(t, stale.Err, ErrStaleExecution)

	close(gw.block)
	out := <-done
	require.NoError(t, out.Err)

	assert.Equal(t, 1, m.History().Len())
	assert.Equal(t, 1, gw.queryCount())
	assert.Equal(t, Idle, m.State().State)
}

func TestRerun_IgnoredKeepsBuffer(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	gw.started = make(chan struct{}, 1)
	m, _ := newManager(t, gw, false)
	m.SetQuery("SELECT 1")

	exec, _ := m.RequestExecute()
	require.NotNil(t, exec)
	done := make(chan Outcome, 1)
	go func() { done <- m.Run(context.Background(), exec) }()
	<-gw.started

	m.SetQuery("SELECT 1 -- still editing")
	rerun, st := m.Rerun(history.Entry{Query: "SELECT 2"})
	assert.Nil(t, rerun)
	assert.Equal(t, Executing, st)
	assert.Equal(t, "SELECT 1 -- still editing", m.State().Query)

	close(gw.block)
	require.NoError(t, (<-done).Err)
	assert.Equal(t, "SELECT 1 -- still editing", m.State().Query)
}

func TestRerun_AwaitingKeepsBufferAndPending(t *testing.T) {
	m, _ := newManager(t, newFakeGateway(), true)
	m.SetQuery("DELETE FROM t")

	_, st := m.RequestExecute()
	require.Equal(t, AwaitingConfirmation, st)

	rerun, st := m.Rerun(history.Entry{Query: "SELECT 2"})
	assert.Nil(t, rerun)
	assert.Equal(t, AwaitingConfirmation, st)

	s := m.State()
	assert.Equal(t, "DELETE FROM t", s.Query)
	assert.Equal(t, "DELETE FROM t", s.Pending)
	require.NoError(t, m.Cancel())
}

func TestRun_RejectsUnknownExecution(t *testing.T) {
	m, _ := newManager(t, newFakeGateway(), false)
	out := m.Run(context.Background(), &Execution{ID: 42})
	assert.ErrorIs(t, out.Err, ErrStaleExecution)
	out = m.Run(context.Background(), nil)
	assert.ErrorIs(t, out.Err, ErrStaleExecution)
}

func TestRerun(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newManager(t, gw, false)
	m.SetQuery("SELECT 7")
	_, first := m.Execute(context.Background())
	require.NoError(t, first.Err)

	m.SetQuery("something else")
	exec, st := m.Rerun(first.Entry)
	require.NotNil(t, exec)
	assert.Equal(t, Executing, st)
	assert.Equal(t, "SELECT 7", m.State().Query)

	second := m.Run(context.Background(), exec)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Entry.Query, second.Entry.Query)
	assert.NotEqual(t, first.Entry.ID, second.Entry.ID)
	assert.True(t, second.Entry.ExecutedAt.After(first.Entry.ExecutedAt))
	assert.Equal(t, 2, m.History().Len())
}

func TestRerun_SubjectToConfirmation(t *testing.T) {
	m, _ := newManager(t, newFakeGateway(), true)
	exec, st := m.Rerun(history.Entry{Query: "DROP TABLE t"})
	assert.Nil(t, exec)
	assert.Equal(t, AwaitingConfirmation, st)
	assert.Equal(t, "DROP TABLE t", m.State().Pending)
}

func TestFormatAndToggleSetting(t *testing.T) {
	m, _ := newManager(t, newFakeGateway(), false)
	m.SetQuery("select * from foo where id=1")

	assert.Equal(t, "SELECT *\nFROM foo\nWHERE id=1", m.Format())

	require.NoError(t, m.ToggleSetting(SettingMultilineFormat, false))
	// Already formatted text is not rewritten when the setting changes.
	assert.Equal(t, "SELECT *\nFROM foo\nWHERE id=1", m.State().Query)
	assert.Equal(t, "SELECT * FROM foo WHERE id=1", m.Format())

	require.NoError(t, m.ToggleSetting(SettingConfirmExecution, true))
	_, st := m.RequestExecute()
	assert.Equal(t, AwaitingConfirmation, st)

	assert.ErrorIs(t, m.ToggleSetting("bogus", true), ErrUnknownSetting)
}

func TestParseSetting(t *testing.T) {
	s, err := ParseSetting("confirm_execution")
	require.NoError(t, err)
	assert.Equal(t, SettingConfirmExecution, s)

	_, err = ParseSetting("nope")
	assert.ErrorIs(t, err, ErrUnknownSetting)
}

func TestSetConnectionCoordinates_Refresh(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newManager(t, gw, false, WithCoordinates(gateway.Coordinates{}))

	m.SetConnectionCoordinates(context.Background(), gateway.Coordinates{Project: "p", Instance: "inst-a"})
	m.Wait()

	s := m.State()
	assert.Equal(t, "inst-a", s.Coordinates.Instance)
	assert.Equal(t, []string{"inst-a", "inst-b"}, s.Instances)
	assert.Equal(t, []string{"db-1", "db-2"}, s.Databases)

	m.SetConnectionCoordinates(context.Background(), gateway.Coordinates{Project: "p", Instance: "inst-b"})
	m.Wait()
	assert.Equal(t, []string{"db-3"}, m.State().Databases)
}

func TestSetConnectionCoordinates_DatabaseOnlyNoRefresh(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newManager(t, gw, false)

	m.SetConnectionCoordinates(context.Background(), gateway.Coordinates{Project: "p", Instance: "inst-a", Database: "db-2"})
	m.Wait()

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Zero(t, gw.listCalls)
}

func TestSetConnectionCoordinates_FailureNotifies(t *testing.T) {
	gw := newFakeGateway()
	m, rec := newManager(t, gw, false, WithCoordinates(gateway.Coordinates{}))

	m.SetConnectionCoordinates(context.Background(), gateway.Coordinates{Project: "p", Instance: "inst-a"})
	m.Wait()

	gw.mu.Lock()
	gw.listErr = errors.New("unavailable")
	gw.mu.Unlock()

	m.SetConnectionCoordinates(context.Background(), gateway.Coordinates{Project: "q", Instance: "inst-b"})
	m.Wait()

	s := m.State()
	assert.Equal(t, Idle, s.State)
	assert.Equal(t, []string{"inst-a", "inst-b"}, s.Instances)
	assert.Equal(t, []string{"db-1", "db-2"}, s.Databases)

	var msgs []string
	for _, n := range rec.notifications() {
		assert.Equal(t, LevelError, n.Level)
		msgs = append(msgs, n.Message)
	}
	assert.ElementsMatch(t, []string{MsgInstancesFailed, MsgDatabasesFailed}, msgs)
}

func TestSetConnectionCoordinates_StaleRefreshDiscarded(t *testing.T) {
	gw := newFakeGateway()
	slow := make(chan struct{})
	gw.dbGates = map[string]chan struct{}{"inst-a": slow}
	m, _ := newManager(t, gw, false, WithCoordinates(gateway.Coordinates{Project: "p"}))

	m.SetConnectionCoordinates(context.Background(), gateway.Coordinates{Project: "p", Instance: "inst-a"})
	m.SetConnectionCoordinates(context.Background(), gateway.Coordinates{Project: "p", Instance: "inst-b"})

	require.Eventually(t, func() bool {
		return len(m.State().Databases) == 1
	}, time.Second, 5*time.Millisecond)

	close(slow)
	m.Wait()
	assert.Equal(t, []string{"db-3"}, m.State().Databases)
}

func TestInitialize(t *testing.T) {
	t.Run("blank project", func(t *testing.T) {
		gw := newFakeGateway()
		m, rec := newManager(t, gw, false, WithCoordinates(gateway.Coordinates{}))

		_, err := m.Initialize(context.Background())
		assert.ErrorIs(t, err, gateway.ErrInvalidCoordinates)
		assert.Zero(t, gw.listCalls)

		notes := rec.notifications()
		require.Len(t, notes, 1)
		assert.Equal(t, MsgProjectRequired, notes[0].Message)
	})

	t.Run("success", func(t *testing.T) {
		gw := newFakeGateway()
		m, rec := newManager(t, gw, false)

		got, err := m.Initialize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, gw.instances, got)
		assert.Equal(t, gw.instances, m.State().Instances)

		notes := rec.notifications()
		require.Len(t, notes, 1)
		assert.Equal(t, LevelSuccess, notes[0].Level)
		assert.Equal(t, MsgInstancesLoaded, notes[0].Message)
	})

	t.Run("gateway failure", func(t *testing.T) {
		gw := newFakeGateway()
		gw.listErr = errors.New("unauthenticated")
		m, rec := newManager(t, gw, false)

		_, err := m.Initialize(context.Background())
		assert.True(t, gateway.IsGatewayError(err))
		assert.Equal(t, MsgInstancesFailed, rec.notifications()[0].Message)
	})
}

func TestQueryTimeout(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	defer close(gw.block)
	m, _ := newManager(t, gw, false, WithQueryTimeout(20*time.Millisecond))
	m.SetQuery("SELECT SLEEP(10)")

	_, out := m.Execute(context.Background())
	require.NotNil(t, out)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Equal(t, Idle, m.State().State)
	assert.Zero(t, m.History().Len())
}

func TestWithHistory_SharedStore(t *testing.T) {
	store := history.NewStore()
	store.Append(history.Entry{ID: "old", Query: "SELECT 0"})
	m, _ := newManager(t, newFakeGateway(), false, WithHistory(store))
	m.SetQuery("SELECT 1")
	m.Execute(context.Background())

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, m.State().HistoryLen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "AwaitingConfirmation", AwaitingConfirmation.String())
	assert.Equal(t, "Executing", Executing.String())
	assert.Equal(t, "Unknown", State(9).String())
}

func TestRefresh_ReloadsBothLists(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newManager(t, gw, false)

	m.Refresh(context.Background())
	m.Wait()

	s := m.State()
	assert.Equal(t, []string{"inst-a", "inst-b"}, s.Instances)
	assert.Equal(t, []string{"db-1", "db-2"}, s.Databases)
	assert.Equal(t, testCoords, s.Coordinates)
}

func TestRefresh_NoProjectIsNoop(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newManager(t, gw, false, WithCoordinates(gateway.Coordinates{}))

	m.Refresh(context.Background())
	m.Wait()

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Zero(t, gw.listCalls)
}

func TestSessionState_Setting(t *testing.T) {
	m, _ := newManager(t, newFakeGateway(), true)

	s := m.State()
	assert.True(t, s.Setting(SettingMultilineFormat))
	assert.True(t, s.Setting(SettingConfirmExecution))
	assert.False(t, s.Setting(Setting("nope")))

	require.NoError(t, m.ToggleSetting(SettingConfirmExecution, false))
	assert.False(t, m.State().Setting(SettingConfirmExecution))
}
