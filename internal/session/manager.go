// Package session owns the state of one console session: the live query,
// settings, connection coordinates, results and history, and the state
// machine that governs query execution.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhath/ezspanner/internal/format"
	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/history"
)

var (
	// ErrNotAwaiting is returned by Confirm and Cancel when no execution is
	// waiting for approval.
	ErrNotAwaiting = errors.New("no execution awaiting confirmation")

	// ErrStaleExecution is returned by Run for an execution that is not the
	// one currently in flight, or that has already been run.
	ErrStaleExecution = errors.New("execution is not in flight")
)

// Execution is an approved request to run Query against Coordinates.
type Execution struct {
	ID          uint64
	Query       string
	Coordinates gateway.Coordinates
}

// Outcome is the result of running an Execution. On failure Err is a
// *gateway.GatewayError and Entry is the zero value.
type Outcome struct {
	Entry  history.Entry
	Result gateway.QueryResult
	Err    error
}

// Manager serializes every mutation of a SessionState behind one lock.
// Gateway calls are made without the lock held.
type Manager struct {
	gw       gateway.Gateway
	history  *history.Store
	logger   *zap.Logger
	notifier Notifier
	onChange func(SessionState)
	timeout  time.Duration

	mu       sync.Mutex
	st       SessionState
	seq      uint64 // last execution id handed out
	inflight uint64 // execution id allowed to run, 0 when none
	gen      uint64 // bumped on every coordinate assignment

	refreshes sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier delivers notifications to n.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithHistory uses h instead of a fresh in-memory store.
func WithHistory(h *history.Store) Option {
	return func(m *Manager) { m.history = h }
}

// WithQueryTimeout bounds every gateway call. Zero means no bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithFormatting sets the initial formatting settings.
func WithFormatting(s format.Settings) Option {
	return func(m *Manager) { m.st.Formatting = s }
}

// WithExecution sets the initial execution settings.
func WithExecution(s ExecutionSettings) Option {
	return func(m *Manager) { m.st.Execution = s }
}

// WithCoordinates sets the initial connection coordinates without
// triggering a refresh.
func WithCoordinates(c gateway.Coordinates) Option {
	return func(m *Manager) { m.st.Coordinates = c }
}

// WithOnChange registers fn to receive a snapshot after every mutation.
func WithOnChange(fn func(SessionState)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// New creates a Manager in the Idle state.
func New(gw gateway.Gateway, opts ...Option) *Manager {
	m := &Manager{
		gw:     gw,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.history == nil {
		m.history = history.NewStore(history.WithLogger(m.logger))
	}
	m.logger = m.logger.Named("session")
	m.st.State = Idle
	return m
}

// State returns a snapshot of the session.
func (m *Manager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() SessionState {
	s := m.st.clone()
	s.HistoryLen = m.history.Len()
	return s
}

// History returns the session's history store.
func (m *Manager) History() *history.Store {
	return m.history
}

// SetQuery replaces the live query buffer.
func (m *Manager) SetQuery(q string) {
	m.mu.Lock()
	m.st.Query = q
	m.mu.Unlock()
	m.publish()
}

// Format rewrites the live query with the current formatting settings and
// returns the new text.
func (m *Manager) Format() string {
	m.mu.Lock()
	m.st.Query = format.Format(m.st.Query, m.st.Formatting)
	q := m.st.Query
	m.mu.Unlock()
	m.publish()
	return q
}

// ToggleSetting sets a formatting or execution setting. It affects the next
// Format or execute request only.
func (m *Manager) ToggleSetting(name Setting, value bool) error {
	m.mu.Lock()
	err := applySetting(&m.st.Formatting, &m.st.Execution, name, value)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.logger.Debug("setting changed", zap.String("name", string(name)), zap.Bool("value", value))
	m.publish()
	return nil
}

// RequestExecute asks to execute the live query. From Idle it moves to
// AwaitingConfirmation when confirmation is required, or to Executing and
// returns the Execution the caller must pass to Run. In any other state the
// request is ignored and a nil Execution is returned.
func (m *Manager) RequestExecute() (*Execution, State) {
	m.mu.Lock()
	exec, st := m.requestLocked()
	m.mu.Unlock()
	m.publish()
	return exec, st
}

func (m *Manager) requestLocked() (*Execution, State) {
	if m.st.State != Idle {
		m.logger.Debug("execute request ignored", zap.Stringer("state", m.st.State))
		return nil, m.st.State
	}
	m.st.Pending = m.st.Query
	if RequiresConfirmation(m.st.Execution) {
		m.transitionLocked(AwaitingConfirmation)
		return nil, AwaitingConfirmation
	}
	return m.beginLocked(), Executing
}

func (m *Manager) beginLocked() *Execution {
	m.seq++
	m.inflight = m.seq
	m.transitionLocked(Executing)
	return &Execution{ID: m.seq, Query: m.st.Pending, Coordinates: m.st.Coordinates}
}

func (m *Manager) transitionLocked(to State) {
	if m.st.State == to {
		return
	}
	m.logger.Debug("state transition", zap.Stringer("from", m.st.State), zap.Stringer("to", to))
	m.st.State = to
}

// Confirm approves the pending request and moves to Executing.
func (m *Manager) Confirm() (*Execution, error) {
	m.mu.Lock()
	if m.st.State != AwaitingConfirmation {
		m.mu.Unlock()
		return nil, ErrNotAwaiting
	}
	exec := m.beginLocked()
	m.mu.Unlock()
	m.publish()
	return exec, nil
}

// Cancel declines the pending request and returns to Idle.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	if m.st.State != AwaitingConfirmation {
		m.mu.Unlock()
		return ErrNotAwaiting
	}
	m.st.Pending = ""
	m.transitionLocked(Idle)
	m.mu.Unlock()
	m.publish()
	return nil
}

// Run calls the gateway for exec and applies the outcome. On success the
// result is stored and a history entry appended; on failure an error
// notification is produced. Either way the session returns to Idle.
// Run must be called exactly once per Execution.
func (m *Manager) Run(ctx context.Context, exec *Execution) Outcome {
	m.mu.Lock()
	if exec == nil || m.st.State != Executing || m.inflight != exec.ID {
		m.mu.Unlock()
		return Outcome{Err: ErrStaleExecution}
	}
	// Claim the execution so a second Run of it is rejected.
	m.inflight = 0
	m.mu.Unlock()

	callCtx, cancel := m.withTimeout(ctx)
	res, err := m.gw.ExecuteQuery(callCtx, exec.Coordinates, exec.Query)
	cancel()

	var (
		out   Outcome
		notes []Notification
	)

	m.mu.Lock()
	if err != nil {
		out.Err = gateway.Wrap(gateway.OpExecuteQuery, err)
		m.logger.Warn("query failed", zap.Uint64("execution", exec.ID), zap.Error(out.Err))
		notes = append(notes, ErrorNotification(MsgQueryFailed, out.Err))
	} else {
		m.st.Result = res.Clone()
		m.st.HasResult = true
		out.Result = res
		out.Entry = m.history.Record(exec.Query, res)
		m.logger.Debug("query succeeded", zap.Uint64("execution", exec.ID), zap.Int("rows", res.Len()))
	}
	m.st.Pending = ""
	m.transitionLocked(Idle)
	m.mu.Unlock()

	m.publish(notes...)
	return out
}

// Execute requests execution of the live query and runs it when no
// confirmation is needed. It returns the state the request reached and, if
// the gateway was called, the outcome.
func (m *Manager) Execute(ctx context.Context) (State, *Outcome) {
	exec, st := m.RequestExecute()
	if exec == nil {
		return st, nil
	}
	out := m.Run(ctx, exec)
	return st, &out
}

// ConfirmAndRun approves the pending request and runs it.
func (m *Manager) ConfirmAndRun(ctx context.Context) (*Outcome, error) {
	exec, err := m.Confirm()
	if err != nil {
		return nil, err
	}
	out := m.Run(ctx, exec)
	return &out, nil
}

// Rerun copies the query of e into the live buffer and requests its
// execution, subject to the same confirmation rules as RequestExecute.
// Outside Idle the request is ignored and the buffer is left as is.
func (m *Manager) Rerun(e history.Entry) (*Execution, State) {
	m.mu.Lock()
	if m.st.State != Idle {
		st := m.st.State
		m.mu.Unlock()
		m.logger.Debug("rerun ignored", zap.Stringer("state", st))
		return nil, st
	}
	m.st.Query = e.Query
	exec, st := m.requestLocked()
	m.mu.Unlock()
	m.publish()
	return exec, st
}

// SetConnectionCoordinates assigns c and, in the background, refreshes the
// instance list when the project changed and the database list when the
// project or instance changed. Refresh failures produce notifications only.
// Results of a refresh started before a later assignment are discarded.
func (m *Manager) SetConnectionCoordinates(ctx context.Context, c gateway.Coordinates) {
	m.mu.Lock()
	prev := m.st.Coordinates
	m.st.Coordinates = c
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	m.publish()

	instances := c.Project != prev.Project && c.ValidateProject() == nil
	databases := (c.Project != prev.Project || c.Instance != prev.Instance) && c.ValidateInstance() == nil
	m.startRefresh(ctx, gen, c, instances, databases)
}

// Refresh reloads, in the background, the instance list when a project is
// set and the database list when an instance is set. Like a coordinate
// assignment it supersedes any refresh still in flight.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.Lock()
	c := m.st.Coordinates
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.startRefresh(ctx, gen, c, c.ValidateProject() == nil, c.ValidateInstance() == nil)
}

func (m *Manager) startRefresh(ctx context.Context, gen uint64, c gateway.Coordinates, instances, databases bool) {
	if !instances && !databases {
		return
	}
	m.refreshes.Add(1)
	go func() {
		defer m.refreshes.Done()
		m.refresh(context.WithoutCancel(ctx), gen, c, instances, databases)
	}()
}

func (m *Manager) refresh(ctx context.Context, gen uint64, c gateway.Coordinates, instances, databases bool) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var (
		g                errgroup.Group
		instList, dbList []string
		instErr, dbErr   error
	)
	if instances {
		g.Go(func() error {
			instList, instErr = m.gw.ListInstances(ctx, c.Project)
			return nil
		})
	}
	if databases {
		g.Go(func() error {
			dbList, dbErr = m.gw.ListDatabases(ctx, c.Project, c.Instance)
			return nil
		})
	}
	_ = g.Wait()

	var notes []Notification

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug("stale refresh discarded", zap.Uint64("generation", gen))
		return
	}
	if instances {
		if instErr != nil {
			err := gateway.Wrap(gateway.OpListInstances, instErr)
			m.logger.Warn("instance refresh failed", zap.Error(err))
			notes = append(notes, ErrorNotification(MsgInstancesFailed, err))
		} else {
			m.st.Instances = instList
		}
	}
	if databases {
		if dbErr != nil {
			err := gateway.Wrap(gateway.OpListDatabases, dbErr)
			m.logger.Warn("database refresh failed", zap.Error(err))
			notes = append(notes, ErrorNotification(MsgDatabasesFailed, err))
		} else {
			m.st.Databases = dbList
		}
	}
	m.mu.Unlock()

	m.publish(notes...)
}

// Wait blocks until every background refresh has finished.
func (m *Manager) Wait() {
	m.refreshes.Wait()
}

// Initialize lists the instances of the current project. A blank project
// fails without calling the gateway.
func (m *Manager) Initialize(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	c := m.st.Coordinates
	m.mu.Unlock()

	if err := c.ValidateProject(); err != nil {
		m.publish(ErrorNotification(MsgProjectRequired, nil))
		return nil, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	instances, err := m.gw.ListInstances(ctx, c.Project)
	if err != nil {
		err = gateway.Wrap(gateway.OpListInstances, err)
		m.logger.Warn("initialize failed", zap.String("project", c.Project), zap.Error(err))
		m.publish(ErrorNotification(MsgInstancesFailed, err))
		return nil, err
	}

	m.mu.Lock()
	if m.st.Coordinates.Project == c.Project {
		m.st.Instances = append([]string(nil), instances...)
	}
	m.mu.Unlock()

	m.publish(SuccessNotification(MsgInstancesLoaded))
	return instances, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// publish records notes, then delivers them and a fresh snapshot outside
// the lock.
func (m *Manager) publish(notes ...Notification) {
	m.mu.Lock()
	for i := range notes {
		n := notes[i]
		m.st.LastNotification = &n
	}
	var snap SessionState
	if m.onChange != nil {
		snap = m.stateLocked()
	}
	m.mu.Unlock()

	for _, n := range notes {
		m.logger.Debug("notification", zap.Stringer("level", n.Level), zap.String("message", n.Message))
		if m.notifier != nil {
			m.notifier.Notify(n)
		}
	}
	if m.onChange != nil {
		m.onChange(snap)
	}
}
