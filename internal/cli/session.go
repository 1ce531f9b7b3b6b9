package cli

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/backend"
	"github.com/nhath/ezspanner/internal/format"
	"github.com/nhath/ezspanner/internal/history"
	"github.com/nhath/ezspanner/internal/session"
)

// openHistory returns the history store for the session. With persistence
// on, the journal is replayed into it and every new entry is journaled.
func (e *env) openHistory() (*history.Store, func() error, error) {
	if !e.cfg.History.Persist {
		return history.NewStore(history.WithLogger(e.logger)), func() error { return nil }, nil
	}
	store, journal, err := history.Load(e.cfg.History.Path, history.WithLogger(e.logger))
	if err != nil {
		return nil, nil, fmt.Errorf("open history journal: %w", err)
	}
	e.logger.Debug("history loaded", zap.Int("entries", store.Len()))
	return store, journal.Close, nil
}

// openSession opens the configured backend and history and builds a session
// manager over them. The returned func releases both.
func (e *env) openSession(opts ...session.Option) (*session.Manager, func() error, error) {
	b, err := backend.Open(e.cfg, e.logger)
	if err != nil {
		return nil, nil, err
	}
	store, closeHistory, err := e.openHistory()
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}

	base := []session.Option{
		session.WithLogger(e.logger),
		session.WithHistory(store),
		session.WithQueryTimeout(e.cfg.QueryTimeout.Duration),
		session.WithFormatting(format.Settings{Multiline: e.cfg.MultilineFormat}),
		session.WithExecution(session.ExecutionSettings{ConfirmBeforeExecute: e.cfg.ConfirmExecution}),
		session.WithCoordinates(e.cfg.Connection),
	}
	mgr := session.New(b, append(base, opts...)...)

	closeFn := func() error {
		mgr.Wait()
		return errors.Join(closeHistory(), b.Close())
	}
	return mgr, closeFn, nil
}

// openBackend opens the configured gateway for commands that do not need a
// session.
func (e *env) openBackend() (*backend.Backend, error) {
	return backend.Open(e.cfg, e.logger)
}
