package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/ezspanner/internal/session"
	"github.com/nhath/ezspanner/internal/ui"
)

// runConsole starts the interactive console and blocks until it exits.
func runConsole(ctx context.Context, e *env) error {
	if e == nil {
		return errors.New("console started without a config")
	}

	bridge := ui.NewBridge()
	mgr, closeSession, err := e.openSession(
		session.WithNotifier(bridge),
		session.WithOnChange(bridge.Changed),
	)
	if err != nil {
		return err
	}
	defer func() { _ = closeSession() }()

	model := ui.NewModel(ctx, e.cfg, mgr, e.logger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)
	defer bridge.Detach()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
