// internal/ui/model.go
// Root Model struct, constructor, and Init
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	bbtable "github.com/evertras/bubble-table/table"
	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/config"
	"github.com/nhath/ezspanner/internal/history"
	"github.com/nhath/ezspanner/internal/session"
	"github.com/nhath/ezspanner/internal/ui/components/historylist"
	eztable "github.com/nhath/ezspanner/internal/ui/components/table"
	"github.com/nhath/ezspanner/internal/ui/highlight"
)

// Model is the root Bubble Tea model. The session manager owns all session
// state; the model keeps the last snapshot for rendering plus view-only state.
type Model struct {
	ctx    context.Context
	config *config.Config
	mgr    *session.Manager
	logger *zap.Logger
	keys   keyMap

	width, height int
	tab           Tab
	focus         Focus

	// Session snapshot
	st session.SessionState

	// Components
	projectInput textinput.Model
	editor       textarea.Model
	spinner      spinner.Model
	help         help.Model
	results      bbtable.Model
	history      historylist.Model

	// Popups
	popups      *PopupStack
	settingsIdx int
	popupEntry  *history.Entry
	popupTable  bbtable.Model

	// Notice shown in the status bar
	notice    *session.Notification
	noticeSeq int
}

// NewModel creates the console model over mgr.
func NewModel(ctx context.Context, cfg *config.Config, mgr *session.Manager, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	InitStyles(cfg.Theme)
	eztable.Init(cfg.Theme)

	st := mgr.State()

	ti := textarea.New()
	ti.Placeholder = "Enter SQL query (Ctrl+D to execute, Ctrl+F to format)..."
	ti.CharLimit = 0
	ti.SetHeight(8)
	ti.SetWidth(80)
	ti.ShowLineNumbers = true
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(TextFaint())
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(TextFaint())
	ti.SetValue(st.Query)
	ti.Focus()

	pi := textinput.New()
	pi.Prompt = ""
	pi.Placeholder = "project-id"
	pi.CharLimit = 64
	pi.Width = 24
	pi.SetValue(st.Coordinates.Project)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor())

	hl := historylist.New().
		SetHighlightFunc(highlight.SQL).
		SetStyles(historylist.Styles{
			Item:        lipgloss.NewStyle().PaddingLeft(1),
			Selected:    lipgloss.NewStyle().PaddingLeft(1).Background(CardBg()),
			Prompt:      lipgloss.NewStyle().Foreground(SuccessColor()).Bold(true),
			Meta:        lipgloss.NewStyle().Foreground(TextFaint()),
			SuccessIcon: lipgloss.NewStyle().Foreground(SuccessColor()),
			Faint:       lipgloss.NewStyle().Foreground(TextFaint()),
		}).
		SetEntries(mgr.History().All())

	m := Model{
		ctx:          ctx,
		config:       cfg,
		mgr:          mgr,
		logger:       logger.Named("ui"),
		keys:         newKeyMap(cfg.Keys),
		st:           st,
		projectInput: pi,
		editor:       ti,
		spinner:      sp,
		help:         help.New(),
		history:      hl,
		popups:       NewPopupStack(),
	}
	if st.HasResult {
		m.results = eztable.FromQueryResult(st.Result, m.resultPageSize())
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	switch {
	case m.st.Coordinates.Instance != "":
		cmds = append(cmds, m.refreshCmd())
	case m.st.Coordinates.Project != "":
		cmds = append(cmds, m.initializeCmd())
	}
	return tea.Batch(cmds...)
}
