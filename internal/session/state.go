package session

import (
	"github.com/nhath/ezspanner/internal/format"
	"github.com/nhath/ezspanner/internal/gateway"
)

// State is the position of the session in its execution state machine.
type State int

const (
	Idle State = iota
	AwaitingConfirmation
	Executing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitingConfirmation:
		return "AwaitingConfirmation"
	case Executing:
		return "Executing"
	default:
		return "Unknown"
	}
}

// SessionState is a snapshot of everything the session owns.
type SessionState struct {
	Query       string
	Result      gateway.QueryResult
	HasResult   bool
	Coordinates gateway.Coordinates
	Formatting  format.Settings
	Execution   ExecutionSettings
	State       State

	// Pending is the query text captured by the current execute request. It
	// is empty while Idle.
	Pending string

	Instances  []string
	Databases  []string
	HistoryLen int

	LastNotification *Notification
}

func (s SessionState) clone() SessionState {
	c := s
	c.Result = s.Result.Clone()
	c.Instances = append([]string(nil), s.Instances...)
	c.Databases = append([]string(nil), s.Databases...)
	if s.LastNotification != nil {
		n := *s.LastNotification
		c.LastNotification = &n
	}
	return c
}

// Setting returns the current value of a toggleable setting.
func (s SessionState) Setting(name Setting) bool {
	switch name {
	case SettingMultilineFormat:
		return s.Formatting.Multiline
	case SettingConfirmExecution:
		return s.Execution.ConfirmBeforeExecute
	default:
		return false
	}
}
