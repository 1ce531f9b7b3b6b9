// internal/ui/model_messages.go
// Message types for the Bubble Tea Update cycle
package ui

import (
	"github.com/nhath/ezspanner/internal/session"
)

// QueryFinishedMsg is sent when an execution returns from the gateway.
type QueryFinishedMsg struct {
	Outcome session.Outcome
}

// NotificationMsg carries a notification produced by the session.
type NotificationMsg struct {
	Notification session.Notification
}

// StateChangedMsg is sent after the session state changed outside Update,
// e.g. when a background refresh finished.
type StateChangedMsg struct{}

// ClipboardCopiedMsg is sent when clipboard copy completes
type ClipboardCopiedMsg struct {
	Message string
	Err     error
}

// clearNoticeMsg hides notice seq if it is still the one shown.
type clearNoticeMsg struct {
	seq int
}
