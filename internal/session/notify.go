package session

import "time"

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a user-visible message produced by the session.
type Notification struct {
	Level   Level
	Title   string
	Message string
	Detail  string
	At      time.Time
}

// Notifier receives notifications. Notify is never called with the session
// lock held.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// User-facing messages.
const (
	MsgProjectRequired = "Please enter a Project ID."
	MsgInstancesLoaded = "Spanner instances initialized successfully."
	MsgInstancesFailed = "Failed to fetch instances. Please try again."
	MsgDatabasesFailed = "Failed to fetch databases. Please try again."
	MsgQueryFailed     = "Failed to execute query. Please try again."
	MsgQueryCopied     = "Query copied to clipboard"
	MsgResultsCopied   = "Results copied to clipboard"
	MsgClipboardFailed = "Failed to copy to clipboard. Please try again."
)

// ErrorNotification builds an error notification. The error text, if any,
// becomes the detail line.
func ErrorNotification(msg string, err error) Notification {
	n := Notification{Level: LevelError, Title: "Error", Message: msg, At: time.Now()}
	if err != nil {
		n.Detail = err.Error()
	}
	return n
}

// SuccessNotification builds a success notification.
func SuccessNotification(msg string) Notification {
	return Notification{Level: LevelSuccess, Title: "Success", Message: msg, At: time.Now()}
}
