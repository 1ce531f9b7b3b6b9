// internal/ui/model_types.go
package ui

// Tab is the body panel on display.
type Tab int

const (
	TabEditor Tab = iota
	TabHistory
)

func (t Tab) String() string {
	if t == TabHistory {
		return "History"
	}
	return "Editor"
}

// Focus is the header field or panel receiving keys.
type Focus int

const (
	FocusEditor Focus = iota
	FocusProject
	FocusInstance
	FocusDatabase
)

// focusOrder is the order shift+tab walks through.
var focusOrder = []Focus{FocusEditor, FocusProject, FocusInstance, FocusDatabase}

func (f Focus) next() Focus {
	for i, o := range focusOrder {
		if o == f {
			return focusOrder[(i+1)%len(focusOrder)]
		}
	}
	return FocusEditor
}

// Dialog names a popup.
type Dialog string

const (
	DialogConfirm  Dialog = "confirm"
	DialogSettings Dialog = "settings"
	DialogResults  Dialog = "results"
	DialogHelp     Dialog = "help"
)
