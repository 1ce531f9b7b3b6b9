package ui

// PopupStack tracks open dialogs so that Esc closes the topmost one first.
type PopupStack struct {
	dialogs []Dialog
}

// NewPopupStack creates a new popup stack
func NewPopupStack() *PopupStack {
	return &PopupStack{}
}

// Push opens d on top. A dialog already open is moved to the top.
func (s *PopupStack) Push(d Dialog) {
	s.Remove(d)
	s.dialogs = append(s.dialogs, d)
}

// Pop removes and returns the topmost dialog, or "" when none is open.
func (s *PopupStack) Pop() Dialog {
	if len(s.dialogs) == 0 {
		return ""
	}
	d := s.dialogs[len(s.dialogs)-1]
	s.dialogs = s.dialogs[:len(s.dialogs)-1]
	return d
}

// Top returns the topmost dialog without removing it.
func (s *PopupStack) Top() Dialog {
	if len(s.dialogs) == 0 {
		return ""
	}
	return s.dialogs[len(s.dialogs)-1]
}

// Remove closes d wherever it is in the stack.
func (s *PopupStack) Remove(d Dialog) {
	for i, o := range s.dialogs {
		if o == d {
			s.dialogs = append(s.dialogs[:i], s.dialogs[i+1:]...)
			return
		}
	}
}

// Has reports whether d is open.
func (s *PopupStack) Has(d Dialog) bool {
	for _, o := range s.dialogs {
		if o == d {
			return true
		}
	}
	return false
}

// IsEmpty returns true if no popups are open
func (s *PopupStack) IsEmpty() bool {
	return len(s.dialogs) == 0
}

// Len returns the number of open popups
func (s *PopupStack) Len() int {
	return len(s.dialogs)
}
