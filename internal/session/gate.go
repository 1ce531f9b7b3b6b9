package session

// RequiresConfirmation reports whether an execute request must wait for the
// user to approve it.
func RequiresConfirmation(s ExecutionSettings) bool {
	return s.ConfirmBeforeExecute
}
