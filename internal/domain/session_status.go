package domain

// SessionStatus represents the current state of a DownloadSession.
type SessionStatus string

const (
	SessionStatusStarting    SessionStatus = "starting"
	SessionStatusDownloading SessionStatus = "downloading"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusError       SessionStatus = "error"
	SessionStatusCancelled   SessionStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusStarting, SessionStatusDownloading, SessionStatusCompleted, SessionStatusError, SessionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusError || s == SessionStatusCancelled
}

// CanTransition reports whether moving from s to next keeps the status moving forward.
// Staying in the same non-terminal status is allowed so progress fields can be updated.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case SessionStatusStarting:
		return next == SessionStatusStarting || next == SessionStatusDownloading || next.IsTerminal()
	case SessionStatusDownloading:
		return next == SessionStatusDownloading || next.IsTerminal()
	default:
		return false
	}
}
