package session

import "errors"

// State of a scan session.
type State string

const (
	StateIdle       State = "idle"
	StatePreviewing State = "previewing"
	StateAnalyzing  State = "analyzing"
	StateDisplaying State = "displaying"
	StateSaving     State = "saving"
	StateSaved      State = "saved"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrSaveInProgress    = errors.New("save already in progress")
	ErrNoOwner           = errors.New("sign in to save scans")
	ErrStale             = errors.New("session was reset; result discarded")
	ErrNotFound          = errors.New("session not found")
)

// busy states reject a new acquisition
func (s State) busy() bool {
	return s == StateAnalyzing || s == StateSaving
}
