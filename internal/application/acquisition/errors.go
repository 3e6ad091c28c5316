package acquisition

import "fmt"

// Reason classifies an acquisition failure.
type Reason string

const (
	ReasonInvalidType    Reason = "invalid_type"
	ReasonUnreadable     Reason = "unreadable"
	ReasonSampleNotFound Reason = "sample_not_found"
	ReasonFetchFailed    Reason = "fetch_failed"
)

// Error is recovered locally: the user is re-prompted and the session does not advance.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("acquisition %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
