package domain

import "time"

// Status is the verification state of a registrant. Transitions are
// monotonic along the declared order; the only backward edge is
// StatusRejected -> StatusInitiated (an explicit restart). StatusApproved
// is terminal.
type Status string

const (
	StatusInitiated       Status = "initiated"
	StatusContactReceived Status = "contact_received"
	StatusCodeIssued      Status = "code_issued"
	StatusCodeSubmitted   Status = "code_submitted"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

var statusRank = map[Status]int{
	StatusInitiated:       0,
	StatusContactReceived: 1,
	StatusCodeIssued:      2,
	StatusCodeSubmitted:   3,
	StatusApproved:        4,
	StatusRejected:        4,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether s ends the verification flow.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether the s -> to edge is allowed. Forward jumps
// are permitted (a registrant may go straight from initiated to
// code_issued when no contact capture is configured), as is re-entering
// the same non-terminal state (e.g. re-issuing a code).
func (s Status) CanTransition(to Status) bool {
	if !s.Valid() || !to.Valid() {
		return false
	}
	if s == StatusApproved {
		return false
	}
	if s == StatusRejected {
		return to == StatusInitiated
	}
	return statusRank[to] >= statusRank[s]
}

// Registrant is the durable record of one person's verification progress.
// Records are never deleted; they are the audit trail.
type Registrant struct {
	UserID        string
	Name          string
	ContactRef    string // opaque contact reference, stored in protected form
	IssuedCode    string // protected form of the code we generated
	SubmittedCode string // protected form of the code the user entered
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CodeIssuedAt  *time.Time
	SubmittedAt   *time.Time
	FinalizedAt   *time.Time
}
