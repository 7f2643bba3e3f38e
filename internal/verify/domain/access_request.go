package domain

import "time"

// RequestStatus is the resolution state of a single community join
// attempt. Rows only ever move Pending -> Approved or Pending -> Failed.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestFailed   RequestStatus = "failed"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestFailed:
		return true
	}
	return false
}

// Resolved reports whether the row has reached a final state.
func (s RequestStatus) Resolved() bool {
	return s == RequestApproved || s == RequestFailed
}

// AccessRequest records one (user, community) join attempt. Rows are
// created on each attempt and resolved exactly once, never deleted.
type AccessRequest struct {
	UserID        string
	CommunityID   string
	CommunityName string
	Status        RequestStatus
	RequestedAt   time.Time
	ResolvedAt    *time.Time
}
