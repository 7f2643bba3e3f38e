// Package gateway declares the external collaborators the verification
// core calls out to. Concrete chat transports and community backends live
// outside this repository and are wired in at startup.
package gateway

import "context"

// Action is a button attached to a prompt. Data is the opaque payload the
// transport echoes back through the events API when the button is pressed.
type Action struct {
	Label string
	Data  string
}

// Messaging renders prompts and notifications to people. Delivery failure
// is non-fatal everywhere: callers log it and carry on.
type Messaging interface {
	// SendPrompt delivers an interactive prompt to a requester and returns
	// an opaque reference used for later edits.
	SendPrompt(ctx context.Context, userID, content string, actions []Action) (string, error)

	// EditPrompt replaces the content and actions of a previously sent prompt.
	EditPrompt(ctx context.Context, ref, content string, actions []Action) error

	// Notify delivers a one-way message to any identity (requester or operator).
	Notify(ctx context.Context, identity, content string, actions []Action) error
}

// Community grants access to a community space. No retries; a failed call
// is recorded against the access request and left for a new attempt.
type Community interface {
	ApproveJoin(ctx context.Context, communityID, userID string) error
}
