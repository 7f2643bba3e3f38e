package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
	"github.com/aussiebroadwan/doorman/internal/verify/gateway"
	"github.com/aussiebroadwan/doorman/internal/verify/store"
	"github.com/aussiebroadwan/doorman/pkg/slogx"
)

// Keypad event payloads understood by Keypad. Digits arrive as "0"-"9".
const (
	KeyBackspace = "back"
	KeySubmit    = "submit"
)

// Flow orchestrates the requester-facing verification journey: welcome,
// contact capture, keypad entry, operator escalation. It owns prompt
// rendering; the services underneath stay presentation-free.
type Flow struct {
	Directory  *Directory
	Ledger     *Ledger
	Sessions   *Sessions
	Limiter    *Limiter
	Messaging  gateway.Messaging
	OperatorID string
}

// Start greets a new requester and asks for their contact reference. An
// already approved user gets a short acknowledgment instead of a second
// journey. A rejected user is restarted first.
func (f *Flow) Start(ctx context.Context, userID, name string) error {
	if err := f.Limiter.Allow(userID, ActionStart); err != nil {
		return err
	}

	r, err := f.Directory.Get(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err == nil {
		switch r.Status {
		case domain.StatusApproved:
			f.notify(ctx, userID, "You are already verified.")
			return nil
		case domain.StatusRejected:
			if err := f.Directory.Restart(ctx, userID); err != nil {
				return err
			}
		}
	}

	if err := f.Directory.Upsert(ctx, userID, name, ""); err != nil {
		return err
	}

	f.prompt(ctx, userID,
		"Welcome! To get verified, share your contact reference.",
		[]gateway.Action{{Label: "Share contact", Data: "share-contact"}})
	return nil
}

// JoinRequested records a community access request. Approved users are
// let straight in; everyone else is pointed at verification and the
// operator is told someone is waiting.
func (f *Flow) JoinRequested(ctx context.Context, userID, name, communityID, communityName string) error {
	granted, err := f.Ledger.RecordRequest(ctx, userID, communityID, communityName)
	if err != nil {
		if errors.Is(err, ErrGatewayFailure) {
			f.notify(ctx, userID, fmt.Sprintf("Could not add you to %s right now. The request is recorded.", communityName))
			return nil
		}
		return err
	}
	if granted {
		f.notify(ctx, userID, fmt.Sprintf("You have been added to %s.", communityName))
		return nil
	}

	if err := f.Directory.Upsert(ctx, userID, name, ""); err != nil && !errors.Is(err, ErrInvalidState) {
		return err
	}

	f.prompt(ctx, userID,
		fmt.Sprintf("Access to %s needs verification first. Share your contact reference to begin.", communityName),
		[]gateway.Action{{Label: "Share contact", Data: "share-contact"}})
	f.notify(ctx, f.OperatorID, fmt.Sprintf("%s (%s) requested access to %s.", name, userID, communityName))
	return nil
}

// ContactShared captures the requester's contact reference and moves
// straight into code entry.
func (f *Flow) ContactShared(ctx context.Context, userID, name, contactRef string) error {
	if err := f.Limiter.Allow(userID, ActionContactSubmit); err != nil {
		return err
	}
	if err := f.Directory.Upsert(ctx, userID, name, contactRef); err != nil {
		return err
	}
	return f.BeginEntry(ctx, userID)
}

// BeginEntry issues a fresh code, opens a keypad session and escalates
// the code to the operator with decision shortcuts attached.
func (f *Flow) BeginEntry(ctx context.Context, userID string) error {
	code, err := f.Directory.IssueCode(ctx, userID)
	if err != nil {
		return err
	}

	blank := domain.NewSession(userID, code, "", f.Sessions.now())
	ref, err := f.Messaging.SendPrompt(ctx, userID, keypadContent(blank.Mask()), keypadActions())
	if err != nil {
		// The session still opens; the keypad just cannot be re-rendered.
		slogx.FromContext(ctx).Warn("failed to send keypad prompt", "user_id", userID, "error", err)
		ref = ""
	}

	f.Sessions.Begin(userID, code, ref)

	f.notifyActions(ctx, f.OperatorID,
		fmt.Sprintf("Verification code for %s: %s", userID, code),
		decisionActions(userID))
	return nil
}

// Keypad handles one keypad event. Expired sessions produce a restart
// notice for the requester and surface ErrSessionExpired to the caller.
func (f *Flow) Keypad(ctx context.Context, userID, key string) error {
	var (
		kp  Keypress
		err error
	)
	switch key {
	case KeyBackspace:
		kp, err = f.Sessions.Backspace(userID)
	case KeySubmit:
		kp, err = f.Sessions.Submit(ctx, userID)
	default:
		if len(key) != 1 || key[0] < '0' || key[0] > '9' {
			return ErrInvalidState
		}
		kp, err = f.Sessions.AppendDigit(ctx, userID, key[0])
	}

	if errors.Is(err, ErrSessionExpired) {
		f.notify(ctx, userID, "Your session expired. Share your contact reference to start over.")
		return err
	}
	if err != nil {
		return err
	}

	if kp.MessageRef != "" {
		content := keypadContent(kp.Mask)
		actions := keypadActions()
		if kp.Submitted {
			content = "Code received. An operator will review it shortly."
			actions = nil
		}
		if err := f.Messaging.EditPrompt(ctx, kp.MessageRef, content, actions); err != nil {
			slogx.FromContext(ctx).Warn("failed to update keypad prompt", "user_id", userID, "error", err)
		}
	}
	return nil
}

// SubmitCode is the session manager's submit callback. It persists the
// submission and tells the operator whether the entered code matched the
// issued one.
func (f *Flow) SubmitCode(ctx context.Context, userID, code, messageRef string) error {
	match, err := f.Directory.RecordSubmission(ctx, userID, code)
	if err != nil {
		return err
	}

	verdict := "MISMATCH"
	if match {
		verdict = "MATCH"
	}
	f.notifyActions(ctx, f.OperatorID,
		fmt.Sprintf("%s submitted a code: %s", userID, verdict),
		decisionActions(userID))
	return nil
}

func (f *Flow) prompt(ctx context.Context, userID, content string, actions []gateway.Action) {
	if _, err := f.Messaging.SendPrompt(ctx, userID, content, actions); err != nil {
		slogx.FromContext(ctx).Warn("failed to send prompt", "user_id", userID, "error", err)
	}
}

func (f *Flow) notify(ctx context.Context, identity, content string) {
	f.notifyActions(ctx, identity, content, nil)
}

func (f *Flow) notifyActions(ctx context.Context, identity, content string, actions []gateway.Action) {
	if err := f.Messaging.Notify(ctx, identity, content, actions); err != nil {
		slogx.FromContext(ctx).Warn("failed to notify", "identity", identity, "error", err)
	}
}

func keypadContent(mask string) string {
	return "Enter your verification code:\n" + mask
}

func keypadActions() []gateway.Action {
	keys := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0"}
	actions := make([]gateway.Action, 0, len(keys)+2)
	for _, k := range keys {
		actions = append(actions, gateway.Action{Label: k, Data: k})
	}
	actions = append(actions,
		gateway.Action{Label: "⌫", Data: KeyBackspace},
		gateway.Action{Label: "Submit", Data: KeySubmit},
	)
	return actions
}

func decisionActions(userID string) []gateway.Action {
	return []gateway.Action{
		{Label: "Approve", Data: "approve:" + userID},
		{Label: "Reject", Data: "reject:" + userID},
	}
}
