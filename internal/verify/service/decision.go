package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/doorman/internal/verify/gateway"
	"github.com/aussiebroadwan/doorman/pkg/slogx"
)

var ErrNotOperator = errors.New("actor is not the operator")

// Decisions is the single human gate. Exactly one configured operator
// may finalize a registrant; everything downstream of the decision
// (session teardown, reconciliation, notification) happens here so a
// decision is one call regardless of which surface delivered it.
type Decisions struct {
	OperatorID string
	Directory  *Directory
	Ledger     *Ledger
	Sessions   *Sessions
	Messaging  gateway.Messaging
}

// Submit finalizes a registrant. Only the configured operator may call
// it; the registrant must have submitted a code. Approval triggers the
// reconciliation sweep and the requester is told how many communities
// were granted. Messaging failures are logged and swallowed so an
// unreachable requester cannot fail the decision.
func (d *Decisions) Submit(ctx context.Context, actorID, userID string, approve bool) error {
	if actorID != d.OperatorID {
		return ErrNotOperator
	}

	if err := d.Directory.Finalize(ctx, userID, approve); err != nil {
		return err
	}

	d.Sessions.End(userID)

	log := slogx.FromContext(ctx)

	if !approve {
		log.Info("registrant rejected", "user_id", userID)
		d.notify(ctx, userID, "Your verification was rejected. Send start to try again.")
		return nil
	}

	granted, err := d.Ledger.OnApproval(ctx, userID)
	if err != nil {
		// The decision itself stands; unresolved rows wait for a retry.
		log.Error("approval sweep failed", "user_id", userID, "error", err)
	}

	log.Info("registrant approved", "user_id", userID, "granted_communities", len(granted))

	content := "You are verified."
	if len(granted) > 0 {
		content = fmt.Sprintf("You are verified. Access granted to %d pending community request(s).", len(granted))
	}
	d.notify(ctx, userID, content)
	return nil
}

func (d *Decisions) notify(ctx context.Context, userID, content string) {
	if err := d.Messaging.Notify(ctx, userID, content, nil); err != nil {
		slogx.FromContext(ctx).Warn("failed to notify requester", "user_id", userID, "error", err)
	}
}
