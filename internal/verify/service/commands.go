package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/doorman/internal/verify/gateway"
	"github.com/aussiebroadwan/doorman/pkg/slogx"
)

const commandsUsage = `Commands:
  begin-verification <user>
  submit-decision <user> approve|reject
  show-pending
  show-stats`

// Commands is the operator's chat-side control surface. It drives the
// same services as the HTTP API. Messages from anyone but the operator
// are silently dropped; command faults are reported back to the operator
// and never escape.
type Commands struct {
	OperatorID string
	Flow       *Flow
	Directory  *Directory
	Ledger     *Ledger
	Decisions  *Decisions
	Messaging  gateway.Messaging
}

// Handle parses and executes one operator message.
func (c *Commands) Handle(ctx context.Context, senderID, text string) {
	if senderID != c.OperatorID {
		return
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}

	var err error
	switch fields[0] {
	case "begin-verification":
		err = c.beginVerification(ctx, fields[1:])
	case "submit-decision":
		err = c.submitDecision(ctx, senderID, fields[1:])
	case "show-pending":
		err = c.showPending(ctx)
	case "show-stats":
		err = c.showStats(ctx)
	default:
		c.reply(ctx, commandsUsage)
		return
	}

	if err != nil {
		slogx.FromContext(ctx).Error("operator command failed",
			"command", fields[0], "error", err)
		c.reply(ctx, fmt.Sprintf("Command failed: %v", err))
	}
}

func (c *Commands) beginVerification(ctx context.Context, args []string) error {
	if len(args) != 1 {
		c.reply(ctx, "Usage: begin-verification <user>")
		return nil
	}
	if err := c.Flow.BeginEntry(ctx, args[0]); err != nil {
		return err
	}
	c.reply(ctx, fmt.Sprintf("Code issued for %s.", args[0]))
	return nil
}

func (c *Commands) submitDecision(ctx context.Context, senderID string, args []string) error {
	if len(args) != 2 || (args[1] != "approve" && args[1] != "reject") {
		c.reply(ctx, "Usage: submit-decision <user> approve|reject")
		return nil
	}
	approve := args[1] == "approve"
	if err := c.Decisions.Submit(ctx, senderID, args[0], approve); err != nil {
		return err
	}
	c.reply(ctx, fmt.Sprintf("Decision recorded for %s: %s.", args[0], args[1]))
	return nil
}

func (c *Commands) showPending(ctx context.Context) error {
	pending, err := c.Directory.ListPending(ctx, 20)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		c.reply(ctx, "No unapproved registrants.")
		return nil
	}

	var b strings.Builder
	b.WriteString("Unapproved registrants:\n")
	for _, r := range pending {
		fmt.Fprintf(&b, "  %s (%s) - %s\n", r.Name, r.UserID, r.Status)
	}
	c.reply(ctx, b.String())
	return nil
}

func (c *Commands) showStats(ctx context.Context) error {
	registrants, err := c.Directory.Stats(ctx)
	if err != nil {
		return err
	}
	requests, err := c.Ledger.Stats(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("Registrants:\n")
	for status, n := range registrants {
		fmt.Fprintf(&b, "  %s: %d\n", status, n)
	}
	b.WriteString("Access requests:\n")
	for status, n := range requests {
		fmt.Fprintf(&b, "  %s: %d\n", status, n)
	}
	c.reply(ctx, b.String())
	return nil
}

func (c *Commands) reply(ctx context.Context, content string) {
	if err := c.Messaging.Notify(ctx, c.OperatorID, content, nil); err != nil {
		slogx.FromContext(ctx).Warn("failed to reply to operator", "error", err)
	}
}
