package gateway

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/doorman/pkg/idx"
)

// LoggingMessenger is a Messaging implementation that only logs. It keeps
// the service runnable before a chat transport is wired in and doubles as
// a dev-mode transport.
type LoggingMessenger struct {
	Logger *slog.Logger
}

func (m *LoggingMessenger) SendPrompt(_ context.Context, userID, content string, actions []Action) (string, error) {
	ref := idx.New().String()
	m.Logger.Info("prompt", "user_id", userID, "ref", ref, "content", content, "actions", len(actions))
	return ref, nil
}

func (m *LoggingMessenger) EditPrompt(_ context.Context, ref, content string, actions []Action) error {
	m.Logger.Info("prompt_edit", "ref", ref, "content", content, "actions", len(actions))
	return nil
}

func (m *LoggingMessenger) Notify(_ context.Context, identity, content string, actions []Action) error {
	m.Logger.Info("notify", "identity", identity, "content", content, "actions", len(actions))
	return nil
}

// LoggingCommunity is a Community implementation that approves nothing
// for real; it logs the grant it would have made.
type LoggingCommunity struct {
	Logger *slog.Logger
}

func (c *LoggingCommunity) ApproveJoin(_ context.Context, communityID, userID string) error {
	c.Logger.Info("approve_join", "community_id", communityID, "user_id", userID)
	return nil
}
