package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aussiebroadwan/doorman/internal/verify/gateway"
	"github.com/aussiebroadwan/doorman/internal/verify/store/drivers/sqlite"
	"github.com/aussiebroadwan/doorman/pkg/privx"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	return &Directory{Store: newTestStore(t), Privacy: privx.Cleartext{}}
}

type sentMessage struct {
	Identity string
	Content  string
	Actions  []gateway.Action
}

type fakeMessenger struct {
	mu      sync.Mutex
	prompts []sentMessage
	edits   []sentMessage
	notes   []sentMessage
	fail    error
}

func (f *fakeMessenger) SendPrompt(_ context.Context, userID, content string, actions []gateway.Action) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.prompts = append(f.prompts, sentMessage{Identity: userID, Content: content, Actions: actions})
	return fmt.Sprintf("msg-%d", len(f.prompts)), nil
}

func (f *fakeMessenger) EditPrompt(_ context.Context, ref, content string, actions []gateway.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.edits = append(f.edits, sentMessage{Identity: ref, Content: content, Actions: actions})
	return nil
}

func (f *fakeMessenger) Notify(_ context.Context, identity, content string, actions []gateway.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.notes = append(f.notes, sentMessage{Identity: identity, Content: content, Actions: actions})
	return nil
}

func (f *fakeMessenger) notesFor(identity string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, n := range f.notes {
		if n.Identity == identity {
			out = append(out, n)
		}
	}
	return out
}

var errCommunityDown = errors.New("community backend down")

type fakeCommunity struct {
	mu       sync.Mutex
	joins    []string // "communityID/userID"
	failFor  map[string]bool
	failNext bool
}

func (f *fakeCommunity) ApproveJoin(_ context.Context, communityID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext || f.failFor[communityID] {
		f.failNext = false
		return errCommunityDown
	}
	f.joins = append(f.joins, communityID+"/"+userID)
	return nil
}
