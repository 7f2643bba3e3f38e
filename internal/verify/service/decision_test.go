package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
	"github.com/aussiebroadwan/doorman/internal/verify/store"
	"github.com/aussiebroadwan/doorman/pkg/privx"

	"github.com/stretchr/testify/require"
)

const testOperator = "op-1"

func newTestDecisions(t *testing.T) (*Decisions, *Directory, *fakeMessenger, *fakeCommunity) {
	t.Helper()

	st := newTestStore(t)
	directory := &Directory{Store: st, Privacy: privx.Cleartext{}}
	community := &fakeCommunity{}
	ledger := &Ledger{Store: st, Community: community}
	messenger := &fakeMessenger{}
	sessions := &Sessions{AutoSubmit: true}

	decisions := &Decisions{
		OperatorID: testOperator,
		Directory:  directory,
		Ledger:     ledger,
		Sessions:   sessions,
		Messaging:  messenger,
	}
	return decisions, directory, messenger, community
}

func TestDecisionsRejectsNonOperator(t *testing.T) {
	t.Parallel()

	decisions, directory, _, _ := newTestDecisions(t)
	ctx := context.Background()

	runToSubmission(t, directory, "u1")

	err := decisions.Submit(ctx, "intruder", "u1", true)
	require.ErrorIs(t, err, ErrNotOperator)

	// the registrant is untouched
	r, err := directory.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCodeSubmitted, r.Status)
}

func TestDecisionsUnknownUser(t *testing.T) {
	t.Parallel()

	decisions, _, _, _ := newTestDecisions(t)

	err := decisions.Submit(context.Background(), testOperator, "ghost", true)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDecisionsRequiresSubmittedCode(t *testing.T) {
	t.Parallel()

	decisions, directory, _, _ := newTestDecisions(t)
	ctx := context.Background()

	require.NoError(t, directory.Upsert(ctx, "u1", "Alex", ""))

	err := decisions.Submit(ctx, testOperator, "u1", true)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDecisionsApproveSweepsAndNotifies(t *testing.T) {
	t.Parallel()

	decisions, directory, messenger, community := newTestDecisions(t)
	ctx := context.Background()

	runToSubmission(t, directory, "u1")
	_, err := decisions.Ledger.RecordRequest(ctx, "u1", "c1", "Chess Club")
	require.NoError(t, err)

	decisions.Sessions.Begin("u1", "13579", "msg-1")

	require.NoError(t, decisions.Submit(ctx, testOperator, "u1", true))

	r, err := directory.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, r.Status)
	require.False(t, decisions.Sessions.Active("u1"))
	require.Equal(t, []string{"c1/u1"}, community.joins)

	notes := messenger.notesFor("u1")
	require.Len(t, notes, 1)
	require.Contains(t, notes[0].Content, "verified")
	require.Contains(t, notes[0].Content, "1 pending")
}

func TestDecisionsReject(t *testing.T) {
	t.Parallel()

	decisions, directory, messenger, community := newTestDecisions(t)
	ctx := context.Background()

	runToSubmission(t, directory, "u1")
	_, err := decisions.Ledger.RecordRequest(ctx, "u1", "c1", "Chess Club")
	require.NoError(t, err)

	require.NoError(t, decisions.Submit(ctx, testOperator, "u1", false))

	r, err := directory.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, r.Status)

	// no sweep on rejection; the request stays pending
	require.Empty(t, community.joins)
	req, err := decisions.Ledger.Store.AccessRequests().Get(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Equal(t, domain.RequestPending, req.Status)

	notes := messenger.notesFor("u1")
	require.Len(t, notes, 1)
	require.Contains(t, notes[0].Content, "rejected")
}

func TestDecisionsIdempotentSecondApproval(t *testing.T) {
	t.Parallel()

	decisions, directory, _, _ := newTestDecisions(t)
	ctx := context.Background()

	runToSubmission(t, directory, "u1")
	require.NoError(t, decisions.Submit(ctx, testOperator, "u1", true))

	err := decisions.Submit(ctx, testOperator, "u1", true)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDecisionsMessagingFailureNonFatal(t *testing.T) {
	t.Parallel()

	decisions, directory, messenger, _ := newTestDecisions(t)
	ctx := context.Background()

	runToSubmission(t, directory, "u1")
	messenger.fail = errCommunityDown

	require.NoError(t, decisions.Submit(ctx, testOperator, "u1", true))

	r, err := directory.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, r.Status)
}

// runToSubmission walks a registrant up to code_submitted, awaiting a
// decision.
func runToSubmission(t *testing.T, d *Directory, userID string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, d.Upsert(ctx, userID, "Test User", "tel:+614000000"))
	code, err := d.IssueCode(ctx, userID)
	require.NoError(t, err)
	_, err = d.RecordSubmission(ctx, userID, code)
	require.NoError(t, err)
}
