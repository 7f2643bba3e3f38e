package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
	"github.com/aussiebroadwan/doorman/pkg/privx"

	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *Directory, *fakeCommunity) {
	t.Helper()

	st := newTestStore(t)
	community := &fakeCommunity{}
	ledger := &Ledger{Store: st, Community: community}
	directory := &Directory{Store: st, Privacy: privx.Cleartext{}}
	return ledger, directory, community
}

func TestLedgerRecordRequestPending(t *testing.T) {
	t.Parallel()

	ledger, _, community := newTestLedger(t)
	ctx := context.Background()

	granted, err := ledger.RecordRequest(ctx, "u1", "c1", "Chess Club")
	require.NoError(t, err)
	require.False(t, granted)
	require.Empty(t, community.joins)

	req, err := ledger.Store.AccessRequests().Get(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Equal(t, domain.RequestPending, req.Status)
}

func TestLedgerRecordRequestFastPath(t *testing.T) {
	t.Parallel()

	ledger, directory, community := newTestLedger(t)
	ctx := context.Background()

	runToDecision(t, directory, "u1", true)

	granted, err := ledger.RecordRequest(ctx, "u1", "c1", "Chess Club")
	require.NoError(t, err)
	require.True(t, granted)
	require.Equal(t, []string{"c1/u1"}, community.joins)

	req, err := ledger.Store.AccessRequests().Get(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Equal(t, domain.RequestApproved, req.Status)
	require.NotNil(t, req.ResolvedAt)
}

func TestLedgerRecordRequestFastPathGatewayFailure(t *testing.T) {
	t.Parallel()

	ledger, directory, community := newTestLedger(t)
	ctx := context.Background()

	runToDecision(t, directory, "u1", true)
	community.failNext = true

	granted, err := ledger.RecordRequest(ctx, "u1", "c1", "Chess Club")
	require.ErrorIs(t, err, ErrGatewayFailure)
	require.False(t, granted)

	// the failure is recorded, never retried automatically
	req, err := ledger.Store.AccessRequests().Get(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Equal(t, domain.RequestFailed, req.Status)
}

func TestLedgerOnApprovalSweep(t *testing.T) {
	t.Parallel()

	ledger, _, community := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.RecordRequest(ctx, "u1", "c1", "Chess Club")
	require.NoError(t, err)
	_, err = ledger.RecordRequest(ctx, "u1", "c2", "Book Club")
	require.NoError(t, err)
	_, err = ledger.RecordRequest(ctx, "u1", "c3", "Run Club")
	require.NoError(t, err)

	community.failFor = map[string]bool{"c2": true}

	granted, err := ledger.OnApproval(ctx, "u1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Chess Club", "Run Club"}, granted)

	req, err := ledger.Store.AccessRequests().Get(ctx, "u1", "c2")
	require.NoError(t, err)
	require.Equal(t, domain.RequestFailed, req.Status)

	// a second sweep finds nothing pending: the failed row stays failed
	granted, err = ledger.OnApproval(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, granted)
	require.Len(t, community.joins, 2)
}

func TestLedgerOnApprovalNoPending(t *testing.T) {
	t.Parallel()

	ledger, _, _ := newTestLedger(t)

	granted, err := ledger.OnApproval(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, granted)
}

func TestLedgerStats(t *testing.T) {
	t.Parallel()

	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.RecordRequest(ctx, "u1", "c1", "Chess Club")
	require.NoError(t, err)
	_, err = ledger.RecordRequest(ctx, "u2", "c1", "Chess Club")
	require.NoError(t, err)

	counts, err := ledger.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, counts[domain.RequestPending])
}
