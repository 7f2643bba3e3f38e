package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
	"github.com/aussiebroadwan/doorman/internal/verify/gateway"
	"github.com/aussiebroadwan/doorman/internal/verify/store"
	"github.com/aussiebroadwan/doorman/pkg/slogx"
)

var ErrGatewayFailure = errors.New("community gateway failure")

// Ledger records community access requests and reconciles them against
// the registrant's verification outcome. Every attempt leaves a row;
// rows only move Pending to Approved or Pending to Failed, and a
// resolved row is never touched again.
type Ledger struct {
	Store     store.Store
	Community gateway.Community
}

// RecordRequest stores an attempt for (user, community). An already
// approved registrant takes the fast path: the join is granted
// immediately and the row lands resolved. The bool reports whether the
// fast path granted access.
func (l *Ledger) RecordRequest(ctx context.Context, userID, communityID, communityName string) (bool, error) {
	now := time.Now().UTC()

	r, err := l.Store.Registrants().Get(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("failed to load registrant: %w", err)
	}
	approved := err == nil && r.Status == domain.StatusApproved

	req := domain.AccessRequest{
		UserID:        userID,
		CommunityID:   communityID,
		CommunityName: communityName,
		Status:        domain.RequestPending,
		RequestedAt:   now,
	}

	if !approved {
		return false, l.Store.AccessRequests().Put(ctx, req)
	}

	if err := l.Community.ApproveJoin(ctx, communityID, userID); err != nil {
		slogx.FromContext(ctx).Error("fast-path join failed",
			"user_id", userID, "community_id", communityID, "error", err)
		req.Status = domain.RequestFailed
		req.ResolvedAt = &now
		if putErr := l.Store.AccessRequests().Put(ctx, req); putErr != nil {
			return false, putErr
		}
		return false, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	req.Status = domain.RequestApproved
	req.ResolvedAt = &now
	return true, l.Store.AccessRequests().Put(ctx, req)
}

// OnApproval sweeps the user's pending requests after the operator
// approves them. Each row is attempted once: success resolves it
// Approved, a gateway error resolves it Failed and the sweep moves on.
// Re-running the sweep finds nothing pending, so it is idempotent.
// Returns the community names granted in this sweep.
func (l *Ledger) OnApproval(ctx context.Context, userID string) ([]string, error) {
	pending, err := l.Store.AccessRequests().ListPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	log := slogx.FromContext(ctx)

	var granted []string
	for _, req := range pending {
		now := time.Now().UTC()

		if err := l.Community.ApproveJoin(ctx, req.CommunityID, req.UserID); err != nil {
			log.Error("join failed during approval sweep",
				"user_id", req.UserID, "community_id", req.CommunityID, "error", err)
			if rerr := l.Store.AccessRequests().Resolve(ctx, req.UserID, req.CommunityID, domain.RequestFailed, now); rerr != nil && !errors.Is(rerr, store.ErrNotFound) {
				log.Error("failed to record failed request",
					"user_id", req.UserID, "community_id", req.CommunityID, "error", rerr)
			}
			continue
		}

		err := l.Store.AccessRequests().Resolve(ctx, req.UserID, req.CommunityID, domain.RequestApproved, now)
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent sweep resolved it first.
			continue
		}
		if err != nil {
			log.Error("failed to record approved request",
				"user_id", req.UserID, "community_id", req.CommunityID, "error", err)
			continue
		}
		granted = append(granted, req.CommunityName)
	}
	return granted, nil
}

// Stats returns access request counts per status.
func (l *Ledger) Stats(ctx context.Context) (map[domain.RequestStatus]int, error) {
	return l.Store.AccessRequests().CountByStatus(ctx)
}
