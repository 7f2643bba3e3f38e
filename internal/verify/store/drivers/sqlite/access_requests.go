package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
)

type accessRequestsRepo struct {
	db dbtx
}

const accessRequestColumns = `user_id, community_id, community_name, status, requested_at, resolved_at`

func (repo *accessRequestsRepo) Put(ctx context.Context, req domain.AccessRequest) error {
	// A fresh attempt for the same (user, community) overwrites the prior
	// row so history never blocks a retry.
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO access_requests (user_id, community_id, community_name, status, requested_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, community_id) DO UPDATE SET
			community_name = excluded.community_name,
			status         = excluded.status,
			requested_at   = excluded.requested_at,
			resolved_at    = excluded.resolved_at;
	`,
		req.UserID, req.CommunityID, req.CommunityName, string(req.Status),
		toMillis(req.RequestedAt), toMillisNull(req.ResolvedAt),
	)
	return err
}

func (repo *accessRequestsRepo) Get(ctx context.Context, userID, communityID string) (domain.AccessRequest, error) {
	row := repo.db.QueryRowContext(ctx, `
		SELECT `+accessRequestColumns+`
		FROM access_requests
		WHERE user_id = ? AND community_id = ?;
	`, userID, communityID)
	return scanAccessRequest(row)
}

func (repo *accessRequestsRepo) ListPending(ctx context.Context, userID string) ([]domain.AccessRequest, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+accessRequestColumns+`
		FROM access_requests
		WHERE user_id = ? AND status = ?
		ORDER BY requested_at ASC;
	`, userID, string(domain.RequestPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AccessRequest
	for rows.Next() {
		req, err := scanAccessRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (repo *accessRequestsRepo) Resolve(ctx context.Context, userID, communityID string, status domain.RequestStatus, at time.Time) error {
	// Only pending rows resolve; a resolved row never flips again.
	res, err := repo.db.ExecContext(ctx, `
		UPDATE access_requests
		SET status = ?, resolved_at = ?
		WHERE user_id = ? AND community_id = ? AND status = ?;
	`, string(status), toMillis(at), userID, communityID, string(domain.RequestPending))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (repo *accessRequestsRepo) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM access_requests
		GROUP BY status;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RequestStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.RequestStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanAccessRequest(row interface{ Scan(dest ...any) error }) (domain.AccessRequest, error) {
	var (
		req         domain.AccessRequest
		status      string
		requestedAt int64
		resolvedAt  sql.NullInt64
	)
	err := row.Scan(&req.UserID, &req.CommunityID, &req.CommunityName, &status, &requestedAt, &resolvedAt)
	if err != nil {
		return domain.AccessRequest{}, mapNotFound(err)
	}
	req.Status = domain.RequestStatus(status)
	req.RequestedAt = fromMillis(requestedAt)
	req.ResolvedAt = fromMillisNull(resolvedAt)
	return req, nil
}
