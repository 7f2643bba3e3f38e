package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
	"github.com/aussiebroadwan/doorman/internal/verify/store"
)

type registrantsRepo struct {
	db dbtx
}

const registrantColumns = `user_id, name, contact_ref, issued_code, submitted_code, status,
	created_at, updated_at, code_issued_at, submitted_at, finalized_at`

func scanRegistrant(row interface{ Scan(dest ...any) error }) (domain.Registrant, error) {
	var (
		r                                  domain.Registrant
		status                             string
		createdAt, updatedAt               int64
		codeIssuedAt, submittedAt, finalAt sql.NullInt64
	)
	err := row.Scan(
		&r.UserID, &r.Name, &r.ContactRef, &r.IssuedCode, &r.SubmittedCode, &status,
		&createdAt, &updatedAt, &codeIssuedAt, &submittedAt, &finalAt,
	)
	if err != nil {
		return domain.Registrant{}, mapNotFound(err)
	}
	r.Status = domain.Status(status)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	r.CodeIssuedAt = fromMillisNull(codeIssuedAt)
	r.SubmittedAt = fromMillisNull(submittedAt)
	r.FinalizedAt = fromMillisNull(finalAt)
	return r, nil
}

func (repo *registrantsRepo) Get(ctx context.Context, userID string) (domain.Registrant, error) {
	row := repo.db.QueryRowContext(ctx, `
		SELECT `+registrantColumns+`
		FROM registrants
		WHERE user_id = ?;
	`, userID)
	return scanRegistrant(row)
}

func (repo *registrantsRepo) Upsert(ctx context.Context, r domain.Registrant) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO registrants (
			user_id, name, contact_ref, issued_code, submitted_code, status,
			created_at, updated_at, code_issued_at, submitted_at, finalized_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			name        = excluded.name,
			contact_ref = excluded.contact_ref,
			status      = excluded.status,
			updated_at  = excluded.updated_at;
	`,
		r.UserID, r.Name, r.ContactRef, r.IssuedCode, r.SubmittedCode, string(r.Status),
		toMillis(r.CreatedAt), toMillis(r.UpdatedAt),
		toMillisNull(r.CodeIssuedAt), toMillisNull(r.SubmittedAt), toMillisNull(r.FinalizedAt),
	)
	return err
}

func (repo *registrantsRepo) SetCodeIssued(ctx context.Context, userID, storedCode string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE registrants
		SET issued_code = ?, status = ?, code_issued_at = ?, updated_at = ?
		WHERE user_id = ?;
	`, storedCode, string(domain.StatusCodeIssued), toMillis(at), toMillis(at), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (repo *registrantsRepo) SetCodeSubmitted(ctx context.Context, userID, storedCode string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE registrants
		SET submitted_code = ?, status = ?, submitted_at = ?, updated_at = ?
		WHERE user_id = ?;
	`, storedCode, string(domain.StatusCodeSubmitted), toMillis(at), toMillis(at), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (repo *registrantsRepo) UpdateStatus(ctx context.Context, userID string, from, to domain.Status, at time.Time) error {
	var finalized sql.NullInt64
	if to.Terminal() {
		finalized = sql.NullInt64{Int64: toMillis(at), Valid: true}
	}

	// The status guard in the WHERE clause makes the transition atomic.
	res, err := repo.db.ExecContext(ctx, `
		UPDATE registrants
		SET status = ?, finalized_at = ?, updated_at = ?
		WHERE user_id = ? AND status = ?;
	`, string(to), finalized, toMillis(at), userID, string(from))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (repo *registrantsRepo) ListUnapproved(ctx context.Context, limit int) ([]domain.Registrant, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+registrantColumns+`
		FROM registrants
		WHERE status != ?
		ORDER BY updated_at DESC
		LIMIT ?;
	`, string(domain.StatusApproved), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Registrant
	for rows.Next() {
		r, err := scanRegistrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (repo *registrantsRepo) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM registrants
		GROUP BY status;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

// requireRow converts a zero-row UPDATE into ErrNotFound so callers can
// distinguish "no such row / wrong state" from success.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
