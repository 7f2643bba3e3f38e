package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Registrants() Registrants
	AccessRequests() AccessRequests

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Registrants interface {
	// Get returns a registrant by user id.
	Get(ctx context.Context, userID string) (domain.Registrant, error)

	// Upsert inserts or updates the identity fields (name, contact ref,
	// status, updated_at) of a registrant row. Status guards are the
	// service's job; this is a plain single-row write.
	Upsert(ctx context.Context, r domain.Registrant) error

	// SetCodeIssued stores the protected issued code and advances the row
	// to code_issued. Returns ErrNotFound for an unknown user.
	SetCodeIssued(ctx context.Context, userID, storedCode string, at time.Time) error

	// SetCodeSubmitted stores the protected submitted code and advances
	// the row to code_submitted. Returns ErrNotFound for an unknown user.
	SetCodeSubmitted(ctx context.Context, userID, storedCode string, at time.Time) error

	// UpdateStatus atomically moves a row from one status to another.
	// Returns ErrNotFound when no row matched (unknown user or the row was
	// not in the expected status). Terminal targets record finalized_at;
	// a restart clears it.
	UpdateStatus(ctx context.Context, userID string, from, to domain.Status, at time.Time) error

	// ListUnapproved returns the most recently touched registrants that
	// have not been approved, newest first.
	ListUnapproved(ctx context.Context, limit int) ([]domain.Registrant, error)

	// CountByStatus returns registrant counts grouped by status.
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

type AccessRequests interface {
	// Put inserts a new attempt for (user, community), replacing any prior
	// resolved attempt for the same pair. Rows are never deleted.
	Put(ctx context.Context, req domain.AccessRequest) error

	// Get returns the row for (user, community).
	Get(ctx context.Context, userID, communityID string) (domain.AccessRequest, error)

	// ListPending returns all pending rows for a user, oldest first.
	ListPending(ctx context.Context, userID string) ([]domain.AccessRequest, error)

	// Resolve moves a pending row to approved or failed. Returns
	// ErrNotFound when the row is missing or already resolved, so resolved
	// rows can never be re-processed.
	Resolve(ctx context.Context, userID, communityID string, status domain.RequestStatus, at time.Time) error

	// CountByStatus returns request counts grouped by status.
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int, error)
}
