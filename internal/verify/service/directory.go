package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
	"github.com/aussiebroadwan/doorman/internal/verify/store"
	"github.com/aussiebroadwan/doorman/pkg/privx"
)

var ErrInvalidState = errors.New("operation not valid in current state")

// codeSpace is the number of distinct verification codes (00000-99999).
var codeSpace = big.NewInt(100000)

// Directory owns the registrant lifecycle. Contact references and codes
// pass through the privacy policy before they touch the store; the
// plaintext code is returned once from IssueCode and lives only in the
// keypad session after that.
type Directory struct {
	Store   store.Store
	Privacy privx.Policy
}

// Upsert creates a registrant in Initiated, or refreshes the identity
// fields of an existing one. A non-empty contactRef advances Initiated to
// ContactReceived. Terminal records return ErrInvalidState; rejected
// users must go through Restart first.
func (d *Directory) Upsert(ctx context.Context, userID, name, contactRef string) error {
	now := time.Now().UTC()

	storedRef := ""
	if contactRef != "" {
		var err error
		storedRef, err = d.Privacy.Protect(contactRef)
		if err != nil {
			return fmt.Errorf("failed to protect contact ref: %w", err)
		}
	}

	existing, err := d.Store.Registrants().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		status := domain.StatusInitiated
		if contactRef != "" {
			status = domain.StatusContactReceived
		}
		return d.Store.Registrants().Upsert(ctx, domain.Registrant{
			UserID:     userID,
			Name:       name,
			ContactRef: storedRef,
			Status:     status,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to load registrant: %w", err)
	}

	if existing.Status.Terminal() {
		return ErrInvalidState
	}

	updated := existing
	updated.Name = name
	if contactRef != "" {
		updated.ContactRef = storedRef
		if existing.Status == domain.StatusInitiated {
			updated.Status = domain.StatusContactReceived
		}
	}
	updated.UpdatedAt = now
	return d.Store.Registrants().Upsert(ctx, updated)
}

// IssueCode generates a uniform random 5-digit code, stores its protected
// form and returns the plaintext exactly once. Unknown users return
// store.ErrNotFound; terminal records return ErrInvalidState.
func (d *Directory) IssueCode(ctx context.Context, userID string) (string, error) {
	r, err := d.Store.Registrants().Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if r.Status.Terminal() {
		return "", ErrInvalidState
	}

	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	code := fmt.Sprintf("%05d", n.Int64())

	stored, err := d.Privacy.Protect(code)
	if err != nil {
		return "", fmt.Errorf("failed to protect code: %w", err)
	}

	if err := d.Store.Registrants().SetCodeIssued(ctx, userID, stored, time.Now().UTC()); err != nil {
		return "", err
	}
	return code, nil
}

// RecordSubmission stores the protected submitted code and reports
// whether it matches the issued one. ErrInvalidState when no code was
// ever issued.
func (d *Directory) RecordSubmission(ctx context.Context, userID, code string) (bool, error) {
	r, err := d.Store.Registrants().Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if r.IssuedCode == "" || r.Status.Terminal() {
		return false, ErrInvalidState
	}

	stored, err := d.Privacy.Protect(code)
	if err != nil {
		return false, fmt.Errorf("failed to protect code: %w", err)
	}
	if err := d.Store.Registrants().SetCodeSubmitted(ctx, userID, stored, time.Now().UTC()); err != nil {
		return false, err
	}

	match, err := d.Privacy.Matches(r.IssuedCode, code)
	if err != nil {
		return false, fmt.Errorf("failed to compare codes: %w", err)
	}
	return match, nil
}

// Finalize records the operator's decision. Only a CodeSubmitted
// registrant can be finalized.
func (d *Directory) Finalize(ctx context.Context, userID string, approved bool) error {
	to := domain.StatusRejected
	if approved {
		to = domain.StatusApproved
	}

	err := d.Store.Registrants().UpdateStatus(ctx, userID, domain.StatusCodeSubmitted, to, time.Now().UTC())
	if err != nil {
		return d.explainStatusMiss(ctx, userID, err)
	}
	return nil
}

// Restart moves a rejected registrant back to Initiated so they can try
// again. Any other state returns ErrInvalidState.
func (d *Directory) Restart(ctx context.Context, userID string) error {
	err := d.Store.Registrants().UpdateStatus(ctx, userID, domain.StatusRejected, domain.StatusInitiated, time.Now().UTC())
	if err != nil {
		return d.explainStatusMiss(ctx, userID, err)
	}
	return nil
}

// explainStatusMiss turns the guarded-update miss into the right caller
// error: unknown user stays ErrNotFound, a known user in the wrong state
// becomes ErrInvalidState.
func (d *Directory) explainStatusMiss(ctx context.Context, userID string, err error) error {
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if _, getErr := d.Store.Registrants().Get(ctx, userID); getErr != nil {
		return getErr
	}
	return ErrInvalidState
}

// Get returns a registrant record.
func (d *Directory) Get(ctx context.Context, userID string) (domain.Registrant, error) {
	return d.Store.Registrants().Get(ctx, userID)
}

// ListPending returns the most recently active unapproved registrants.
func (d *Directory) ListPending(ctx context.Context, limit int) ([]domain.Registrant, error) {
	if limit <= 0 {
		limit = 20
	}
	return d.Store.Registrants().ListUnapproved(ctx, limit)
}

// Stats returns registrant counts per status.
func (d *Directory) Stats(ctx context.Context) (map[domain.Status]int, error) {
	return d.Store.Registrants().CountByStatus(ctx)
}
