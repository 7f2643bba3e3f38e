// Package privx provides pluggable at-rest protection for sensitive
// registrant fields (contact references and verification codes). The
// state machine never depends on a particular scheme; callers pick a
// Policy at wiring time.
package privx

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrIrreversible reports a Reveal call against a one-way policy.
	ErrIrreversible = errors.New("privx: stored value cannot be revealed")

	// ErrUnknownPolicy reports an unrecognised policy name.
	ErrUnknownPolicy = errors.New("privx: unknown policy")
)

// Policy transforms sensitive values into their stored form.
type Policy interface {
	// Protect returns the form of value that may be written to the store.
	Protect(value string) (string, error)

	// Reveal maps a stored form back to the original value, or
	// ErrIrreversible for one-way policies.
	Reveal(stored string) (string, error)

	// Matches reports whether candidate corresponds to stored.
	Matches(stored, candidate string) (bool, error)
}

// Cleartext stores values as-is. Only suitable for development.
type Cleartext struct{}

func (Cleartext) Protect(value string) (string, error) { return value, nil }
func (Cleartext) Reveal(stored string) (string, error) { return stored, nil }

func (Cleartext) Matches(stored, candidate string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1, nil
}

// Fingerprint stores a SHA-256 digest. Values can be matched but never
// recovered. This is the default posture.
type Fingerprint struct{}

func (Fingerprint) Protect(value string) (string, error) {
	sum := sha256.Sum256([]byte(value))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func (Fingerprint) Reveal(string) (string, error) { return "", ErrIrreversible }

func (f Fingerprint) Matches(stored, candidate string) (bool, error) {
	protected, err := f.Protect(candidate)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(protected)) == 1, nil
}

// FromName builds the policy selected by configuration. The sealed policy
// needs a key file path; the others ignore it.
func FromName(name, keyPath string) (Policy, error) {
	switch name {
	case "cleartext":
		return Cleartext{}, nil
	case "fingerprint", "":
		return Fingerprint{}, nil
	case "sealed":
		key, err := LoadOrCreateKey(keyPath)
		if err != nil {
			return nil, fmt.Errorf("load sealing key: %w", err)
		}
		return NewSealed(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
