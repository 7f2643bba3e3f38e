package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/domain"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired")
)

// SubmitFunc receives the completed code. The session is destroyed only
// when it returns nil, so a failed submission can be retried.
type SubmitFunc func(ctx context.Context, userID, code, messageRef string) error

// Keypress is the outcome of a single keypad event, used by callers to
// re-render the prompt.
type Keypress struct {
	Mask       string
	Complete   bool
	Submitted  bool
	MessageRef string
}

// Sessions holds the live keypad sessions, one per user. All events for
// a user are serialized on a per-session lock; events for different
// users run concurrently. Expiry is checked lazily on every event and
// swept by housekeeping.
type Sessions struct {
	TTL        time.Duration
	AutoSubmit bool
	OnSubmit   SubmitFunc
	Now        func() time.Time // test hook, defaults to time.Now

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu sync.Mutex
	s  *domain.Session
}

func (m *Sessions) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Begin starts a fresh session for userID, replacing any existing one.
func (m *Sessions) Begin(userID, expected, messageRef string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions == nil {
		m.sessions = make(map[string]*sessionEntry)
	}
	m.sessions[userID] = &sessionEntry{
		s: domain.NewSession(userID, expected, messageRef, m.now()),
	}
}

// End discards the session for userID, if any.
func (m *Sessions) End(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Active reports whether userID has a live session.
func (m *Sessions) Active(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// acquire returns the locked entry for userID, handling the lazy expiry
// check. The caller must unlock entry.mu.
func (m *Sessions) acquire(userID string) (*sessionEntry, error) {
	m.mu.Lock()
	entry, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNoSession
	}

	entry.mu.Lock()
	if entry.s.Expired(m.TTL, m.now()) {
		entry.mu.Unlock()
		m.mu.Lock()
		// Only remove if another event has not replaced the session.
		if cur, ok := m.sessions[userID]; ok && cur == entry {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		return nil, ErrSessionExpired
	}
	return entry, nil
}

// AppendDigit handles a digit keypress. When the buffer reaches the full
// code length and auto submit is on, the submit callback fires
// immediately.
func (m *Sessions) AppendDigit(ctx context.Context, userID string, digit byte) (Keypress, error) {
	entry, err := m.acquire(userID)
	if err != nil {
		return Keypress{}, err
	}
	defer entry.mu.Unlock()

	entry.s.Append(digit)
	kp := m.snapshot(entry.s)

	if entry.s.Complete() && m.AutoSubmit {
		return m.submitLocked(ctx, entry, kp)
	}
	return kp, nil
}

// Backspace removes the last entered digit.
func (m *Sessions) Backspace(userID string) (Keypress, error) {
	entry, err := m.acquire(userID)
	if err != nil {
		return Keypress{}, err
	}
	defer entry.mu.Unlock()

	entry.s.Backspace()
	return m.snapshot(entry.s), nil
}

// Submit fires the submit callback for a complete buffer. An incomplete
// buffer returns ErrInvalidState.
func (m *Sessions) Submit(ctx context.Context, userID string) (Keypress, error) {
	entry, err := m.acquire(userID)
	if err != nil {
		return Keypress{}, err
	}
	defer entry.mu.Unlock()

	if !entry.s.Complete() {
		return m.snapshot(entry.s), ErrInvalidState
	}
	return m.submitLocked(ctx, entry, m.snapshot(entry.s))
}

// submitLocked runs OnSubmit with the entry lock held, so a second event
// for the same user cannot observe a half-submitted session.
func (m *Sessions) submitLocked(ctx context.Context, entry *sessionEntry, kp Keypress) (Keypress, error) {
	entry.s.Attempts++
	if m.OnSubmit != nil {
		if err := m.OnSubmit(ctx, entry.s.UserID, entry.s.Entered(), entry.s.MessageRef); err != nil {
			return kp, err
		}
	}

	m.mu.Lock()
	if cur, ok := m.sessions[entry.s.UserID]; ok && cur == entry {
		delete(m.sessions, entry.s.UserID)
	}
	m.mu.Unlock()

	kp.Submitted = true
	return kp, nil
}

func (m *Sessions) snapshot(s *domain.Session) Keypress {
	return Keypress{
		Mask:       s.Mask(),
		Complete:   s.Complete(),
		MessageRef: s.MessageRef,
	}
}

// SweepExpired drops expired sessions and reports how many were removed.
// Expiry is already enforced lazily; this only reclaims memory for
// abandoned sessions.
func (m *Sessions) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for userID, entry := range m.sessions {
		if entry.s.Expired(m.TTL, now) {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}
