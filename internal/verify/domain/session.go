package domain

import (
	"strings"
	"time"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 5

// Session is the ephemeral keypad state for one registrant. It is a pure
// state machine: no locking, no I/O, no rendering. The session manager
// owns serialization and lifetime.
type Session struct {
	UserID     string
	Expected   string // plaintext code, memory only
	MessageRef string // prompt message to edit on each keypress
	Attempts   int    // submission attempts
	CreatedAt  time.Time

	entered []byte
}

// NewSession starts an empty session for userID.
func NewSession(userID, expected, messageRef string, at time.Time) *Session {
	return &Session{
		UserID:     userID,
		Expected:   expected,
		MessageRef: messageRef,
		CreatedAt:  at,
		entered:    make([]byte, 0, CodeLength),
	}
}

// Append adds a digit to the buffer. It reports whether the buffer
// changed; a full buffer ignores further digits.
func (s *Session) Append(digit byte) bool {
	if digit < '0' || digit > '9' {
		return false
	}
	if len(s.entered) >= CodeLength {
		return false
	}
	s.entered = append(s.entered, digit)
	return true
}

// Backspace removes the last digit, if any remain.
func (s *Session) Backspace() bool {
	if len(s.entered) == 0 {
		return false
	}
	s.entered = s.entered[:len(s.entered)-1]
	return true
}

// Entered returns the digits entered so far.
func (s *Session) Entered() string {
	return string(s.entered)
}

// Complete reports whether all digits have been entered.
func (s *Session) Complete() bool {
	return len(s.entered) == CodeLength
}

// Mask renders the filled/empty indicator shown in the prompt, e.g. three
// entered digits become "●●●○○".
func (s *Session) Mask() string {
	var b strings.Builder
	b.Grow(CodeLength * 3)
	for i := range CodeLength {
		if i < len(s.entered) {
			b.WriteRune('●')
		} else {
			b.WriteRune('○')
		}
	}
	return b.String()
}

// Expired reports whether the session has outlived ttl at time now.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(s.CreatedAt) >= ttl
}
