package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type submitRecorder struct {
	calls []string
	fail  error
}

func (r *submitRecorder) submit(_ context.Context, userID, code, messageRef string) error {
	if r.fail != nil {
		return r.fail
	}
	r.calls = append(r.calls, userID+":"+code+":"+messageRef)
	return nil
}

func newTestSessions(rec *submitRecorder) (*Sessions, *time.Time) {
	now := time.Now()
	m := &Sessions{
		TTL:        10 * time.Minute,
		AutoSubmit: true,
		OnSubmit:   rec.submit,
		Now:        func() time.Time { return now },
	}
	return m, &now
}

func TestSessionsAutoSubmitOnFifthDigit(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{}
	m, _ := newTestSessions(rec)
	ctx := context.Background()

	m.Begin("u1", "13579", "msg-1")

	for _, d := range []byte("1357") {
		kp, err := m.AppendDigit(ctx, "u1", d)
		require.NoError(t, err)
		require.False(t, kp.Submitted)
	}

	kp, err := m.AppendDigit(ctx, "u1", '9')
	require.NoError(t, err)
	require.True(t, kp.Submitted)
	require.Equal(t, []string{"u1:13579:msg-1"}, rec.calls)

	// session is gone after a successful submit
	require.False(t, m.Active("u1"))
	_, err = m.AppendDigit(ctx, "u1", '1')
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionsManualSubmit(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{}
	m, _ := newTestSessions(rec)
	m.AutoSubmit = false
	ctx := context.Background()

	m.Begin("u1", "13579", "msg-1")
	for _, d := range []byte("13579") {
		kp, err := m.AppendDigit(ctx, "u1", d)
		require.NoError(t, err)
		require.False(t, kp.Submitted)
	}
	require.Empty(t, rec.calls)

	kp, err := m.Submit(ctx, "u1")
	require.NoError(t, err)
	require.True(t, kp.Submitted)
	require.Len(t, rec.calls, 1)
}

func TestSessionsSubmitIncomplete(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{}
	m, _ := newTestSessions(rec)
	m.AutoSubmit = false
	ctx := context.Background()

	m.Begin("u1", "13579", "msg-1")
	_, err := m.AppendDigit(ctx, "u1", '1')
	require.NoError(t, err)

	_, err = m.Submit(ctx, "u1")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Empty(t, rec.calls)
	require.True(t, m.Active("u1"))
}

func TestSessionsSubmitFailureKeepsSession(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{fail: errors.New("store down")}
	m, _ := newTestSessions(rec)
	ctx := context.Background()

	m.Begin("u1", "13579", "msg-1")
	var err error
	for _, d := range []byte("13579") {
		_, err = m.AppendDigit(ctx, "u1", d)
	}
	require.Error(t, err)
	require.True(t, m.Active("u1"))

	// retry once the fault clears
	rec.fail = nil
	kp, err := m.Submit(ctx, "u1")
	require.NoError(t, err)
	require.True(t, kp.Submitted)
}

func TestSessionsBackspaceAndMask(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{}
	m, _ := newTestSessions(rec)
	ctx := context.Background()

	m.Begin("u1", "13579", "msg-1")
	_, err := m.AppendDigit(ctx, "u1", '1')
	require.NoError(t, err)
	kp, err := m.AppendDigit(ctx, "u1", '3')
	require.NoError(t, err)
	require.Equal(t, "●●○○○", kp.Mask)

	kp, err = m.Backspace("u1")
	require.NoError(t, err)
	require.Equal(t, "●○○○○", kp.Mask)
}

func TestSessionsExpiry(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{}
	m, now := newTestSessions(rec)
	ctx := context.Background()

	m.Begin("u1", "13579", "msg-1")
	*now = now.Add(11 * time.Minute)

	_, err := m.AppendDigit(ctx, "u1", '1')
	require.ErrorIs(t, err, ErrSessionExpired)

	// the expired session was discarded, a later event sees no session
	_, err = m.AppendDigit(ctx, "u1", '1')
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionsBeginReplaces(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{}
	m, _ := newTestSessions(rec)
	ctx := context.Background()

	m.Begin("u1", "11111", "msg-1")
	_, err := m.AppendDigit(ctx, "u1", '9')
	require.NoError(t, err)

	// a fresh session starts empty with the new code
	m.Begin("u1", "22222", "msg-2")
	kp, err := m.AppendDigit(ctx, "u1", '2')
	require.NoError(t, err)
	require.Equal(t, "●○○○○", kp.Mask)
	require.Equal(t, "msg-2", kp.MessageRef)
}

func TestSessionsSweepExpired(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{}
	m, now := newTestSessions(rec)

	m.Begin("u1", "11111", "msg-1")
	m.Begin("u2", "22222", "msg-2")

	*now = now.Add(11 * time.Minute)
	m.Begin("u3", "33333", "msg-3")

	require.Equal(t, 2, m.SweepExpired())
	require.False(t, m.Active("u1"))
	require.True(t, m.Active("u3"))
}

func TestSessionsEnd(t *testing.T) {
	t.Parallel()

	rec := &submitRecorder{}
	m, _ := newTestSessions(rec)

	m.Begin("u1", "11111", "msg-1")
	m.End("u1")
	require.False(t, m.Active("u1"))

	// ending a missing session is harmless
	m.End("u1")
}
