package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusInitiated, StatusContactReceived, true},
		{StatusInitiated, StatusCodeIssued, true}, // forward jump allowed
		{StatusContactReceived, StatusCodeIssued, true},
		{StatusCodeIssued, StatusCodeIssued, true}, // code re-issue
		{StatusCodeIssued, StatusCodeSubmitted, true},
		{StatusCodeSubmitted, StatusApproved, true},
		{StatusCodeSubmitted, StatusRejected, true},
		{StatusRejected, StatusInitiated, true}, // explicit restart

		{StatusCodeSubmitted, StatusCodeIssued, false}, // no going back
		{StatusApproved, StatusInitiated, false},       // approved is terminal
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusCodeIssued, false}, // restart only to initiated
		{StatusInitiated, Status("banana"), false},
		{Status(""), StatusInitiated, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	require.True(t, StatusApproved.Terminal())
	require.True(t, StatusRejected.Terminal())
	require.False(t, StatusCodeSubmitted.Terminal())
	require.False(t, StatusInitiated.Terminal())
}

func TestRequestStatus(t *testing.T) {
	t.Parallel()

	require.True(t, RequestApproved.Resolved())
	require.True(t, RequestFailed.Resolved())
	require.False(t, RequestPending.Resolved())
	require.False(t, RequestStatus("bogus").Valid())
}
