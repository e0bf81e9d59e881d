package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApproveWithoutRequest(t *testing.T) {
	a := NewApprovals()

	_, err := a.Approve("42")
	require.ErrorIs(t, err, ErrNoSuchRequest)
	_, err = a.Deny("42")
	require.ErrorIs(t, err, ErrNoSuchRequest)
	require.Equal(t, 0, a.Count())
}

func TestRequestThenApprove(t *testing.T) {
	a := NewApprovals()
	a.Request("42", "kana")
	require.Equal(t, 1, a.Count())

	req, err := a.Approve("42")
	require.NoError(t, err)
	require.Equal(t, "42", req.UserID)
	require.Equal(t, "kana", req.DisplayName)
	require.Equal(t, 0, a.Count())

	// Approval consumed the record; acting again must fail.
	_, err = a.Approve("42")
	require.ErrorIs(t, err, ErrNoSuchRequest)
}

func TestRepeatRequestOverwrites(t *testing.T) {
	a := NewApprovals()
	a.Request("42", "old-name")
	a.Request("42", "new-name")
	require.Equal(t, 1, a.Count())

	req, err := a.Deny("42")
	require.NoError(t, err)
	require.Equal(t, "new-name", req.DisplayName)
}

func TestRequestsAreIndependentPerUser(t *testing.T) {
	a := NewApprovals()
	a.Request("42", "kana")
	a.Request("7", "rin")

	_, err := a.Deny("42")
	require.NoError(t, err)
	require.Equal(t, 1, a.Count())

	req, err := a.Approve("7")
	require.NoError(t, err)
	require.Equal(t, "rin", req.DisplayName)
}
