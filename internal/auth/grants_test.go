package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const adminID = "1000"

func newTestGrants(t *testing.T) (*Grants, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sudo_users.json")
	g, err := NewGrants(adminID, path)
	require.NoError(t, err)
	return g, path
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		spec      string
		want      time.Duration
		permanent bool
		ok        bool
	}{
		{"permanent", 0, true, true},
		{"1h", time.Hour, false, true},
		{"3d", 3 * 24 * time.Hour, false, true},
		{"2w", 14 * 24 * time.Hour, false, true},
		{"1m", 30 * 24 * time.Hour, false, true},
		{"1y", 365 * 24 * time.Hour, false, true},
		{"abc", 0, false, false},
		{"", 0, false, false},
		{"0d", 0, false, false},
		{"-1d", 0, false, false},
		{"3days", 0, false, false},
		{"d3", 0, false, false},
	}
	for _, tc := range cases {
		d, permanent, err := ParseDuration(tc.spec)
		if !tc.ok {
			require.ErrorIs(t, err, ErrInvalidDuration, "spec %q", tc.spec)
			continue
		}
		require.NoError(t, err, "spec %q", tc.spec)
		require.Equal(t, tc.permanent, permanent, "spec %q", tc.spec)
		require.Equal(t, tc.want, d, "spec %q", tc.spec)
	}
}

func TestAdminAlwaysAllowed(t *testing.T) {
	g, _ := newTestGrants(t)
	require.True(t, g.Allows(adminID))

	g.now = func() time.Time { return time.Now().Add(10 * 365 * 24 * time.Hour) }
	require.True(t, g.Allows(adminID))
}

func TestPermanentGrantNeverExpires(t *testing.T) {
	g, _ := newTestGrants(t)
	_, err := g.Grant("42", "permanent")
	require.NoError(t, err)

	g.now = func() time.Time { return time.Now().Add(5 * 365 * 24 * time.Hour) }
	require.True(t, g.Allows("42"))
}

func TestExpiryTimeline(t *testing.T) {
	g, _ := newTestGrants(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	_, err := g.Grant("42", "3d")
	require.NoError(t, err)

	g.now = func() time.Time { return base.Add(2 * 24 * time.Hour) }
	require.True(t, g.Allows("42"))

	g.now = func() time.Time { return base.Add(4 * 24 * time.Hour) }
	require.False(t, g.Allows("42"))

	// Lazy expiry removed the grant; the next read fails the lookup.
	for _, info := range g.List() {
		require.NotEqual(t, "42", info.UserID)
	}
	require.False(t, g.Allows("42"))
}

func TestGrantOverwritesExpiry(t *testing.T) {
	g, _ := newTestGrants(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	_, err := g.Grant("42", "1h")
	require.NoError(t, err)
	_, err = g.Grant("42", "permanent")
	require.NoError(t, err)

	g.now = func() time.Time { return base.Add(48 * time.Hour) }
	require.True(t, g.Allows("42"))
	require.Equal(t, 1, g.Count())
}

func TestInvalidDurationLeavesSetUnchanged(t *testing.T) {
	g, _ := newTestGrants(t)

	_, err := g.Grant("7", "abc")
	require.ErrorIs(t, err, ErrInvalidDuration)
	require.Equal(t, 0, g.Count())

	info, err := g.Grant("7", "permanent")
	require.NoError(t, err)
	require.Equal(t, "Permanent", info.Remaining)
}

func TestRevoke(t *testing.T) {
	g, _ := newTestGrants(t)
	_, err := g.Grant("42", "1d")
	require.NoError(t, err)

	require.False(t, g.Revoke(adminID), "admin must not be revocable")
	require.False(t, g.Revoke("99"), "unknown user revoke must be a no-op")
	require.Equal(t, 1, g.Count())

	require.True(t, g.Revoke("42"))
	require.False(t, g.Allows("42"))
	require.False(t, g.Revoke("42"), "second revoke must fail")
}

func TestAdminGrantNotPersisted(t *testing.T) {
	g, path := newTestGrants(t)
	_, err := g.Grant(adminID, "permanent")
	require.NoError(t, err)
	require.Equal(t, 0, g.Count())

	reloaded, err := NewGrants(adminID, path)
	require.NoError(t, err)
	require.Equal(t, 0, reloaded.Count())
}

func TestListOrderingAndDisplay(t *testing.T) {
	g, _ := newTestGrants(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	_, err := g.Grant("300", "permanent")
	require.NoError(t, err)
	_, err = g.Grant("42", "2d")
	require.NoError(t, err)
	_, err = g.Grant("7", "1h")
	require.NoError(t, err)

	// Move past user 7's expiry; listing must not delete it.
	g.now = func() time.Time { return base.Add(26 * time.Hour) }
	list := g.List()
	require.Len(t, list, 3)
	require.Equal(t, "7", list[0].UserID)
	require.Equal(t, "Expired", list[0].Remaining)
	require.Equal(t, "42", list[1].UserID)
	require.Equal(t, "0d 22h", list[1].Remaining)
	require.Equal(t, "300", list[2].UserID)
	require.Equal(t, "Permanent", list[2].Remaining)
}

func TestPersistedRoundTrip(t *testing.T) {
	g, path := newTestGrants(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	_, err := g.Grant("42", "3d")
	require.NoError(t, err)
	_, err = g.Grant("300", "permanent")
	require.NoError(t, err)

	reloaded, err := NewGrants(adminID, path)
	require.NoError(t, err)
	reloaded.now = func() time.Time { return base.Add(24 * time.Hour) }

	require.True(t, reloaded.Allows("42"))
	require.True(t, reloaded.Allows("300"))
	require.Equal(t, 2, reloaded.Count())

	reloaded.now = func() time.Time { return base.Add(4 * 24 * time.Hour) }
	require.False(t, reloaded.Allows("42"))
	require.True(t, reloaded.Allows("300"))
}

func TestPersistenceFailureKeepsGrantActive(t *testing.T) {
	g, _ := newTestGrants(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	// Make every save fail: the path's parent is a regular file, so the
	// store can neither create the directory nor write the document.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	g.path = filepath.Join(blocker, "sudo_users.json")

	info, err := g.Grant("42", "3d")
	require.NoError(t, err, "a failed save must not fail the grant")
	require.Equal(t, "3d 0h", info.Remaining)
	require.True(t, g.Allows("42"), "the in-memory grant stays active")
	require.Equal(t, 1, g.Count())

	_, statErr := os.Stat(g.path)
	require.Error(t, statErr, "nothing was written")

	// Lazy expiry still removes the grant in memory on the same path.
	g.now = func() time.Time { return base.Add(4 * 24 * time.Hour) }
	require.False(t, g.Allows("42"))
	require.Equal(t, 0, g.Count())
}

func TestGuildGating(t *testing.T) {
	g, _ := newTestGrants(t)
	guilds, err := NewGuilds(filepath.Join(t.TempDir(), "authorized_guilds.json"))
	require.NoError(t, err)
	authz := &Authorizer{Grants: g, Guilds: guilds}

	_, err = g.Grant("42", "permanent")
	require.NoError(t, err)

	require.True(t, authz.IsAuthorized("42", ""), "DM context needs no guild listing")
	require.False(t, authz.IsAuthorized("42", "555"), "unlisted guild gates a granted user")
	require.False(t, authz.IsAuthorized(adminID, "555"), "unlisted guild gates the admin too")

	require.True(t, guilds.Authorize("555"))
	require.False(t, guilds.Authorize("555"), "second authorize is a no-op")
	require.True(t, authz.IsAuthorized("42", "555"))
	require.True(t, authz.IsAuthorized(adminID, "555"))
}

func TestGuildsPersistAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_guilds.json")
	guilds, err := NewGuilds(path)
	require.NoError(t, err)
	guilds.Authorize("555")
	guilds.Authorize("123")

	reloaded, err := NewGuilds(path)
	require.NoError(t, err)
	require.True(t, reloaded.Contains("555"))
	require.True(t, reloaded.Contains("123"))
	require.False(t, reloaded.Contains("999"))
	require.Equal(t, 2, reloaded.Count())
}
