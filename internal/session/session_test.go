package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crunchbot/internal/media"
)

func TestTakeWithoutProbe(t *testing.T) {
	s := NewStore()
	_, err := s.Take("42")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionIsSingleUse(t *testing.T) {
	s := NewStore()
	s.Put("42", Session{URL: "https://example.com/ep1", CreatedAt: time.Now()})

	sess, err := s.Take("42")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/ep1", sess.URL)

	_, err = s.Take("42")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSecondProbeOverwritesFirst(t *testing.T) {
	s := NewStore()
	s.Put("42", Session{
		URL:  "https://example.com/ep1",
		Info: media.Info{Title: "Episode 1", Heights: []int{1080, 720}},
	})
	s.Put("42", Session{
		URL:  "https://example.com/ep2",
		Info: media.Info{Title: "Episode 2", Heights: []int{720}},
	})
	require.Equal(t, 1, s.Count())

	sess, err := s.Take("42")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/ep2", sess.URL)
	require.Equal(t, "Episode 2", sess.Info.Title)
}

func TestSessionsKeyedPerUser(t *testing.T) {
	s := NewStore()
	s.Put("42", Session{URL: "https://example.com/a"})
	s.Put("7", Session{URL: "https://example.com/b"})

	sess, err := s.Take("7")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/b", sess.URL)

	sess, err = s.Take("42")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a", sess.URL)
}
