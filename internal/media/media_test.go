package media

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crunchbot/internal/config"
)

func TestDirectiveFor(t *testing.T) {
	d := DirectiveFor("https://example.com/v", "Episode 1", 1080)
	require.Equal(t, "bv[height<=1080]+ba/b[height<=1080]", d.FormatSelector)
	require.Equal(t, "mkv", d.Container)
	require.Equal(t, "1080p", d.QualityLabel)
	require.Equal(t, "Episode 1", d.OutputName)

	a := DirectiveFor("https://example.com/v", "Episode 1", 0)
	require.Equal(t, "bestaudio/best", a.FormatSelector)
	require.Equal(t, "m4a", a.Container)
	require.Equal(t, "Audio", a.QualityLabel)
}

func TestDownloadArgsApplyContainer(t *testing.T) {
	video := strings.Join(downloadArgs(DirectiveFor("https://example.com/v", "ep", 720), "", "/tmp/job.%(ext)s"), " ")
	require.Contains(t, video, "--merge-output-format mkv")
	require.NotContains(t, video, "--remux-video")
	require.NotContains(t, video, "--cookies")

	audio := strings.Join(downloadArgs(DirectiveFor("https://example.com/v", "ep", 0), "/tmp/c.txt", "/tmp/job.%(ext)s"), " ")
	require.Contains(t, audio, "--remux-video m4a")
	require.NotContains(t, audio, "--merge-output-format")
	require.Contains(t, audio, "--cookies /tmp/c.txt")
}

func TestClassify(t *testing.T) {
	require.Equal(t, FailureRateLimited, classify("HTTP Error 429: Too Many Requests"))
	require.Equal(t, FailureRateLimited, classify("rate limit exceeded, slow down"))
	require.Equal(t, FailureOther, classify("Video unavailable"))
	require.Equal(t, FailureOther, classify("Unsupported URL"))

	require.True(t, IsRateLimited(fetchErr("429 too many requests")))
	require.False(t, IsRateLimited(fetchErr("private video")))
	require.False(t, IsRateLimited(context.Canceled))
}

func TestParseProgress(t *testing.T) {
	p := ParseProgress("[download]  42.3% of 120.00MiB at 3.2 MiB/s ETA 00:25")
	require.InDelta(t, 42.3, p.Percent, 0.001)
	require.Equal(t, "3.2 MiB/s", p.Speed)
	require.Equal(t, "00:25", p.ETA)

	empty := ParseProgress("no progress here")
	require.Zero(t, empty.Percent)
	require.Empty(t, empty.Speed)
}

func TestRetryOnlyOnRateLimit(t *testing.T) {
	orig := downloadFn
	defer func() { downloadFn = orig }()

	t.Run("rate limit retries with linear backoff", func(t *testing.T) {
		calls := 0
		downloadFn = func(ctx context.Context, d Directive, cookieFile, outDir, jobID string, onProgress func(Progress)) (string, error) {
			calls++
			return "", fetchErr("HTTP Error 429")
		}

		var slept []time.Duration
		_, err := DownloadWithRetry(context.Background(), Directive{}, "", "", "job", nil,
			func(d time.Duration) { slept = append(slept, d) })

		require.Error(t, err)
		require.Equal(t, config.DownloadAttempts, calls)
		require.Equal(t, []time.Duration{
			1 * config.RetryBackoffUnit,
			2 * config.RetryBackoffUnit,
		}, slept, "backoff grows linearly and skips the final attempt")
	})

	t.Run("other failures surface immediately", func(t *testing.T) {
		calls := 0
		downloadFn = func(ctx context.Context, d Directive, cookieFile, outDir, jobID string, onProgress func(Progress)) (string, error) {
			calls++
			return "", fetchErr("Video unavailable")
		}

		_, err := DownloadWithRetry(context.Background(), Directive{}, "", "", "job", nil,
			func(time.Duration) { t.Fatal("must not sleep for non-rate-limit failures") })

		require.Error(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("success after a rate-limited attempt", func(t *testing.T) {
		calls := 0
		downloadFn = func(ctx context.Context, d Directive, cookieFile, outDir, jobID string, onProgress func(Progress)) (string, error) {
			calls++
			if calls == 1 {
				return "", fetchErr("rate limit")
			}
			return "/tmp/out.mkv", nil
		}

		path, err := DownloadWithRetry(context.Background(), Directive{}, "", "", "job", nil,
			func(time.Duration) {})
		require.NoError(t, err)
		require.Equal(t, "/tmp/out.mkv", path)
		require.Equal(t, 2, calls)
	})
}

func TestToUserError(t *testing.T) {
	require.Equal(t, "This video requires a premium subscription", ToUserError("ERROR: premium only content"))
	require.Equal(t, "Login required, set your cookies with /cookies set", ToUserError("sign in to continue"))
	require.Equal(t, "Rate limited, try again in a few minutes", ToUserError("HTTP Error 429"))
	require.Equal(t, "This website isn't supported", ToUserError("Unsupported URL: ftp://x"))
	require.Equal(t, "Download failed", ToUserError("some novel failure"))
}
