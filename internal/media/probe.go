package media

import (
	"context"
	"encoding/json"
	"os/exec"
	"sort"
	"strings"

	"crunchbot/internal/config"
)

// maxQualityTiers caps the quality menu so it fits one row of Discord
// buttons next to the audio option.
const maxQualityTiers = 4

// Probe runs a metadata-only fetch and collapses the format list into
// distinct vertical resolutions. cookieFile may be empty.
func Probe(ctx context.Context, url, cookieFile string) (*Info, error) {
	args := cookieArgs(cookieFile)
	args = append(args, "--no-playlist", "--no-download", "-J", url)

	cmd := exec.CommandContext(ctx, config.YtdlpPath, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fetchErr(extractYtdlpError(string(exitErr.Stderr), "Failed to fetch video info"))
		}
		return nil, fetchErr(err.Error())
	}

	var raw struct {
		Title   string `json:"title"`
		Series  string `json:"series"`
		Formats []struct {
			Height int    `json:"height"`
			Vcodec string `json:"vcodec"`
		} `json:"formats"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fetchErr("Failed to parse video info")
	}

	seen := map[int]bool{}
	heights := []int{}
	for _, f := range raw.Formats {
		if f.Height <= 0 || f.Vcodec == "none" || seen[f.Height] {
			continue
		}
		seen[f.Height] = true
		heights = append(heights, f.Height)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))
	if len(heights) > maxQualityTiers {
		heights = heights[:maxQualityTiers]
	}

	title := raw.Title
	if title == "" {
		title = "video"
	}

	return &Info{
		Title:          title,
		Series:         raw.Series,
		Heights:        heights,
		FormatSelector: "bv+ba/b",
	}, nil
}

func cookieArgs(cookieFile string) []string {
	if cookieFile == "" {
		return nil
	}
	return []string{"--cookies", cookieFile}
}

func extractYtdlpError(stderr, fallback string) string {
	if m := ytdlpErrorRe.FindStringSubmatch(stderr); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return fallback
}
