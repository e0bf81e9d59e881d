// Package media wraps the external yt-dlp binary: a metadata-only probe
// and the actual download. Both are fallible black boxes; only
// rate-limit failures are retried.
package media

import "fmt"

// Info is the descriptor returned by a probe: enough to render a
// quality menu and name the output file.
type Info struct {
	Title          string
	Series         string
	Heights        []int // distinct vertical resolutions, descending
	FormatSelector string
}

// Directive is everything the downloader needs for one fetch. It is
// built either from a cached session plus the user's quality choice, or
// directly when the command carried an explicit quality/audio flag.
type Directive struct {
	URL            string
	FormatSelector string
	Container      string
	QualityLabel   string
	OutputName     string
}

// DirectiveFor builds the download directive for a quality choice.
// height <= 0 selects audio-only.
func DirectiveFor(url, outputName string, height int) Directive {
	if height <= 0 {
		return Directive{
			URL:            url,
			FormatSelector: "bestaudio/best",
			Container:      "m4a",
			QualityLabel:   "Audio",
			OutputName:     outputName,
		}
	}
	return Directive{
		URL:            url,
		FormatSelector: fmt.Sprintf("bv[height<=%d]+ba/b[height<=%d]", height, height),
		Container:      "mkv",
		QualityLabel:   fmt.Sprintf("%dp", height),
		OutputName:     outputName,
	}
}
