package media

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"crunchbot/internal/config"
)

var percentRe = regexp.MustCompile(`([\d.]+)%`)
var speedRe = regexp.MustCompile(`at\s+([\d.]+\s*\w+/s)`)
var etaRe = regexp.MustCompile(`ETA\s+(\S+)`)
var ytdlpErrorRe = regexp.MustCompile(`(?i)ERROR[:\s]+(.+?)(?:\n|$)`)

type Progress struct {
	Percent float64
	Speed   string
	ETA     string
}

func ParseProgress(text string) Progress {
	var p Progress
	if m := percentRe.FindStringSubmatch(text); len(m) > 1 {
		p.Percent, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := speedRe.FindStringSubmatch(text); len(m) > 1 {
		p.Speed = m[1]
	}
	if m := etaRe.FindStringSubmatch(text); len(m) > 1 {
		p.ETA = m[1]
	}
	return p
}

// Sleeper lets retry tests observe backoff without sleeping.
type Sleeper func(time.Duration)

var downloadFn = Download

// DownloadWithRetry runs Download up to config.DownloadAttempts times.
// Only rate-limit failures are retried, with a linear attempt*5s
// backoff; any other failure class surfaces immediately.
func DownloadWithRetry(ctx context.Context, d Directive, cookieFile, outDir, jobID string, onProgress func(Progress), sleep Sleeper) (string, error) {
	if sleep == nil {
		sleep = time.Sleep
	}
	var err error
	for attempt := 1; attempt <= config.DownloadAttempts; attempt++ {
		var path string
		path, err = downloadFn(ctx, d, cookieFile, outDir, jobID, onProgress)
		if err == nil {
			return path, nil
		}
		if !IsRateLimited(err) || attempt == config.DownloadAttempts {
			return "", err
		}
		sleep(time.Duration(attempt) * config.RetryBackoffUnit)
	}
	return "", err
}

// Download runs yt-dlp for one directive and returns the local file
// path. Partial files are removed on failure.
func Download(ctx context.Context, d Directive, cookieFile, outDir, jobID string, onProgress func(Progress)) (string, error) {
	tempFile := filepath.Join(outDir, fmt.Sprintf("%s.%%(ext)s", jobID))
	args := downloadArgs(d, cookieFile, tempFile)

	cmd := exec.CommandContext(ctx, config.YtdlpPath, args...)
	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		return "", fetchErr(fmt.Sprintf("failed to start yt-dlp: %v", err))
	}

	var stderrOutput strings.Builder
	var lastPercent float64
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)

	report := func(line string) {
		p := ParseProgress(line)
		mu.Lock()
		ok := p.Percent > 0 && (p.Percent > lastPercent+2 || p.Percent >= 100)
		if ok {
			lastPercent = p.Percent
		}
		mu.Unlock()
		if ok && onProgress != nil {
			onProgress(p)
		}
	}

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			report(scanner.Text())
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			stderrOutput.WriteString(line + "\n")
			if strings.Contains(line, "[download]") && strings.Contains(line, "%") {
				report(line)
			}
		}
	}()

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		removeJobFiles(outDir, jobID)
		return "", fetchErr(extractYtdlpError(stderrOutput.String(), "Download failed"))
	}

	path, err := findJobFile(outDir, jobID)
	if err != nil {
		removeJobFiles(outDir, jobID)
		return "", err
	}
	return path, nil
}

func downloadArgs(d Directive, cookieFile, tempFile string) []string {
	args := cookieArgs(cookieFile)
	args = append(args,
		"--no-playlist",
		"--newline",
		"-f", d.FormatSelector,
		"-o", tempFile,
		"--ffmpeg-location", config.FFmpegPath,
	)
	if d.Container != "" {
		if d.QualityLabel == "Audio" {
			// Single-stream fetch: remux into the container, nothing to merge.
			args = append(args, "--remux-video", d.Container)
		} else {
			args = append(args, "--merge-output-format", d.Container)
		}
	}
	return append(args, d.URL)
}

func findJobFile(dir, jobID string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fetchErr("failed to read download dir")
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, jobID) {
			continue
		}
		if strings.HasSuffix(name, ".part") || strings.Contains(name, ".part-Frag") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		return filepath.Join(dir, name), nil
	}
	return "", fetchErr("Downloaded file not found")
}

func removeJobFiles(dir, jobID string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), jobID) {
			os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}
