package util

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"crunchbot/internal/config"
)

var unsafeFilenameRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
var multiSpaceRe = regexp.MustCompile(`\s+`)

func ClearTempDirs() {
	for _, dir := range config.TempDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			os.MkdirAll(dir, 0755)
			continue
		}
		for _, e := range entries {
			os.RemoveAll(filepath.Join(dir, e.Name()))
		}
	}
	fmt.Println("✓ Cleared temp directories")
}

// CleanupTempFiles removes leftovers older than the retention window.
// Abandoned downloads and stray cookie files both land here.
func CleanupTempFiles() {
	now := time.Now()
	for _, dir := range config.TempDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) > config.FileRetention {
				os.RemoveAll(filepath.Join(dir, e.Name()))
				log.Printf("Cleaned up old temp: %s", e.Name())
			}
		}
	}
}

func SanitizeFilename(filename string) string {
	s := unsafeFilenameRe.ReplaceAllString(filename, "_")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func StartCleanupInterval() {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for range ticker.C {
			CleanupTempFiles()
		}
	}()
}
