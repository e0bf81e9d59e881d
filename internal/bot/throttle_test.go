package bot

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProgressThrottleDropsRapidUpdates(t *testing.T) {
	pt := newProgressThrottle(time.Hour)

	edits := 0
	pt.run(10, func() { edits++ })
	pt.run(20, func() { edits++ })
	pt.run(30, func() { edits++ })
	require.Equal(t, 1, edits, "updates inside the interval are dropped")

	pt.run(100, func() { edits++ })
	require.Equal(t, 2, edits, "the terminal update bypasses the interval")
}

func TestProgressThrottleSerializesConcurrentReporters(t *testing.T) {
	pt := newProgressThrottle(time.Hour)

	// Two reporters, like the downloader's stdout and stderr readers.
	var inEdit, edits atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				pt.run(100, func() {
					if inEdit.Add(1) != 1 {
						t.Error("overlapping edits")
					}
					edits.Add(1)
					inEdit.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(400), edits.Load())
}
