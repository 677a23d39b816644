package export

import (
	"fmt"
	"math"
)

// FormatTimestamp renders a second offset in the SRT timestamp form
// HH:MM:SS,mmm. Fractional milliseconds are truncated, not rounded, and
// the hour field widens past two digits for very long recordings.
// Negative offsets are clamped to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	whole := int64(seconds)
	hours := whole / 3600
	minutes := (whole % 3600) / 60
	secs := whole % 60
	millis := int64((seconds - float64(whole)) * 1000)

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
