// Package format renders counters, ages and playback positions for display.
package format

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

var ageMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "just now", DivBy: time.Second},
	{D: time.Hour, Format: "%dm %s", DivBy: time.Minute},
	{D: day, Format: "%dh %s", DivBy: time.Hour},
	{D: week, Format: "%dd %s", DivBy: day},
	{D: month, Format: "%dw %s", DivBy: week},
	{D: year, Format: "%dmo %s", DivBy: month},
	{D: math.MaxInt64, Format: "%dy %s", DivBy: year},
}

var numberScales = []struct {
	size   uint64
	suffix string
}{
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// Number abbreviates a counter to at most one decimal ("1.2K", "3M").
// Values are truncated rather than rounded so a larger count never renders
// as a smaller-looking label.
func Number(n int64) string {
	if n < 0 {
		// Negating math.MinInt64 overflows, so take the magnitude unsigned.
		return "-" + abbreviate(uint64(-(n + 1)) + 1)
	}
	return abbreviate(uint64(n))
}

func abbreviate(n uint64) string {
	for _, scale := range numberScales {
		if n >= scale.size {
			tenths := n / (scale.size / 10)
			return humanize.FtoaWithDigits(float64(tenths)/10, 1) + scale.suffix
		}
	}
	return fmt.Sprintf("%d", n)
}

// Percent renders a percentage with at most one decimal ("12.5%").
func Percent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		p = 0
	}
	return humanize.FtoaWithDigits(p, 1) + "%"
}

// TimeAgo renders the age of t relative to now ("3h ago").
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.CustomRelTime(t, now, "ago", "from now", ageMagnitudes)
}

// Clock renders a position in seconds as m:ss, flooring to whole seconds.
func Clock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// ParseTimestamp reads an ISO-8601 timestamp, returning the zero time when
// the value is empty or malformed.
func ParseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
