// Package timecode converts between durations and the HH:MM:SS stamps the
// analysis models speak.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Parse reads an "HH:MM:SS" or "MM:SS" stamp. Fields are not capped at 59,
// so "75:30" is 1h15m30s, and the seconds field may carry a fraction, which
// is truncated.
func Parse(stamp string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(stamp), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp format: %q", stamp)
	}

	last := len(parts) - 1
	secs, err := strconv.ParseFloat(parts[last], 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) || !isDecimal(parts[last]) {
		return 0, fmt.Errorf("invalid timestamp field %q in %q", parts[last], stamp)
	}
	total := FromSeconds(secs)

	unit := time.Minute
	for i := last - 1; i >= 0; i-- {
		v, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp field %q in %q", parts[i], stamp)
		}
		total += time.Duration(v) * unit
		unit *= 60
	}
	return total, nil
}

// isDecimal rejects the exponent and hex forms ParseFloat would accept.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// Format renders d as zero-padded "HH:MM:SS", truncating sub-second parts.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// Shift moves a stamp forward by offset and renders it as "HH:MM:SS".
func Shift(stamp string, offset time.Duration) (string, error) {
	d, err := Parse(stamp)
	if err != nil {
		return stamp, err
	}
	return Format(d + offset), nil
}

// FromSeconds converts fractional seconds (as some models report them) into a
// whole-second duration.
func FromSeconds(secs float64) time.Duration {
	if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0
	}
	return time.Duration(math.Floor(secs)) * time.Second
}
