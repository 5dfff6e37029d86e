package common

import (
	"fmt"
	"regexp"
	"time"
)

// Build information (set via -ldflags during build)
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the current build version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

var partitionPattern = regexp.MustCompile(`^\d{7,8}$`)

// IsValidPartition reports whether v is a storage partition label (7 or 8 digits).
func IsValidPartition(v string) bool {
	return partitionPattern.MatchString(v)
}

// WeekByDay returns the week number of date counted from the first given weekday of its year.
// Dates before that weekday are in week 0.
func WeekByDay(date time.Time, day time.Weekday) int {
	yearStart := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, date.Location())
	shift := (int(day) - int(yearStart.Weekday()) + 7) % 7
	first := yearStart.AddDate(0, 0, shift)

	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	delta := int(dateOnly.Sub(first).Hours() / 24)
	if delta < 0 {
		return 0
	}
	return delta/7 + 1
}

// DefaultPartition returns the partition label for now: YYYYMM followed by the Friday-based week.
func DefaultPartition(now time.Time) string {
	return fmt.Sprintf("%s%d", now.Format("200601"), WeekByDay(now, time.Friday))
}

// ResolvePartition keeps a valid requested label, otherwise falls back to DefaultPartition.
func ResolvePartition(requested string, now time.Time) string {
	if IsValidPartition(requested) {
		return requested
	}
	return DefaultPartition(now)
}
