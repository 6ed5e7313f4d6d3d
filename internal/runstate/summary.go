package runstate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"binbird-backend/internal/models"
)

// FormatDuration renders d as "1h 5m", "4m 2s" or "12s". Seconds are
// dropped once hours are shown. Negative durations render as "0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	switch {
	case hours > 0:
		parts = append(parts, fmt.Sprintf("%dh", hours))
		if minutes > 0 {
			parts = append(parts, fmt.Sprintf("%dm", minutes))
		}
	case minutes > 0:
		parts = append(parts, fmt.Sprintf("%dm", minutes))
		if seconds > 0 {
			parts = append(parts, fmt.Sprintf("%ds", seconds))
		}
	default:
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

// ComputeRunStats derives the summary figures for a session record.
// Unparsable timestamps and inverted durations leave the duration unknown.
func ComputeRunStats(record models.RunSessionRecord) models.RunStats {
	total := record.TotalJobs
	if total < 0 {
		total = 0
	}
	completed := record.CompletedJobs
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}

	stats := models.RunStats{
		TotalJobs:     total,
		CompletedJobs: completed,
	}
	if total > 0 {
		stats.CompletionPercent = int(math.Round(float64(completed) / float64(total) * 100))
	}

	started, startedOK := ParseTimestamp(record.StartedAt)
	if startedOK {
		stats.StartedAt = &started
	}

	var ended time.Time
	endedOK := false
	if record.EndedAt != nil {
		ended, endedOK = ParseTimestamp(*record.EndedAt)
	}
	if endedOK {
		stats.EndedAt = &ended
	}

	if !startedOK || !endedOK {
		return stats
	}

	duration := ended.Sub(started)
	if duration < 0 {
		return stats
	}
	label := FormatDuration(duration)
	stats.Duration = &duration
	stats.DurationLabel = &label

	if completed > 0 {
		average := duration / time.Duration(completed)
		averageLabel := FormatDuration(average)
		stats.AveragePerJob = &average
		stats.AverageLabel = &averageLabel
	}
	return stats
}
