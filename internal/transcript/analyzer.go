// Package transcript turns raw execution output into line-oriented counters.
package transcript

import (
	"regexp"
	"strings"
)

var (
	errorMarker   = regexp.MustCompile(`(?i)\berror\b`)
	warningMarker = regexp.MustCompile(`(?i)\bwarning\b`)

	// "(3 rows)" as printed by psql, or "3 rows returned".
	rowCountMarker = regexp.MustCompile(`(?i)(\(\s*\d+\s+rows?\s*\)|\b\d+\s+rows?\s+returned)\s*$`)
)

// Stats summarizes a transcript.
type Stats struct {
	LineCount      int
	ErrorCount     int
	WarningCount   int
	ResultSetCount int

	// Succeeded reflects how the execution terminated, not the transcript contents.
	Succeeded bool
}

// Analyze scans transcript line by line. Each marker counts at most once per line.
// succeeded is passed through unchanged from the execution result.
func Analyze(transcript string, succeeded bool) Stats {
	stats := Stats{Succeeded: succeeded}

	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.LineCount++

		if errorMarker.MatchString(line) {
			stats.ErrorCount++
		}
		if warningMarker.MatchString(line) {
			stats.WarningCount++
		}
		if rowCountMarker.MatchString(line) {
			stats.ResultSetCount++
		}
	}

	return stats
}
