package models

import (
	"fmt"
	"strings"
	"time"
)

// LogTimeLayout is the timestamp layout of a status log line.
const LogTimeLayout = "2006-01-02 15:04:05"

// ReportDateLayout is the human readable run date used in report names.
const ReportDateLayout = "2006-01-02_150405"

// Phase names written in the second column of a status log line.
const (
	LogPhaseLocation = "process.location"
	LogPhaseMenu     = "process.menu"
	LogPhasePostMenu = "process.post-menu"
)

// Status tokens ending a log line. Anything other than success counts as a failure.
const (
	LogSuccess = "success"
	LogFailure = "failure"
)

// LogBookkeepingMarker tags manifest lines excluded from the success/failure tally.
const LogBookkeepingMarker = "generate_files_list"

// LogLine is one append-only status record:
// timestamp, phase, run_id, free-form fields ending with a status token.
type LogLine struct {
	Time   time.Time
	Phase  string
	RunID  string
	Fields []string
}

// String renders the comma separated line without a trailing newline.
func (l LogLine) String() string {
	parts := make([]string, 0, len(l.Fields)+3)
	parts = append(parts, l.Time.Format(LogTimeLayout), l.Phase, l.RunID)
	parts = append(parts, l.Fields...)
	return strings.Join(parts, ",")
}

// LogReport is the JSON summary produced by the log aggregator.
// Field names match the report consumers.
type LogReport struct {
	ParserName        string  `json:"Parser_Name"`
	DateOfLogs        string  `json:"Date_of_logs"`
	TotalHits         int     `json:"Total_Hits"`
	SuccessfulHits    int     `json:"Successful_Hits"`
	PercentageSuccess float64 `json:"Percentage_Success"`
	FailedHits        int     `json:"Failed_Hits"`
	PercentageFailure float64 `json:"Percentage_Failure"`
}

// NewLogReport computes percentages rounded to 3 decimals; both are 0 when total is 0.
func NewLogReport(parser, date string, total, success, failure int) LogReport {
	report := LogReport{
		ParserName:     parser,
		DateOfLogs:     date,
		TotalHits:      total,
		SuccessfulHits: success,
		FailedHits:     failure,
	}
	if total > 0 {
		report.PercentageSuccess = roundTo(float64(success)/float64(total)*100, 3)
		report.PercentageFailure = roundTo(float64(failure)/float64(total)*100, 3)
	}
	return report
}

// ReportFileName returns <parser>_<kind>_log_report_<date>.json
func ReportFileName(parser, kind, date string) string {
	return fmt.Sprintf("%s_%s_log_report_%s.json", parser, kind, date)
}
