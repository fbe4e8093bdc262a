// Package result defines the response shapes the check harness and
// scheduler stream back to callers (§3, §6).
package result

import (
	"rove/internal/flag"
	"rove/internal/rtime"
)

// TestResult is one flagged point.
type TestResult struct {
	Time       rtime.Timestamp
	Identifier string
	Flag       flag.Flag
}

// ValidateResponse is one pipeline step's output.
type ValidateResponse struct {
	Test    string
	Results []TestResult
}
