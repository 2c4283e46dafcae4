// Package utils holds small helpers shared across packages: text trimming
// for log output, vector math, and logger construction.
package utils

// Truncate caps s at maxLen bytes, appending "..." when anything was cut.
// Used to keep generated answers and prompts readable in log lines.
// A non-positive maxLen disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
