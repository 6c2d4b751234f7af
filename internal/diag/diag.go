// Package diag defines the structured diagnostics pushed to the
// dashboard's debug panel.
package diag

import "github.com/example/vjdeck/internal/bus"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Message wraps a diagnostic for the bus debug-log stream.
func Message(d Diagnostic) bus.Message {
	return bus.New(bus.TypeDebugLog, map[string]any{
		"severity": string(d.Severity),
		"code":     d.Code,
		"summary":  d.Summary,
		"detail":   d.Detail,
		"fixes":    d.SuggestedFixes,
		"evidence": d.Evidence,
	})
}
