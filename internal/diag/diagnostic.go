package diag

import (
	"rill/internal/source"
)

// Note is a secondary span with its own label ("freed here", "used here").
type Note struct {
	Span source.Span
	Msg  string
}

// FixEdit is a single text replacement inside a fix suggestion.
type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is a suggested remediation. Edits may be empty when the suggestion
// is advisory only.
type Fix struct {
	Title string
	Edits []FixEdit
}

// Diagnostic is one finding produced by an analysis phase.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}
