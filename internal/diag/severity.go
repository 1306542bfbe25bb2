package diag

// Severity ranks a diagnostic. The order matters: Bag filtering and the
// warnings-as-errors escalation compare severities numerically.
type Severity uint8

const (
	// SevInfo carries context that never affects the exit status.
	SevInfo Severity = iota
	// SevWarning flags suspect input; fatal only under warnings-as-errors.
	SevWarning
	// SevError marks a proven violation and fails the check.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
