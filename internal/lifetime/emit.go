package lifetime

import (
	"rill/internal/diag"
)

const (
	msgTempDropped = "temporary value dropped while borrowed"
	noteFreedHere  = "temporary value is freed at the end of this statement"
	noteUsedHere   = "borrow later used here"
	fixLetBinding  = "consider using a `let` binding to create a longer lived value"
)

// Emit renders conflicts as diagnostics: primary underline on the
// temporary, secondary labels for the drop point and the escaping use,
// plus the let-binding fix suggestion.
func Emit(conflicts []Conflict, r diag.Reporter) {
	for _, c := range conflicts {
		diag.ReportError(r, diag.LifTempDropped, c.Created, msgTempDropped).
			WithNote(c.Freed, noteFreedHere).
			WithNote(c.Used, noteUsedHere).
			WithFix(fixLetBinding).
			Emit()
	}
}
