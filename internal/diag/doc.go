// Package diag defines the diagnostic model shared by all analysis phases.
//
//   - Provide deterministic, serialisable data structures that capture
//     findings produced by the tree loader, the lifetime pass and the
//     feature-gate pass.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to concrete storage or formatting layers.
//   - Model fix suggestions as structured edits that the CLI can render.
//
// Package diag performs no formatting, IO, or CLI integration. Rendering
// lives in internal/diagfmt; orchestration lives in internal/driver.
//
// Diagnostic is the central record: Severity, Code (compact numeric id with
// a stable string form), Message, the primary source.Span, optional Notes
// (secondary spans such as "freed here" / "used here") and optional Fixes.
// Notes must add new context rather than repeat the message.
//
// Phases emit through a diag.Reporter, usually via ReportError(...).
// WithNote(...).WithFix(...).Emit(). BagReporter aggregates into a Bag,
// which supports capping, sorting and deduplication for stable output.
package diag
