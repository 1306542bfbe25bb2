// Package diagfmt renders diagnostics for the CLI: a human-readable
// pretty form with source context and underlines, and a machine-readable
// JSON form.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"rill/internal/diag"
	"rill/internal/source"
)

type painter struct {
	err  *color.Color
	warn *color.Color
	info *color.Color
	note *color.Color
	help *color.Color
}

func newPainter(enabled bool) *painter {
	p := &painter{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		note: color.New(color.FgCyan),
		help: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.help} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *painter) forSeverity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

func severityLabel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "info"
	}
}

// Pretty formats diagnostics in a human-readable form. For each entry it
// prints
//
//	<path>:<line>:<col>: <sev> <CODE>: <message>
//
// followed by the source line with a ^~~~ underline over the span, then
// Notes in the same layout and fix titles as "help:" lines. Iterates
// bag.Items() as-is; sort the bag beforehand if order matters.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPainter(opts.Color)
	for _, d := range bag.Items() {
		sev := p.forSeverity(d.Severity)
		writeEntry(w, fs, sev, severityLabel(d.Severity), d.Code.ID(), d.Message, d.Primary, opts)
		if opts.ShowNotes {
			for _, note := range d.Notes {
				writeEntry(w, fs, p.note, "note", d.Code.ID(), note.Msg, note.Span, opts)
			}
		}
		if opts.ShowFixes {
			for _, fix := range d.Fixes {
				fmt.Fprintf(w, "    %s %s\n", p.help.Sprint("help:"), fix.Title)
			}
		}
		fmt.Fprintln(w)
	}
}

func writeEntry(w io.Writer, fs *source.FileSet, c *color.Color, label, code, msg string, span source.Span, opts PrettyOpts) {
	if fs == nil || !fs.Has(span.File) {
		// No resolvable location (e.g. the file never loaded).
		fmt.Fprintf(w, "%s %s: %s\n", c.Sprint(label), code, msg)
		return
	}
	f := fs.Get(span.File)
	start, end := fs.Resolve(span)
	path := f.FormatPath(opts.PathMode.mode(), fs.BaseDir())
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n", path, start.Line, start.Col, c.Sprint(label), code, msg)
	writeContext(w, f, c, start, end, opts.Width)
}

// writeContext prints the source line and an underline aligned with the
// span. Column math uses display widths so wide runes stay aligned.
func writeContext(w io.Writer, f *source.File, c *color.Color, start, end source.LineCol, width uint8) {
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}
	// Tabs collapse to single spaces so byte columns keep lining up.
	line = strings.ReplaceAll(line, "\t", " ")

	prefix := int(start.Col) - 1
	if prefix > len(line) {
		prefix = len(line)
	}
	spanEnd := len(line)
	if end.Line == start.Line && int(end.Col)-1 < spanEnd {
		spanEnd = int(end.Col) - 1
	}
	if spanEnd < prefix {
		spanEnd = prefix
	}

	if width > 0 {
		line = runewidth.Truncate(line, int(width), "")
		if prefix > len(line) {
			prefix = len(line)
		}
		if spanEnd > len(line) {
			spanEnd = len(line)
		}
	}

	pad := runewidth.StringWidth(line[:prefix])
	marks := runewidth.StringWidth(line[prefix:spanEnd])

	// A zero-width span (a drop point) still gets a single caret.
	underline := "^"
	if marks > 1 {
		underline += strings.Repeat("~", marks-1)
	}

	fmt.Fprintf(w, "    %s\n", line)
	fmt.Fprintf(w, "    %s%s\n", strings.Repeat(" ", pad), c.Sprint(underline))
}
