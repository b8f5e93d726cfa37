package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/nyo16/nous-sub006/internal/q/termformat"
)

// NoChanges is the indicator rendered when both sides are identical.
const NoChanges = "No changes"

// Options control rendering.
type Options struct {
	Color         bool   // wrap headers, gutters and markers in ANSI escapes
	Highlight     bool   // syntax highlight line content by file extension; requires Color
	DeletedMarker string // marker for removed lines; default "-"
	AddedMarker   string // marker for added lines; default "+"
}

func (o Options) markers() (deleted, added string) {
	deleted, added = o.DeletedMarker, o.AddedMarker
	if deleted == "" {
		deleted = "-"
	}
	if added == "" {
		added = "+"
	}
	return deleted, added
}

// LineStats counts lines before and after an edit.
type LineStats struct {
	Old int
	New int
}

// Delta is New - Old.
func (s LineStats) Delta() int { return s.New - s.Old }

func (s LineStats) String() string {
	return fmt.Sprintf("Lines: %d → %d (%+d)", s.Old, s.New, s.Delta())
}

// Stats counts the lines of original and updated. A final newline does not count as an extra line.
func Stats(original, updated string) LineStats {
	return LineStats{Old: len(splitLines(original)), New: len(splitLines(updated))}
}

// renderer accumulates output lines for one render call.
type renderer struct {
	pal     palette
	hl      *highlighter
	deleted string
	added   string
	lines   []string
}

func newRenderer(path string, opts Options) *renderer {
	r := &renderer{pal: newPalette(opts.Color)}
	r.deleted, r.added = opts.markers()
	if opts.Color && opts.Highlight {
		r.hl = newHighlighter(path)
	}
	return r
}

func (r *renderer) emit(s string) {
	r.lines = append(r.lines, s)
}

func (r *renderer) header(path string) {
	if path != "" {
		r.emit(paint(r.pal.header, termformat.SanitizeLine(path, 0)))
	}
}

// body emits one numbered content line. lineNo is 1-based.
func (r *renderer) body(lineNo int, text string, removed bool) {
	marker, c := r.added, r.pal.added
	if removed {
		marker, c = r.deleted, r.pal.deleted
	}
	text = termformat.SanitizeLine(text, 0)
	if r.hl != nil {
		text = r.hl.line(text)
	} else {
		text = paint(c, text)
	}
	r.emit(paint(r.pal.gutter, fmt.Sprintf("%4d", lineNo)) + " " + paint(c, marker) + " " + text)
}

func (r *renderer) String() string {
	return strings.Join(r.lines, "\n")
}

// FormatDiff renders the single chunk by which updated differs from original. Identical inputs render as NoChanges.
func FormatDiff(path, original, updated string, opts Options) string {
	r := newRenderer(path, opts)
	if original == updated {
		r.emit(paint(r.pal.faint, NoChanges))
		return r.String()
	}

	oldLines, newLines := splitLines(original), splitLines(updated)
	r.header(path)

	chunk, changed := TrimCommon(oldLines, newLines)
	if !changed {
		// Same lines; only the final newline differs.
		note := `\ newline at end of file removed`
		if strings.HasSuffix(updated, "\n") {
			note = `\ newline at end of file added`
		}
		r.emit(paint(r.pal.faint, note))
		return r.String()
	}

	r.emit(paint(r.pal.location, fmt.Sprintf("@@ -%d,%d +%d,%d @@", chunk.Old.Start+1, chunk.Old.Count, chunk.New.Start+1, chunk.New.Count)))
	for i := chunk.Old.Start; i < chunk.Old.End(); i++ {
		r.body(i+1, oldLines[i], true)
	}
	for i := chunk.New.Start; i < chunk.New.End(); i++ {
		r.body(i+1, newLines[i], false)
	}
	return r.String()
}

// FormatEditResult is FormatDiff followed by a line-count summary (see LineStats.String). Identical inputs render as NoChanges only.
func FormatEditResult(path, original, updated string, opts Options) string {
	out := FormatDiff(path, original, updated, opts)
	if original == updated {
		return out
	}
	stats := Stats(original, updated)
	return out + "\n" + paint(summaryColor(opts.Color, stats.Delta()), stats.String())
}

func summaryColor(enabled bool, delta int) *color.Color {
	if !enabled {
		return nil
	}
	switch {
	case delta > 0:
		return forced(color.FgGreen)
	case delta < 0:
		return forced(color.FgRed)
	}
	return forced(color.Faint)
}

// FormatSearchReplace previews one block before it is located: every SEARCH line is marked deleted and every REPLACE line added, numbered from 1 within
// each section.
func FormatSearchReplace(path, search, replace string, opts Options) string {
	r := newRenderer(path, opts)
	r.header(path)
	r.emit(paint(r.pal.location, "SEARCH"))
	for i, l := range splitLines(search) {
		r.body(i+1, l, true)
	}
	r.emit(paint(r.pal.location, "REPLACE"))
	for i, l := range splitLines(replace) {
		r.body(i+1, l, false)
	}
	return r.String()
}
