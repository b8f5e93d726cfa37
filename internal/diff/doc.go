// Package diff renders the effect of an edit for humans and models.
//
// The primary renderer, FormatDiff (and FormatEditResult, which adds a line-count summary), reduces two texts to a single changed chunk by trimming their common
// leading and trailing lines (see TrimCommon). This is not a minimal diff: two distant edits render as one chunk spanning everything between them. That is the
// intended trade-off, since it shows the whole region an edit touched with stable line counts.
//
// Rendered output looks like:
//
//	main.go
//	@@ -3,1 +3,2 @@
//	   3 - 	return x
//	   3 + 	if x < 1 {
//	   4 + 		return x
//	Lines: 5 → 6 (+1)
//
// Options.Color wraps headers, gutters and markers in ANSI escapes. Stripping escapes from a colored render gives the uncolored render exactly. Line content is
// sanitized, so control characters in a file never reach the terminal.
//
// For a multi-hunk view, DiffText computes a line-level Myers diff and Diff.RenderUnified prints it with context, like `diff -u`.
package diff
