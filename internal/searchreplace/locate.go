package searchreplace

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MatchSpan is a half-open byte range [Start, End) of the original content.
type MatchSpan struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s MatchSpan) Len() int { return s.End - s.Start }

// overlaps reports whether two spans share at least one byte.
func (s MatchSpan) overlaps(o MatchSpan) bool {
	return s.Start < o.End && o.Start < s.End
}

// Strategy identifies how a search fragment was located.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyEmptyFile
	StrategyExact
	StrategyLineTrimmed
	StrategyBlockAnchor
	StrategyUnscoped
)

func (s Strategy) String() string {
	switch s {
	case StrategyEmptyFile:
		return "empty-file"
	case StrategyExact:
		return "exact"
	case StrategyLineTrimmed:
		return "line-trimmed"
	case StrategyBlockAnchor:
		return "block-anchor"
	case StrategyUnscoped:
		return "unscoped"
	}
	return "none"
}

// Match is a located search fragment. Pending is set when the span starts before the offset the search resumed from.
type Match struct {
	Span     MatchSpan
	Strategy Strategy
	Pending  bool
}

// minAnchorLines is the smallest fragment (in lines) eligible for block-anchor matching.
const minAnchorLines = 3

// Locate finds search in original, resuming at byte offset from. Strategies are tried in order; the first success wins:
//   - empty search: matches {0,0} only if original is empty; otherwise fails with EmptySearchOnNonEmptyFile.
//   - exact substring at or after from.
//   - line-trimmed: consecutive lines, starting with the first line that begins at or after from, equal to the search lines once both are whitespace-trimmed.
//   - block-anchor (3+ lines): only the trimmed first and last lines must match.
//   - exact substring anywhere in original.
//
// Failure yields a NoMatchFound *Error.
func Locate(search, original string, from int) (Match, error) {
	from = clamp(from, 0, len(original))

	if search == "" {
		if original == "" {
			return Match{Strategy: StrategyEmptyFile}, nil
		}
		return Match{}, &Error{Kind: EmptySearchOnNonEmptyFile}
	}

	mk := func(span MatchSpan, s Strategy) (Match, error) {
		return Match{Span: span, Strategy: s, Pending: span.Start < from}, nil
	}

	if idx := strings.Index(original[from:], search); idx >= 0 {
		start := from + idx
		return mk(MatchSpan{Start: start, End: start + len(search)}, StrategyExact)
	}

	searchLines := fragmentLines(search)
	origLines := strings.Split(original, "\n")
	starts := lineStarts(origLines)
	first := firstLineAtOrAfter(starts, from)

	if span, ok := lineTrimmedMatch(searchLines, origLines, starts, first, len(original)); ok {
		return mk(span, StrategyLineTrimmed)
	}
	if span, ok := blockAnchorMatch(searchLines, origLines, starts, first, len(original)); ok {
		return mk(span, StrategyBlockAnchor)
	}
	if idx := strings.Index(original, search); idx >= 0 {
		return mk(MatchSpan{Start: idx, End: idx + len(search)}, StrategyUnscoped)
	}

	return Match{}, &Error{
		Kind:   NoMatchFound,
		Search: strings.TrimSpace(search),
		Hint:   closestLine(searchLines, origLines),
	}
}

// fragmentLines splits a search fragment into lines, dropping the empty line after a final newline.
func fragmentLines(search string) []string {
	lines := strings.Split(search, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineStarts returns the byte offset at which each line begins.
func lineStarts(lines []string) []int {
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l) + 1
	}
	return starts
}

func firstLineAtOrAfter(starts []int, from int) int {
	for i, s := range starts {
		if s >= from {
			return i
		}
	}
	return len(starts)
}

// windowSpan converts lines [i, i+n) into a byte span, including the newline after the last line when one exists.
func windowSpan(origLines []string, starts []int, i, n, size int) MatchSpan {
	last := i + n - 1
	end := starts[last] + len(origLines[last]) + 1
	return MatchSpan{Start: starts[i], End: clamp(end, 0, size)}
}

func lineTrimmedMatch(searchLines, origLines []string, starts []int, first, size int) (MatchSpan, bool) {
	n := len(searchLines)
	trimmed := make([]string, n)
	for j, l := range searchLines {
		trimmed[j] = strings.TrimSpace(l)
	}
outer:
	for i := first; i+n <= len(origLines); i++ {
		for j := 0; j < n; j++ {
			if strings.TrimSpace(origLines[i+j]) != trimmed[j] {
				continue outer
			}
		}
		return windowSpan(origLines, starts, i, n, size), true
	}
	return MatchSpan{}, false
}

func blockAnchorMatch(searchLines, origLines []string, starts []int, first, size int) (MatchSpan, bool) {
	n := len(searchLines)
	if n < minAnchorLines {
		return MatchSpan{}, false
	}
	head := strings.TrimSpace(searchLines[0])
	tail := strings.TrimSpace(searchLines[n-1])
	for i := first; i+n <= len(origLines); i++ {
		if strings.TrimSpace(origLines[i]) == head && strings.TrimSpace(origLines[i+n-1]) == tail {
			return windowSpan(origLines, starts, i, n, size), true
		}
	}
	return MatchSpan{}, false
}

// maxHintLines bounds the work spent computing a hint on large files.
const maxHintLines = 5000

// closestLine finds the original line with the smallest edit distance to the first non-blank search line. It returns nil when nothing is reasonably close.
func closestLine(searchLines, origLines []string) *LineHint {
	var needle string
	for _, l := range searchLines {
		if t := strings.TrimSpace(l); t != "" {
			needle = t
			break
		}
	}
	if needle == "" || len(origLines) > maxHintLines {
		return nil
	}

	dmp := diffmatchpatch.New()
	best, bestDist := -1, len(needle)/2+1
	for i, l := range origLines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		d := dmp.DiffLevenshtein(dmp.DiffMain(needle, t, false))
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return nil
	}
	return &LineHint{Line: best + 1, Text: origLines[best]}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
