package searchreplace

import (
	"regexp"
	"strings"
)

// Canonical markers written by MakeBlock.
const (
	SearchMarker    = "------- SEARCH"
	SeparatorMarker = "======="
	ReplaceMarker   = "+++++++ REPLACE"
)

var (
	searchStartRe = regexp.MustCompile(`^(?:-{3,}|<{3,}) SEARCH>?$`)
	separatorRe   = regexp.MustCompile(`^={3,}$`)
	replaceEndRe  = regexp.MustCompile(`^(?:\+{3,}|>{3,}) REPLACE>?$`)
)

// Block is one SEARCH/REPLACE pair. Both fragments are either empty or end in "\n".
type Block struct {
	Search  string
	Replace string
}

type markerKind int

const (
	markerNone markerKind = iota
	markerSearch
	markerSeparator
	markerReplace
)

func classifyMarker(line string) markerKind {
	line = strings.TrimRight(line, " \t\r")
	switch {
	case searchStartRe.MatchString(line):
		return markerSearch
	case separatorRe.MatchString(line):
		return markerSeparator
	case replaceEndRe.MatchString(line):
		return markerReplace
	}
	return markerNone
}

// looksLikeMarkerStart reports whether line begins with a character that starts some marker.
func looksLikeMarkerStart(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case '-', '<', '=', '+', '>':
		return true
	}
	return false
}

// MakeBlock renders a single block using the canonical markers. Fragments that do not end in a newline get one, so Parse(MakeBlock(s, r)) yields a block equal to
// the newline-normalized inputs.
func MakeBlock(search, replace string) string {
	var b strings.Builder
	b.WriteString(SearchMarker)
	b.WriteByte('\n')
	writeFragment(&b, search)
	b.WriteString(SeparatorMarker)
	b.WriteByte('\n')
	writeFragment(&b, replace)
	b.WriteString(ReplaceMarker)
	b.WriteByte('\n')
	return b.String()
}

func writeFragment(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}
