package searchreplace

import (
	"strings"
)

// Mode is the position of the parser within a block.
type Mode int

const (
	Idle Mode = iota
	InSearch
	InReplace
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case InSearch:
		return "search"
	case InReplace:
		return "replace"
	}
	return "unknown"
}

// State is the parser state after the last consumed line. Search and Replace hold the sections of the block currently being read.
type State struct {
	Mode    Mode
	Search  string
	Replace string
}

// ParseResult is the outcome of Parse.
type ParseResult struct {
	Blocks  []Block // completed blocks, in authored order
	State   State   // state after the last line; Mode != Idle means a block is in flight
	Dropped string  // trailing partial marker line removed in streaming mode
}

type fold struct {
	state  State
	blocks []Block
}

// step consumes one line (without its newline) and returns the next fold value.
func step(f fold, line string) fold {
	kind := classifyMarker(line)
	switch f.state.Mode {
	case Idle:
		if kind == markerSearch {
			f.state = State{Mode: InSearch}
		}
	case InSearch:
		if kind == markerSeparator {
			f.state.Mode = InReplace
		} else {
			f.state.Search += line + "\n"
		}
	case InReplace:
		if kind == markerReplace {
			f.blocks = append(f.blocks, Block{Search: f.state.Search, Replace: f.state.Replace})
			f.state = State{}
		} else {
			f.state.Replace += line + "\n"
		}
	}
	return f
}

// Parse splits diffText into blocks.
//
// If isFinal is false, a last line that is not newline-terminated and starts with a marker character (one of "-<=+>") but is not a complete marker is dropped and
// returned in Dropped; an unterminated block is reported through State. If isFinal is true, an unterminated block is a MalformedBlock error.
func Parse(diffText string, isFinal bool) (ParseResult, error) {
	lines := splitDiffLines(diffText)

	var res ParseResult
	if !isFinal && len(lines) > 0 && !strings.HasSuffix(normalizeNewlines(diffText), "\n") {
		last := lines[len(lines)-1]
		if looksLikeMarkerStart(last) && classifyMarker(last) == markerNone {
			res.Dropped = last
			lines = lines[:len(lines)-1]
		}
	}

	var f fold
	for _, line := range lines {
		f = step(f, line)
	}
	res.Blocks = f.blocks
	res.State = f.state

	if isFinal && f.state.Mode != Idle {
		return res, &Error{
			Kind:   MalformedBlock,
			Block:  len(f.blocks) + 1,
			Search: strings.TrimSpace(f.state.Search),
		}
	}
	return res, nil
}

// splitDiffLines normalizes CRLF and splits on "\n". A final newline does not produce a trailing empty line.
func splitDiffLines(s string) []string {
	s = normalizeNewlines(s)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
