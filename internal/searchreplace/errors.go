package searchreplace

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure to apply a diff.
type Kind int

const (
	// MalformedBlock: a SEARCH or REPLACE section was still open when the final diff text ended.
	MalformedBlock Kind = iota + 1

	// EmptySearchOnNonEmptyFile: an empty SEARCH section was used against a file that has content.
	EmptySearchOnNonEmptyFile

	// NoMatchFound: a SEARCH section could not be located by any strategy.
	NoMatchFound

	// OverlappingBlocks: two blocks resolved to overlapping spans of the original.
	OverlappingBlocks
)

func (k Kind) String() string {
	switch k {
	case MalformedBlock:
		return "malformed block"
	case EmptySearchOnNonEmptyFile:
		return "empty search on non-empty file"
	case NoMatchFound:
		return "no match found"
	case OverlappingBlocks:
		return "overlapping blocks"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	errInvalidDiff = errors.New("invalid diff")

	ErrMalformedBlock = errors.New("malformed block")
	ErrEmptySearch    = errors.New("empty search on non-empty file")
	ErrNoMatch        = errors.New("search does not match")
	ErrOverlap        = errors.New("overlapping blocks")
)

// IsInvalidDiff reports whether err was caused by the diff text itself (as opposed to, for example, a failure reading or writing the file being edited).
func IsInvalidDiff(err error) bool {
	return errors.Is(err, errInvalidDiff)
}

// LineHint points at the original line most similar to the first line of a search fragment that failed to match.
type LineHint struct {
	Line int // 1-based
	Text string
}

// Error is returned for every failure that originates in the diff. It matches errors.Is against its Kind's sentinel.
type Error struct {
	Kind   Kind
	Block  int    // 1-based block index; 0 if unknown
	Other  int    // for OverlappingBlocks, the 1-based index of the earlier block
	Search string // offending search fragment, trimmed
	Hint   *LineHint
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Block > 0 {
		fmt.Fprintf(&b, "block %d: ", e.Block)
	}
	switch e.Kind {
	case MalformedBlock:
		b.WriteString("unterminated SEARCH/REPLACE block; every block must end with a " + ReplaceMarker + " line")
	case EmptySearchOnNonEmptyFile:
		b.WriteString("empty SEARCH section on a non-empty file; an empty SEARCH is only valid when creating a new file")
	case NoMatchFound:
		b.WriteString("SEARCH section does not match the file content. It must reproduce existing lines exactly, including whitespace and comments")
	case OverlappingBlocks:
		fmt.Fprintf(&b, "SEARCH section overlaps the region already matched by block %d; merge the two blocks into one", e.Other)
	default:
		b.WriteString(e.Kind.String())
	}
	if e.Search != "" {
		b.WriteString("\n\nSEARCH:\n")
		b.WriteString(e.Search)
	}
	if e.Hint != nil {
		fmt.Fprintf(&b, "\n\nMost similar line in the file (line %d):\n%s", e.Hint.Line, e.Hint.Text)
	}
	return b.String()
}

// Unwrap exposes both the generic invalid-diff sentinel and the Kind's sentinel.
func (e *Error) Unwrap() []error {
	return []error{errInvalidDiff, e.Kind.sentinel()}
}

func (k Kind) sentinel() error {
	switch k {
	case MalformedBlock:
		return ErrMalformedBlock
	case EmptySearchOnNonEmptyFile:
		return ErrEmptySearch
	case NoMatchFound:
		return ErrNoMatch
	case OverlappingBlocks:
		return ErrOverlap
	}
	return errInvalidDiff
}

// KindOf returns the Kind of err, or 0 if err is not (and does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
