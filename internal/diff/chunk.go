package diff

import "strings"

// ChunkKind classifies a changed region.
type ChunkKind int

const (
	ChunkReplace ChunkKind = iota // lines removed and added
	ChunkDelete                   // lines removed only
	ChunkInsert                   // lines added only
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkReplace:
		return "replace"
	case ChunkDelete:
		return "delete"
	case ChunkInsert:
		return "insert"
	}
	return "unknown"
}

// LineRange is a run of Count lines starting at the 0-based line index Start.
type LineRange struct {
	Start int
	Count int
}

// End returns the index just past the range.
func (r LineRange) End() int { return r.Start + r.Count }

// Chunk is the region that differs between two line sequences once their common prefix and suffix are removed.
type Chunk struct {
	Kind ChunkKind
	Old  LineRange
	New  LineRange
}

// TrimCommon removes the longest common prefix and then the longest common suffix (not overlapping the prefix) of oldLines and newLines. It returns false if the
// sequences are equal.
func TrimCommon(oldLines, newLines []string) (Chunk, bool) {
	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}
	if prefix == len(oldLines) && prefix == len(newLines) {
		return Chunk{}, false
	}

	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	c := Chunk{
		Old: LineRange{Start: prefix, Count: len(oldLines) - prefix - suffix},
		New: LineRange{Start: prefix, Count: len(newLines) - prefix - suffix},
	}
	switch {
	case c.Old.Count == 0:
		c.Kind = ChunkInsert
	case c.New.Count == 0:
		c.Kind = ChunkDelete
	default:
		c.Kind = ChunkReplace
	}
	return c, true
}

// splitLines splits text into lines without their "\n". A final newline does not start an extra line, so "" has no lines and "a\n" has one.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
