package searchreplace

import (
	"cmp"
	"slices"
	"strings"
)

// Replacement replaces Span of the original with Content.
type Replacement struct {
	Span    MatchSpan
	Content string
	Block   int // 1-based index of the block that produced it; informational
}

// Apply splices replacements into original. Replacements are applied in order of Span.Start, with ties kept in slice order. Apply does not validate overlaps:
// text of the original already consumed by an earlier replacement is never copied again. Use CheckOverlaps first to reject them.
func Apply(original string, replacements []Replacement) string {
	if len(replacements) == 0 {
		return original
	}
	sorted := slices.Clone(replacements)
	slices.SortStableFunc(sorted, func(a, b Replacement) int {
		return cmp.Compare(a.Span.Start, b.Span.Start)
	})

	var b strings.Builder
	b.Grow(len(original))
	cursor := 0
	for _, r := range sorted {
		start := clamp(r.Span.Start, 0, len(original))
		end := clamp(r.Span.End, 0, len(original))
		if start > cursor {
			b.WriteString(original[cursor:start])
		}
		b.WriteString(r.Content)
		cursor = max(cursor, end)
	}
	b.WriteString(original[cursor:])
	return b.String()
}

// CheckOverlaps returns an OverlappingBlocks error for the first pair of replacements whose spans overlap. Zero-width spans (pure insertions) never overlap.
func CheckOverlaps(replacements []Replacement) error {
	for i := 1; i < len(replacements); i++ {
		for j := 0; j < i; j++ {
			if replacements[i].Span.overlaps(replacements[j].Span) {
				return &Error{
					Kind:  OverlappingBlocks,
					Block: blockNumber(replacements[i], i),
					Other: blockNumber(replacements[j], j),
				}
			}
		}
	}
	return nil
}

func blockNumber(r Replacement, idx int) int {
	if r.Block > 0 {
		return r.Block
	}
	return idx + 1
}
