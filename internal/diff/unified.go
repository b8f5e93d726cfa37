package diff

import (
	"fmt"
	"strings"

	"github.com/nyo16/nous-sub006/internal/q/termformat"
)

type unifiedLine struct {
	tag    byte // ' ', '-', '+'
	text   string
	oldPos int // 1-based old line number at this point
	newPos int // 1-based new line number at this point
}

func (d Diff) flatten() []unifiedLine {
	var out []unifiedLine
	oldPos, newPos := 1, 1
	add := func(tag byte, lines []string) {
		for _, l := range lines {
			out = append(out, unifiedLine{tag: tag, text: strings.TrimSuffix(l, "\n"), oldPos: oldPos, newPos: newPos})
			if tag != '+' {
				oldPos++
			}
			if tag != '-' {
				newPos++
			}
		}
	}
	for _, h := range d.Hunks {
		switch h.Op {
		case OpEqual:
			add(' ', h.OldLines)
		default:
			add('-', h.OldLines)
			add('+', h.NewLines)
		}
	}
	return out
}

// RenderUnified renders d as a unified diff with contextSize lines of context around each change. Changes separated by at most 2*contextSize unchanged lines
// share a hunk. Only opts.Color is used. If d has no changes, the result is NoChanges.
func (d Diff) RenderUnified(opts Options, fromName, toName string, contextSize int) string {
	pal := newPalette(opts.Color)
	if !d.HasChanges() {
		return paint(pal.faint, NoChanges)
	}
	contextSize = max(contextSize, 0)

	lines := d.flatten()
	var changes []int
	for i, l := range lines {
		if l.tag != ' ' {
			changes = append(changes, i)
		}
	}

	out := []string{
		paint(pal.header, "--- "+termformat.SanitizeLine(fromName, 0)),
		paint(pal.header, "+++ "+termformat.SanitizeLine(toName, 0)),
	}

	for ci := 0; ci < len(changes); {
		last := changes[ci]
		cj := ci + 1
		for cj < len(changes) && changes[cj]-last-1 <= 2*contextSize {
			last = changes[cj]
			cj++
		}
		start := max(changes[ci]-contextSize, 0)
		end := min(last+contextSize+1, len(lines))

		var oldCount, newCount int
		for _, l := range lines[start:end] {
			if l.tag != '+' {
				oldCount++
			}
			if l.tag != '-' {
				newCount++
			}
		}
		oldStart, newStart := lines[start].oldPos, lines[start].newPos
		if oldCount == 0 {
			oldStart--
		}
		if newCount == 0 {
			newStart--
		}
		out = append(out, paint(pal.location, fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart, oldCount, newStart, newCount)))

		for _, l := range lines[start:end] {
			text := string(l.tag) + termformat.SanitizeLine(l.text, 0)
			switch l.tag {
			case '-':
				text = paint(pal.deleted, text)
			case '+':
				text = paint(pal.added, text)
			}
			out = append(out, text)
		}
		ci = cj
	}
	return strings.Join(out, "\n")
}
