package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxLineIndex bounds the distinct lines go-diff can encode: line indices travel as runes in Diff.Text, and indices from the surrogate range do not
// survive the string conversion.
const maxLineIndex = 0xD800

// DiffText computes a line-level diff of oldText to newText. Adjacent deletions and insertions are grouped into one OpReplace hunk. Texts with too many
// distinct lines for a line-level Myers diff get a single changed hunk between their common prefix and suffix.
func DiffText(oldText, newText string) Diff {
	dmp := diffmatchpatch.New()
	rOld, rNew, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	if len(lineArray) >= maxLineIndex {
		return diffTrimmed(oldText, newText)
	}
	diffs := dmp.DiffCleanupMerge(dmp.DiffMainRunes(rOld, rNew, false))

	decode := func(s string) []string {
		var out []string
		for _, r := range s {
			if idx := int(r); idx >= 0 && idx < len(lineArray) {
				out = append(out, lineArray[idx])
			}
		}
		return out
	}

	var hunks []Hunk
	var dels, ins []string
	flush := func() {
		if len(dels) == 0 && len(ins) == 0 {
			return
		}
		op := OpReplace
		switch {
		case len(ins) == 0:
			op = OpDelete
		case len(dels) == 0:
			op = OpInsert
		}
		hunks = append(hunks, Hunk{Op: op, OldLines: dels, NewLines: ins})
		dels, ins = nil, nil
	}

	for _, d := range diffs {
		lines := decode(d.Text)
		if len(lines) == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			hunks = append(hunks, Hunk{Op: OpEqual, OldLines: lines, NewLines: lines})
		case diffmatchpatch.DiffDelete:
			dels = append(dels, lines...)
		case diffmatchpatch.DiffInsert:
			ins = append(ins, lines...)
		}
	}
	flush()

	return mustValidate(Diff{OldText: oldText, NewText: newText, Hunks: hunks})
}

// diffTrimmed diffs oldText to newText as an equal prefix, one changed hunk, and an equal suffix.
func diffTrimmed(oldText, newText string) Diff {
	oldLines := splitKeepNewline(oldText)
	newLines := splitKeepNewline(newText)

	d := Diff{OldText: oldText, NewText: newText}
	c, ok := TrimCommon(oldLines, newLines)
	if !ok {
		if len(oldLines) > 0 {
			d.Hunks = []Hunk{{Op: OpEqual, OldLines: oldLines, NewLines: oldLines}}
		}
		return mustValidate(d)
	}

	if c.Old.Start > 0 {
		prefix := oldLines[:c.Old.Start]
		d.Hunks = append(d.Hunks, Hunk{Op: OpEqual, OldLines: prefix, NewLines: prefix})
	}
	h := Hunk{OldLines: oldLines[c.Old.Start:c.Old.End()], NewLines: newLines[c.New.Start:c.New.End()]}
	switch c.Kind {
	case ChunkInsert:
		h.Op, h.OldLines = OpInsert, nil
	case ChunkDelete:
		h.Op, h.NewLines = OpDelete, nil
	default:
		h.Op = OpReplace
	}
	d.Hunks = append(d.Hunks, h)
	if c.Old.End() < len(oldLines) {
		suffix := oldLines[c.Old.End():]
		d.Hunks = append(d.Hunks, Hunk{Op: OpEqual, OldLines: suffix, NewLines: suffix})
	}
	return mustValidate(d)
}

// splitKeepNewline splits text after each "\n", so only the last line may lack one.
func splitKeepNewline(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func mustValidate(d Diff) Diff {
	if err := d.validate(); err != nil {
		panic(fmt.Errorf("DiffText: validate failed with %v", err))
	}
	return d
}
