package diff

import (
	"fmt"
	"slices"
	"strings"
)

// validate checks the Diff invariants and returns an error on the first violation.
func (d Diff) validate() error {
	var oldConcat, newConcat strings.Builder
	for hi, h := range d.Hunks {
		switch h.Op {
		case OpEqual:
			if !slices.Equal(h.OldLines, h.NewLines) {
				return fmt.Errorf("hunk[%d]: OpEqual requires OldLines==NewLines", hi)
			}
		case OpInsert:
			if len(h.OldLines) != 0 || len(h.NewLines) == 0 {
				return fmt.Errorf("hunk[%d]: OpInsert requires only NewLines", hi)
			}
		case OpDelete:
			if len(h.OldLines) == 0 || len(h.NewLines) != 0 {
				return fmt.Errorf("hunk[%d]: OpDelete requires only OldLines", hi)
			}
		case OpReplace:
			if len(h.OldLines) == 0 || len(h.NewLines) == 0 {
				return fmt.Errorf("hunk[%d]: OpReplace requires OldLines and NewLines", hi)
			}
		default:
			return fmt.Errorf("hunk[%d]: unknown op %d", hi, h.Op)
		}
		if hi > 0 && h.Op == OpEqual && d.Hunks[hi-1].Op == OpEqual {
			return fmt.Errorf("hunk[%d]: adjacent OpEqual hunks", hi)
		}

		for _, l := range h.OldLines {
			oldConcat.WriteString(l)
		}
		for _, l := range h.NewLines {
			newConcat.WriteString(l)
		}
	}

	if d.OldText != oldConcat.String() {
		return fmt.Errorf("diff: hunks do not reconstruct OldText")
	}
	if d.NewText != newConcat.String() {
		return fmt.Errorf("diff: hunks do not reconstruct NewText")
	}
	return nil
}
