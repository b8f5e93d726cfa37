package diff

// Op is an operation from old text to new text.
type Op int

// Operations from old text to new text.
const (
	OpEqual Op = iota
	OpInsert
	OpDelete
	OpReplace
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	}
	return "unknown"
}

// Diff is a line-level diff from old text to new text. Hunks alternate between equal runs and changed runs, and together cover both texts:
//   - concat(Hunks.OldLines) == OldText
//   - concat(Hunks.NewLines) == NewText
type Diff struct {
	OldText string
	NewText string
	Hunks   []Hunk
}

// Hunk is a run of whole lines. Lines keep their trailing "\n"; only the last line of a text may lack it.
//   - OpEqual: OldLines and NewLines are the same lines.
//   - OpInsert: OldLines is empty.
//   - OpDelete: NewLines is empty.
//   - OpReplace: both are non-empty.
type Hunk struct {
	Op       Op
	OldLines []string
	NewLines []string
}

// HasChanges reports whether any hunk is not OpEqual.
func (d Diff) HasChanges() bool {
	for _, h := range d.Hunks {
		if h.Op != OpEqual {
			return true
		}
	}
	return false
}
