// Package fileedit applies SEARCH/REPLACE diffs to files on disk. It confines edits to a root directory, keeps each file's line ending convention, writes
// atomically, and records every applied edit in an optional journal so it can be undone.
package fileedit

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/nyo16/nous-sub006/internal/diff"
	"github.com/nyo16/nous-sub006/internal/journal"
	"github.com/nyo16/nous-sub006/internal/searchreplace"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrNoJournal is returned by Undo when the editor has no journal.
	ErrNoJournal = errors.New("edit journal is disabled")

	// ErrModifiedSinceEdit is returned by Undo when the file no longer has the content the edit produced.
	ErrModifiedSinceEdit = errors.New("file was modified after the edit")
)

// Editor edits files under Root.
type Editor struct {
	root    string
	journal *journal.Journal
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an editor confined to root. j and logger may be nil.
func New(root string, j *journal.Journal, logger *zap.Logger) (*Editor, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve root %q", root)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{root: abs, journal: j, logger: logger, locks: map[string]*sync.Mutex{}}, nil
}

// Root returns the absolute directory edits are confined to.
func (e *Editor) Root() string { return e.root }

// Outcome describes one preview or applied edit. Original and Updated use "\n" line endings.
type Outcome struct {
	Path     string // relative to the editor root, slash-separated
	AbsPath  string
	Original string
	Updated  string
	Created  bool // the file did not exist before
	Written  bool
	Result   searchreplace.Result
	Entry    *journal.Entry // set when the edit was journaled
}

// Changed reports whether the edit changes the file. An edit that creates a file counts as a change even if the file is empty.
func (o Outcome) Changed() bool {
	return o.Original != o.Updated || (o.Created && len(o.Result.Matches) > 0)
}

// Render formats the edit with diff.FormatEditResult.
func (o Outcome) Render(opts diff.Options) string {
	return diff.FormatEditResult(o.Path, o.Original, o.Updated, opts)
}

// Resolve maps path (absolute or relative to the root) to its root-relative and absolute forms.
func (e *Editor) Resolve(path string) (rel, abs string, err error) {
	return resolvePath(e.root, path)
}

func (e *Editor) lock(abs string) func() {
	e.mu.Lock()
	l, ok := e.locks[abs]
	if !ok {
		l = &sync.Mutex{}
		e.locks[abs] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Preview computes the edit without writing. With isFinal false, diffText may be an incomplete prefix of a diff still being generated.
func (e *Editor) Preview(ctx context.Context, path, diffText string, isFinal bool) (Outcome, error) {
	rel, abs, err := e.Resolve(path)
	if err != nil {
		return Outcome{}, err
	}
	tf, err := readTextFile(abs)
	if err != nil {
		return Outcome{}, errors.Wrap(err, rel)
	}
	return e.construct(rel, abs, tf, diffText, isFinal)
}

func (e *Editor) construct(rel, abs string, tf textFile, diffText string, isFinal bool) (Outcome, error) {
	res, err := searchreplace.Construct(diffText, tf.content, isFinal)
	if err != nil {
		return Outcome{}, errors.Wrap(err, rel)
	}
	return Outcome{
		Path:     rel,
		AbsPath:  abs,
		Original: tf.content,
		Updated:  res.Content,
		Created:  !tf.existed,
		Result:   res,
	}, nil
}

// Apply applies diffText to the file at path and writes the result. A missing file is created when the diff consists of empty-SEARCH blocks. Diff errors
// satisfy searchreplace.IsInvalidDiff.
func (e *Editor) Apply(ctx context.Context, path, diffText string) (Outcome, error) {
	rel, abs, err := e.Resolve(path)
	if err != nil {
		return Outcome{}, err
	}
	unlock := e.lock(abs)
	defer unlock()

	tf, err := readTextFile(abs)
	if err != nil {
		return Outcome{}, errors.Wrap(err, rel)
	}
	out, err := e.construct(rel, abs, tf, diffText, true)
	if err != nil {
		e.logger.Info("edit rejected", zap.String("path", rel), zap.Error(err))
		return Outcome{}, err
	}
	if !out.Changed() {
		return out, nil
	}

	after := tf.encode(out.Updated)
	if err := writeFileAtomic(abs, after, tf.mode); err != nil {
		return Outcome{}, errors.Wrap(err, rel)
	}
	out.Written = true

	stats := diff.Stats(out.Original, out.Updated)
	e.logger.Info("edit applied",
		zap.String("path", rel),
		zap.Int("blocks", len(out.Result.Matches)),
		zap.Bool("created", out.Created),
		zap.Int("line_delta", stats.Delta()),
	)

	if e.journal != nil {
		entry, err := e.journal.Record(ctx, journal.Entry{
			Root:    e.root,
			Path:    rel,
			Before:  tf.raw,
			After:   after,
			Existed: tf.existed,
		})
		if err != nil {
			// The edit stands even if it cannot be journaled.
			e.logger.Warn("journal record failed", zap.String("path", rel), zap.Error(err))
		} else {
			out.Entry = &entry
		}
	}
	return out, nil
}

// Undo reverts the newest edit under the editor's root that has not been undone. It restores the previous content, or removes the file if the edit created it.
func (e *Editor) Undo(ctx context.Context) (journal.Entry, error) {
	if e.journal == nil {
		return journal.Entry{}, ErrNoJournal
	}
	entry, err := e.journal.Last(ctx, e.root)
	if err != nil {
		return journal.Entry{}, err
	}
	_, abs, err := e.Resolve(entry.Path)
	if err != nil {
		return entry, err
	}

	unlock := e.lock(abs)
	defer unlock()

	current, err := os.ReadFile(abs)
	if err != nil {
		return entry, errors.Wrapf(err, "read %s", entry.Path)
	}
	if string(current) != entry.After {
		return entry, errors.Wrap(ErrModifiedSinceEdit, entry.Path)
	}

	if entry.Existed {
		info, err := os.Stat(abs)
		if err != nil {
			return entry, errors.Wrapf(err, "stat %s", entry.Path)
		}
		if err := writeFileAtomic(abs, entry.Before, info.Mode().Perm()); err != nil {
			return entry, errors.Wrap(err, entry.Path)
		}
	} else if err := os.Remove(abs); err != nil {
		return entry, errors.Wrapf(err, "remove %s", entry.Path)
	}

	if err := e.journal.MarkUndone(ctx, entry.ID); err != nil {
		return entry, err
	}
	entry.Undone = true
	e.logger.Info("edit undone", zap.String("path", entry.Path), zap.String("id", entry.ID))
	return entry, nil
}
