package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nyo16/nous-sub006/internal/diff"
	"github.com/nyo16/nous-sub006/internal/fileedit"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file> <difffile>",
		Short: "Re-render a preview each time a diff file being written changes",
		Long:  "watch previews <difffile> applied to <file> whenever <difffile> changes, treating it as a diff that may still be incomplete. It never writes <file>. Stop it with Ctrl-C.",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := fileedit.New(rt.root, nil, rt.logger)
			if err != nil {
				return err
			}
			w := &diffWatcher{
				editor:   editor,
				target:   args[0],
				diffPath: args[1],
				debounce: time.Duration(rt.cfg.Watch.DebounceMs) * time.Millisecond,
				render:   rt.renderOptions(),
				logger:   rt.logger,
				onRender: func(s string) {
					fmt.Fprintln(rt.out, s)
				},
			}
			return w.run(cmd.Context())
		},
	}
}

// diffWatcher previews diffPath applied to target each time diffPath settles after a change.
type diffWatcher struct {
	editor   *fileedit.Editor
	target   string
	diffPath string
	debounce time.Duration
	render   diff.Options
	logger   *zap.Logger
	onRender func(string)
}

// run watches until ctx is done. The diff file's directory is watched, so the file may be created, replaced, or renamed into place.
func (w *diffWatcher) run(ctx context.Context) error {
	abs, err := filepath.Abs(w.diffPath)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", w.diffPath)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}
	w.logger.Info("watching diff", zap.String("diff", abs), zap.String("target", w.target))

	w.refresh(ctx, abs)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.refresh(ctx, abs)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// refresh renders the current preview. Problems are rendered rather than returned so the watch continues.
func (w *diffWatcher) refresh(ctx context.Context, diffAbs string) {
	b, err := os.ReadFile(diffAbs)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		w.onRender(fmt.Sprintf("error: %v", err))
		return
	}
	out, err := w.editor.Preview(ctx, w.target, string(b), false)
	if err != nil {
		w.onRender(fmt.Sprintf("error: %s", strings.TrimSpace(err.Error())))
		return
	}
	w.onRender(out.Render(w.render))
}
