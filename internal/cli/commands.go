package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nyo16/nous-sub006/internal/diff"
	"github.com/nyo16/nous-sub006/internal/fileedit"
	"github.com/nyo16/nous-sub006/internal/journal"
	"github.com/nyo16/nous-sub006/internal/llmstream"
	"github.com/nyo16/nous-sub006/internal/searchreplace"
	"github.com/nyo16/nous-sub006/internal/simplelogger"
	"github.com/nyo16/nous-sub006/internal/tools/coretools"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// runtime is the state shared by the commands of one Run.
type runtime struct {
	in  io.Reader
	out io.Writer
	err io.Writer

	v       *viper.Viper
	cfg     Config
	logger  *zap.Logger
	journal *journal.Journal

	root string // directory edits are confined to
}

func newRuntime(in io.Reader, out, errW io.Writer) *runtime {
	return &runtime{in: in, out: out, err: errW, v: viper.New(), logger: zap.NewNop()}
}

func (rt *runtime) load() error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "get working directory")
	}
	home, _ := os.UserHomeDir()
	cfg, err := loadConfig(rt.v, cwd, home)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	simplelogger.SetLevel(cfg.Log.Level)
	rt.logger = simplelogger.Logger()
	return nil
}

func (rt *runtime) close() {
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.logger.Warn("close journal", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

func (rt *runtime) openJournal() (*journal.Journal, error) {
	if rt.cfg.Journal.Disabled {
		return nil, fileedit.ErrNoJournal
	}
	if rt.journal == nil {
		j, err := journal.Open(rt.cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		rt.journal = j
	}
	return rt.journal, nil
}

// editor returns an editor confined to --root. Without requireJournal, a journal that cannot be opened only produces a warning.
func (rt *runtime) editor(requireJournal bool) (*fileedit.Editor, error) {
	j, err := rt.openJournal()
	if err != nil {
		if requireJournal {
			return nil, err
		}
		if !errors.Is(err, fileedit.ErrNoJournal) {
			fmt.Fprintf(rt.err, "warning: edits will not be journaled: %v\n", err)
		}
		j = nil
	}
	return fileedit.New(rt.root, j, rt.logger)
}

func (rt *runtime) renderOptions() diff.Options {
	return rt.cfg.renderOptions(rt.out)
}

// readInput reads path, or standard input when path is "-".
func (rt *runtime) readInput(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(rt.in)
		return string(b), errors.Wrap(err, "read standard input")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return string(b), nil
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "blockedit",
		Short:         "Apply SEARCH/REPLACE edit blocks to files",
		Long:          "blockedit applies SEARCH/REPLACE edit blocks, as written by LLMs, to files. It previews partially streamed diffs, renders the result as a compact line diff, and keeps a journal of applied edits so they can be undone.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&rt.root, "root", ".", "directory that edits are confined to")
	pf.String("color", "auto", "color output: auto, always or never")
	pf.Bool("highlight", true, "syntax highlight colored diffs")
	pf.String("log-level", "info", "log level when BLOCKEDIT_LOG_FILE is set (debug, info, warn, error)")
	pf.String("journal", "", "path of the edit journal database")
	pf.Bool("no-journal", false, "do not record edits")

	bindFlags(rt.v, pf, map[string]string{
		"color":            "color",
		"highlight":        "highlight",
		"log.level":        "log-level",
		"journal.path":     "journal",
		"journal.disabled": "no-journal",
	})

	root.AddCommand(
		newApplyCommand(rt),
		newPreviewCommand(rt),
		newWatchCommand(rt),
		newDiffCommand(rt),
		newBlockCommand(rt),
		newUndoCommand(rt),
		newHistoryCommand(rt),
		newToolSchemaCommand(rt),
		newConfigCommand(rt),
	)
	return root
}

// bindFlags binds config keys to the named flags of fs. Bound flags override other sources only when set on the command line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keyToFlag map[string]string) {
	for key, name := range keyToFlag {
		_ = v.BindPFlag(key, fs.Lookup(name))
	}
}

func newApplyCommand(rt *runtime) *cobra.Command {
	var diffPath string
	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Apply a SEARCH/REPLACE diff to a file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			diffText, err := rt.readInput(diffPath)
			if err != nil {
				return err
			}
			editor, err := rt.editor(false)
			if err != nil {
				return err
			}
			out, err := editor.Apply(cmd.Context(), args[0], diffText)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, out.Render(rt.renderOptions()))
			return nil
		},
	}
	cmd.Flags().StringVar(&diffPath, "diff", "-", "file holding the diff, or - for standard input")
	return cmd
}

func newPreviewCommand(rt *runtime) *cobra.Command {
	var (
		diffPath string
		partial  bool
	)
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the result of a diff without writing it",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			diffText, err := rt.readInput(diffPath)
			if err != nil {
				return err
			}
			editor, err := fileedit.New(rt.root, nil, rt.logger)
			if err != nil {
				return err
			}
			out, err := editor.Preview(cmd.Context(), args[0], diffText, !partial)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, out.Render(rt.renderOptions()))
			return nil
		},
	}
	cmd.Flags().StringVar(&diffPath, "diff", "-", "file holding the diff, or - for standard input")
	cmd.Flags().BoolVar(&partial, "partial", false, "treat the diff as an incomplete prefix of a diff still being written")
	return cmd
}

func newDiffCommand(rt *runtime) *cobra.Command {
	var (
		unified     bool
		contextSize int
	)
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Render the difference between two files",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldText, err := rt.readInput(args[0])
			if err != nil {
				return err
			}
			newText, err := rt.readInput(args[1])
			if err != nil {
				return err
			}
			opts := rt.renderOptions()
			if unified {
				fmt.Fprint(rt.out, diff.DiffText(oldText, newText).RenderUnified(opts, args[0], args[1], contextSize))
				return nil
			}
			fmt.Fprintln(rt.out, diff.FormatEditResult(args[1], oldText, newText, opts))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unified, "unified", false, "render a multi-hunk unified diff")
	cmd.Flags().IntVarP(&contextSize, "context", "U", 3, "context lines for --unified")
	return cmd
}

func newBlockCommand(rt *runtime) *cobra.Command {
	var (
		searchPath  string
		replacePath string
		pretty      bool
	)
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Build a SEARCH/REPLACE block from two files",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if searchPath == "-" && replacePath == "-" {
				return usageError{errors.New("--search and --replace cannot both read standard input")}
			}
			search, err := rt.readInput(searchPath)
			if err != nil {
				return err
			}
			replace, err := rt.readInput(replacePath)
			if err != nil {
				return err
			}
			if pretty {
				fmt.Fprintln(rt.out, diff.FormatSearchReplace(searchPath, search, replace, rt.renderOptions()))
				return nil
			}
			fmt.Fprint(rt.out, searchreplace.MakeBlock(search, replace))
			return nil
		},
	}
	cmd.Flags().StringVar(&searchPath, "search", "", "file holding the text to find (- for standard input)")
	cmd.Flags().StringVar(&replacePath, "replace", "", "file holding the replacement text (- for standard input)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render the block for reading instead of printing it")
	_ = cmd.MarkFlagRequired("search")
	_ = cmd.MarkFlagRequired("replace")
	return cmd
}

func newUndoCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recent edit that has not been undone",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := rt.editor(true)
			if err != nil {
				return err
			}
			entry, err := editor.Undo(cmd.Context())
			if errors.Is(err, journal.ErrNotFound) {
				return errors.New("nothing to undo")
			}
			if err != nil {
				return err
			}
			verb := "Restored"
			if !entry.Existed {
				verb = "Removed"
			}
			fmt.Fprintf(rt.out, "%s %s (edit %s)\n", verb, entry.Path, shortID(entry.ID))
			return nil
		},
	}
}

func newHistoryCommand(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled edits, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := rt.openJournal()
			if err != nil {
				return err
			}
			entries, err := j.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(rt.out, "No edits recorded.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(rt.out, formatHistoryEntry(e))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "number", "n", 20, "number of edits to list (0 for all)")
	return cmd
}

// formatHistoryEntry formats one journal entry as "<id>  <time>  <A|M> <path>", marking undone edits.
func formatHistoryEntry(e journal.Entry) string {
	kind := "M"
	if !e.Existed {
		kind = "A"
	}
	line := fmt.Sprintf("%s  %s  %s %s", shortID(e.ID), e.Created.Local().Format(time.DateTime), kind, e.Path)
	if e.Undone {
		line += "  (undone)"
	}
	return line
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newToolSchemaCommand(rt *runtime) *cobra.Command {
	var freeform bool
	cmd := &cobra.Command{
		Use:   "tool-schema",
		Short: "Print the OpenAI Responses definition of the replace_in_file tool",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := coretools.NewReplaceInFileTool(nil, coretools.ReplaceInFileOptions{Freeform: freeform})
			params, err := llmstream.OpenAIToolParams([]llmstream.Tool{tool})
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(params, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode tool definition")
			}
			fmt.Fprintln(rt.out, string(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&freeform, "freeform", false, "define a custom (free-form text) tool instead of a function tool")
	return cmd
}

func newConfigCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := json.MarshalIndent(rt.cfg, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode configuration")
			}
			fmt.Fprintln(rt.out, string(b))
			return nil
		},
	}
}
