// Package cli implements the blockedit command line: applying, previewing and watching SEARCH/REPLACE diffs, rendering diffs, and managing the edit
// journal.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Version is the blockedit version. It is a var so builds can override it with -ldflags "-X .../internal/cli.Version=1.2.3".
var Version = "0.1.0"

// RunOptions overrides standard I/O. Nil fields use the process defaults.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run runs the CLI with args (typically os.Args).
//
// It returns a recommended exit code and the error, if any:
//   - 0 -> err == nil
//   - 1 -> the command failed
//   - 2 -> args could not be parsed (unknown command or flag, wrong argument count)
//
// Errors have already been printed to opts.Err (or stderr) when Run returns.
func Run(args []string, opts *RunOptions) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	var errW io.Writer = os.Stderr
	if opts != nil {
		if opts.In != nil {
			in = opts.In
		}
		if opts.Out != nil {
			out = opts.Out
		}
		if opts.Err != nil {
			errW = opts.Err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt := newRuntime(in, out, errW)
	defer rt.close()

	root := newRootCommand(rt)
	root.SetArgs(argv)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errW)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0, nil
	}

	fmt.Fprintf(errW, "Error: %v\n", err)
	if isUsageError(err) {
		fmt.Fprintln(errW, "Run 'blockedit --help' for usage.")
		return 2, err
	}
	return 1, err
}

// usageError marks errors caused by malformed command lines.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func isUsageError(err error) bool {
	var ue usageError
	if errors.As(err, &ue) {
		return true
	}
	// cobra reports these with plain errors.
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command ") || strings.HasPrefix(msg, "required flag")
}

// usageArgs wraps a cobra argument validator so its failures are usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
