package diff

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlighter colors single lines of source code for a 256-color terminal.
type highlighter struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
}

// newHighlighter returns a highlighter for the language implied by path, or nil if none is known.
func newHighlighter(path string) *highlighter {
	if path == "" {
		return nil
	}
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return nil
	}
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &highlighter{lexer: chroma.Coalesce(lexer), style: style, formatter: formatter}
}

// line highlights one line. Each line is tokenized on its own, so constructs spanning lines (block comments, raw strings) may be colored imperfectly. The
// visible text is never changed.
func (h *highlighter) line(s string) string {
	if h == nil || s == "" {
		return s
	}
	it, err := h.lexer.Tokenise(nil, s)
	if err != nil {
		return s
	}
	var b strings.Builder
	if err := h.formatter.Format(&b, h.style, it); err != nil {
		return s
	}
	// Lexers may append a newline to their input.
	return strings.ReplaceAll(b.String(), "\n", "")
}
