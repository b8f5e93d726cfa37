package searchreplace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name         string
		search       string
		original     string
		from         int
		wantSpan     MatchSpan
		wantStrategy Strategy
		wantPending  bool
	}{
		{
			name:         "empty search on empty file",
			search:       "",
			original:     "",
			wantSpan:     MatchSpan{0, 0},
			wantStrategy: StrategyEmptyFile,
		},
		{
			name:         "exact",
			search:       "bar\n",
			original:     "foo\nbar\nbaz\n",
			wantSpan:     MatchSpan{4, 8},
			wantStrategy: StrategyExact,
		},
		{
			name:         "exact scoped to from",
			search:       "x\n",
			original:     "x\ny\nx\n",
			from:         2,
			wantSpan:     MatchSpan{4, 6},
			wantStrategy: StrategyExact,
		},
		{
			name:         "line trimmed without final newline in original",
			search:       "hello world\n",
			original:     "hello world",
			wantSpan:     MatchSpan{0, 11},
			wantStrategy: StrategyLineTrimmed,
		},
		{
			name:         "line trimmed tolerates indentation",
			search:       "if x {\nreturn\n}\n",
			original:     "func f() {\n\tif x {\n\t\treturn\n\t}\n}\n",
			wantSpan:     MatchSpan{11, 31},
			wantStrategy: StrategyLineTrimmed,
		},
		{
			name:         "line trimmed starts at first line at or after from",
			search:       "  a\n",
			original:     "a\nb\na\n",
			from:         1,
			wantSpan:     MatchSpan{4, 6},
			wantStrategy: StrategyLineTrimmed,
		},
		{
			name:         "block anchor ignores interior drift",
			search:       "func f() {\n\tx := 1\n}\n",
			original:     "package p\n\nfunc f() {\n\ty := 2\n}\n",
			wantSpan:     MatchSpan{11, 32},
			wantStrategy: StrategyBlockAnchor,
		},
		{
			name:         "unscoped finds text before from",
			search:       "foo\n",
			original:     "foo\nbar\n",
			from:         4,
			wantSpan:     MatchSpan{0, 4},
			wantStrategy: StrategyUnscoped,
			wantPending:  true,
		},
		{
			name:         "from beyond content is clamped",
			search:       "foo",
			original:     "foo",
			from:         99,
			wantSpan:     MatchSpan{0, 3},
			wantStrategy: StrategyUnscoped,
			wantPending:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Locate(tt.search, tt.original, tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSpan, m.Span)
			assert.Equal(t, tt.wantStrategy, m.Strategy, "strategy %s", m.Strategy)
			assert.Equal(t, tt.wantPending, m.Pending)
		})
	}
}

func TestLocate_BlockAnchorNeedsThreeLines(t *testing.T) {
	_, err := Locate("func f() {\n}\n", "func f() {\n\tx()\n}\n", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestLocate_Errors(t *testing.T) {
	t.Run("empty search on non-empty file", func(t *testing.T) {
		_, err := Locate("", "content\n", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptySearch)
		assert.Equal(t, EmptySearchOnNonEmptyFile, KindOf(err))
		assert.True(t, IsInvalidDiff(err))
	})

	t.Run("no match", func(t *testing.T) {
		_, err := Locate("not found\n", "hello world", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoMatch)
		assert.Contains(t, err.Error(), "does not match")
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("no match carries closest line", func(t *testing.T) {
		original := "package main\n\nfunc handleRequest(w http.ResponseWriter) {\n}\n"
		_, err := Locate("func handleRequests(w http.ResponseWriter) {\n\tlog()\n}\n", original, 0)
		var e *Error
		require.ErrorAs(t, err, &e)
		require.NotNil(t, e.Hint)
		assert.Equal(t, 3, e.Hint.Line)
		assert.Equal(t, "func handleRequest(w http.ResponseWriter) {", e.Hint.Text)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("no hint for unrelated text", func(t *testing.T) {
		_, err := Locate("zzzzzzzzzzzz\n", "abc\ndef\n", 0)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Nil(t, e.Hint)
	})
}

func TestLocate_SpansStayInBounds(t *testing.T) {
	originals := []string{"", "a", "a\n", "a\nb", " a \n b \n c ", "x\n\n\ny\n"}
	searches := []string{"a\n", "b\n", "a\nb\n", " c\n", "\n", "y\n", "x\n\n\ny\n"}
	for _, o := range originals {
		for _, s := range searches {
			for from := 0; from <= len(o); from++ {
				m, err := Locate(s, o, from)
				if err != nil {
					continue
				}
				assert.True(t, 0 <= m.Span.Start && m.Span.Start <= m.Span.End && m.Span.End <= len(o),
					"search %q original %q from %d: %+v", s, o, from, m.Span)
				assert.Equal(t, m.Span.Start < from, m.Pending)
				if m.Strategy == StrategyExact || m.Strategy == StrategyUnscoped {
					assert.True(t, strings.HasPrefix(o[m.Span.Start:], s))
				}
			}
		}
	}
}
