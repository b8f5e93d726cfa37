package fileedit

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/nyo16/nous-sub006/internal/diff"
	"github.com/nyo16/nous-sub006/internal/journal"
	"github.com/nyo16/nous-sub006/internal/searchreplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T) (*Editor, string) {
	t.Helper()
	root := t.TempDir()
	j, err := journal.Open(journal.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	e, err := New(root, j, nil)
	require.NoError(t, err)
	return e, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("edits file and journals it", func(t *testing.T) {
		e, root := newTestEditor(t)
		writeFile(t, root, "pkg/a.go", "package a\n\nfunc A() int { return 1 }\n")

		out, err := e.Apply(ctx, "pkg/a.go", searchreplace.MakeBlock("func A() int { return 1 }", "func A() int { return 2 }"))
		require.NoError(t, err)
		assert.True(t, out.Written)
		assert.False(t, out.Created)
		assert.Equal(t, "pkg/a.go", out.Path)
		assert.Equal(t, "package a\n\nfunc A() int { return 2 }\n", readFile(t, root, "pkg/a.go"))
		require.NotNil(t, out.Entry)
		assert.Equal(t, "pkg/a.go", out.Entry.Path)

		rendered := out.Render(diff.Options{})
		assert.Contains(t, rendered, "pkg/a.go")
		assert.Contains(t, rendered, "Lines: 3 → 3 (+0)")
	})

	t.Run("preserves crlf", func(t *testing.T) {
		e, root := newTestEditor(t)
		writeFile(t, root, "win.txt", "one\r\ntwo\r\nthree\r\n")

		out, err := e.Apply(ctx, "win.txt", searchreplace.MakeBlock("two", "2\nzwei"))
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\nthree\n", out.Original)
		assert.Equal(t, "one\r\n2\r\nzwei\r\nthree\r\n", readFile(t, root, "win.txt"))
	})

	t.Run("keeps mixed line endings", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			search  string
			replace string
			want    string
		}{
			{name: "edit crlf line", content: "a\r\nb\nc\n", search: "a", replace: "A", want: "A\r\nb\nc\n"},
			{name: "edit lf line", content: "a\r\nb\nc\r\n", search: "b", replace: "B", want: "a\r\nB\nc\r\n"},
			{name: "insert after crlf line", content: "a\r\nb\n", search: "a", replace: "a\nx", want: "a\r\nx\r\nb\n"},
			{name: "insert after lf line", content: "a\r\nb\nc\r\n", search: "b", replace: "b\ny", want: "a\r\nb\ny\nc\r\n"},
			{name: "delete line", content: "a\r\nb\nc\r\n", search: "b\n", replace: "", want: "a\r\nc\r\n"},
			{name: "no final newline", content: "a\r\nb\nc", search: "c", replace: "C", want: "a\r\nb\nC"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e, root := newTestEditor(t)
				writeFile(t, root, "mixed.txt", tt.content)
				_, err := e.Apply(ctx, "mixed.txt", searchreplace.MakeBlock(tt.search, tt.replace))
				require.NoError(t, err)
				assert.Equal(t, tt.want, readFile(t, root, "mixed.txt"))
			})
		}
	})

	t.Run("creates missing file from empty search", func(t *testing.T) {
		e, root := newTestEditor(t)
		out, err := e.Apply(ctx, "new/dir/file.txt", searchreplace.MakeBlock("", "hello"))
		require.NoError(t, err)
		assert.True(t, out.Created)
		assert.Equal(t, "hello\n", readFile(t, root, "new/dir/file.txt"))
	})

	t.Run("diff errors are invalid diffs", func(t *testing.T) {
		e, root := newTestEditor(t)
		writeFile(t, root, "a.txt", "alpha\n")

		_, err := e.Apply(ctx, "a.txt", searchreplace.MakeBlock("gamma", "delta"))
		require.Error(t, err)
		assert.True(t, searchreplace.IsInvalidDiff(err))
		assert.ErrorIs(t, err, searchreplace.ErrNoMatch)
		assert.Contains(t, err.Error(), "a.txt")
		assert.Equal(t, "alpha\n", readFile(t, root, "a.txt"))

		_, err = e.Apply(ctx, "missing.txt", searchreplace.MakeBlock("x", "y"))
		assert.ErrorIs(t, err, searchreplace.ErrNoMatch)
		_, statErr := os.Stat(filepath.Join(root, "missing.txt"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("path escaping root", func(t *testing.T) {
		e, root := newTestEditor(t)
		for _, p := range []string{"../escape.txt", filepath.Join(root, "..", "x.txt"), ".", ""} {
			_, err := e.Apply(ctx, p, searchreplace.MakeBlock("", "x"))
			require.Error(t, err, p)
			assert.False(t, searchreplace.IsInvalidDiff(err))
		}
	})

	t.Run("symlinks leading out of root", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on windows")
		}
		e, root := newTestEditor(t)
		outside := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret\n"), 0o644))
		require.NoError(t, os.Symlink(outside, filepath.Join(root, "linkdir")))
		require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "link.txt")))

		for _, p := range []string{"linkdir/secret.txt", "linkdir/new.txt", "link.txt"} {
			_, err := e.Apply(ctx, p, searchreplace.MakeBlock("secret", "leaked"))
			assert.ErrorIs(t, err, ErrOutsideRoot, p)
			_, err = e.Preview(ctx, p, searchreplace.MakeBlock("secret", "leaked"), true)
			assert.ErrorIs(t, err, ErrOutsideRoot, p)
		}
		assert.Equal(t, "secret\n", readFile(t, outside, "secret.txt"))
		_, statErr := os.Stat(filepath.Join(outside, "new.txt"))
		assert.True(t, os.IsNotExist(statErr))

		writeFile(t, root, "real/inside.txt", "in\n")
		require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))
		_, err := e.Apply(ctx, "alias/inside.txt", searchreplace.MakeBlock("in", "IN"))
		require.NoError(t, err)
		assert.Equal(t, "IN\n", readFile(t, root, "real/inside.txt"))
	})

	t.Run("absolute path inside root", func(t *testing.T) {
		e, root := newTestEditor(t)
		writeFile(t, root, "b.txt", "x\n")
		out, err := e.Apply(ctx, filepath.Join(root, "b.txt"), searchreplace.MakeBlock("x", "y"))
		require.NoError(t, err)
		assert.Equal(t, "b.txt", out.Path)
	})

	t.Run("no-op edit does not write", func(t *testing.T) {
		e, root := newTestEditor(t)
		writeFile(t, root, "same.txt", "x\n")
		out, err := e.Apply(ctx, "same.txt", searchreplace.MakeBlock("x", "x"))
		require.NoError(t, err)
		assert.False(t, out.Written)
		assert.Nil(t, out.Entry)
	})

	t.Run("keeps file mode", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("file modes are not meaningful on windows")
		}
		e, root := newTestEditor(t)
		p := filepath.Join(root, "run.sh")
		require.NoError(t, os.WriteFile(p, []byte("echo a\n"), 0o755))
		_, err := e.Apply(ctx, "run.sh", searchreplace.MakeBlock("echo a", "echo b"))
		require.NoError(t, err)
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	})
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	e, root := newTestEditor(t)
	writeFile(t, root, "a.txt", "foo\nbar\n")

	out, err := e.Preview(ctx, "a.txt", "------- SEARCH\nbar\n=======\nBA", false)
	require.NoError(t, err)
	assert.Equal(t, "foo\nBA\n", out.Updated)
	assert.False(t, out.Written)
	assert.Equal(t, "foo\nbar\n", readFile(t, root, "a.txt"))

	_, err = e.Preview(ctx, "a.txt", "------- SEARCH\nbar\n=======\nBA", true)
	assert.ErrorIs(t, err, searchreplace.ErrMalformedBlock)
}

func TestUndo(t *testing.T) {
	ctx := context.Background()

	t.Run("restores previous content", func(t *testing.T) {
		e, root := newTestEditor(t)
		writeFile(t, root, "a.txt", "one\r\ntwo\r\n")
		_, err := e.Apply(ctx, "a.txt", searchreplace.MakeBlock("two", "TWO"))
		require.NoError(t, err)
		_, err = e.Apply(ctx, "a.txt", searchreplace.MakeBlock("one", "ONE"))
		require.NoError(t, err)

		entry, err := e.Undo(ctx)
		require.NoError(t, err)
		assert.True(t, entry.Undone)
		assert.Equal(t, "one\r\nTWO\r\n", readFile(t, root, "a.txt"))

		_, err = e.Undo(ctx)
		require.NoError(t, err)
		assert.Equal(t, "one\r\ntwo\r\n", readFile(t, root, "a.txt"))

		_, err = e.Undo(ctx)
		assert.ErrorIs(t, err, journal.ErrNotFound)
	})

	t.Run("removes created file", func(t *testing.T) {
		e, root := newTestEditor(t)
		_, err := e.Apply(ctx, "created.txt", searchreplace.MakeBlock("", "x"))
		require.NoError(t, err)
		_, err = e.Undo(ctx)
		require.NoError(t, err)
		_, statErr := os.Stat(filepath.Join(root, "created.txt"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("refuses when file changed", func(t *testing.T) {
		e, root := newTestEditor(t)
		writeFile(t, root, "a.txt", "x\n")
		_, err := e.Apply(ctx, "a.txt", searchreplace.MakeBlock("x", "y"))
		require.NoError(t, err)
		writeFile(t, root, "a.txt", "z\n")

		_, err = e.Undo(ctx)
		assert.ErrorIs(t, err, ErrModifiedSinceEdit)
		assert.Equal(t, "z\n", readFile(t, root, "a.txt"))
	})

	t.Run("only undoes edits under its own root", func(t *testing.T) {
		j, err := journal.Open(journal.InMemory)
		require.NoError(t, err)
		t.Cleanup(func() { j.Close() })
		rootA, rootB := t.TempDir(), t.TempDir()
		a, err := New(rootA, j, nil)
		require.NoError(t, err)
		b, err := New(rootB, j, nil)
		require.NoError(t, err)

		writeFile(t, rootA, "x.txt", "one\n")
		_, err = a.Apply(ctx, "x.txt", searchreplace.MakeBlock("one", "two"))
		require.NoError(t, err)

		_, err = b.Undo(ctx)
		assert.ErrorIs(t, err, journal.ErrNotFound)
		assert.Equal(t, "two\n", readFile(t, rootA, "x.txt"))

		writeFile(t, rootB, "x.txt", "uno\n")
		_, err = b.Apply(ctx, "x.txt", searchreplace.MakeBlock("uno", "dos"))
		require.NoError(t, err)

		entry, err := a.Undo(ctx)
		require.NoError(t, err)
		assert.Equal(t, a.Root(), entry.Root)
		assert.Equal(t, "one\n", readFile(t, rootA, "x.txt"))
		assert.Equal(t, "dos\n", readFile(t, rootB, "x.txt"))
	})

	t.Run("no journal", func(t *testing.T) {
		e, err := New(t.TempDir(), nil, nil)
		require.NoError(t, err)
		_, err = e.Undo(ctx)
		assert.ErrorIs(t, err, ErrNoJournal)
	})
}
