package fileedit

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nyo16/nous-sub006/internal/diff"
	"github.com/pkg/errors"
)

// textFile is a file read for editing. content always uses "\n" line endings; lineCRLF[i] records whether line i of the file on disk ended in "\r\n".
type textFile struct {
	raw      string
	content  string
	lineCRLF []bool
	crlf     int // lines ending in "\r\n"
	newlines int // lines ending in "\n" or "\r\n"
	existed  bool
	mode     fs.FileMode
}

func readTextFile(path string) (textFile, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return textFile{mode: 0o644}, nil
	}
	if err != nil {
		return textFile{}, errors.Wrap(err, "stat")
	}
	if info.IsDir() {
		return textFile{}, errors.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return textFile{}, errors.Wrap(err, "read")
	}
	tf := textFile{raw: string(data), content: string(data), existed: true, mode: info.Mode().Perm()}
	if !strings.Contains(tf.raw, "\r\n") {
		return tf, nil
	}

	lines := strings.SplitAfter(tf.raw, "\n")
	tf.lineCRLF = make([]bool, len(lines))
	var b strings.Builder
	for i, l := range lines {
		if strings.HasSuffix(l, "\n") {
			tf.newlines++
		}
		if strings.HasSuffix(l, "\r\n") {
			tf.lineCRLF[i] = true
			tf.crlf++
			l = l[:len(l)-2] + "\n"
		}
		b.WriteString(l)
	}
	tf.content = b.String()
	return tf, nil
}

// encode converts LF content back to the file's line endings. Lines carried over from the file keep the ending they had. Changed lines take the
// ending of the line they replace, and inserted lines the ending of the line above them.
func (tf textFile) encode(content string) string {
	switch {
	case tf.crlf == 0:
		return content
	case tf.crlf == tf.newlines:
		return strings.ReplaceAll(content, "\n", "\r\n")
	}

	var b strings.Builder
	write := func(line string, crlf bool) {
		if crlf && strings.HasSuffix(line, "\n") {
			line = line[:len(line)-1] + "\r\n"
		}
		b.WriteString(line)
	}

	old := 0
	for _, h := range diff.DiffText(tf.content, content).Hunks {
		switch h.Op {
		case diff.OpEqual:
			for _, l := range h.OldLines {
				write(l, tf.oldCRLF(old))
				old++
			}
		case diff.OpInsert:
			above := tf.oldCRLF(old - 1)
			if old == 0 {
				above = tf.oldCRLF(0)
			}
			for _, l := range h.NewLines {
				write(l, above)
			}
		default:
			for i, l := range h.NewLines {
				write(l, tf.oldCRLF(old+min(i, len(h.OldLines)-1)))
			}
			old += len(h.OldLines)
		}
	}
	return b.String()
}

// oldCRLF reports whether line i of the original file ended in "\r\n". For a file whose last line lacks a newline, that line reports the
// ending of the line before it.
func (tf textFile) oldCRLF(i int) bool {
	if i < 0 || i >= len(tf.lineCRLF) {
		return tf.crlf*2 >= tf.newlines
	}
	if i == len(tf.lineCRLF)-1 && !strings.HasSuffix(tf.raw, "\n") && i > 0 {
		return tf.lineCRLF[i-1]
	}
	return tf.lineCRLF[i]
}

// writeFileAtomic writes data to a temporary file beside path and renames it into place.
func writeFileAtomic(path string, data string, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create parent directory")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return errors.Wrap(err, "chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrap(os.Rename(tmpName, path), "rename temp file")
}
