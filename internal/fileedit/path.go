package fileedit

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrOutsideRoot is returned for paths that do not name a file strictly inside the editor's root.
var ErrOutsideRoot = errors.New("path is outside the working directory")

// resolvePath turns raw (absolute, or relative to root) into a slash-separated path relative to root and the corresponding absolute path. Symlinks
// along the path must not lead out of root.
func resolvePath(root, raw string) (rel string, abs string, err error) {
	if strings.TrimSpace(raw) == "" {
		return "", "", errors.New("path is required")
	}
	p := filepath.FromSlash(raw)
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else {
		abs = filepath.Clean(filepath.Join(root, p))
	}

	r, ok := relInside(root, abs)
	if !ok {
		return "", "", errors.Wrapf(ErrOutsideRoot, "%q (root %s)", raw, root)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}
	resolved, err := evalExisting(abs)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolve %q", raw)
	}
	if _, ok := relInside(realRoot, resolved); !ok {
		return "", "", errors.Wrapf(ErrOutsideRoot, "%q resolves to %s (root %s)", raw, resolved, root)
	}
	return filepath.ToSlash(r), abs, nil
}

// relInside returns path relative to root if path is strictly inside root.
func relInside(root, path string) (string, bool) {
	r, err := filepath.Rel(root, path)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return r, true
}

// evalExisting resolves symlinks in the deepest existing ancestor of path and joins the rest of path onto the result.
func evalExisting(path string) (string, error) {
	existing := path
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			rest, err := filepath.Rel(existing, path)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return path, nil
		}
		existing = parent
	}
}
