package vcs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// slashedRoot returns the absolute root with exactly one trailing separator.
func slashedRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(abs, string(filepath.Separator)) {
		abs += string(filepath.Separator)
	}
	return abs, nil
}

// PathInRoot reports whether path resolves strictly inside root. The root
// itself is not inside, and neither is a sibling sharing its textual prefix
// ("/a/bc" is not in "/a/b").
func PathInRoot(path, root string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	prefix, err := slashedRoot(root)
	if err != nil {
		return false
	}
	return strings.HasPrefix(abs, prefix)
}

// RelPath strips the slash-terminated root from the absolute form of path.
func RelPath(path, root string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	prefix, err := slashedRoot(root)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, prefix) {
		return "", &PathNotInRootError{Path: abs, Root: prefix}
	}
	rel := abs[len(prefix):]
	if rel == "" {
		return "", fmt.Errorf("path %s is the root directory %s", abs, prefix)
	}
	return rel, nil
}

// AbsPath joins a root-relative path back onto root.
func AbsPath(rel, root string) (string, error) {
	return filepath.Abs(filepath.Join(root, rel))
}

// SearchParents looks for name in path and each of its parents and returns
// the first existing match, or "" when there is none.
func SearchParents(path, name string) string {
	dir, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Lstat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// DirOf returns path when it is a directory and its parent otherwise.
func DirOf(path string) string {
	if isDir(path) {
		return path
	}
	dir := filepath.Dir(path)
	if dir == "" {
		return "."
	}
	return dir
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// resolveSymlinks evaluates symlinks in the longest existing prefix of path.
func resolveSymlinks(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	var rest []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}
