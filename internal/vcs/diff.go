package vcs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/utils/binary"
	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff of path between rev and the working tree. A
// path missing on either side diffs against empty content.
func (a *Adapter) Diff(path string, rev Revision) (string, error) {
	rel, err := a.relPath(path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)

	old, err := a.backend.FileContents(filepath.FromSlash(rel), rev)
	if err != nil && !isMissing(err) {
		return "", fmt.Errorf("%s contents of %s at %q: %w", a.backend.Name(), rel, rev, err)
	}
	cur, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if bytes.Equal(old, cur) {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", rel, rel)
	if isBinary(old) || isBinary(cur) {
		b.WriteString("(binary files differ)\n")
		return b.String(), nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(string(cur)),
		FromFile: fmt.Sprintf("a/%s", rel),
		ToFile:   fmt.Sprintf("b/%s", rel),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", err
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}

func isMissing(err error) bool {
	var nsf *NoSuchFileError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &nsf)
}

func isBinary(data []byte) bool {
	bin, err := binary.IsBinary(bytes.NewReader(data))
	return err == nil && bin
}
