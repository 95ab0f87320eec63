package vcs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newRootedAdapter(t *testing.T, b Backend, opts ...Option) (*Adapter, string) {
	t.Helper()
	root := t.TempDir()
	a, err := New(b, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Root(root); err != nil {
		t.Fatalf("Root: %v", err)
	}
	return a, a.RootDir()
}

func TestNewRejectsUnknownEncoding(t *testing.T) {
	t.Parallel()

	if _, err := New(NewNull(), WithEncoding("klingon-8")); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestRootTwice(t *testing.T) {
	t.Parallel()

	a, root := newRootedAdapter(t, NewNull())
	if err := a.Root(root); !errors.Is(err, ErrAlreadyRooted) {
		t.Fatalf("expected ErrAlreadyRooted, got %v", err)
	}
}

func TestInitOnFileRootsAtDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := New(NewNull())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(file); err != nil {
		t.Fatalf("Init: %v", err)
	}
	want, _ := filepath.Abs(dir)
	if a.RootDir() != want {
		t.Fatalf("root = %q, want %q", a.RootDir(), want)
	}
}

func TestUnrootedOperations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	a, err := New(NewNull())
	if err != nil {
		t.Fatal(err)
	}

	if err := a.WriteText(path, "data", WriteOptions{}); !errors.Is(err, ErrNotRooted) {
		t.Fatalf("WriteText: expected ErrNotRooted, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("refused write must not touch the filesystem")
	}
	if err := a.WriteText(path, "data", WriteOptions{AllowNoVCS: true}); err != nil {
		t.Fatalf("WriteText allow: %v", err)
	}
	if _, err := a.ReadText(path, ReadOptions{}); !errors.Is(err, ErrNotRooted) {
		t.Fatalf("ReadText: expected ErrNotRooted, got %v", err)
	}
	got, err := a.ReadText(path, ReadOptions{AllowNoVCS: true})
	if err != nil || got != "data" {
		t.Fatalf("ReadText allow = %q, %v", got, err)
	}
	if err := a.Add(path); !errors.Is(err, ErrNotRooted) {
		t.Fatalf("Add: expected ErrNotRooted, got %v", err)
	}
	if _, err := a.PathInRoot(path); !errors.Is(err, ErrNotRooted) {
		t.Fatalf("PathInRoot: expected ErrNotRooted, got %v", err)
	}
}

func TestOutsideRoot(t *testing.T) {
	t.Parallel()

	fake := newFakeBackend()
	a, _ := newRootedAdapter(t, fake)
	outside := filepath.Join(t.TempDir(), "elsewhere")

	err := a.WriteFile(outside, []byte("x"), WriteOptions{})
	var notIn *PathNotInRootError
	if !errors.As(err, &notIn) {
		t.Fatalf("expected PathNotInRootError, got %v", err)
	}
	if err := a.WriteFile(outside, []byte("x"), WriteOptions{AllowNoVCS: true}); err != nil {
		t.Fatalf("WriteFile allow: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("backend must not see paths outside the root: %v", fake.calls)
	}
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	a, root := newRootedAdapter(t, NewNull())
	_, err := a.ReadFile(filepath.Join(root, "missing"), ReadOptions{})
	var nsf *NoSuchFileError
	if !errors.As(err, &nsf) {
		t.Fatalf("expected NoSuchFileError, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("NoSuchFileError should match fs.ErrNotExist")
	}
}

func TestWriteAddsThenUpdates(t *testing.T) {
	t.Parallel()

	fake := newFakeBackend()
	a, root := newRootedAdapter(t, fake)
	path := filepath.Join(root, "file")

	if err := a.WriteText(path, "one", WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := a.WriteText(path, "two", WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"add file", "update file"}, fake.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	got, err := a.ReadText(path, ReadOptions{})
	if err != nil || got != "two" {
		t.Fatalf("ReadText = %q, %v", got, err)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	t.Parallel()

	a, root := newRootedAdapter(t, NewNull())
	path := filepath.Join(root, "blob")
	data := []byte{0x00, 0xff, 0x10, 'a', '\n', 0x80}
	if err := a.WriteFile(path, data, WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	got, err := a.ReadFile(path, ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Fatalf("bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestTextEncoding(t *testing.T) {
	t.Parallel()

	a, root := newRootedAdapter(t, NewNull(), WithEncoding("iso-8859-1"))
	path := filepath.Join(root, "latin1")
	if err := a.WriteText(path, "café", WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{'c', 'a', 'f', 0xe9}, raw); diff != "" {
		t.Fatalf("encoded bytes mismatch (-want +got):\n%s", diff)
	}
	got, err := a.ReadText(path, ReadOptions{})
	if err != nil || got != "café" {
		t.Fatalf("ReadText = %q, %v", got, err)
	}
}

func TestNullRejectsRevision(t *testing.T) {
	t.Parallel()

	a, root := newRootedAdapter(t, NewNull())
	path := filepath.Join(root, "file")
	if err := a.WriteText(path, "x", WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.ReadFile(path, ReadOptions{Revision: "abc"}); !errors.Is(err, ErrRevisionUnsupported) {
		t.Fatalf("expected ErrRevisionUnsupported, got %v", err)
	}
}

func TestMkdirRegistersParents(t *testing.T) {
	t.Parallel()

	fake := newFakeBackend()
	a, root := newRootedAdapter(t, fake)
	deep := filepath.Join(root, "a", "b", "c")

	if err := a.Mkdir(deep, DefaultMkdirOptions); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if !isDir(deep) {
		t.Fatal("directory not created")
	}
	if diff := cmp.Diff([]string{"add a", "add a/b", "add a/b/c"}, fake.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}

	fake.calls = nil
	if err := a.Mkdir(deep, DefaultMkdirOptions); err != nil {
		t.Fatalf("Mkdir again: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("existing directory must not be re-registered: %v", fake.calls)
	}
}

func TestMkdirWithoutParents(t *testing.T) {
	t.Parallel()

	a, root := newRootedAdapter(t, NewNull())
	err := a.Mkdir(filepath.Join(root, "x", "y"), MkdirOptions{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected missing parent error, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	fake := newFakeBackend()
	a, root := newRootedAdapter(t, fake)
	path := filepath.Join(root, "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := a.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if exists(path) {
		t.Fatal("file still on disk")
	}
	if err := a.Remove(path); err != nil {
		t.Fatalf("Remove of an already deleted file: %v", err)
	}
	if diff := cmp.Diff([]string{"remove file", "remove file"}, fake.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRecursiveRemoveDeepestFirst(t *testing.T) {
	t.Parallel()

	fake := newFakeBackend()
	a, root := newRootedAdapter(t, fake)
	top := filepath.Join(root, "top")
	if err := os.MkdirAll(filepath.Join(top, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", filepath.Join("sub", "b")} {
		if err := os.WriteFile(filepath.Join(top, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := a.RecursiveRemove(top); err != nil {
		t.Fatalf("RecursiveRemove: %v", err)
	}
	if exists(top) {
		t.Fatal("tree still on disk")
	}
	want := []string{"remove top/sub/b", "remove top/sub", "remove top/a"}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRecursiveRemoveMissing(t *testing.T) {
	t.Parallel()

	a, root := newRootedAdapter(t, NewNull())
	err := a.RecursiveRemove(filepath.Join(root, "nope"))
	var nsf *NoSuchFileError
	if !errors.As(err, &nsf) {
		t.Fatalf("expected NoSuchFileError, got %v", err)
	}
}

func TestParanoidRejectsSymlinkEscape(t *testing.T) {
	t.Parallel()

	outside := t.TempDir()
	fake := newFakeBackend()
	a, root := newRootedAdapter(t, fake, WithParanoid(true))
	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	in, err := a.PathInRoot(filepath.Join(link, "file"))
	if err != nil {
		t.Fatal(err)
	}
	if in {
		t.Fatal("paranoid mode must reject paths escaping through a symlink")
	}
	in, err = a.PathInRoot(filepath.Join(root, "plain", "new"))
	if err != nil || !in {
		t.Fatalf("non-existent path inside root: in=%v err=%v", in, err)
	}
}
