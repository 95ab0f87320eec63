package vcs

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/zeebo/xxh3"
)

// CopyTree copies src to dst, which must not exist yet. Symlinks are recreated
// rather than followed.
func CopyTree(src, dst string) error {
	if exists(dst) {
		return fmt.Errorf("copy %s: destination %s already exists", src, dst)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target, err := securejoin.SecureJoin(dst, rel)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			// Sockets, devices and fifos have no place in a snapshot.
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// treeDigest hashes relative paths, entry kinds, link targets and file
// contents of the tree under dir in lexical order.
func treeDigest(dir string) (uint64, error) {
	h := xxh3.New()
	var kind [1]byte
	var size [8]byte
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		h.WriteString(filepath.ToSlash(rel))
		h.Write([]byte{0})
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			kind[0] = 'l'
			h.Write(kind[:])
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			h.WriteString(link)
		case d.IsDir():
			kind[0] = 'd'
			h.Write(kind[:])
		default:
			kind[0] = 'f'
			h.Write(kind[:])
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			binary.LittleEndian.PutUint64(size[:], uint64(len(data)))
			h.Write(size[:])
			h.Write(data)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
