// Package archive reads the tar archives shiori deals with: recipe snapshots,
// sync databases and built packages, whatever their compression.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicXz    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicBzip2 = []byte{'B', 'Z', 'h'}
)

// Reader is a tar stream over a possibly compressed file.
type Reader struct {
	*tar.Reader
	closers []io.Closer
}

// Close releases the decompressor and the underlying file.
func (r *Reader) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func()

func (f closerFunc) Close() error { f(); return nil }

// Open opens the archive at path. Compression is detected from the leading
// bytes since pacman databases carry no telling extension.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{closers: []io.Closer{f}}

	br := bufio.NewReader(f)
	head, _ := br.Peek(6)

	var src io.Reader = br
	switch {
	case bytes.HasPrefix(head, magicGzip):
		gz, err := pgzip.NewReader(br)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", path, err)
		}
		r.closers = append(r.closers, gz)
		src = gz
	case bytes.HasPrefix(head, magicXz):
		xr, err := xz.NewReader(br)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create xz reader for %s: %w", path, err)
		}
		src = xr
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(br)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create zstd reader for %s: %w", path, err)
		}
		r.closers = append(r.closers, closerFunc(zr.Close))
		src = zr
	case bytes.HasPrefix(head, magicBzip2):
		src = bzip2.NewReader(br)
	}
	r.Reader = tar.NewReader(src)
	return r, nil
}

// Walk calls fn for every entry of the archive at path.
func Walk(path string, fn func(hdr *tar.Header, body io.Reader) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		hdr, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := fn(hdr, r); err != nil {
			return err
		}
	}
}

// Member describes one archive entry.
type Member struct {
	Name string
	Size int64
	Dir  bool
}

// List returns the entries of the archive at path.
func List(path string) ([]Member, error) {
	var members []Member
	err := Walk(path, func(hdr *tar.Header, _ io.Reader) error {
		members = append(members, Member{
			Name: hdr.Name,
			Size: hdr.Size,
			Dir:  hdr.Typeflag == tar.TypeDir,
		})
		return nil
	})
	return members, err
}

// Extract unpacks the archive at path below dest.
func Extract(path, dest string) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	return Walk(path, func(hdr *tar.Header, body io.Reader) error {
		target := filepath.Join(dest, hdr.Name)
		// Zip Slip: every entry must stay inside dest.
		if !within(dest, target) {
			return fmt.Errorf("illegal file path in archive: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(target, 0o755)
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0o7777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, body); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || !within(dest, filepath.Join(filepath.Dir(target), hdr.Linkname)) {
				return fmt.Errorf("illegal link target in archive: %s -> %s", hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			return os.Symlink(hdr.Linkname, target)
		}
		return nil
	})
}

func within(dir, path string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator))
}
