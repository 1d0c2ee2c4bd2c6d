// Package archivetest builds small archives for tests.
package archivetest

import (
	"archive/tar"
	"io"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// Compression selects the stream wrapping the tar data.
type Compression int

const (
	Plain Compression = iota
	Gzip
	Zstd
)

// Entry is one archive member. A non-empty Link makes it a symlink.
type Entry struct {
	Name string
	Body string
	Link string
}

// Write creates an archive at path from name → content. Names ending in "/"
// become directories.
func Write(t testing.TB, path string, comp Compression, files map[string]string) {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = Entry{Name: name, Body: files[name]}
	}
	WriteEntries(t, path, comp, entries)
}

// WriteEntries creates an archive at path holding entries in order.
func WriteEntries(t testing.TB, path string, comp Compression, entries []Entry) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var w io.Writer = f
	var closer io.Closer
	switch comp {
	case Gzip:
		gz := pgzip.NewWriter(f)
		w, closer = gz, gz
	case Zstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			t.Fatal(err)
		}
		w, closer = zw, zw
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: 0o644, ModTime: time.Unix(0, 0)}
		switch {
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
			hdr.Mode = 0o777
		case strings.HasSuffix(e.Name, "/"):
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, e.Body); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			t.Fatal(err)
		}
	}
}
