package repodb

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"shiori/internal/archive"
)

const (
	localDir = "var/lib/pacman/local"
	syncDir  = "var/lib/pacman/sync"
)

// LoadLocal reads the installed package database below root. A missing
// database yields an empty index.
func LoadLocal(root string) (*Index, error) {
	ix := NewIndex()
	dir := filepath.Join(root, localDir)
	dirs, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return ix, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, d.Name(), "desc"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		e, err := entryFromProps(ParseDesc(data), Installed, "local")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name(), err)
		}
		ix.Add(e)
	}
	return ix, nil
}

// LoadSyncDB reads one sync database archive. Metadata files of the same
// entry directory are merged before the entry is built.
func LoadSyncDB(dbPath, repo string) ([]*Entry, error) {
	props := make(map[string]map[string][]string)
	err := archive.Walk(dbPath, func(hdr *tar.Header, body io.Reader) error {
		if hdr.Typeflag != tar.TypeReg {
			return nil
		}
		dir, file := path.Split(strings.TrimPrefix(hdr.Name, "./"))
		if file != "desc" && file != "depends" {
			return nil
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		merged := props[dir]
		if merged == nil {
			merged = make(map[string][]string)
			props[dir] = merged
		}
		for k, v := range ParseDesc(data) {
			merged[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(props))
	for dir := range props {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	entries := make([]*Entry, 0, len(dirs))
	for _, dir := range dirs {
		e, err := entryFromProps(props[dir], Stock, repo)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", dbPath, dir, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LoadSync reads every sync database below root except the ignored
// repositories. Ignore entries may be given with or without ".db".
func LoadSync(root string, ignore []string) (*Index, error) {
	skip := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		skip[strings.TrimSuffix(name, ".db")] = true
	}

	dbs, err := filepath.Glob(filepath.Join(root, syncDir, "*.db"))
	if err != nil {
		return nil, err
	}
	sort.Strings(dbs)

	ix := NewIndex()
	for _, db := range dbs {
		repo := strings.TrimSuffix(filepath.Base(db), ".db")
		if skip[repo] {
			continue
		}
		entries, err := LoadSyncDB(db, repo)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			ix.Add(e)
		}
	}
	return ix, nil
}
