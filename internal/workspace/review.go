package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/cespare/cp"

	"shiori/internal/recipe"
)

// FileState is the review state of a recipe file.
type FileState int

const (
	FileNew FileState = iota
	FileViewed
	FileModified
)

func (s FileState) String() string {
	switch s {
	case FileViewed:
		return "viewed"
	case FileModified:
		return "modified"
	}
	return "new"
}

// OrigPath is the pristine copy taken before a file is first opened.
func (w *Workspace) OrigPath(name, file string) string {
	return w.Path(name, file) + ".orig"
}

// Backup copies file to its .orig sibling unless that copy already exists.
func (w *Workspace) Backup(name, file string) error {
	orig := w.OrigPath(name, file)
	if _, err := os.Stat(orig); err == nil {
		return nil
	}
	return cp.CopyFile(orig, w.Path(name, file))
}

// CheckState compares file with its .orig copy and records the result. A
// modified recipe file is re-parsed; a parse failure is returned alongside
// the state.
func (w *Workspace) CheckState(name, file string) (FileState, error) {
	st, err := w.compare(name, file)
	if err != nil {
		return FileNew, err
	}
	if w.states[name] == nil {
		w.states[name] = make(map[string]FileState)
	}
	w.states[name][file] = st
	if st == FileModified && file == recipe.FileName {
		if err := w.reload(name); err != nil {
			return st, err
		}
	}
	return st, nil
}

func (w *Workspace) compare(name, file string) (FileState, error) {
	orig, err := os.ReadFile(w.OrigPath(name, file))
	if os.IsNotExist(err) {
		return FileNew, nil
	}
	if err != nil {
		return FileNew, err
	}
	cur, err := os.ReadFile(w.Path(name, file))
	if err != nil {
		return FileNew, err
	}
	if bytes.Equal(orig, cur) {
		return FileViewed, nil
	}
	return FileModified, nil
}

// State returns the last recorded state of file.
func (w *Workspace) State(name, file string) FileState {
	return w.states[name][file]
}

// refreshStates re-checks every file already past the new state.
func (w *Workspace) refreshStates(name string) {
	for file := range w.states[name] {
		if _, err := w.CheckState(name, file); err != nil {
			w.log.Warnf("%s/%s: %v\n", name, file, err)
		}
	}
}

// Edit opens file in the configured editor and records its new state.
func (w *Workspace) Edit(ctx context.Context, name, file string) (FileState, error) {
	if _, err := w.recipeOf(name); err != nil {
		return FileNew, err
	}
	if err := w.Backup(name, file); err != nil {
		return FileNew, fmt.Errorf("failed to back up %s/%s: %w", name, file, err)
	}
	if err := w.runner.Run(ctx, Call{Tool: "editor", Args: []string{w.Path(name, file)}, Dir: w.Path(name)}); err != nil {
		return FileNew, err
	}
	return w.CheckState(name, file)
}
