// Package repodb reads pacman's installed and sync package databases into a
// name-indexed view.
package repodb

import (
	"fmt"
	"strings"

	"shiori/internal/recipe"
)

// Origin tells where an entry was read from.
type Origin int

const (
	Installed Origin = iota
	Stock
)

func (o Origin) String() string {
	if o == Installed {
		return "installed"
	}
	return "stock"
}

// Entry is the metadata of one package from a database.
type Entry struct {
	Name     string
	Version  string
	Desc     string
	Provides []string
	Replaces []string
	Depends  []string
	Origin   Origin
	Repo     string
}

// Aliases returns the provides and replaces names, version constraints
// removed.
func (e *Entry) Aliases() []string {
	out := make([]string, 0, len(e.Provides)+len(e.Replaces))
	for _, list := range [][]string{e.Provides, e.Replaces} {
		for _, p := range list {
			out = append(out, recipe.StripConstraint(p))
		}
	}
	return out
}

// ParseDesc splits a desc/depends file into its %KEY% blocks. Keys are
// lower-cased without the percent signs; each value line is one item.
func ParseDesc(data []byte) map[string][]string {
	props := make(map[string][]string)
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.Trim(block, "\n")
		if block == "" {
			continue
		}
		key, value, _ := strings.Cut(block, "\n")
		key = strings.ToLower(strings.Trim(strings.TrimSpace(key), "%"))
		if value == "" {
			props[key] = nil
			continue
		}
		props[key] = append(props[key], strings.Split(value, "\n")...)
	}
	return props
}

func first(props map[string][]string, key string) string {
	if v := props[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func entryFromProps(props map[string][]string, origin Origin, repo string) (*Entry, error) {
	name := first(props, "name")
	if name == "" {
		return nil, fmt.Errorf("desc block without %%NAME%%")
	}
	return &Entry{
		Name:     name,
		Version:  first(props, "version"),
		Desc:     first(props, "desc"),
		Provides: props["provides"],
		Replaces: props["replaces"],
		Depends:  props["depends"],
		Origin:   origin,
		Repo:     repo,
	}, nil
}
