package repodb

import "sort"

// Index maps package names, and the names they provide or replace, to
// entries. Lookups by direct name win over aliases.
type Index struct {
	byName  map[string][]*Entry
	byAlias map[string][]*Entry
}

// NewIndex returns an index holding entries.
func NewIndex(entries ...*Entry) *Index {
	ix := &Index{
		byName:  make(map[string][]*Entry),
		byAlias: make(map[string][]*Entry),
	}
	for _, e := range entries {
		ix.Add(e)
	}
	return ix
}

// Add registers e under its name and aliases.
func (ix *Index) Add(e *Entry) {
	ix.byName[e.Name] = append(ix.byName[e.Name], e)
	for _, alias := range e.Aliases() {
		if alias != "" && alias != e.Name {
			ix.byAlias[alias] = append(ix.byAlias[alias], e)
		}
	}
}

// Get returns entries registered under name itself.
func (ix *Index) Get(name string) []*Entry {
	return ix.byName[name]
}

// Lookup returns entries for name, falling back to entries that provide or
// replace it.
func (ix *Index) Lookup(name string) []*Entry {
	if entries := ix.byName[name]; len(entries) > 0 {
		return entries
	}
	return ix.byAlias[name]
}

// Has reports whether anything in the index answers to name.
func (ix *Index) Has(name string) bool {
	return len(ix.Lookup(name)) > 0
}

// Len is the number of distinct package names.
func (ix *Index) Len() int { return len(ix.byName) }

// Names returns the package names in sorted order.
func (ix *Index) Names() []string {
	names := make([]string, 0, len(ix.byName))
	for name := range ix.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
