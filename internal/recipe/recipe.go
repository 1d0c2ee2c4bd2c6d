package recipe

import (
	"fmt"
	"os"
	"strings"
)

// FileName is the recipe file inside a package directory.
const FileName = "PKGBUILD"

// Recipe is the evaluated metadata of a PKGBUILD.
type Recipe struct {
	Name        string
	Version     string
	Release     string
	Epoch       string
	Arch        []string
	Depends     []string
	MakeDepends []string
	Provides    []string
	Install     string
	Source      []string
	Vars        Vars
}

// ParseRecipe parses and evaluates recipe text.
func ParseRecipe(src []byte) (*Recipe, error) {
	vars, err := ParseVars(src)
	if err != nil {
		return nil, err
	}
	return FromVars(vars)
}

// ReadFile parses the recipe at path.
func ReadFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := ParseRecipe(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// FromVars builds a Recipe from evaluated variables. For split packages the
// first pkgname is used.
func FromVars(vars Vars) (*Recipe, error) {
	names := vars.List("pkgname")
	if len(names) == 0 {
		return nil, ErrMissingName
	}
	return &Recipe{
		Name:        names[0],
		Version:     vars.Lookup("pkgver", ""),
		Release:     vars.Lookup("pkgrel", ""),
		Epoch:       vars.Lookup("epoch", ""),
		Arch:        vars.List("arch"),
		Depends:     stripAll(vars.List("depends")),
		MakeDepends: stripAll(vars.List("makedepends")),
		Provides:    stripAll(vars.List("provides")),
		Install:     vars.Lookup("install", ""),
		Source:      vars.List("source"),
		Vars:        vars,
	}, nil
}

// Update re-parses src into r, leaving r untouched on error.
func (r *Recipe) Update(src []byte) error {
	fresh, err := ParseRecipe(src)
	if err != nil {
		return err
	}
	*r = *fresh
	return nil
}

// StripConstraint removes a version constraint such as ">=1.2" from a
// dependency or provides entry.
func StripConstraint(dep string) string {
	if i := strings.IndexAny(dep, "<>="); i >= 0 {
		return dep[:i]
	}
	return dep
}

func stripAll(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if name := StripConstraint(d); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// FullVersion is [epoch:]pkgver-pkgrel.
func (r *Recipe) FullVersion() string {
	v := r.Version + "-" + r.Release
	if r.Epoch != "" && r.Epoch != "0" {
		v = r.Epoch + ":" + v
	}
	return v
}

// FilesToEdit lists the files offered for review: the recipe itself and its
// install script.
func (r *Recipe) FilesToEdit() []string {
	files := []string{FileName}
	if r.Install != "" {
		files = append(files, r.Install)
	}
	return files
}

// SourceFiles lists FilesToEdit plus sources that live next to the recipe
// rather than behind a URL.
func (r *Recipe) SourceFiles() []string {
	files := r.FilesToEdit()
	for _, src := range r.Source {
		if strings.Contains(src, "::") || strings.Contains(src, "://") {
			continue
		}
		files = append(files, src)
	}
	return files
}

// Satisfies is the set of names this recipe fulfils: its own name and the
// names it provides.
func (r *Recipe) Satisfies() []string {
	return append([]string{r.Name}, r.Provides...)
}

// NeedsAll returns depends followed by makedepends.
func (r *Recipe) NeedsAll() []string {
	out := make([]string, 0, len(r.Depends)+len(r.MakeDepends))
	out = append(out, r.Depends...)
	return append(out, r.MakeDepends...)
}

func (r *Recipe) pkgArch(arch string) string {
	if len(r.Arch) == 1 && r.Arch[0] == "any" {
		return "any"
	}
	return arch
}

// PackageFile is the artifact name makepkg produces for this recipe.
func (r *Recipe) PackageFile(arch, ext string) string {
	return fmt.Sprintf("%s-%s-%s%s", r.Name, r.FullVersion(), r.pkgArch(arch), ext)
}

// LogFiles are the makepkg --log outputs for this recipe.
func (r *Recipe) LogFiles(arch string) []string {
	base := fmt.Sprintf("%s-%s-%s", r.Name, r.FullVersion(), arch)
	return []string{base + "-build.log", base + "-package.log"}
}
