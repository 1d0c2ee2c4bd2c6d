// Package resolve classifies the dependency closure of a set of targets and
// orders the buildable part of it into waves.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set"

	"shiori/internal/recipe"
)

// Index answers whether a package name is known, directly or as an alias.
type Index interface {
	Has(name string) bool
}

// Fetcher retrieves and parses the recipe for a package name. It returns an
// error wrapping recipe.ErrPackageNotFound when no recipe exists.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (*recipe.Recipe, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) (*recipe.Recipe, error)

func (f FetcherFunc) Fetch(ctx context.Context, name string) (*recipe.Recipe, error) {
	return f(ctx, name)
}

// Result is the classification of every name reached from the targets. The
// five sets are pairwise disjoint.
type Result struct {
	Installed mapset.Set
	Stock     mapset.Set
	Targets   mapset.Set
	Deps      mapset.Set
	NotFound  mapset.Set

	// Recipes holds the fetched recipe of every aur target and dependency.
	Recipes map[string]*recipe.Recipe
}

func newResult() *Result {
	return &Result{
		Installed: mapset.NewSet(),
		Stock:     mapset.NewSet(),
		Targets:   mapset.NewSet(),
		Deps:      mapset.NewSet(),
		NotFound:  mapset.NewSet(),
		Recipes:   make(map[string]*recipe.Recipe),
	}
}

func (r *Result) classified(name string) bool {
	for _, s := range []mapset.Set{r.Installed, r.Stock, r.Targets, r.Deps, r.NotFound} {
		if s.Contains(name) {
			return true
		}
	}
	return false
}

// Sorted returns the members of s in sorted order.
func Sorted(s mapset.Set) []string {
	out := make([]string, 0, s.Cardinality())
	for _, v := range s.ToSlice() {
		out = append(out, v.(string))
	}
	sort.Strings(out)
	return out
}

func (r *Result) nodes(s mapset.Set) []*Node {
	var out []*Node
	for _, name := range Sorted(s) {
		out = append(out, NodeFromRecipe(name, r.Recipes[name]))
	}
	return out
}

// TargetNodes returns stager nodes for the aur targets.
func (r *Result) TargetNodes() []*Node { return r.nodes(r.Targets) }

// DepNodes returns stager nodes for the aur dependencies.
func (r *Result) DepNodes() []*Node { return r.nodes(r.Deps) }

// Resolve walks the dependency closure of targets with an explicit frontier.
// Each name is classified once, by the first matching rule: installed (unless
// it is a target), stock, fetchable, or not found. Only fetched recipes are
// expanded further.
func Resolve(ctx context.Context, targets []string, installed, stock Index, fetch Fetcher) (*Result, error) {
	res := newResult()
	isTarget := make(map[string]bool, len(targets))
	seen := make(map[string]bool, len(targets))

	var frontier []string
	for _, name := range targets {
		if seen[name] {
			continue
		}
		seen[name] = true
		isTarget[name] = true
		frontier = append(frontier, name)
	}
	// Pop from the end; reverse so targets are visited in the given order.
	for i, j := 0, len(frontier)-1; i < j; i, j = i+1, j-1 {
		frontier[i], frontier[j] = frontier[j], frontier[i]
	}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		if res.classified(name) {
			continue
		}
		switch {
		case !isTarget[name] && installed.Has(name):
			res.Installed.Add(name)
			continue
		case stock.Has(name):
			res.Stock.Add(name)
			continue
		}

		rec, err := fetch.Fetch(ctx, name)
		if errors.Is(err, recipe.ErrPackageNotFound) {
			res.NotFound.Add(name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
		}

		res.Recipes[name] = rec
		if isTarget[name] || isTarget[rec.Name] {
			res.Targets.Add(name)
		} else {
			res.Deps.Add(name)
		}
		for _, dep := range rec.NeedsAll() {
			if !seen[dep] {
				seen[dep] = true
				frontier = append(frontier, dep)
			}
		}
	}
	return res, nil
}
