package resolve

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set"

	"shiori/internal/recipe"
)

// Node is one buildable package as seen by the stager.
type Node struct {
	Name        string
	Provides    []string
	Depends     []string
	MakeDepends []string
	// Stock marks a node installed from the binary repositories rather than
	// built; such nodes are split into their own wave.
	Stock bool
}

// NodeFromRecipe builds a node named name from r.
func NodeFromRecipe(name string, r *recipe.Recipe) *Node {
	n := &Node{Name: name}
	if r != nil {
		n.Provides = r.Provides
		n.Depends = r.Depends
		n.MakeDepends = r.MakeDepends
	}
	return n
}

func (n *Node) satisfies() mapset.Set {
	s := mapset.NewSet()
	s.Add(n.Name)
	for _, p := range n.Provides {
		s.Add(p)
	}
	return s
}

func (n *Node) needs() mapset.Set {
	s := mapset.NewSet()
	for _, d := range n.Depends {
		s.Add(d)
	}
	for _, d := range n.MakeDepends {
		s.Add(d)
	}
	return s
}

// WaveKind tells how the packages of a wave are installed.
type WaveKind int

const (
	StockWave WaveKind = iota
	AURWave
)

func (k WaveKind) String() string {
	if k == StockWave {
		return "stock"
	}
	return "aur"
}

// Wave is a set of packages whose needs are met by earlier waves.
type Wave struct {
	Kind  WaveKind
	Names []string
}

// CircularDependencyError lists the nodes that could not be staged.
type CircularDependencyError struct {
	Names []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency among: %s", strings.Join(e.Names, ", "))
}

// Stage orders targets and deps into waves. A node is ready once none of its
// needs is still satisfied by another unplaced node; needs nothing unplaced
// satisfies are assumed met. Names within a wave are sorted.
func Stage(targets, deps []*Node) ([]Wave, error) {
	remaining := make(map[string]*Node, len(targets)+len(deps))
	for _, n := range deps {
		remaining[n.Name] = n
	}
	for _, n := range targets {
		remaining[n.Name] = n
	}

	var waves []Wave
	first := true
	for len(remaining) > 0 {
		outstanding := mapset.NewSet()
		for _, n := range remaining {
			outstanding = outstanding.Union(n.satisfies())
		}

		var ready []*Node
		for _, n := range remaining {
			blocking := n.needs().Intersect(outstanding.Difference(n.satisfies()))
			if blocking.Cardinality() == 0 {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			names := make([]string, 0, len(remaining))
			for name := range remaining {
				names = append(names, name)
			}
			sort.Strings(names)
			return nil, &CircularDependencyError{Names: names}
		}

		var stock, aur []string
		for _, n := range ready {
			delete(remaining, n.Name)
			if first && n.Stock {
				stock = append(stock, n.Name)
			} else {
				aur = append(aur, n.Name)
			}
		}
		if len(stock) > 0 {
			sort.Strings(stock)
			waves = append(waves, Wave{Kind: StockWave, Names: stock})
		}
		if len(aur) > 0 {
			sort.Strings(aur)
			waves = append(waves, Wave{Kind: AURWave, Names: aur})
		}
		first = false
	}
	return waves, nil
}
