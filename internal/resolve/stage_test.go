package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(name string, depends ...string) *Node {
	return &Node{Name: name, Depends: depends}
}

func TestStageOrdersWaves(t *testing.T) {
	waves, err := Stage(
		[]*Node{node("A", "B")},
		[]*Node{node("B", "C"), node("C")},
	)
	require.NoError(t, err)
	assert.Equal(t, []Wave{
		{Kind: AURWave, Names: []string{"C"}},
		{Kind: AURWave, Names: []string{"B"}},
		{Kind: AURWave, Names: []string{"A"}},
	}, waves)
}

func TestStageGroupsIndependentNodes(t *testing.T) {
	app := node("app", "libb", "liba")
	app.MakeDepends = []string{"tool"}
	waves, err := Stage(
		[]*Node{app},
		[]*Node{node("libb"), node("liba"), node("tool", "liba")},
	)
	require.NoError(t, err)
	assert.Equal(t, []Wave{
		{Kind: AURWave, Names: []string{"liba", "libb"}},
		{Kind: AURWave, Names: []string{"tool"}},
		{Kind: AURWave, Names: []string{"app"}},
	}, waves)
}

func TestStageProvides(t *testing.T) {
	impl := node("foo-git")
	impl.Provides = []string{"foo"}
	waves, err := Stage([]*Node{node("app", "foo", "glibc")}, []*Node{impl})
	require.NoError(t, err)
	assert.Equal(t, []Wave{
		{Kind: AURWave, Names: []string{"foo-git"}},
		{Kind: AURWave, Names: []string{"app"}},
	}, waves)
}

func TestStageSelfProvideDoesNotBlock(t *testing.T) {
	n := node("foo", "foo-libs")
	n.Provides = []string{"foo-libs"}
	waves, err := Stage([]*Node{n}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Wave{{Kind: AURWave, Names: []string{"foo"}}}, waves)
}

func TestStageSplitsStockFirst(t *testing.T) {
	s := node("zlib")
	s.Stock = true
	waves, err := Stage([]*Node{node("app", "lib"), s}, []*Node{node("lib")})
	require.NoError(t, err)
	assert.Equal(t, []Wave{
		{Kind: StockWave, Names: []string{"zlib"}},
		{Kind: AURWave, Names: []string{"lib"}},
		{Kind: AURWave, Names: []string{"app"}},
	}, waves)
}

func TestStageCycle(t *testing.T) {
	_, err := Stage(
		[]*Node{node("A", "B"), node("D")},
		[]*Node{node("B", "A")},
	)
	var ce *CircularDependencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"A", "B"}, ce.Names)
	assert.Contains(t, err.Error(), "A, B")
}

func TestStageEveryNodeOnce(t *testing.T) {
	targets := []*Node{node("a", "b", "c"), node("x")}
	deps := []*Node{node("b", "c"), node("c"), node("d", "c")}
	waves, err := Stage(targets, deps)
	require.NoError(t, err)

	placed := map[string]int{}
	for _, w := range waves {
		for _, n := range w.Names {
			placed[n]++
		}
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1, "x": 1}, placed)
}
