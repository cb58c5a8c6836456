package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSRSetFreezeAndQuery(t *testing.T) {
	g := NewCSR(4)
	g.Set(0, 1)
	g.Set(0, 3)
	g.Set(0, 1) // duplicate, should not double-count
	g.Set(2, 0)
	g.Freeze()

	assert.Equal(t, []int{1, 3}, g.RowIndices(0))
	assert.Empty(t, g.RowIndices(1))
	assert.Equal(t, []int{0}, g.RowIndices(2))
	assert.True(t, g.Has(0, 1))
	assert.False(t, g.Has(0, 2))
	assert.Equal(t, 3, g.NNZ())
}

func TestCSRTransposeIsExact(t *testing.T) {
	g := NewCSR(3)
	g.Set(0, 1)
	g.Set(0, 2)
	g.Set(1, 2)
	g.Freeze()

	gT := g.Transpose()
	assert.Equal(t, []int{0}, gT.RowIndices(1))
	assert.Equal(t, []int{0, 1}, gT.RowIndices(2))
	assert.Empty(t, gT.RowIndices(0))
}

func TestFromTriplesRebuildsEquivalentGraph(t *testing.T) {
	triples := [][2]int{{0, 1}, {1, 2}, {0, 1}}
	g := FromTriples(3, triples)
	assert.Equal(t, []int{1}, g.RowIndices(0))
	assert.Equal(t, []int{2}, g.RowIndices(1))
	assert.Equal(t, 2, g.NNZ())
}
