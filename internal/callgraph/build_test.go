package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arl/conflictscout/internal/model"
)

func TestAssignIDsIsDenseAndDeterministic(t *testing.T) {
	records := map[string]model.FileRecord{
		"a.cpp": {CallsNaive: map[string][]string{"foo": {"foo"}, "bar": {"bar"}}},
		"b.cpp": {CallsNaive: map[string][]string{"baz": {"baz"}}},
	}
	b := NewBuilder()
	ids := b.AssignIDs([]string{"a.cpp", "b.cpp"}, records)

	require.Len(t, ids.ToUnit, 3)
	assert.Equal(t, model.NamedUnit{Path: "a.cpp", Name: "bar"}, ids.ToUnit[0])
	assert.Equal(t, model.NamedUnit{Path: "a.cpp", Name: "foo"}, ids.ToUnit[1])
	assert.Equal(t, model.NamedUnit{Path: "b.cpp", Name: "baz"}, ids.ToUnit[2])
}

func TestBuildGraphsConnectsReferencedUnitsWithinIncludeClosure(t *testing.T) {
	// a.cpp includes b.h; a's "caller" references "callee" defined in b.h.
	records := map[string]model.FileRecord{
		"a.cpp": {
			Includes:   []string{"a.cpp", "b.h"},
			CallsNaive: map[string][]string{"caller": {"caller", "callee"}},
		},
		"b.h": {
			Includes:   []string{"b.h"},
			CallsNaive: map[string][]string{"callee": {"callee"}},
		},
	}
	paths := []string{"a.cpp", "b.h"}
	b := NewBuilder()
	ids := b.AssignIDs(paths, records)
	g, gT := b.BuildGraphs(paths, records, ids, 1)

	callerID := ids.ToID[model.NamedUnit{Path: "a.cpp", Name: "caller"}]
	calleeID := ids.ToID[model.NamedUnit{Path: "b.h", Name: "callee"}]

	assert.True(t, g.Has(int(callerID), int(calleeID)))
	assert.True(t, gT.Has(int(calleeID), int(callerID)))
}

func TestBuildGraphsSuppressesSelfLoops(t *testing.T) {
	records := map[string]model.FileRecord{
		"a.cpp": {
			Includes:   []string{"a.cpp"},
			CallsNaive: map[string][]string{"recurse": {"recurse"}},
		},
	}
	paths := []string{"a.cpp"}
	b := NewBuilder()
	ids := b.AssignIDs(paths, records)
	g, _ := b.BuildGraphs(paths, records, ids, 1)

	id := ids.ToID[model.NamedUnit{Path: "a.cpp", Name: "recurse"}]
	assert.False(t, g.Has(int(id), int(id)))
	assert.Equal(t, 0, g.NNZ())
}

func TestBuildGraphsRespectsTransitiveIncludeDepth(t *testing.T) {
	// a includes b, b includes c; callee lives in c. At depth 1, a cannot
	// see c, so no edge is formed from a's unit to c's unit.
	records := map[string]model.FileRecord{
		"a.cpp": {Includes: []string{"a.cpp", "b.h"}, CallsNaive: map[string][]string{"caller": {"caller", "deep"}}},
		"b.h":   {Includes: []string{"b.h", "c.h"}, CallsNaive: map[string][]string{}},
		"c.h":   {Includes: []string{"c.h"}, CallsNaive: map[string][]string{"deep": {"deep"}}},
	}
	paths := []string{"a.cpp", "b.h", "c.h"}
	b := NewBuilder()
	ids := b.AssignIDs(paths, records)
	g, _ := b.BuildGraphs(paths, records, ids, 1)

	callerID := ids.ToID[model.NamedUnit{Path: "a.cpp", Name: "caller"}]
	assert.Empty(t, g.RowIndices(int(callerID)))
}

func TestAnalyzeCountsConnectedComponents(t *testing.T) {
	g := NewCSR(4)
	g.Set(0, 1)
	g.Freeze()

	stats := Analyze(g)
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 1, stats.NNZ)
	assert.Equal(t, 3, stats.ConnectedComponents) // {0,1}, {2}, {3}
	assert.Equal(t, []int{1, 1, 2}, stats.LargestComponentSizes)
}
