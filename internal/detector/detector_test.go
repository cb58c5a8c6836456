package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arl/conflictscout/internal/model"
)

func TestIntersectReturnsCommonKeys(t *testing.T) {
	a := map[int]int{1: 0, 2: 1, 3: 2}
	b := map[int]int{2: 0, 3: 1, 4: 2}
	got := intersect(a, b)
	assert.Equal(t, map[int]struct{}{2: {}, 3: {}}, got)
}

func TestEnumerateConflictsDedupesUnorderedPairsAcrossBranches(t *testing.T) {
	// Branch a touches unit 0, b touches unit 1, and c touches both, so
	// the pair (0,1) arises from several branch combinations; it must
	// only be scanned once overall.
	branchChangedIDs := map[string]map[int]struct{}{
		"a": {0: {}},
		"b": {1: {}},
		"c": {0: {}, 1: {}},
	}
	dist := map[int]map[int]int{
		0: {0: 0, 99: 1},
		1: {1: 0, 99: 1},
	}
	pred := map[int]map[int]int{
		0: {99: 0},
		1: {99: 1},
	}

	builds := enumerateConflicts(branchChangedIDs, dist, pred, 1)
	seen := map[[2]int]int{}
	for _, b := range builds {
		seen[[2]int{b.a, b.b}]++
	}
	assert.Equal(t, 1, seen[[2]int{0, 1}], "the unordered pair (0,1) must be scanned exactly once")
}

func TestToConflictRecordBuildsSortedBranchLists(t *testing.T) {
	ids := model.NewIDTable()
	unitA := model.NamedUnit{Path: "a.cpp", Name: "foo"}
	unitB := model.NamedUnit{Path: "b.cpp", Name: "bar"}
	ids.ToUnit[0] = unitA
	ids.ToUnit[1] = unitB

	unitBranches := map[int]map[string]struct{}{
		0: {"zeta": {}, "alpha": {}},
		1: {"beta": {}},
	}

	build := conflictBuild{
		a: 0, b: 1,
		paths: [][2][]int{{{0, 1}, {0, 1}}},
	}
	rec := toConflictRecord(build, ids, unitBranches)

	assert.Equal(t, unitA, rec.Units[0])
	assert.Equal(t, unitB, rec.Units[1])
	assert.Equal(t, []string{"alpha", "zeta"}, rec.Branches[0])
	assert.Equal(t, []string{"beta"}, rec.Branches[1])
	assert.Equal(t, []model.NamedUnit{unitA, unitB}, rec.CallPaths[0][0])
}
