package detector

import (
	"sort"

	"github.com/arl/conflictscout/internal/model"
)

// pathLengthKey is the sort key of spec.md §4.G step 4: the combined
// path length, minus 0.5 when either path originates directly at a
// changed unit (length 1), to prioritize those cases.
func pathLengthKey(pair [2][]int) float64 {
	length := float64(len(pair[0]) + len(pair[1]))
	if len(pair[0]) == 1 || len(pair[1]) == 1 {
		length -= 0.5
	}
	return length
}

// sortPathPairs orders call-path pairs ascending by pathLengthKey, ties
// broken by the common caller each pair starts at.
func sortPathPairs(pairs [][2][]int) {
	sort.Slice(pairs, func(i, j int) bool {
		ki, kj := pathLengthKey(pairs[i]), pathLengthKey(pairs[j])
		if ki != kj {
			return ki < kj
		}
		return pairs[i][0][0] < pairs[j][0][0]
	})
}

// conflictSortKey is the minimum pathLengthKey across a conflict's call
// paths, spec.md §4.G's "Output sort".
func conflictSortKey(paths [][2][]int) float64 {
	min := pathLengthKey(paths[0])
	for _, p := range paths[1:] {
		if k := pathLengthKey(p); k < min {
			min = k
		}
	}
	return min
}

// sortConflicts orders conflicts by ascending conflictSortKey (ties
// broken by the unit ID pair), and orders each conflict's own call
// paths too, so save_potential_conflicts's
// two JSON outputs (full and minimal) are derived from one consistent
// ordering (original_source/find_conflicts.py's save_potential_conflicts
// sorts once and both writers read from that same order).
func sortConflicts(conflicts []conflictBuild) []conflictBuild {
	for i := range conflicts {
		sortPathPairs(conflicts[i].paths)
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		ki, kj := conflictSortKey(conflicts[i].paths), conflictSortKey(conflicts[j].paths)
		if ki != kj {
			return ki < kj
		}
		if conflicts[i].a != conflicts[j].a {
			return conflicts[i].a < conflicts[j].a
		}
		return conflicts[i].b < conflicts[j].b
	})
	return conflicts
}

// buildRanking counts, over all conflicts, how many conflicts mention
// each unit, sorted descending by count (spec.md §4.G "Ranking & pair
// counts").
func buildRanking(conflicts []model.ConflictRecord) []model.RankEntry {
	counts := map[model.NamedUnit]int{}
	var order []model.NamedUnit
	for _, c := range conflicts {
		for _, u := range c.Units {
			if counts[u] == 0 {
				order = append(order, u)
			}
			counts[u]++
		}
	}
	ranking := make([]model.RankEntry, 0, len(order))
	for _, u := range order {
		ranking = append(ranking, model.RankEntry{Unit: u, Count: counts[u]})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})
	return ranking
}

// buildConflictingBranches computes the symmetric branch->branch->count
// adjacency map of spec.md §4.G, skipping a branch paired with itself.
func buildConflictingBranches(conflicts []model.ConflictRecord) map[string]map[string]int {
	pairs := map[string]map[string]int{}
	for _, c := range conflicts {
		if len(c.Branches) != 2 {
			continue
		}
		for _, branchA := range c.Branches[0] {
			for _, branchB := range c.Branches[1] {
				if branchA == branchB {
					continue
				}
				ensure(pairs, branchA)
				ensure(pairs, branchB)
				pairs[branchA][branchB]++
				pairs[branchB][branchA]++
			}
		}
	}
	return pairs
}

func ensure(m map[string]map[string]int, key string) {
	if _, ok := m[key]; !ok {
		m[key] = map[string]int{}
	}
}
