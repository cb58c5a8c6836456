// Package detector orchestrates the VCS adapter, indexer, call-graph
// builder, and change locator to find potential merge conflicts, per
// spec.md §4.G.
package detector

import "github.com/arl/conflictscout/internal/callgraph"

// reverseReachable runs a bounded breadth-first search on g (expected
// to be the called_by graph) from src, visiting only vertices within
// limit hops. Edges are unweighted, so BFS is equivalent to Dijkstra
// here; spec.md §9 notes plain neighbor enumeration suffices at the
// default MAX_PATH_LENGTH=1 while still accepting larger bounds, which
// this satisfies generically.
//
// dist maps every visited vertex (including src, at distance 0) to its
// hop count. pred maps every visited vertex except src to its
// predecessor on the shortest path back to src.
func reverseReachable(g *callgraph.CSR, src, limit int) (dist map[int]int, pred map[int]int) {
	dist = map[int]int{src: 0}
	pred = map[int]int{}
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := dist[cur]
		if d >= limit {
			continue
		}
		for _, next := range g.RowIndices(cur) {
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = d + 1
			pred[next] = cur
			queue = append(queue, next)
		}
	}
	return dist, pred
}

// findPathToUnit walks pred (rooted at unit, the BFS source) starting
// from caller, following each vertex's predecessor one hop closer to
// unit at a time, until unit itself is reached. pred only maps a
// visited vertex to the neighbor one hop nearer the BFS root, so the
// walk must start at caller (the far vertex) and move toward unit, not
// the other way around. Bounded to guard against malformed predecessor
// maps (spec.md §9 "Path reconstruction termination"). Returns nil if
// unit is never reached within the bound.
//
// The result already reads caller -> ... -> unit, matching spec.md
// §3's call_paths shape ("from a common caller down to the respective
// changed unit"): no reversal is needed.
func findPathToUnit(unit, caller int, pred map[int]int, maxHops int) []int {
	path := []int{caller}
	for path[len(path)-1] != unit {
		if len(path) > maxHops+1 {
			return nil
		}
		p, ok := pred[path[len(path)-1]]
		if !ok {
			return nil
		}
		path = append(path, p)
	}
	return path
}

// earliestCallers finds, for the pair (a, b), every caller c in
// overlap whose two reconstructed paths to a and b share at most the
// origin c itself, per spec.md §4.G steps 2-3.
func earliestCallers(overlap map[int]struct{}, predA, predB map[int]int, a, b, maxHops int) [][2][]int {
	var out [][2][]int
	for c := range overlap {
		pathA := findPathToUnit(a, c, predA, maxHops)
		pathB := findPathToUnit(b, c, predB, maxHops)
		if pathA == nil || pathB == nil {
			continue
		}
		if sharedBeyondOrigin(pathA, pathB) {
			continue
		}
		out = append(out, [2][]int{pathA, pathB})
	}
	return out
}

// sharedBeyondOrigin reports whether pathA and pathB (both starting at
// the same origin vertex) share any vertex other than that origin.
func sharedBeyondOrigin(pathA, pathB []int) bool {
	seen := make(map[int]struct{}, len(pathA)-1)
	for _, v := range pathA[1:] {
		seen[v] = struct{}{}
	}
	for _, v := range pathB[1:] {
		if _, ok := seen[v]; ok {
			return true
		}
	}
	return false
}
