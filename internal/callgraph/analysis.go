package callgraph

import "sort"

// Stats summarizes a call graph, mirroring original_source/find_conflicts.py's
// call_graph_analysis: dimensions, edge count, and connected-component
// sizes. Diagnostic only — it does not influence conflict detection.
type Stats struct {
	Rows                  int
	NNZ                   int
	ConnectedComponents   int
	LargestComponentSizes []int // up to the ten largest, ascending
}

// Analyze computes Stats for g, treating it as an undirected graph for
// the purpose of connected-component counting (an edge in either
// direction joins two units into the same component).
func Analyze(g *CSR) Stats {
	n := g.Rows()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	adjacency := make([][]int, n)
	for row := 0; row < n; row++ {
		adjacency[row] = append(adjacency[row], g.RowIndices(row)...)
	}
	gT := g.Transpose()
	for row := 0; row < n; row++ {
		adjacency[row] = append(adjacency[row], gT.RowIndices(row)...)
	}

	var sizes []int
	label := 0
	for start := 0; start < n; start++ {
		if labels[start] != -1 {
			continue
		}
		size := 0
		stack := []int{start}
		labels[start] = label
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++
			for _, next := range adjacency[cur] {
				if labels[next] == -1 {
					labels[next] = label
					stack = append(stack, next)
				}
			}
		}
		sizes = append(sizes, size)
		label++
	}

	sort.Ints(sizes)
	largest := sizes
	if len(largest) > 10 {
		largest = largest[len(largest)-10:]
	}

	return Stats{
		Rows:                  n,
		NNZ:                   g.NNZ(),
		ConnectedComponents:   label,
		LargestComponentSizes: largest,
	}
}
