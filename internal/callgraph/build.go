package callgraph

import (
	"sort"

	"github.com/arl/conflictscout/internal/model"
)

// Builder assembles the unit-ID table and the call/called-by graphs
// from a set of persisted file records, per spec.md §4.E.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder { return &Builder{} }

// AssignIDs iterates paths in load order and assigns a fresh dense ID
// to every unit name of each existing record, matching spec.md §4.E
// step 1's determinism requirement.
func (b *Builder) AssignIDs(paths []string, records map[string]model.FileRecord) model.IDTable {
	t := model.NewIDTable()
	var next model.UnitID
	for _, path := range paths {
		rec, ok := records[path]
		if !ok {
			continue
		}
		for _, name := range rec.UnitNames() {
			unit := model.NamedUnit{Path: path, Name: name}
			t.ToUnit[next] = unit
			t.ToID[unit] = next
			next++
		}
	}
	return t
}

// transitiveIncludeClosure returns the set of files reachable from f by
// following includes, admitting a neighbor only while the current
// depth is strictly less than maxLevel. Depth 0 is f itself.
func transitiveIncludeClosure(f string, records map[string]model.FileRecord, maxLevel int) map[string]struct{} {
	closure := map[string]struct{}{f: {}}
	type frontierEntry struct {
		path  string
		depth int
	}
	frontier := []frontierEntry{{f, 0}}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur.depth >= maxLevel {
			continue
		}
		rec, ok := records[cur.path]
		if !ok {
			continue
		}
		for _, inc := range rec.Includes {
			if _, seen := closure[inc]; seen {
				continue
			}
			closure[inc] = struct{}{}
			frontier = append(frontier, frontierEntry{inc, cur.depth + 1})
		}
	}
	return closure
}

// BuildGraphs populates G and G^T, per spec.md §4.E step 2. Self-edges
// are suppressed: spec.md §9 leaves this as an implementer's choice,
// and the self-reference sentinel in calls_naive would otherwise
// produce a self-loop for every unit whenever its own file is within
// its own include closure (always true at depth 0), which would make
// every unit trivially its own "caller" and defeat the earliest-caller
// discipline of §4.G step 3.
func (b *Builder) BuildGraphs(paths []string, records map[string]model.FileRecord, ids model.IDTable, maxIncludeLevel int) (g, gT *CSR) {
	n := len(ids.ToUnit)
	g = NewCSR(n)

	for _, includingFile := range paths {
		includingRec, ok := records[includingFile]
		if !ok {
			continue
		}
		closure := transitiveIncludeClosure(includingFile, records, maxIncludeLevel)
		includedFiles := make([]string, 0, len(closure))
		for f := range closure {
			includedFiles = append(includedFiles, f)
		}
		sort.Strings(includedFiles)

		for _, callingUnit := range includingRec.UnitNames() {
			fromID := ids.ToID[model.NamedUnit{Path: includingFile, Name: callingUnit}]
			refs := includingRec.References(callingUnit)
			for _, includedFile := range includedFiles {
				includedRec, ok := records[includedFile]
				if !ok {
					continue
				}
				for _, callableUnit := range includedRec.UnitNames() {
					if _, referenced := refs[callableUnit]; !referenced {
						continue
					}
					toID := ids.ToID[model.NamedUnit{Path: includedFile, Name: callableUnit}]
					if fromID == toID {
						continue
					}
					g.Set(int(fromID), int(toID))
				}
			}
		}
	}

	g.Freeze()
	gT = g.Transpose()
	return g, gT
}
