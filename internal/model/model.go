// Package model defines the data types shared across the indexing,
// call-graph, change-location, and conflict-detection packages.
package model

import "sort"

// NamedUnit identifies a function, class, macro body, or other named
// declaration by the file that defines it and its lexical name.
type NamedUnit struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// UnitID is a dense, zero-based identifier assigned to a NamedUnit.
type UnitID uint32

// FileRecord is the persisted per-file analysis result: the file's
// include set and the names it references from each of its units.
type FileRecord struct {
	// Includes holds header paths named by #include "..." directives,
	// plus the file's own path.
	Includes []string `json:"includes"`
	// CallsNaive maps a unit name to the set of names it references,
	// including its own name as a self-reference sentinel.
	CallsNaive map[string][]string `json:"calls_naive"`
}

// IncludesSet returns r.Includes as a set.
func (r FileRecord) IncludesSet() map[string]struct{} {
	s := make(map[string]struct{}, len(r.Includes))
	for _, inc := range r.Includes {
		s[inc] = struct{}{}
	}
	return s
}

// UnitNames returns the sorted list of unit names declared in the record.
func (r FileRecord) UnitNames() []string {
	names := make([]string, 0, len(r.CallsNaive))
	for name := range r.CallsNaive {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// References returns the set of names referenced by unit, or nil if the
// unit is not present.
func (r FileRecord) References(unit string) map[string]struct{} {
	refs, ok := r.CallsNaive[unit]
	if !ok {
		return nil
	}
	out := make(map[string]struct{}, len(refs))
	for _, n := range refs {
		out[n] = struct{}{}
	}
	return out
}

// IDTable is the bijection between NamedUnit and UnitID produced by the
// call-graph builder.
type IDTable struct {
	ToUnit map[UnitID]NamedUnit
	ToID   map[NamedUnit]UnitID
}

// NewIDTable returns an empty table.
func NewIDTable() IDTable {
	return IDTable{ToUnit: make(map[UnitID]NamedUnit), ToID: make(map[NamedUnit]UnitID)}
}

// LineRange is a half-open line interval [Start, End) of added/modified
// source, inclusive on the low end, as produced by a unified diff hunk.
type LineRange struct {
	Start int
	End   int
}

// Contains reports whether line lies within r.
func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line < r.End
}

// ChangeSet maps a repo-relative path to the set of unit names changed
// in that file on a given branch.
type ChangeSet map[string]map[string]struct{}

// Add records unit as changed in path.
func (cs ChangeSet) Add(path, unit string) {
	units, ok := cs[path]
	if !ok {
		units = make(map[string]struct{})
		cs[path] = units
	}
	units[unit] = struct{}{}
}

// Units flattens the change set into the set of NamedUnits it names.
func (cs ChangeSet) Units() []NamedUnit {
	var out []NamedUnit
	for path, units := range cs {
		for name := range units {
			out = append(out, NamedUnit{Path: path, Name: name})
		}
	}
	return out
}

// BranchRevision packs the two revisions of a single <base>-<head> argument:
// Base is the mainline commit the branch is diffed against, Head is the
// branch tip.
type BranchRevision struct {
	Base string
	Head string
}

// ConflictRecord describes a pair of changed units with a common caller
// reachable within the configured path-length bound.
type ConflictRecord struct {
	Units     [2]NamedUnit         `json:"conflicting units"`
	Branches  [2][]string          `json:"branch revisions"`
	CallPaths [][2][]NamedUnit     `json:"call paths"`
}

// RankEntry is one row of the conflict ranking: a unit and the number
// of conflicts it appears in.
type RankEntry struct {
	Unit  NamedUnit
	Count int
}

// Result is the final, serializable output of a detector run.
type Result struct {
	NumberOfConflicts   int                       `json:"number_of_conflicts"`
	ConflictingBranches map[string]map[string]int `json:"conflicting_branches"`
	Ranking             []RankEntry               `json:"ranking"`
	Conflicts           []ConflictRecord          `json:"conflicts"`
}

// MinimalConflictRecord is a conflict reduced to its shortest call-path
// pair, per spec.md §6's "..._minimal.json" output shape.
type MinimalConflictRecord struct {
	Units        [2]NamedUnit   `json:"conflicting units"`
	Branches     [2][]string    `json:"branch revisions"`
	ShortestPath [2][]NamedUnit `json:"shortest path"`
}

// Minimal projects r's conflicts down to their first (shortest, since
// Conflicts is already sorted by the detector) call-path pair. Both the
// full and minimal outputs are derived from the same sorted Conflicts
// slice, so the two are never independently ordered.
func (r Result) Minimal() []MinimalConflictRecord {
	out := make([]MinimalConflictRecord, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		m := MinimalConflictRecord{Units: c.Units, Branches: c.Branches}
		if len(c.CallPaths) > 0 {
			m.ShortestPath = c.CallPaths[0]
		}
		out = append(out, m)
	}
	return out
}
