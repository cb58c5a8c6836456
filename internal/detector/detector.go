package detector

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/arl/conflictscout/internal/callgraph"
	"github.com/arl/conflictscout/internal/changes"
	"github.com/arl/conflictscout/internal/indexer"
	"github.com/arl/conflictscout/internal/model"
	"github.com/arl/conflictscout/internal/srcxml"
	"github.com/arl/conflictscout/internal/store"
	"github.com/arl/conflictscout/internal/vcsgit"
)

// Config holds the tunables and inputs of a detector run, realizing
// spec.md §6's command invocation and tunable-constants table.
type Config struct {
	SrcPath  string
	DataDir  string
	Mainline string
	Branches []model.BranchRevision

	MaxTransitiveIncludeLevel int
	MaxPathLength             int

	SrcmlOptions srcxml.Options
	EnableStats  bool
}

// DefaultConfig returns the tunables of spec.md §6.
func DefaultConfig() Config {
	return Config{
		MaxTransitiveIncludeLevel: 1,
		MaxPathLength:             1,
		SrcmlOptions:              srcxml.DefaultOptions(),
	}
}

// Detector orchestrates a full conflict-detection run.
type Detector struct {
	Log *logrus.Entry
}

// New returns a Detector.
func New() *Detector {
	return &Detector{Log: logrus.WithField("component", "detector")}
}

// RunResult bundles the final result with optional diagnostic stats.
type RunResult struct {
	Result *model.Result
	Stats  *callgraph.Stats
}

// conflictBuild is the detector's working representation of a
// surviving conflict, in terms of unit IDs, before translation to the
// NamedUnit-keyed model.ConflictRecord.
type conflictBuild struct {
	a, b  int
	paths [][2][]int
}

// Run executes the full pipeline of spec.md §2's control flow: stage
// an octopus merge so the indexer sees the union of branch changes,
// refresh records, persist, revert, build the graphs, locate each
// branch's changed units against its own checked-out tree, and query
// the graphs for conflicts.
func (d *Detector) Run(ctx context.Context, cfg Config) (*RunResult, error) {
	git := vcsgit.NewRunner(cfg.SrcPath)
	inv := srcxml.NewInvoker(cfg.SrcmlOptions)
	st := store.New(cfg.DataDir)
	idx := indexer.New(st, inv)
	locator := changes.New(git, inv)

	heads := make([]string, len(cfg.Branches))
	for i, b := range cfg.Branches {
		heads[i] = b.Head
	}

	if err := git.PerformMerge(ctx, cfg.Mainline, heads); err != nil {
		return nil, errors.Wrap(err, "octopus merge")
	}

	// Files touched by the merge: dirty relative to mainline while the
	// merged tree is still checked out.
	dirty, err := git.ChangedFilesSince(ctx, cfg.Mainline)
	if err != nil {
		_ = git.AbortMerge(ctx)
		return nil, errors.Wrap(err, "computing dirty files")
	}

	// Files changed since the last recorded scan, for incremental
	// re-indexing independent of the merge's dirty set (the
	// original_source get_changed_files channel).
	toRescan := map[string]struct{}{}
	for p := range dirty {
		toRescan[p] = struct{}{}
	}
	if lastScanned, ok := st.LoadRevision(); ok {
		if sinceLast, err := git.ChangedFilesSince(ctx, lastScanned); err == nil {
			for p := range sinceLast {
				toRescan[p] = struct{}{}
			}
		}
	}

	if _, err := idx.ScanTree(ctx, cfg.SrcPath, toRescan); err != nil {
		_ = git.AbortMerge(ctx)
		return nil, errors.Wrap(err, "indexing merged tree")
	}

	if err := git.AbortMerge(ctx); err != nil {
		return nil, errors.Wrap(err, "reverting octopus merge")
	}
	if err := st.SaveRevision(cfg.Mainline); err != nil {
		return nil, errors.Wrap(err, "saving last-scanned revision")
	}

	paths := st.LoadPaths()
	records := make(map[string]model.FileRecord, len(paths))
	for _, p := range paths {
		if rec, ok := st.LoadRecord(p); ok {
			records[p] = rec
		}
	}

	builder := callgraph.NewBuilder()
	ids := builder.AssignIDs(paths, records)
	g, gT := builder.BuildGraphs(paths, records, ids, cfg.MaxTransitiveIncludeLevel)

	if err := st.SaveIDTable(ids); err != nil {
		return nil, errors.Wrap(err, "saving id table")
	}
	if err := st.SaveGraph("call_graph", g); err != nil {
		return nil, errors.Wrap(err, "saving call graph")
	}
	if err := st.SaveGraph("called_by_graph", gT); err != nil {
		return nil, errors.Wrap(err, "saving called-by graph")
	}

	// Now that the graphs reflect the merged union, the dirty records
	// are invalidated so the next separate run re-extracts them from
	// the mainline content rather than reusing this run's merged
	// snapshot (spec.md §4.D).
	if err := idx.InvalidateDirty(dirty); err != nil {
		return nil, errors.Wrap(err, "invalidating dirty records")
	}

	var stats *callgraph.Stats
	if cfg.EnableStats {
		s := callgraph.Analyze(gT)
		stats = &s
	}

	// Locate each branch's changed units against its own checked-out
	// head, and resolve them to unit IDs via the table just built.
	branchChangedIDs := map[string]map[int]struct{}{}
	unitBranches := map[int]map[string]struct{}{}
	for _, branch := range cfg.Branches {
		changeSet, err := locator.FindChanges(ctx, cfg.SrcPath, branch.Base, branch.Head)
		if err != nil {
			return nil, errors.Wrapf(err, "locating changes for %s", branch.Head)
		}
		changedIDs := map[int]struct{}{}
		for _, unit := range changeSet.Units() {
			id, ok := ids.ToID[unit]
			if !ok {
				// Unresolved: macro, deleted unit, or template instantiation
				// the indexer ignores by design (spec.md §7).
				continue
			}
			changedIDs[int(id)] = struct{}{}
			if unitBranches[int(id)] == nil {
				unitBranches[int(id)] = map[string]struct{}{}
			}
			unitBranches[int(id)][branch.Head] = struct{}{}
		}
		branchChangedIDs[branch.Head] = changedIDs
	}

	if err := git.Checkout(ctx, cfg.Mainline); err != nil {
		return nil, errors.Wrap(err, "restoring mainline checkout")
	}

	changedUnits := map[int]struct{}{}
	for _, set := range branchChangedIDs {
		for id := range set {
			changedUnits[id] = struct{}{}
		}
	}

	dist := map[int]map[int]int{}
	pred := map[int]map[int]int{}
	for unitID := range changedUnits {
		d, p := reverseReachable(gT, unitID, cfg.MaxPathLength)
		dist[unitID] = d
		pred[unitID] = p
	}

	builds := enumerateConflicts(branchChangedIDs, dist, pred, cfg.MaxPathLength)
	builds = sortConflicts(builds)

	conflicts := make([]model.ConflictRecord, 0, len(builds))
	for _, b := range builds {
		conflicts = append(conflicts, toConflictRecord(b, ids, unitBranches))
	}

	result := &model.Result{
		NumberOfConflicts:   len(conflicts),
		Conflicts:           conflicts,
		Ranking:             buildRanking(conflicts),
		ConflictingBranches: buildConflictingBranches(conflicts),
	}

	return &RunResult{Result: result, Stats: stats}, nil
}

func toConflictRecord(b conflictBuild, ids model.IDTable, unitBranches map[int]map[string]struct{}) model.ConflictRecord {
	rec := model.ConflictRecord{
		Units: [2]model.NamedUnit{ids.ToUnit[model.UnitID(b.a)], ids.ToUnit[model.UnitID(b.b)]},
	}
	rec.Branches[0] = sortedKeys(unitBranches[b.a])
	rec.Branches[1] = sortedKeys(unitBranches[b.b])
	for _, pair := range b.paths {
		var readable [2][]model.NamedUnit
		for side, path := range pair {
			for _, id := range path {
				readable[side] = append(readable[side], ids.ToUnit[model.UnitID(id)])
			}
		}
		rec.CallPaths = append(rec.CallPaths, readable)
	}
	return rec
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// enumerateConflicts performs the cross-branch pairwise enumeration of
// spec.md §4.G: every unordered pair of branches, every cartesian pair
// of their changed unit IDs, deduplicated by canonical (min, max) key
// so the same unordered pair is never processed twice even when it
// arises from more than one branch combination. a == b (the same unit
// changed on both branches) is allowed through deliberately: earliestCallers
// reduces it to the trivial (unit, unit) pair on its own, since every
// non-origin common caller reconstructs identical paths on both sides
// and gets rejected by sharedBeyondOrigin.
func enumerateConflicts(branchChangedIDs map[string]map[int]struct{}, dist map[int]map[int]int, pred map[int]map[int]int, maxPathLength int) []conflictBuild {
	var branchNames []string
	for name := range branchChangedIDs {
		branchNames = append(branchNames, name)
	}
	sort.Strings(branchNames)

	scanned := map[[2]int]struct{}{}
	var out []conflictBuild

	for i := 0; i < len(branchNames); i++ {
		for j := i + 1; j < len(branchNames); j++ {
			setA := branchChangedIDs[branchNames[i]]
			setB := branchChangedIDs[branchNames[j]]
			for unitA := range setA {
				for unitB := range setB {
					a, b := unitA, unitB
					if a > b {
						a, b = b, a
					}
					key := [2]int{a, b}
					if _, seen := scanned[key]; seen {
						continue
					}
					scanned[key] = struct{}{}

					overlap := intersect(dist[a], dist[b])
					if len(overlap) == 0 {
						continue
					}
					pairs := earliestCallers(overlap, pred[a], pred[b], a, b, maxPathLength)
					if len(pairs) == 0 {
						continue
					}
					out = append(out, conflictBuild{a: a, b: b, paths: pairs})
				}
			}
		}
	}
	return out
}

func intersect(a, b map[int]int) map[int]struct{} {
	out := map[int]struct{}{}
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
