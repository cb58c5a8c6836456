// Package store persists the indexer's per-file records, path list,
// revision marker, call graphs, and unit-ID table to disk.
package store

import (
	"encoding/json"
	"os"
	"path"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/arl/conflictscout/internal/model"
)

const (
	jsonDir          = "preprocessed_files/json"
	pathListFile     = "preprocessed_files_paths.json"
	lastScannedFile  = "preprocessed_files/last_scanned_revision.txt"
	idTableFile      = "id_to_named_unit.json"
)

// Store reads and writes the persisted state layout described in
// spec.md §6, rooted at Dir.
type Store struct {
	Fs  afero.Fs
	Dir string
}

// New returns a Store rooted at dir, using the OS filesystem.
func New(dir string) *Store {
	return &Store{Fs: afero.NewOsFs(), Dir: dir}
}

func (s *Store) abs(rel string) string {
	return path.Join(s.Dir, rel)
}

// SaveRecord persists rec under its repository-relative path.
func (s *Store) SaveRecord(relPath string, rec model.FileRecord) error {
	filePath := s.abs(path.Join(jsonDir, relPath+".json"))
	if err := s.Fs.MkdirAll(path.Dir(filePath), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", relPath)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encoding record for %s", relPath)
	}
	if err := afero.WriteFile(s.Fs, filePath, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing record for %s", relPath)
	}
	return nil
}

// LoadRecord returns the persisted record for relPath. A missing or
// corrupt file is reported as ok=false, never an error.
func (s *Store) LoadRecord(relPath string) (rec model.FileRecord, ok bool) {
	filePath := s.abs(path.Join(jsonDir, relPath+".json"))
	data, err := afero.ReadFile(s.Fs, filePath)
	if err != nil {
		return model.FileRecord{}, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.FileRecord{}, false
	}
	return rec, true
}

// DeleteRecord removes the persisted record for relPath, if any.
func (s *Store) DeleteRecord(relPath string) error {
	filePath := s.abs(path.Join(jsonDir, relPath+".json"))
	err := s.Fs.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "deleting record for %s", relPath)
	}
	return nil
}

// SavePaths persists the canonical list of indexed paths.
func (s *Store) SavePaths(paths []string) error {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	data, err := json.Marshal(sorted)
	if err != nil {
		return errors.Wrap(err, "encoding path list")
	}
	return afero.WriteFile(s.Fs, s.abs(pathListFile), data, 0o644)
}

// LoadPaths returns the persisted path list, or an empty slice if absent.
func (s *Store) LoadPaths() []string {
	data, err := afero.ReadFile(s.Fs, s.abs(pathListFile))
	if err != nil {
		return nil
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil
	}
	return paths
}

// SaveRevision records the opaque VCS revision token of the last scan.
func (s *Store) SaveRevision(rev string) error {
	if err := s.Fs.MkdirAll(path.Dir(s.abs(lastScannedFile)), 0o755); err != nil {
		return errors.Wrap(err, "creating revision directory")
	}
	return afero.WriteFile(s.Fs, s.abs(lastScannedFile), []byte(rev), 0o644)
}

// LoadRevision returns the last-scanned revision, or ok=false if absent.
func (s *Store) LoadRevision() (rev string, ok bool) {
	data, err := afero.ReadFile(s.Fs, s.abs(lastScannedFile))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// graphTriples is the JSON-encoded sparse representation of a CSR
// matrix: one [row, col] pair per set bit, row-major. Kept flat (no
// object wrapper) to mirror the spirit of the (row, col, 1) triples
// named in spec.md §6, dropping the always-1 value.
type graphTriples [][2]int

// GraphSaver is satisfied by internal/callgraph.CSR; kept minimal here
// to avoid an import cycle between store and callgraph.
type GraphSaver interface {
	Rows() int
	RowIndices(row int) []int
}

// SaveGraph persists g's adjacency as row/col triples under name
// (e.g. "call_graph" or "called_by_graph").
func (s *Store) SaveGraph(name string, g GraphSaver) error {
	var triples graphTriples
	for row := 0; row < g.Rows(); row++ {
		for _, col := range g.RowIndices(row) {
			triples = append(triples, [2]int{row, col})
		}
	}
	data, err := json.Marshal(triples)
	if err != nil {
		return errors.Wrapf(err, "encoding graph %s", name)
	}
	return afero.WriteFile(s.Fs, s.abs(name+".json"), data, 0o644)
}

// LoadGraphTriples returns the persisted (row, col) pairs for name, or
// nil if absent.
func (s *Store) LoadGraphTriples(name string) [][2]int {
	data, err := afero.ReadFile(s.Fs, s.abs(name+".json"))
	if err != nil {
		return nil
	}
	var triples graphTriples
	if err := json.Unmarshal(data, &triples); err != nil {
		return nil
	}
	return triples
}

// idTableEntry is the on-disk shape of one id_to_named_unit.json value.
type idTableEntry [2]string

// SaveIDTable persists the inverse ID table, stringified integer key to
// [path, name] pair, as spec.md §6 requires.
func (s *Store) SaveIDTable(t model.IDTable) error {
	out := make(map[string]idTableEntry, len(t.ToUnit))
	for id, unit := range t.ToUnit {
		out[strconv.Itoa(int(id))] = idTableEntry{unit.Path, unit.Name}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "encoding id table")
	}
	return afero.WriteFile(s.Fs, s.abs(idTableFile), data, 0o644)
}

// LoadIDTable reconstructs both directions of the ID table, coercing
// string keys back to integers. A missing file yields an empty table.
func (s *Store) LoadIDTable() (model.IDTable, error) {
	data, err := afero.ReadFile(s.Fs, s.abs(idTableFile))
	if os.IsNotExist(err) {
		return model.NewIDTable(), nil
	}
	if err != nil {
		return model.IDTable{}, errors.Wrap(err, "reading id table")
	}
	var raw map[string]idTableEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.IDTable{}, errors.Wrap(err, "decoding id table")
	}
	t := model.NewIDTable()
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return model.IDTable{}, errors.Wrapf(err, "non-integer id key %q", k)
		}
		unit := model.NamedUnit{Path: v[0], Name: v[1]}
		t.ToUnit[model.UnitID(id)] = unit
		t.ToID[unit] = model.UnitID(id)
	}
	return t, nil
}
