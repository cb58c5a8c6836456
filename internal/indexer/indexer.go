// Package indexer walks a source tree and produces per-file records
// via internal/srcxml, persisting them through internal/store, per
// spec.md §4.D.
package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/arl/conflictscout/internal/srcxml"
	"github.com/arl/conflictscout/internal/store"
	"github.com/arl/conflictscout/internal/vcsgit"
)

// Indexer walks root, re-extracting files that are dirty or unseen and
// reusing persisted records otherwise.
type Indexer struct {
	Fs      afero.Fs
	Store   *store.Store
	Invoker *srcxml.Invoker
	Log     *logrus.Entry
}

// New returns an Indexer backed by st, using the OS filesystem to walk
// root and srcxml invoker inv.
func New(st *store.Store, inv *srcxml.Invoker) *Indexer {
	return &Indexer{Fs: afero.NewOsFs(), Store: st, Invoker: inv, Log: logrus.WithField("component", "indexer")}
}

// ScanTree walks root for recognized-extension files. Files present in
// dirty, or for which no persisted record exists, are re-extracted;
// all others reuse their persisted record. Returns the sorted list of
// scanned repository-relative paths.
func (idx *Indexer) ScanTree(ctx context.Context, root string, dirty map[string]struct{}) ([]string, error) {
	var scanned []string

	err := afero.Walk(idx.Fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(p), ".")
		if _, ok := vcsgit.ValidExtensions[ext]; !ok {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		scanned = append(scanned, rel)

		_, isDirty := dirty[rel]
		_, hasRecord := idx.Store.LoadRecord(rel)
		if isDirty || !hasRecord {
			rec, ok, err := idx.Invoker.ExtractFile(ctx, p, rel)
			if err != nil {
				return err
			}
			if ok {
				if err := idx.Store.SaveRecord(rel, rec); err != nil {
					return err
				}
			} else {
				idx.Log.WithField("path", rel).Warn("skipping file: parser could not produce a record")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(scanned)
	if err := idx.Store.SavePaths(scanned); err != nil {
		return nil, err
	}
	return scanned, nil
}

// InvalidateDirty deletes the persisted records for every path in
// dirty, so the next scan re-extracts them from the mainline content
// instead of the speculative merge's content, per spec.md §4.D.
func (idx *Indexer) InvalidateDirty(dirty map[string]struct{}) error {
	for rel := range dirty {
		if err := idx.Store.DeleteRecord(rel); err != nil {
			return err
		}
	}
	return nil
}
