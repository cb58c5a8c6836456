// Package changes locates the named units touched by a branch's diff
// against the mainline, per spec.md §4.F.
package changes

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/arl/conflictscout/internal/model"
	"github.com/arl/conflictscout/internal/srcxml"
	"github.com/arl/conflictscout/internal/vcsgit"
)

// MaxFileChanges bounds the number of hunks per file before the change
// ranges are collapsed to a single enclosing range, spec.md §4.F
// default 500.
const MaxFileChanges = 500

// Locator extracts changed units for a branch using the VCS adapter
// and the srcml parser.
type Locator struct {
	Git     *vcsgit.Runner
	Invoker *srcxml.Invoker
	Log     *logrus.Entry
}

// New returns a Locator rooted at the given git runner and srcml invoker.
func New(git *vcsgit.Runner, inv *srcxml.Invoker) *Locator {
	return &Locator{Git: git, Invoker: inv, Log: logrus.WithField("component", "changes")}
}

// FindChanges checks out head, diffs it against mainline, and extracts
// the named units whose lexical extent intersects an added-line range,
// per spec.md §4.F. Checkout is performed immediately before the diff,
// resolving the ordering open question of spec.md §9: a branch's tree
// must be on disk before its diff_hunks and srcml calls run against it.
func (l *Locator) FindChanges(ctx context.Context, srcPath, mainline, head string) (model.ChangeSet, error) {
	if err := l.Git.Checkout(ctx, head); err != nil {
		return nil, errors.Wrapf(err, "checking out %s", head)
	}

	hunks, err := l.Git.DiffHunks(ctx, mainline, head)
	if err != nil {
		return nil, errors.Wrapf(err, "diffing %s...%s", mainline, head)
	}

	changed := model.ChangeSet{}
	if len(hunks) == 0 {
		return changed, nil
	}

	for relPath, ranges := range hunks {
		absPath := filepath.Join(srcPath, filepath.FromSlash(relPath))

		if len(ranges) > MaxFileChanges {
			l.Log.WithField("path", relPath).Warn("too many changes, using pessimistic estimate instead")
			ranges = []model.LineRange{{Start: ranges[0].Start, End: ranges[len(ranges)-1].End}}
		}

		raw, err := l.Invoker.Run(ctx, absPath)
		if err == srcxml.ErrTimeout {
			continue
		}
		if err != nil {
			l.Log.WithError(err).WithField("path", relPath).Warn("dropping file after parser failure")
			continue
		}

		root, _ := srcxml.Decode(bytes.NewReader(raw))
		if root == nil {
			continue
		}

		for _, unit := range srcxml.MatchingUnits(root, ranges) {
			result := srcxml.UnitName(unit)
			if result.Name != "" {
				changed.Add(relPath, result.Name)
			}
		}
	}
	return changed, nil
}
