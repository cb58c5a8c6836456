// Package vcsgit wraps the git subcommands the detector needs as a
// thin, contractual layer over os/exec, per spec.md §4.B and §6.
package vcsgit

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/arl/conflictscout/internal/model"
)

// ValidExtensions are the recognized C/C++ source extensions, verbatim
// from spec.md §4.B.
var ValidExtensions = map[string]struct{}{
	"C": {}, "H": {}, "c": {}, "h": {}, "cpp": {}, "hpp": {},
	"cxx": {}, "hxx": {}, "c++": {}, "h++": {}, "cc": {}, "hh": {},
	"inl": {}, "inc": {},
}

func hasRecognizedExtension(p string) bool {
	ext := strings.TrimPrefix(filepath.Ext(p), ".")
	_, ok := ValidExtensions[ext]
	return ok
}

// Runner issues git subcommands against a fixed working tree, as
// "git -C <path> ...".
type Runner struct {
	Path string
	Log  *logrus.Entry
}

// NewRunner returns a Runner rooted at path.
func NewRunner(path string) *Runner {
	return &Runner{Path: path, Log: logrus.WithField("component", "vcsgit")}
}

func (r *Runner) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"-C", r.Path}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "git %s: %s", strings.Join(args, " "), stderr.String())
	}
	return stdout.Bytes(), nil
}

// Checkout switches the working tree to rev.
func (r *Runner) Checkout(ctx context.Context, rev string) error {
	r.Log.WithField("rev", rev).Info("checking out")
	_, err := r.run(ctx, "checkout", rev)
	return errors.Wrapf(err, "checkout %s", rev)
}

// PerformMerge checks out mainline, then merges all branch heads
// without commit and without fast-forward, per spec.md §4.B and §9's
// "octopus-merge semantics" note.
func (r *Runner) PerformMerge(ctx context.Context, mainline string, heads []string) error {
	if err := r.Checkout(ctx, mainline); err != nil {
		return err
	}
	r.Log.WithField("heads", heads).Info("performing temporary octopus merge")
	args := append([]string{"merge", "--no-commit", "--no-ff"}, heads...)
	if _, err := r.run(ctx, args...); err != nil {
		return errors.Wrap(err, "octopus merge failed; is a clean merge possible?")
	}
	return nil
}

// AbortMerge reverts the working tree to its pre-merge state.
func (r *Runner) AbortMerge(ctx context.Context) error {
	r.Log.Info("reverting temporary merge")
	_, err := r.run(ctx, "merge", "--abort")
	return errors.Wrap(err, "merge --abort")
}

func (r *Runner) filterRecognized(names []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if hasRecognizedExtension(n) {
			out[filepath.ToSlash(n)] = struct{}{}
		}
	}
	return out
}

// ChangedFilesSince returns the set of recognized-extension paths that
// differ between rev and the current working tree.
func (r *Runner) ChangedFilesSince(ctx context.Context, rev string) (map[string]struct{}, error) {
	out, err := r.run(ctx, "diff", "--name-only", rev)
	if err != nil {
		return nil, errors.Wrapf(err, "diff --name-only %s", rev)
	}
	return r.filterRecognized(strings.Split(string(out), "\n")), nil
}

// DiffNameOnly returns the set of recognized-extension paths that
// differ between a and b.
func (r *Runner) DiffNameOnly(ctx context.Context, a, b string) (map[string]struct{}, error) {
	out, err := r.run(ctx, "diff", "--name-only", a+".."+b)
	if err != nil {
		return nil, errors.Wrapf(err, "diff --name-only %s..%s", a, b)
	}
	return r.filterRecognized(strings.Split(string(out), "\n")), nil
}

var hunkHeaderRe = regexp.MustCompile(`@@[^@]*@@`)
var addedRangeRe = regexp.MustCompile(`\+(\d+)(?:,(\d+))?`)

// DiffHunks returns, for the three-dot diff a...b (branch-since-merge-base
// semantics), the added-line ranges per file, restricted to files with a
// recognized extension that also appear in the independent two-dot
// diff a..b (this cross-check guards against stray hunk lines from
// unrelated diff noise, per original_source/find_conflicts.py's
// cherry-pick handling).
func (r *Runner) DiffHunks(ctx context.Context, a, b string) (map[string][]model.LineRange, error) {
	// Use the two-dot name-only diff, independent of the three-dot hunk
	// diff below, so this cross-check actually guards against stray
	// hunks instead of re-deriving the same range it's checking.
	changedFiles, err := r.DiffNameOnly(ctx, a, b)
	if err != nil {
		return nil, err
	}

	raw, err := r.run(ctx, "diff", "-U0", a+"..."+b)
	if err != nil {
		return nil, errors.Wrapf(err, "diff -U0 %s...%s", a, b)
	}

	return parseDiffHunks(string(raw), changedFiles), nil
}

// parseDiffHunks scans a unified diff with zero context lines (-U0) and
// returns the added-line ranges per file, restricted to files in
// changedFiles (the independently computed name-only diff set, per
// original_source/find_conflicts.py's cherry-pick handling). Factored
// out of DiffHunks so the hunk-header parsing is testable without
// invoking git.
func parseDiffHunks(raw string, changedFiles map[string]struct{}) map[string][]model.LineRange {
	ranges := map[string][]model.LineRange{}
	var currentFile string
	var tracking bool
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ b/"):
			rel := filepath.ToSlash(strings.TrimPrefix(line, "+++ b/"))
			tracking = false
			if hasRecognizedExtension(rel) {
				if _, ok := changedFiles[rel]; ok {
					currentFile = rel
					tracking = true
					if _, exists := ranges[currentFile]; !exists {
						ranges[currentFile] = nil
					}
				}
			}
		case tracking && hunkHeaderRe.MatchString(line):
			header := hunkHeaderRe.FindString(line)
			m := addedRangeRe.FindStringSubmatch(header)
			if m == nil {
				continue
			}
			start, _ := strconv.Atoi(m[1])
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			if count == 0 {
				// a pure deletion hunk on the "+" side; normalize to a
				// single line per spec.md §4.B.
				count = 1
			}
			ranges[currentFile] = append(ranges[currentFile], model.LineRange{Start: start, End: start + count})
		}
	}
	return ranges
}
