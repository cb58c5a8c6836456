package srcxml

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/arl/conflictscout/internal/model"
)

// Options configures an invocation of the external srcml parser.
type Options struct {
	// SrcmlPath is the srcml executable to invoke (defaults to "srcml"
	// on PATH when empty).
	SrcmlPath string
	// Position enables --position, required by 4.C and 4.F alike.
	Position bool
	// Timeout bounds a single srcml invocation; spec.md default 60s.
	Timeout time.Duration
	// Retries bounds the retry budget on transient (non-timeout)
	// failures; spec.md default 3.
	Retries int
}

// DefaultOptions returns the tunables named in spec.md §6.
func DefaultOptions() Options {
	return Options{SrcmlPath: "srcml", Position: true, Timeout: 60 * time.Second, Retries: 3}
}

// Invoker drives srcml subprocess calls with the retry/timeout policy
// of spec.md §4.C and §7.
type Invoker struct {
	Opts Options
	Log  *logrus.Entry
}

// NewInvoker returns an Invoker using opts.
func NewInvoker(opts Options) *Invoker {
	return &Invoker{Opts: opts, Log: logrus.WithField("component", "srcxml")}
}

// ErrTimeout is returned when srcml exceeds the configured timeout;
// callers should skip the file with a warning, per spec.md §7.
var ErrTimeout = errors.New("srcml timed out")

// Run invokes srcml on file and returns its raw XML output. On
// transient (non-timeout) failure it retries up to Opts.Retries times;
// on exhaustion it returns an error that should propagate fatally. A
// timeout returns ErrTimeout, never a fatal error.
func (inv *Invoker) Run(ctx context.Context, file string) ([]byte, error) {
	ext := strings.TrimPrefix(filepath.Ext(file), ".")
	args := []string{"-X", "--register-ext", ext + "=C++"}
	if inv.Opts.Position {
		args = append([]string{"--position"}, args...)
	}
	args = append(args, file)

	path := inv.Opts.SrcmlPath
	if path == "" {
		path = "srcml"
	}

	var lastErr error
	for attempt := 0; attempt <= inv.Opts.Retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, inv.Opts.Timeout)
		cmd := exec.CommandContext(callCtx, path, args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err := cmd.Run()
		cancel()

		if err == nil {
			return stdout.Bytes(), nil
		}
		if callCtx.Err() == context.DeadlineExceeded {
			inv.Log.WithField("file", file).Warn("timeout while parsing")
			return nil, ErrTimeout
		}
		lastErr = errors.Wrapf(err, "srcml %s: %s", file, stderr.String())
		inv.Log.WithError(lastErr).WithField("attempt", attempt+1).Warn("srcml crashed, retrying")
	}
	return nil, errors.Wrapf(lastErr, "multiple srcml crashes at %s", file)
}

// ExtractFile runs srcml on file and builds its FileRecord, per
// spec.md §4.C/§4.D. relPath is the repository-relative path recorded
// as the file's own include entry.
func (inv *Invoker) ExtractFile(ctx context.Context, file, relPath string) (model.FileRecord, bool, error) {
	raw, err := inv.Run(ctx, file)
	if err == ErrTimeout {
		return model.FileRecord{}, false, nil
	}
	if err != nil {
		return model.FileRecord{}, false, err
	}
	root, decodeErr := Decode(bytes.NewReader(raw))
	if root == nil {
		if decodeErr != nil {
			return model.FileRecord{}, false, nil
		}
		return model.FileRecord{}, false, nil
	}
	return BuildRecord(root, relPath), true, nil
}

// BuildRecord extracts the includes set and calls_naive map from a
// decoded srcML document root, per spec.md §4.C.
func BuildRecord(root *Node, relPath string) model.FileRecord {
	seenIncludes := map[string]struct{}{relPath: {}}
	for _, inc := range Includes(root) {
		seenIncludes[inc] = struct{}{}
	}
	includes := make([]string, 0, len(seenIncludes))
	for inc := range seenIncludes {
		includes = append(includes, inc)
	}
	sort.Strings(includes)

	rec := model.FileRecord{
		Includes:   includes,
		CallsNaive: map[string][]string{},
	}
	for _, unit := range NamedUnits(root) {
		nameResult := UnitName(unit)
		if nameResult.Name == "" {
			continue
		}
		refs := BodyReferences(unit, nameResult)
		existing := rec.CallsNaive[nameResult.Name]
		seen := make(map[string]struct{}, len(existing))
		for _, e := range existing {
			seen[e] = struct{}{}
		}
		for r := range refs {
			seen[r] = struct{}{}
		}
		merged := make([]string, 0, len(seen))
		for r := range seen {
			merged = append(merged, r)
		}
		sort.Strings(merged)
		rec.CallsNaive[nameResult.Name] = merged
	}
	return rec
}
