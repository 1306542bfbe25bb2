// Package driver orchestrates the check pipeline over a directory of
// typed-tree dumps: decode, lifetime analysis and feature gating per
// file, fanned out across workers, with an optional disk cache in front.
package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"rill/internal/diag"
	"rill/internal/gate"
	"rill/internal/lifetime"
	"rill/internal/observ"
	"rill/internal/project"
	"rill/internal/source"
	"rill/internal/treeio"
)

// DumpSuffix is the extension the front end uses for typed-tree dumps.
const DumpSuffix = ".ast.json"

// Options configures one CheckDir invocation.
type Options struct {
	// Jobs caps worker parallelism; <= 0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps the per-file bag.
	MaxDiagnostics int
	// Features is the manifest allow-list for the gate pass.
	Features []string
	// Cache short-circuits unchanged files when non-nil.
	Cache *DiskCache
	// OnEvent receives progress events; may be nil. Called from worker
	// goroutines.
	OnEvent func(Event)
	// Timings records per-file phase durations.
	Timings bool
}

// FileResult is the outcome for one dump. Each dump is self-contained,
// so every result carries its own FileSet for span resolution.
type FileResult struct {
	Path   string
	Files  *source.FileSet
	FileID source.FileID
	Units  int
	Bag    *diag.Bag
	Cached bool
	Timing *observ.Report
}

// Result aggregates a directory check.
type Result struct {
	Files []FileResult
}

// HasErrors reports whether any file produced an error diagnostic.
func (r *Result) HasErrors() bool {
	for i := range r.Files {
		if r.Files[i].Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Diagnostics returns the total diagnostic count across files.
func (r *Result) Diagnostics() int {
	n := 0
	for i := range r.Files {
		n += r.Files[i].Bag.Len()
	}
	return n
}

// ListDumps returns the sorted *.ast.json files under dir.
func ListDumps(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, DumpSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Sorted for a deterministic result order.
	sort.Strings(files)
	return files, nil
}

// CheckDir analyzes every dump under dir. Results come back in sorted
// path order regardless of worker scheduling; per-file failures land in
// the file's bag, and only setup errors fail the whole call.
func CheckDir(ctx context.Context, dir string, opts Options) (*Result, error) {
	files, err := ListDumps(dir)
	if err != nil {
		return nil, err
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = project.DefaultMaxDiagnostics
	}
	res := &Result{Files: make([]FileResult, len(files))}
	if len(files) == 0 {
		return res, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	featureHash := project.HashStrings(opts.Features)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if opts.OnEvent != nil {
				opts.OnEvent(Event{Kind: EventFileStart, Path: path, Index: i, Total: len(files)})
			}
			// Each index is unique, so the results slice needs no lock.
			res.Files[i] = checkFile(path, featureHash, opts)
			if opts.OnEvent != nil {
				fr := &res.Files[i]
				opts.OnEvent(Event{
					Kind: EventFileDone, Path: path, Index: i, Total: len(files),
					Cached:   fr.Cached,
					Errors:   countSev(fr.Bag, diag.SevError),
					Warnings: countSev(fr.Bag, diag.SevWarning),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

func countSev(bag *diag.Bag, sev diag.Severity) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

func checkFile(path string, featureHash project.Digest, opts Options) FileResult {
	bag := diag.NewBag(opts.MaxDiagnostics)
	files := source.NewFileSet()
	out := FileResult{Path: path, Files: files, Bag: bag}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from ListDumps
	if err != nil {
		diag.ReportError(diag.BagReporter{Bag: bag}, diag.IOLoadFileError, source.Span{},
			fmt.Sprintf("cannot read %s: %v", path, err)).Emit()
		return out
	}

	key := project.Combine(project.HashBytes(data), featureHash)
	if opts.Cache != nil {
		var payload DiskPayload
		if ok, err := opts.Cache.Get(key, &payload); err == nil && ok {
			out.FileID = files.AddVirtual(payload.Path, []byte(payload.Source))
			out.Units = payload.Units
			out.Cached = true
			for _, d := range payload.Diags {
				bag.Add(d)
			}
			return out
		}
	}

	timer := observ.NewTimer()
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: bag})

	phase := timer.Begin("decode")
	mod, err := treeio.Decode(data, files, reporter)
	timer.End(phase, "")
	if err == nil {
		out.FileID = mod.File
		out.Units = len(mod.Units)

		phase = timer.Begin("lifetime")
		for _, unitID := range mod.Units {
			res, aerr := lifetime.AnalyzeUnit(mod.Builder, unitID)
			if aerr != nil {
				// A tree the decoder accepted but the pass cannot walk is
				// a producer defect: fail the file, trust nothing partial.
				diag.ReportError(reporter, diag.TreeMalformed, source.Span{File: mod.File},
					aerr.Error()).Emit()
				break
			}
			lifetime.Emit(res.Conflicts, reporter)
		}
		timer.End(phase, fmt.Sprintf("%d units", len(mod.Units)))

		phase = timer.Begin("gate")
		gate.Check(mod.Builder, mod.Units, opts.Features, reporter)
		timer.End(phase, "")
	}

	if opts.Timings {
		report := timer.Report()
		out.Timing = &report
	}

	if opts.Cache != nil && err == nil {
		srcFile := files.Get(out.FileID)
		payload := &DiskPayload{
			Schema: diskCacheSchemaVersion,
			Path:   srcFile.Path,
			Source: string(srcFile.Content),
			Units:  out.Units,
			Diags:  bag.Items(),
		}
		// Cache write failures are not check failures.
		_ = opts.Cache.Put(key, payload)
	}
	return out
}
