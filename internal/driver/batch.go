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

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/observ"
	"github.com/paiml/depyler/internal/source"
	"github.com/paiml/depyler/internal/trace"
)

// FileResult is the outcome of one file in a batch run. Result is always
// non-nil; load failures surface as an IO diagnostic in its bag.
type FileResult struct {
	Path   string
	Result *TranspileResult
	Err    error
}

// Progress is one batch completion event.
type Progress struct {
	Path     string
	Index    int
	Total    int
	CacheHit bool
	Failed   bool
}

// BatchOptions tunes the directory mode.
type BatchOptions struct {
	// Jobs caps worker goroutines; <= 0 uses GOMAXPROCS.
	Jobs int

	// Progress, when set, receives one event per completed file.
	// TranspileDir closes the channel when it returns.
	Progress chan<- Progress
}

// ListPyFiles returns every *.py under dir in sorted order. Hidden
// directories and __pycache__ are skipped, so virtualenvs inside the tree
// do not get translated.
func ListPyFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || name == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".py") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// TranspileDir translates every Python file under dir in parallel. The
// result order matches the sorted file list regardless of completion
// order; the error return reports cancellation or walk failures, while
// per-file problems stay in each FileResult.
func TranspileDir(ctx context.Context, dir string, opts Options, batch BatchOptions) ([]FileResult, error) {
	if batch.Progress != nil {
		defer close(batch.Progress)
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "transpile_dir", 0)
	span.WithExtra("dir", dir)

	files, err := ListPyFiles(dir)
	if err != nil {
		span.End("walk failed")
		return nil, err
	}
	defer func() { span.End(fmt.Sprintf("files=%d", len(files))) }()
	if len(files) == 0 {
		return nil, nil
	}

	// Load everything up front: workers only read the set afterwards.
	fileSet := source.NewFileSetWithBase(dir)
	fileIDs := make(map[string]source.FileID, len(files))
	loadErrors := make(map[string]error, len(files))
	for _, path := range files {
		id, err := fileSet.Load(path)
		if err != nil {
			loadErrors[path] = err
			continue
		}
		fileIDs[path] = id
	}

	jobs := batch.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Index slots are unique per goroutine, no mutex needed.
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	// File spans under workers hang off the batch span.
	gctx = trace.WithSpanContext(gctx, trace.SpanContext{SpanID: span.ID()})
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if loadErr, ok := loadErrors[path]; ok {
				bag := diag.NewBag(opts.maxDiag())
				bag.Add(diag.Diagnostic{
					Severity: diag.SevError,
					Code:     diag.IOLoadFileError,
					Message:  "failed to load file: " + loadErr.Error(),
					Primary:  source.Span{},
				})
				results[i] = FileResult{
					Path:   path,
					Result: &TranspileResult{Bag: bag, FileSet: fileSet},
					Err:    loadErr,
				}
				return sendProgress(gctx, batch.Progress, Progress{
					Path: path, Index: i, Total: len(files), Failed: true,
				})
			}

			// Timers collect per file; sharing one across workers
			// would race.
			fopts := opts
			if opts.Timer != nil {
				fopts.Timer = observ.NewTimer()
			}

			res, err := run(gctx, fileSet, fileIDs[path], fopts)
			results[i] = FileResult{Path: path, Result: res, Err: err}

			return sendProgress(gctx, batch.Progress, Progress{
				Path:     path,
				Index:    i,
				Total:    len(files),
				CacheHit: res.CacheHit,
				Failed:   err != nil || res.Bag.HasErrors(),
			})
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func sendProgress(ctx context.Context, ch chan<- Progress, ev Progress) error {
	if ch == nil {
		return nil
	}
	select {
	case ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OutputPath maps a source path to its Rust output: next to the source,
// or under outDir keeping only the base name.
func OutputPath(src, outDir string) string {
	if outDir == "" {
		return strings.TrimSuffix(src, ".py") + ".rs"
	}
	base := strings.TrimSuffix(filepath.Base(src), ".py") + ".rs"
	return filepath.Join(outDir, base)
}

// WriteOutput writes text to path, creating parent directories. An
// existing file is refused unless force is set.
func WriteOutput(path, text string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, os.ErrExist)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
