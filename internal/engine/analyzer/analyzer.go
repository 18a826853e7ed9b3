package analyzer

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"reforge/internal/engine/parser"
	"reforge/internal/shared/observability"
	"reforge/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Options tune a tree analysis run.
type Options struct {
	// Workers is the number of concurrent parse workers. Defaults to
	// GOMAXPROCS when zero or negative.
	Workers int
	// MaxFilesPerSecond throttles file ingestion. Zero disables throttling.
	MaxFilesPerSecond float64
	// MaxParseErrorRatio is the fraction of files with parse errors above
	// which the resulting context is flagged. Defaults to 0.25 when zero.
	MaxParseErrorRatio float64
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o Options) maxParseErrorRatio() float64 {
	if o.MaxParseErrorRatio <= 0 {
		return 0.25
	}
	return o.MaxParseErrorRatio
}

// Analyzer turns source files into per-file analyses and tracked constructs.
// It is stateless between runs; every AnalyzeTree call produces a fresh
// context.
type Analyzer struct {
	adapter *parser.Adapter
	opts    Options
	limiter *util.Limiter
	logger  *slog.Logger
}

func New(adapter *parser.Adapter, opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{adapter: adapter, opts: opts, logger: logger}
	if opts.MaxFilesPerSecond > 0 {
		a.limiter = util.NewLimiter(opts.MaxFilesPerSecond, int(opts.MaxFilesPerSecond)+1)
	}
	return a
}

// AnalyzeFile parses one file and extracts its analysis and constructs.
// Syntax errors do not abort: the partial tree still yields whatever symbols
// parsed cleanly, and the errors land on the analysis.
func (a *Analyzer) AnalyzeFile(path string, content []byte) (*FileAnalysis, []Construct, error) {
	start := time.Now()
	res, err := a.adapter.ParseFile(path, content)
	if err != nil {
		return nil, nil, err
	}
	defer res.Close()
	observability.ParsingDuration.WithLabelValues(res.Language).Observe(time.Since(start).Seconds())

	analysis := &FileAnalysis{
		Path:       slashPath(path),
		Language:   res.Language,
		AnalyzedAt: time.Now().UTC(),
	}
	for _, se := range res.SyntaxErrors {
		analysis.ParseErrors = append(analysis.ParseErrors, se.String())
	}
	if len(analysis.ParseErrors) > 0 {
		observability.ParseErrors.Inc()
	}

	root := res.Tree.RootNode()
	extractFile(root, content, analysis)
	constructs := ExtractConstructs(root, content, analysis.Path, res.Language)

	observability.FilesAnalyzed.Inc()
	return analysis, constructs, nil
}

// AnalyzeTree analyzes every supported file in the tree concurrently and
// assembles the aggregate context. files maps project-relative paths to
// content. Per-file parse failures are recorded as warnings, never fatal.
func (a *Analyzer) AnalyzeTree(ctx context.Context, files map[string][]byte) (*SemanticContext, []Construct, error) {
	ctx, span := observability.Tracer.Start(ctx, "analyzer.AnalyzeTree",
		trace.WithAttributes(attribute.Int("files.total", len(files))))
	defer span.End()

	start := time.Now()
	paths := util.SortedStringKeys(files)

	type result struct {
		analysis   *FileAnalysis
		constructs []Construct
		path       string
		err        error
	}

	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < a.opts.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if a.limiter != nil {
					if err := a.limiter.Wait(ctx, 1); err != nil {
						results <- result{path: path, err: err}
						continue
					}
				}
				analysis, constructs, err := a.AnalyzeFile(path, files[path])
				results <- result{analysis: analysis, constructs: constructs, path: path, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	analyses := make(map[string]*FileAnalysis, len(files))
	var constructs []Construct
	var skipped []string
	for res := range results {
		if res.err != nil {
			if ctx.Err() != nil {
				// Drain remaining workers before surfacing cancellation.
				continue
			}
			a.logger.Warn("file analysis failed", "path", res.path, "error", res.err)
			skipped = append(skipped, res.path)
			continue
		}
		analyses[res.analysis.Path] = res.analysis
		constructs = append(constructs, res.constructs...)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	semCtx := BuildContext(analyses, a.opts.maxParseErrorRatio())
	sort.Strings(skipped)
	for _, path := range skipped {
		semCtx.Warnings = append(semCtx.Warnings, "skipped unanalyzable file: "+path)
	}

	sort.Slice(constructs, func(i, j int) bool {
		if constructs[i].FilePath != constructs[j].FilePath {
			return constructs[i].FilePath < constructs[j].FilePath
		}
		return constructs[i].StructuralPath < constructs[j].StructuralPath
	})

	edges := 0
	for _, deps := range semCtx.DependencyGraph {
		edges += len(deps)
	}
	observability.GraphEdges.Set(float64(edges))
	observability.AnalysisDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())

	a.logger.Info("tree analysis complete",
		"files", semCtx.TotalFiles,
		"exports", semCtx.TotalExports,
		"imports", semCtx.TotalImports,
		"constructs", len(constructs),
		"parse_errors", semCtx.ParseErrorCount,
		"duration", time.Since(start).Round(time.Millisecond))
	return semCtx, constructs, nil
}
