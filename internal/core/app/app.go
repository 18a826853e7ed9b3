package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"reforge/internal/core/config"
	"reforge/internal/core/errors"
	"reforge/internal/data/history"
	"reforge/internal/engine/analyzer"
	"reforge/internal/engine/classifier"
	"reforge/internal/engine/graph"
	"reforge/internal/engine/parser"
	"reforge/internal/engine/planner"
	"reforge/internal/engine/registry"
	"reforge/internal/ui/report"
)

var tracer = otel.Tracer("reforge/app")

type App struct {
	Config *config.Config

	adapter  *parser.Adapter
	analyzer *analyzer.Analyzer
	rules    *classifier.ZoneRules
	planner  *planner.Planner
	logger   *slog.Logger
}

// RunOptions carries per-invocation inputs that are not configuration.
type RunOptions struct {
	// ChunksFile points at a chunk manifest to order into an execution
	// plan. Empty means analysis only.
	ChunksFile string
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := classifier.LoadZoneRules(cfg.Classifier.RulesFile)
	if err != nil {
		return nil, err
	}

	adapter := parser.NewAdapter(parser.NewGrammarLoader())
	a := analyzer.New(adapter, analyzer.Options{
		Workers:            cfg.Analysis.Workers,
		MaxFilesPerSecond:  cfg.Analysis.MaxFilesPerSecond,
		MaxParseErrorRatio: cfg.Analysis.MaxParseErrorRatio,
	}, logger)

	return &App{
		Config:   cfg,
		adapter:  adapter,
		analyzer: a,
		rules:    rules,
		planner:  planner.New(logger),
		logger:   logger,
	}, nil
}

// Run executes one full pipeline pass: scan, analyze, classify, reconcile
// the registry, optionally order a chunk plan, then write artifacts and a
// history snapshot.
func (a *App) Run(ctx context.Context, opts RunOptions) (*report.RunSummary, error) {
	ctx, span := tracer.Start(ctx, "app.run")
	defer span.End()

	summary := report.RunSummary{
		ProjectKey: a.Config.Project.Key,
		Timestamp:  time.Now().UTC(),
	}

	files, err := ScanTree(a.Config.Project.Root, a.adapter,
		a.Config.Exclude.Dirs, a.Config.Exclude.Files, a.Config.Analysis.IncludeTests)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "source tree scan failed")
	}

	semCtx, constructs, err := a.analyzer.AnalyzeTree(ctx, files)
	if err != nil {
		return nil, err
	}

	summary.Files = semCtx.TotalFiles
	summary.Exports = semCtx.TotalExports
	summary.Imports = semCtx.TotalImports
	summary.ParseErrorFiles = semCtx.ParseErrorCount
	summary.ThresholdExceeded = semCtx.ThresholdExceeded
	summary.Warnings = append(summary.Warnings, semCtx.Warnings...)
	for _, deps := range semCtx.DependencyGraph {
		summary.GraphEdges += len(deps)
	}
	for _, cycle := range graph.DetectCycles(semCtx.DependencyGraph) {
		chain := strings.Join(append(cycle, cycle[0]), " -> ")
		summary.Warnings = append(summary.Warnings, "circular import: "+chain)
	}

	records := a.classify(constructs, semCtx)
	summary.Constructs = len(records)
	summary.ZoneCounts = make(map[string]int)
	for _, rec := range records {
		if rec.Classification.Ignored {
			summary.Ignored++
			continue
		}
		summary.ZoneCounts[rec.Classification.Zone]++
	}

	if err := a.reconcileRegistry(records, &summary); err != nil {
		return nil, err
	}

	var plan []planner.ChunkData
	if opts.ChunksFile != "" && summary.ThresholdExceeded {
		summary.Warnings = append(summary.Warnings,
			"plan not generated: parse error ratio exceeds the configured limit")
	} else if opts.ChunksFile != "" {
		chunks, err := LoadChunks(opts.ChunksFile)
		if err != nil {
			return nil, err
		}
		plan, err = a.planner.Plan(chunks)
		if err != nil {
			return nil, err
		}
		summary.PlanChunks = len(plan)
	}

	if err := a.writeArtifacts(semCtx, records, plan, summary); err != nil {
		return nil, err
	}
	if a.Config.History.Enabled {
		if err := a.saveSnapshot(summary); err != nil {
			// History is advisory; the run already produced its artifacts.
			a.logger.Warn("failed to save history snapshot", "error", err)
		}
	}

	a.logger.Info("run complete",
		"files", summary.Files,
		"constructs", summary.Constructs,
		"to_process", summary.ToProcess,
		"plan_chunks", summary.PlanChunks)
	return &summary, nil
}

func (a *App) classify(constructs []analyzer.Construct, semCtx *analyzer.SemanticContext) []report.ConstructRecord {
	records := make([]report.ConstructRecord, 0, len(constructs))
	for _, c := range constructs {
		cls := classifier.Classify(c, semCtx.Files[c.FilePath], a.rules)
		rec := report.ConstructRecord{Construct: c, Classification: cls}
		if !cls.Ignored {
			rec.AntiPatterns = classifier.DetectAntiPatterns(c.Facts, cls.Zone)
		}
		records = append(records, rec)
	}
	return records
}

// reconcileRegistry runs every classified construct through the idempotency
// registry under an advisory lock, then persists the updated state.
func (a *App) reconcileRegistry(records []report.ConstructRecord, summary *report.RunSummary) error {
	registryPath := a.statePath(a.Config.Registry.File)
	receiptsDir := a.statePath(a.Config.Registry.ReceiptsDir)
	if err := os.MkdirAll(filepath.Dir(registryPath), 0o755); err != nil {
		return errors.Wrap(err, errors.CodeStateIO, "failed to create state directory")
	}

	lock := registry.NewLock(registryPath)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	receipts := registry.NewReceiptStore(receiptsDir)
	reg := registry.New(registryPath, receipts, a.logger)
	if err := reg.Load(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(records))
	for i := range records {
		rec := &records[i]
		if rec.Classification.Ignored {
			continue
		}
		identity := registry.IdentityFor(rec.Construct)
		seen[identity.ID()] = true
		seen[identity.QualifiedID()] = true

		decision := reg.ShouldProcess(identity, rec.Construct.Hash, rec.Classification.Zone, rec.AntiPatterns)
		rec.Decision = decision
		if decision.Process {
			summary.ToProcess++
		}
		switch decision.Status {
		case registry.StatusPending:
			summary.Pending++
		case registry.StatusTransformed:
			summary.Transformed++
		case registry.StatusNeedsReview:
			summary.NeedsReview++
		case registry.StatusSkippedClean:
			summary.SkippedClean++
		case registry.StatusSkippedIO:
			summary.SkippedIO++
		}
	}
	summary.StaleConstructs = reg.StaleConstructs(seen)

	return reg.Save()
}

func (a *App) writeArtifacts(semCtx *analyzer.SemanticContext, records []report.ConstructRecord, plan []planner.ChunkData, summary report.RunSummary) error {
	outDir := a.Config.Paths.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, errors.CodeStateIO, "failed to create output directory")
	}

	if _, err := report.WriteSemanticContext(outDir, semCtx); err != nil {
		return err
	}
	if _, err := report.WriteConstructs(outDir, records); err != nil {
		return err
	}
	if plan != nil {
		if _, err := report.WritePlan(outDir, plan); err != nil {
			return err
		}
	}
	_, err := report.WriteMarkdown(outDir, summary, semCtx)
	return err
}

func (a *App) saveSnapshot(summary report.RunSummary) error {
	store, err := history.Open(a.statePath(a.Config.History.Path))
	if err != nil {
		return err
	}
	defer store.Close()

	receiptCount, err := registry.NewReceiptStore(a.statePath(a.Config.Registry.ReceiptsDir)).Count()
	if err != nil {
		receiptCount = 0
	}

	return store.SaveSnapshot(a.Config.Project.Key, history.Snapshot{
		ProjectKey:        a.Config.Project.Key,
		SchemaVersion:     history.SchemaVersion,
		Timestamp:         summary.Timestamp,
		FileCount:         summary.Files,
		ExportCount:       summary.Exports,
		ImportCount:       summary.Imports,
		ParseErrorCount:   summary.ParseErrorFiles,
		GraphEdgeCount:    summary.GraphEdges,
		ConstructCount:    summary.Constructs,
		PendingCount:      summary.Pending,
		TransformedCount:  summary.Transformed,
		NeedsReviewCount:  summary.NeedsReview,
		SkippedCleanCount: summary.SkippedClean,
		SkippedIOCount:    summary.SkippedIO,
		ReceiptCount:      receiptCount,
		PlanChunkCount:    summary.PlanChunks,
	})
}

// statePath resolves a configured state file relative to the state dir.
func (a *App) statePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.Config.Paths.StateDir, p)
}
