package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"reforge/internal/core/app"
	"reforge/internal/core/config"
	"reforge/internal/core/watcher"
	"reforge/internal/data/history"
	"reforge/internal/shared/observability"
	"reforge/internal/ui/report"
)

var (
	configPath = flag.String("config", config.DefaultFile, "Path to config file")
	chunksPath = flag.String("chunks", "", "Path to a chunk manifest to order into an execution plan")
	rootPath   = flag.String("root", "", "Project root to analyze (overrides config)")
	outDir     = flag.String("out", "", "Artifact output directory (overrides config)")
	watch      = flag.Bool("watch", false, "Stay running and re-analyze when source files change")
	trends     = flag.Bool("trends", false, "Print run-history trends and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("reforge v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *rootPath != "" {
		cfg.Project.Root = *rootPath
	} else if flag.NArg() > 0 {
		cfg.Project.Root = flag.Arg(0)
	}
	if *outDir != "" {
		cfg.Paths.OutputDir = *outDir
	}

	if *trends {
		if err := printTrends(cfg); err != nil {
			slog.Error("failed to build trend report", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	if cfg.Observability.TracingEnabled {
		shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, VERSION)
		if err != nil {
			slog.Warn("tracing setup failed, continuing without it", "error", err)
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Observability.FlushTimeout)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					slog.Warn("tracer shutdown failed", "error", err)
				}
			}()
		}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	summary, err := a.Run(ctx, app.RunOptions{ChunksFile: *chunksPath})
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	fmt.Print(report.RenderSummary(*summary))

	if *watch {
		if err := watchAndRerun(ctx, a, cfg, *chunksPath); err != nil {
			slog.Error("watch mode failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if summary.ThresholdExceeded {
		slog.Error("parse error ratio exceeded the configured limit; artifacts written for inspection")
		os.Exit(2)
	}
}

// printTrends loads the last 30 days of run snapshots and prints per-run
// deltas for the backlog-relevant counters.
func printTrends(cfg *config.Config) error {
	path := cfg.History.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Paths.StateDir, path)
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.LoadSnapshots(cfg.Project.Key, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return err
	}
	trendReport, err := history.BuildTrendReport(snapshots, 24*time.Hour)
	if err != nil {
		return err
	}

	fmt.Printf("project %s: %d runs since %s\n",
		cfg.Project.Key, trendReport.RunCount, trendReport.Since.Format("2006-01-02"))
	for _, point := range trendReport.Points {
		fmt.Printf("  %s  files %d (%+d)  pending %d (%+d)  transformed %d (%+d)  needs-review %d (%+d)\n",
			point.Timestamp.Format("2006-01-02 15:04"),
			point.FileCount, point.DeltaFiles,
			point.PendingCount, point.DeltaPending,
			point.TransformedCount, point.DeltaTransformed,
			point.NeedsReviewCount, point.DeltaNeedsReview)
	}
	return nil
}

// watchAndRerun re-runs the full pipeline whenever the watcher reports a
// debounced batch of changes. Runs are serialized; a batch arriving during a
// run is picked up by the next one.
func watchAndRerun(ctx context.Context, a *app.App, cfg *config.Config, chunksPath string) error {
	trigger := make(chan struct{}, 1)
	w, err := watcher.New(cfg.Watch.Debounce, cfg.Exclude.Dirs, cfg.Exclude.Files,
		cfg.Analysis.IncludeTests, func(paths []string) {
			slog.Info("source changes detected", "count", len(paths))
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(cfg.Project.Root); err != nil {
		return err
	}
	slog.Info("watching for changes", "root", cfg.Project.Root, "debounce", cfg.Watch.Debounce)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-stop:
			slog.Info("shutting down")
			return nil
		case <-trigger:
			summary, err := a.Run(ctx, app.RunOptions{ChunksFile: chunksPath})
			if err != nil {
				slog.Error("run failed", "error", err)
				continue
			}
			fmt.Print(report.RenderSummary(*summary))
		}
	}
}
