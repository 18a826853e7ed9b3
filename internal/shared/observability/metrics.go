package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reforge_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	FilesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reforge_files_analyzed_total",
		Help: "Total number of files analyzed across runs.",
	})

	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reforge_parse_errors_total",
		Help: "Total number of per-file parse failures recorded.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reforge_graph_edges_total",
		Help: "Number of edges in the forward dependency graph of the last run.",
	})

	ClassifiedConstructs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reforge_classifier_zone_total",
		Help: "Constructs classified, labelled by resulting zone.",
	}, []string{"zone"})

	RegistryDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reforge_registry_decisions_total",
		Help: "Registry should-process outcomes, labelled by decision.",
	}, []string{"decision"})

	ReceiptsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reforge_receipts_written_total",
		Help: "Total number of transformation receipts appended.",
	})

	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reforge_plan_seconds",
		Help:    "Time spent computing an execution plan.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reforge_watcher_events_total",
		Help: "Filesystem events received while watching a project tree.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reforge_analysis_seconds",
		Help:    "Time spent on high-level pipeline stages.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
)
