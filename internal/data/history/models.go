package history

import "time"

const SchemaVersion = 1

// Snapshot captures one analysis run's aggregate numbers for trend tracking.
type Snapshot struct {
	ProjectKey    string    `json:"project_key,omitempty"`
	SchemaVersion int       `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`

	FileCount       int `json:"file_count"`
	ExportCount     int `json:"export_count"`
	ImportCount     int `json:"import_count"`
	ParseErrorCount int `json:"parse_error_count"`
	GraphEdgeCount  int `json:"graph_edge_count"`
	ConstructCount  int `json:"construct_count"`

	PendingCount      int `json:"pending_count"`
	TransformedCount  int `json:"transformed_count"`
	NeedsReviewCount  int `json:"needs_review_count"`
	SkippedCleanCount int `json:"skipped_clean_count"`
	SkippedIOCount    int `json:"skipped_io_count"`
	ReceiptCount      int `json:"receipt_count"`

	PlanChunkCount int `json:"plan_chunk_count"`
}

// TrendPoint is one snapshot annotated with deltas against its predecessor
// and window averages.
type TrendPoint struct {
	Timestamp        time.Time `json:"timestamp"`
	FileCount        int       `json:"file_count"`
	ParseErrorCount  int       `json:"parse_error_count"`
	ConstructCount   int       `json:"construct_count"`
	PendingCount     int       `json:"pending_count"`
	TransformedCount int       `json:"transformed_count"`
	NeedsReviewCount int       `json:"needs_review_count"`

	DeltaFiles       int `json:"delta_files"`
	DeltaParseErrors int `json:"delta_parse_errors"`
	DeltaPending     int `json:"delta_pending"`
	DeltaTransformed int `json:"delta_transformed"`
	DeltaNeedsReview int `json:"delta_needs_review"`

	AvgPending     float64 `json:"avg_pending"`
	AvgParseErrors float64 `json:"avg_parse_errors"`
	WindowHours    float64 `json:"window_hours"`
}

// TrendReport summarizes a sequence of runs.
type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	RunCount      int          `json:"run_count"`
	Points        []TrendPoint `json:"points"`
}
