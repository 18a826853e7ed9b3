package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport annotates a run sequence with per-run deltas and moving
// averages over the given window. Snapshots must be ordered oldest first, as
// LoadSnapshots returns them.
func BuildTrendReport(snapshots []Snapshot, window time.Duration) (TrendReport, error) {
	if len(snapshots) == 0 {
		return TrendReport{}, fmt.Errorf("no snapshots available")
	}

	points := make([]TrendPoint, 0, len(snapshots))
	for i, current := range snapshots {
		point := TrendPoint{
			Timestamp:        current.Timestamp,
			FileCount:        current.FileCount,
			ParseErrorCount:  current.ParseErrorCount,
			ConstructCount:   current.ConstructCount,
			PendingCount:     current.PendingCount,
			TransformedCount: current.TransformedCount,
			NeedsReviewCount: current.NeedsReviewCount,
		}

		if i > 0 {
			prev := snapshots[i-1]
			point.DeltaFiles = current.FileCount - prev.FileCount
			point.DeltaParseErrors = current.ParseErrorCount - prev.ParseErrorCount
			point.DeltaPending = current.PendingCount - prev.PendingCount
			point.DeltaTransformed = current.TransformedCount - prev.TransformedCount
			point.DeltaNeedsReview = current.NeedsReviewCount - prev.NeedsReviewCount
		}

		avgPending, avgParseErrors := movingAverages(snapshots, i, window)
		point.AvgPending = round2(avgPending)
		point.AvgParseErrors = round2(avgParseErrors)
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		Since:         snapshots[0].Timestamp,
		Until:         snapshots[len(snapshots)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}, nil
}

func movingAverages(snapshots []Snapshot, index int, window time.Duration) (float64, float64) {
	if window <= 0 {
		return float64(snapshots[index].PendingCount), float64(snapshots[index].ParseErrorCount)
	}

	cutoff := snapshots[index].Timestamp.Add(-window)
	var pendingTotal int
	var parseErrorTotal int
	count := 0
	for i := index; i >= 0; i-- {
		if snapshots[i].Timestamp.Before(cutoff) {
			break
		}
		pendingTotal += snapshots[i].PendingCount
		parseErrorTotal += snapshots[i].ParseErrorCount
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(pendingTotal) / float64(count), float64(parseErrorTotal) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
