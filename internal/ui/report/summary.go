package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A78BFA")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))
)

// RunSummary carries everything one invocation produced, for rendering and
// for the markdown report.
type RunSummary struct {
	ProjectKey string
	Timestamp  time.Time

	Files             int
	Exports           int
	Imports           int
	ParseErrorFiles   int
	GraphEdges        int
	ThresholdExceeded bool

	Constructs int
	ZoneCounts map[string]int

	Pending      int
	Transformed  int
	NeedsReview  int
	SkippedClean int
	SkippedIO    int
	Ignored      int
	ToProcess    int

	StaleConstructs []string
	PlanChunks      int
	Warnings        []string
}

// RenderSummary draws the terminal summary for one run.
func RenderSummary(s RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("reforge run"), mutedStyle.Render(s.Timestamp.Format(time.RFC3339)))

	fmt.Fprintf(&b, "%s\n", sectionStyle.Render("analysis"))
	fmt.Fprintf(&b, "  files %d  exports %d  imports %d  edges %d\n", s.Files, s.Exports, s.Imports, s.GraphEdges)
	if s.ParseErrorFiles > 0 {
		line := fmt.Sprintf("  parse errors in %d files", s.ParseErrorFiles)
		if s.ThresholdExceeded {
			fmt.Fprintf(&b, "%s\n", errorStyle.Render(line+" (threshold exceeded)"))
		} else {
			fmt.Fprintf(&b, "%s\n", warnStyle.Render(line))
		}
	}

	fmt.Fprintf(&b, "%s\n", sectionStyle.Render("zones"))
	for _, zone := range sortedZones(s.ZoneCounts) {
		fmt.Fprintf(&b, "  %-16s %d\n", zone, s.ZoneCounts[zone])
	}

	fmt.Fprintf(&b, "%s\n", sectionStyle.Render("registry"))
	fmt.Fprintf(&b, "  pending %d  transformed %d  needs-review %d\n", s.Pending, s.Transformed, s.NeedsReview)
	fmt.Fprintf(&b, "  skipped-clean %d  skipped-io %d  ignored %d\n", s.SkippedClean, s.SkippedIO, s.Ignored)
	if s.NeedsReview > 0 {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render(fmt.Sprintf("  %d constructs regressed since transformation", s.NeedsReview)))
	}
	if len(s.StaleConstructs) > 0 {
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("  %d stale registry entries (constructs no longer present)", len(s.StaleConstructs))))
	}

	if s.PlanChunks > 0 {
		fmt.Fprintf(&b, "%s\n", sectionStyle.Render("plan"))
		fmt.Fprintf(&b, "  %d chunks ordered\n", s.PlanChunks)
	}

	for _, warning := range s.Warnings {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render("  warning: "+warning))
	}

	if s.ToProcess == 0 {
		fmt.Fprintf(&b, "%s\n", okStyle.Render("nothing to process"))
	} else {
		fmt.Fprintf(&b, "%s\n", okStyle.Render(fmt.Sprintf("%d constructs need processing", s.ToProcess)))
	}
	return b.String()
}

func sortedZones(counts map[string]int) []string {
	zones := make([]string, 0, len(counts))
	for zone := range counts {
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones
}
