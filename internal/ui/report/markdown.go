package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"reforge/internal/core/errors"
	"reforge/internal/engine/analyzer"
	"reforge/internal/shared/util"
)

// WriteMarkdown renders the human-readable run report, including a mermaid
// diagram of the intra-project dependency graph.
func WriteMarkdown(dir string, s RunSummary, ctx *analyzer.SemanticContext) (string, error) {
	path := filepath.Join(dir, "report.md")

	var b strings.Builder
	fmt.Fprintf(&b, "# Refactoring Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", s.Timestamp.Format(time.RFC3339))

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Files analyzed | %d |\n", s.Files)
	fmt.Fprintf(&b, "| Exports | %d |\n", s.Exports)
	fmt.Fprintf(&b, "| Imports | %d |\n", s.Imports)
	fmt.Fprintf(&b, "| Dependency edges | %d |\n", s.GraphEdges)
	fmt.Fprintf(&b, "| Files with parse errors | %d |\n", s.ParseErrorFiles)
	fmt.Fprintf(&b, "| Constructs tracked | %d |\n", s.Constructs)
	fmt.Fprintf(&b, "| Needing processing | %d |\n\n", s.ToProcess)

	if len(s.ZoneCounts) > 0 {
		fmt.Fprintf(&b, "## Zones\n\n")
		fmt.Fprintf(&b, "| Zone | Constructs |\n|---|---|\n")
		for _, zone := range sortedZones(s.ZoneCounts) {
			fmt.Fprintf(&b, "| %s | %d |\n", zone, s.ZoneCounts[zone])
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Registry\n\n")
	fmt.Fprintf(&b, "| Status | Constructs |\n|---|---|\n")
	fmt.Fprintf(&b, "| pending | %d |\n", s.Pending)
	fmt.Fprintf(&b, "| transformed | %d |\n", s.Transformed)
	fmt.Fprintf(&b, "| needs-review | %d |\n", s.NeedsReview)
	fmt.Fprintf(&b, "| skipped-clean | %d |\n", s.SkippedClean)
	fmt.Fprintf(&b, "| skipped-io | %d |\n\n", s.SkippedIO)

	if len(s.StaleConstructs) > 0 {
		fmt.Fprintf(&b, "## Stale Registry Entries\n\n")
		fmt.Fprintf(&b, "Tracked constructs no longer present in the tree; kept for audit history.\n\n")
		for _, id := range s.StaleConstructs {
			fmt.Fprintf(&b, "- `%s`\n", id)
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "## Warnings\n\n")
		for _, warning := range s.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
		fmt.Fprintf(&b, "\n")
	}

	if ctx != nil && len(ctx.DependencyGraph) > 0 {
		fmt.Fprintf(&b, "## Dependency Graph\n\n")
		fmt.Fprintf(&b, "```mermaid\n%s```\n", MermaidGraph(ctx))
	}

	if err := util.AtomicWriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to write report"),
			errors.CtxPath, path)
	}
	return path, nil
}

// MermaidGraph renders the forward dependency graph as a mermaid flowchart.
// Node ids are derived from paths; edges are emitted in sorted order so the
// output is deterministic.
func MermaidGraph(ctx *analyzer.SemanticContext) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	ids := make(map[string]string, len(ctx.Files))
	for i, path := range ctx.SortedFilePaths() {
		ids[path] = fmt.Sprintf("n%d", i)
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", ids[path], path)
	}
	for _, from := range ctx.SortedFilePaths() {
		for _, to := range ctx.DependencyGraph[from] {
			fmt.Fprintf(&b, "  %s --> %s\n", ids[from], ids[to])
		}
	}
	return b.String()
}
