package planner

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"reforge/internal/core/errors"
	"reforge/internal/shared/observability"
)

// Chunk categories, in fixed execution phase order.
const (
	CategoryScaffold = "SCAFFOLD"
	CategoryMigrate  = "MIGRATE"
	CategoryCleanup  = "CLEANUP"
)

var categoryRank = map[string]int{
	CategoryScaffold: 0,
	CategoryMigrate:  1,
	CategoryCleanup:  2,
}

// ChunkData is one externally authored edit unit. The planner treats it as
// read-only input.
type ChunkData struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	DependsOn       []string `json:"depends_on,omitempty"`
	CreatesExports  []string `json:"creates_exports,omitempty"`
	RequiresImports []string `json:"requires_imports,omitempty"`
	Description     string   `json:"description,omitempty"`
}

// CycleError reports a dependency cycle with the full offending chain.
type CycleError struct {
	Category string
	Path     []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle in %s chunks: %s", e.Category, strings.Join(e.Path, " -> "))
}

// PhaseOrderError reports a chunk depending on a chunk in a later phase.
// Phases exist precisely to make this class of error detectable; it is never
// repaired by reordering.
type PhaseOrderError struct {
	ChunkID      string
	Category     string
	DependsOn    string
	DependsPhase string
}

func (e *PhaseOrderError) Error() string {
	return fmt.Sprintf("chunk %q (%s) depends on %q (%s): a chunk cannot depend on a later phase",
		e.ChunkID, e.Category, e.DependsOn, e.DependsPhase)
}

// UnknownDependencyError reports a depends_on id that matches no chunk.
type UnknownDependencyError struct {
	ChunkID   string
	DependsOn string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("chunk %q depends on unknown chunk %q", e.ChunkID, e.DependsOn)
}

// Planner computes a total execution order over chunks. Synchronous, pure
// and deterministic given its inputs.
type Planner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{logger: logger}
}

// Plan partitions chunks into SCAFFOLD, MIGRATE, CLEANUP buckets, topological
// sorts each bucket by depends_on, and concatenates the buckets in phase
// order. A dependency into an earlier phase is satisfied by construction and
// ignored inside the bucket sort; a dependency into a later phase is a
// PhaseOrderError. Ties break by input order, so output is deterministic.
func (p *Planner) Plan(chunks []ChunkData) ([]ChunkData, error) {
	start := time.Now()
	defer func() {
		observability.PlanDuration.Observe(time.Since(start).Seconds())
	}()

	phase := make(map[string]string, len(chunks))
	for _, chunk := range chunks {
		if _, ok := categoryRank[chunk.Category]; !ok {
			return nil, errors.New(errors.CodeValidationError,
				fmt.Sprintf("chunk %q has unknown category %q", chunk.ID, chunk.Category))
		}
		if _, dup := phase[chunk.ID]; dup {
			return nil, errors.New(errors.CodeValidationError,
				fmt.Sprintf("duplicate chunk id %q", chunk.ID))
		}
		phase[chunk.ID] = chunk.Category
	}

	if err := checkPhaseOrder(chunks, phase); err != nil {
		return nil, err
	}

	buckets := make(map[string][]ChunkData, 3)
	for _, chunk := range chunks {
		buckets[chunk.Category] = append(buckets[chunk.Category], chunk)
	}

	plan := make([]ChunkData, 0, len(chunks))
	for _, category := range []string{CategoryScaffold, CategoryMigrate, CategoryCleanup} {
		ordered, err := sortBucket(category, buckets[category])
		if err != nil {
			return nil, err
		}
		plan = append(plan, ordered...)
	}

	p.logger.Info("execution plan computed",
		"chunks", len(plan),
		"scaffold", len(buckets[CategoryScaffold]),
		"migrate", len(buckets[CategoryMigrate]),
		"cleanup", len(buckets[CategoryCleanup]))
	return plan, nil
}

// checkPhaseOrder rejects dependencies that point to a later phase or to
// nothing at all. Dependencies into earlier phases are forward references
// across the phase boundary and are safe by construction.
func checkPhaseOrder(chunks []ChunkData, phase map[string]string) error {
	for _, chunk := range chunks {
		for _, dep := range chunk.DependsOn {
			depPhase, ok := phase[dep]
			if !ok {
				return errors.Wrap(&UnknownDependencyError{ChunkID: chunk.ID, DependsOn: dep},
					errors.CodePlanPhase, "unsatisfiable dependency")
			}
			if categoryRank[depPhase] > categoryRank[chunk.Category] {
				return errors.Wrap(&PhaseOrderError{
					ChunkID:      chunk.ID,
					Category:     chunk.Category,
					DependsOn:    dep,
					DependsPhase: depPhase,
				}, errors.CodePlanPhase, "phase order violation")
			}
		}
	}
	return nil
}

// sortBucket is a stable Kahn topological sort: among ready chunks, input
// order decides. Dependencies outside the bucket were already validated as
// earlier-phase references and are ignored here.
func sortBucket(category string, chunks []ChunkData) ([]ChunkData, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	inBucket := make(map[string]int, len(chunks))
	for i, chunk := range chunks {
		inBucket[chunk.ID] = i
	}

	indegree := make([]int, len(chunks))
	dependents := make(map[string][]int, len(chunks))
	for i, chunk := range chunks {
		for _, dep := range chunk.DependsOn {
			if _, ok := inBucket[dep]; !ok {
				continue
			}
			indegree[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	ordered := make([]ChunkData, 0, len(chunks))
	done := make([]bool, len(chunks))
	for len(ordered) < len(chunks) {
		next := -1
		for i := range chunks {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			cycle := findCycle(chunks, inBucket, done)
			return nil, errors.Wrap(&CycleError{Category: category, Path: cycle},
				errors.CodePlanCycle, "dependency cycle")
		}
		done[next] = true
		ordered = append(ordered, chunks[next])
		for _, dependent := range dependents[chunks[next].ID] {
			indegree[dependent]--
		}
	}
	return ordered, nil
}

// findCycle walks depends_on edges among the unfinished chunks until a node
// repeats, then returns the closed cycle path.
func findCycle(chunks []ChunkData, inBucket map[string]int, done []bool) []string {
	remaining := make([]int, 0, len(chunks))
	for i := range chunks {
		if !done[i] {
			remaining = append(remaining, i)
		}
	}
	sort.Ints(remaining)
	if len(remaining) == 0 {
		return nil
	}

	visitedAt := make(map[string]int)
	var path []string
	current := remaining[0]
	for {
		id := chunks[current].ID
		if at, seen := visitedAt[id]; seen {
			cycle := append([]string(nil), path[at:]...)
			return append(cycle, id)
		}
		visitedAt[id] = len(path)
		path = append(path, id)

		advanced := false
		for _, dep := range chunks[current].DependsOn {
			idx, ok := inBucket[dep]
			if ok && !done[idx] {
				current = idx
				advanced = true
				break
			}
		}
		if !advanced {
			return path
		}
	}
}
