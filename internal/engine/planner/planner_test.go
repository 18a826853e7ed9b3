package planner

import (
	"testing"

	"reforge/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(chunks []ChunkData) []string {
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk.ID
	}
	return out
}

func TestPhasesConcatenateInOrder(t *testing.T) {
	p := New(nil)

	plan, err := p.Plan([]ChunkData{
		{ID: "cleanup-1", Category: CategoryCleanup},
		{ID: "migrate-1", Category: CategoryMigrate},
		{ID: "scaffold-1", Category: CategoryScaffold},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"scaffold-1", "migrate-1", "cleanup-1"}, ids(plan))
}

func TestDependencyOrdering(t *testing.T) {
	p := New(nil)

	plan, err := p.Plan([]ChunkData{
		{ID: "1", Category: CategoryScaffold},
		{ID: "3", Category: CategoryMigrate, DependsOn: []string{"1"}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "3"}, ids(plan))
}

func TestWithinBucketTopologicalSort(t *testing.T) {
	p := New(nil)

	plan, err := p.Plan([]ChunkData{
		{ID: "c", Category: CategoryMigrate, DependsOn: []string{"b"}},
		{ID: "b", Category: CategoryMigrate, DependsOn: []string{"a"}},
		{ID: "a", Category: CategoryMigrate},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(plan))
}

func TestTieBreakByInputOrder(t *testing.T) {
	p := New(nil)

	// No dependency relation: input order must be preserved, whatever the
	// ids look like.
	input := []ChunkData{
		{ID: "zz", Category: CategoryMigrate},
		{ID: "aa", Category: CategoryMigrate},
		{ID: "mm", Category: CategoryMigrate},
	}
	plan, err := p.Plan(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"zz", "aa", "mm"}, ids(plan))

	// And stays stable across repeated runs.
	for i := 0; i < 5; i++ {
		again, err := p.Plan(input)
		require.NoError(t, err)
		assert.Equal(t, ids(plan), ids(again))
	}
}

func TestCycleDetectionNamesFullPath(t *testing.T) {
	p := New(nil)

	_, err := p.Plan([]ChunkData{
		{ID: "1", Category: CategoryMigrate, DependsOn: []string{"2"}},
		{ID: "2", Category: CategoryMigrate, DependsOn: []string{"1"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePlanCycle))

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, cycleErr.Path, "1")
	assert.Contains(t, cycleErr.Path, "2")
	assert.Contains(t, err.Error(), "->")
}

func TestEarlierPhaseDependencyAccepted(t *testing.T) {
	p := New(nil)

	plan, err := p.Plan([]ChunkData{
		{ID: "scaffold-1", Category: CategoryScaffold},
		{ID: "cleanup-1", Category: CategoryCleanup, DependsOn: []string{"scaffold-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"scaffold-1", "cleanup-1"}, ids(plan))
}

func TestLaterPhaseDependencyRejected(t *testing.T) {
	p := New(nil)

	_, err := p.Plan([]ChunkData{
		{ID: "scaffold-1", Category: CategoryScaffold, DependsOn: []string{"migrate-1"}},
		{ID: "migrate-1", Category: CategoryMigrate},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePlanPhase))

	var phaseErr *PhaseOrderError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "scaffold-1", phaseErr.ChunkID)
	assert.Equal(t, "migrate-1", phaseErr.DependsOn)
}

func TestUnknownDependencyRejected(t *testing.T) {
	p := New(nil)

	_, err := p.Plan([]ChunkData{
		{ID: "1", Category: CategoryMigrate, DependsOn: []string{"ghost"}},
	})
	require.Error(t, err)

	var unknownErr *UnknownDependencyError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "ghost", unknownErr.DependsOn)
}

func TestUnknownCategoryRejected(t *testing.T) {
	p := New(nil)

	_, err := p.Plan([]ChunkData{{ID: "1", Category: "DEPLOY"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestDuplicateIDRejected(t *testing.T) {
	p := New(nil)

	_, err := p.Plan([]ChunkData{
		{ID: "1", Category: CategoryMigrate},
		{ID: "1", Category: CategoryCleanup},
	})
	require.Error(t, err)
}

func TestEmptyPlan(t *testing.T) {
	p := New(nil)
	plan, err := p.Plan(nil)
	require.NoError(t, err)
	assert.Empty(t, plan)
}
