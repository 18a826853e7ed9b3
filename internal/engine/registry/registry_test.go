package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *ReceiptStore) {
	t.Helper()
	dir := t.TempDir()
	receipts := NewReceiptStore(filepath.Join(dir, "receipts"))
	reg := New(filepath.Join(dir, "registry.json"), receipts, nil)
	require.NoError(t, reg.Load())
	return reg, receipts
}

func testIdentity(name string) ConstructIdentity {
	return ConstructIdentity{
		FilePath:       "src/cart.ts",
		ConstructType:  "function",
		ConstructName:  name,
		StructuralPath: "src/cart.ts#" + name,
	}
}

func TestFirstSighting(t *testing.T) {
	reg, _ := newTestRegistry(t)

	io := reg.ShouldProcess(testIdentity("writeLog"), "h1", "io-shell", []string{"mutation-call"})
	assert.False(t, io.Process)
	assert.Equal(t, StatusSkippedIO, io.Status)

	clean := reg.ShouldProcess(testIdentity("formatPrice"), "h2", "pure-core", nil)
	assert.False(t, clean.Process)
	assert.Equal(t, StatusSkippedClean, clean.Status)

	dirty := reg.ShouldProcess(testIdentity("addItem"), "h3", "pure-core", []string{"reassignment"})
	assert.True(t, dirty.Process)
	assert.Equal(t, StatusPending, dirty.Status)
	assert.Equal(t, "first sighting with findings", dirty.Reason)
}

func TestIdempotentSecondRun(t *testing.T) {
	reg, receipts := newTestRegistry(t)
	id := testIdentity("addItem")

	d := reg.ShouldProcess(id, "before", "pure-core", []string{"mutation-call"})
	require.True(t, d.Process)

	_, err := reg.RecordTransformation(id, "immutable-update", "before", "after", "push(x)", "concat(x)", []string{"mutation-call"})
	require.NoError(t, err)

	countBefore, err := receipts.Count()
	require.NoError(t, err)
	require.Equal(t, 1, countBefore)

	// Second run over the transformed, unchanged construct.
	second := reg.ShouldProcess(id, "after", "pure-core", nil)
	assert.False(t, second.Process)
	assert.Equal(t, "unchanged since transformation", second.Reason)
	assert.Equal(t, StatusTransformed, second.Status)

	countAfter, err := receipts.Count()
	require.NoError(t, err)
	assert.Equal(t, countBefore, countAfter, "a no-op run must append zero receipts")
}

func TestRegressionDetection(t *testing.T) {
	reg, _ := newTestRegistry(t)
	id := testIdentity("addItem")

	reg.ShouldProcess(id, "v1", "pure-core", []string{"mutation-call"})
	_, err := reg.RecordTransformation(id, "immutable-update", "v1", "v2", "", "", []string{"mutation-call"})
	require.NoError(t, err)

	d := reg.ShouldProcess(id, "v3", "pure-core", []string{"mutation-call"})
	assert.True(t, d.Process)
	assert.Equal(t, StatusNeedsReview, d.Status)
	assert.Contains(t, d.Reason, "regression")
}

func TestManualFixDetection(t *testing.T) {
	reg, _ := newTestRegistry(t)
	id := testIdentity("addItem")

	reg.ShouldProcess(id, "v1", "pure-core", []string{"mutation-call"})
	_, err := reg.RecordTransformation(id, "immutable-update", "v1", "v2", "", "", nil)
	require.NoError(t, err)

	d := reg.ShouldProcess(id, "v3", "pure-core", nil)
	assert.False(t, d.Process)
	assert.Equal(t, StatusManuallyFixed, d.Status)

	// Findings reappearing after a manual fix re-enter the queue.
	again := reg.ShouldProcess(id, "v4", "pure-core", []string{"reassignment"})
	assert.True(t, again.Process)
	assert.Equal(t, StatusPending, again.Status)
}

func TestSkippedCleanTransitions(t *testing.T) {
	reg, _ := newTestRegistry(t)
	id := testIdentity("formatPrice")

	reg.ShouldProcess(id, "v1", "pure-core", nil)

	unchanged := reg.ShouldProcess(id, "v1", "pure-core", nil)
	assert.False(t, unchanged.Process)
	assert.Equal(t, StatusSkippedClean, unchanged.Status)

	stillClean := reg.ShouldProcess(id, "v2", "pure-core", nil)
	assert.False(t, stillClean.Process)
	assert.Equal(t, StatusSkippedClean, stillClean.Status)

	dirty := reg.ShouldProcess(id, "v3", "pure-core", []string{"imperative-loop"})
	assert.True(t, dirty.Process)
	assert.Equal(t, StatusPending, dirty.Status)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	receipts := NewReceiptStore(filepath.Join(dir, "receipts"))

	reg := New(path, receipts, nil)
	require.NoError(t, reg.Load())
	reg.ShouldProcess(testIdentity("addItem"), "v1", "pure-core", []string{"mutation-call"})
	require.NoError(t, reg.Save())

	// No temp files may survive an atomic write.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".") && strings.Contains(entry.Name(), "tmp"),
			"unexpected temp file %s", entry.Name())
	}

	reloaded := New(path, receipts, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 1, reloaded.Len())

	st, ok := reloaded.State(testIdentity("addItem").ID())
	require.True(t, ok)
	assert.Equal(t, StatusPending, st.Status)
	assert.Equal(t, "v1", st.ContentHash)
	assert.Equal(t, []string{"mutation-call"}, st.AntiPatterns)
}

func TestLoadCorruptRegistryFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	reg := New(path, NewReceiptStore(filepath.Join(dir, "receipts")), nil)
	assert.Error(t, reg.Load())
}

func TestReceiptVerification(t *testing.T) {
	store := NewReceiptStore(filepath.Join(t.TempDir(), "receipts"))

	receipt, err := store.Append("src/cart.ts::addItem", "immutable-update", "b", "a", "x", "y", []string{"mutation-call"})
	require.NoError(t, err)
	assert.False(t, receipt.Verified)

	require.NoError(t, store.Verify(receipt.ID))

	listed, err := store.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Verified)
	require.NotNil(t, listed[0].VerifiedAt)
	assert.Equal(t, receipt.BeforeHash, listed[0].BeforeHash, "verification must not rewrite history")
}

func TestReceiptSnippetTruncation(t *testing.T) {
	store := NewReceiptStore(filepath.Join(t.TempDir(), "receipts"))

	long := strings.Repeat("x", 1000)
	receipt, err := store.Append("id", "t", "b", "a", long, long, nil)
	require.NoError(t, err)
	assert.Len(t, receipt.BeforeSnippet, maxReceiptSnippet)
}

func TestReceiptSnippetTruncationKeepsValidUTF8(t *testing.T) {
	store := NewReceiptStore(filepath.Join(t.TempDir(), "receipts"))

	// 3-byte runes put the byte cutoff mid-rune.
	long := strings.Repeat("→", 300)
	receipt, err := store.Append("id", "t", "b", "a", long, "", nil)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(receipt.BeforeSnippet), "truncated snippet must stay valid UTF-8")
	assert.LessOrEqual(t, len(receipt.BeforeSnippet), maxReceiptSnippet)
	assert.True(t, strings.HasPrefix(long, receipt.BeforeSnippet))
}

func TestCollidingNamesTrackedSeparately(t *testing.T) {
	reg, _ := newTestRegistry(t)

	fn := testIdentity("Widget")
	class := testIdentity("Widget")
	class.ConstructType = "class"

	reg.ShouldProcess(fn, "fn-v1", "pure-core", nil)
	d := reg.ShouldProcess(class, "class-v1", "pure-core", []string{"this-usage"})
	assert.True(t, d.Process)
	assert.Equal(t, StatusPending, d.Status)
	require.Equal(t, 2, reg.Len())

	// Re-seeing the function must not disturb the class entry.
	d = reg.ShouldProcess(fn, "fn-v1", "pure-core", nil)
	assert.False(t, d.Process)

	st, ok := reg.State(class.QualifiedID())
	require.True(t, ok)
	assert.Equal(t, "class", st.Identity.ConstructType)
	assert.Equal(t, "class-v1", st.ContentHash)
}

func TestStaleConstructs(t *testing.T) {
	reg, _ := newTestRegistry(t)

	reg.ShouldProcess(testIdentity("kept"), "v1", "pure-core", nil)
	reg.ShouldProcess(testIdentity("removed"), "v1", "pure-core", nil)

	seen := map[string]bool{testIdentity("kept").ID(): true}
	stale := reg.StaleConstructs(seen)
	require.Len(t, stale, 1)
	assert.Equal(t, testIdentity("removed").ID(), stale[0])
}

func TestAdvisoryLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	first := NewLock(path)
	require.NoError(t, first.Acquire())

	second := NewLock(path)
	assert.Error(t, second.Acquire(), "held lock must not be acquirable")

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestStaleLockTakeover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path+".lock", []byte("99999999\n"), 0o644))

	lock := NewLock(path)
	require.NoError(t, lock.Acquire(), "lock owned by a dead pid must be taken over")
	require.NoError(t, lock.Release())
}
