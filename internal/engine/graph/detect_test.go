package graph

import (
	"reflect"
	"testing"
)

func TestDetectCycles(t *testing.T) {
	deps := map[string][]string{
		"src/a.ts": {"src/b.ts"},
		"src/b.ts": {"src/c.ts"},
		"src/c.ts": {"src/a.ts"},
		"src/d.ts": {"src/a.ts"},
	}

	cycles := DetectCycles(deps)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %v", len(cycles), cycles)
	}
	want := []string{"src/a.ts", "src/b.ts", "src/c.ts"}
	if !reflect.DeepEqual(cycles[0], want) {
		t.Errorf("cycle = %v, want %v", cycles[0], want)
	}
}

func TestDetectCyclesNone(t *testing.T) {
	deps := map[string][]string{
		"src/a.ts": {"src/b.ts"},
		"src/b.ts": {},
	}
	if cycles := DetectCycles(deps); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestDetectCyclesSelfImport(t *testing.T) {
	deps := map[string][]string{
		"src/a.ts": {"src/a.ts"},
	}
	cycles := DetectCycles(deps)
	if len(cycles) != 1 || len(cycles[0]) != 1 {
		t.Fatalf("expected single-node cycle, got %v", cycles)
	}
}

func TestDetectCyclesDeterministic(t *testing.T) {
	deps := map[string][]string{
		"src/a.ts": {"src/b.ts"},
		"src/b.ts": {"src/a.ts"},
		"src/x.ts": {"src/y.ts"},
		"src/y.ts": {"src/x.ts"},
	}
	first := DetectCycles(deps)
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(DetectCycles(deps), first) {
			t.Fatal("cycle detection must be deterministic")
		}
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 cycles, got %v", first)
	}
	if first[0][0] != "src/a.ts" || first[1][0] != "src/x.ts" {
		t.Errorf("cycles not in sorted order: %v", first)
	}
}

func TestFindImportChain(t *testing.T) {
	deps := map[string][]string{
		"src/a.ts": {"src/b.ts", "src/c.ts"},
		"src/b.ts": {"src/d.ts"},
		"src/c.ts": {"src/d.ts"},
		"src/d.ts": {},
	}

	chain, ok := FindImportChain(deps, "src/a.ts", "src/d.ts")
	if !ok {
		t.Fatal("expected a chain")
	}
	// Two equal-length chains exist; sorted expansion picks the b route.
	want := []string{"src/a.ts", "src/b.ts", "src/d.ts"}
	if !reflect.DeepEqual(chain, want) {
		t.Errorf("chain = %v, want %v", chain, want)
	}

	if _, ok := FindImportChain(deps, "src/d.ts", "src/a.ts"); ok {
		t.Error("expected no reverse chain")
	}
}
