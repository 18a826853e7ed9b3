package classifier

import (
	"reforge/internal/engine/analyzer"
)

// Anti-pattern names reported against a construct's target zone.
const (
	AntiPatternLoop         = "imperative-loop"
	AntiPatternMutation     = "mutation-call"
	AntiPatternReassignment = "reassignment"
	AntiPatternThisUsage    = "this-usage"
)

// DetectAntiPatterns lists the body shapes inconsistent with the zone a
// construct was classified into. The stricter the zone, the more shapes
// count against it; io-shell tolerates everything.
func DetectAntiPatterns(facts analyzer.BodyFacts, zone string) []string {
	var found []string
	switch zone {
	case ZonePureCore:
		if facts.HasLoop {
			found = append(found, AntiPatternLoop)
		}
		if facts.HasMutationCall {
			found = append(found, AntiPatternMutation)
		}
		if facts.HasReassignment {
			found = append(found, AntiPatternReassignment)
		}
		if facts.UsesThis {
			found = append(found, AntiPatternThisUsage)
		}
	case ZoneOrchestration:
		if facts.HasMutationCall {
			found = append(found, AntiPatternMutation)
		}
		if facts.HasReassignment {
			found = append(found, AntiPatternReassignment)
		}
	case ZoneEffectBoundary:
		if facts.HasMutationCall {
			found = append(found, AntiPatternMutation)
		}
	}
	return found
}
