package classifier

import (
	"fmt"
	"math"
	"strings"

	"reforge/internal/engine/analyzer"
	"reforge/internal/shared/observability"
)

// Purity zones, ordered from strictest to loosest side-effect discipline.
const (
	ZonePureCore       = "pure-core"
	ZoneOrchestration  = "orchestration"
	ZoneEffectBoundary = "effect-boundary"
	ZoneIOShell        = "io-shell"
)

const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
)

// ClassificationSignal is one matched rule and its contribution.
type ClassificationSignal struct {
	Polarity string  `json:"polarity"`
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Detail   string  `json:"detail"`
}

// FPClassification is the zone verdict for a single construct. Created fresh
// each run and never merged across runs.
type FPClassification struct {
	Zone              string                 `json:"zone"`
	Confidence        float64                `json:"confidence"`
	Signals           []ClassificationSignal `json:"signals,omitempty"`
	RecommendedPurity int                    `json:"recommended_purity"`
	Warnings          []string               `json:"warnings,omitempty"`
	ShouldRefactor    bool                   `json:"should_refactor"`
	// Ignored marks a construct carrying the ignore marker; it is excluded
	// from refactoring without receiving a heuristic zone.
	Ignored     bool   `json:"ignored,omitempty"`
	RuleVersion string `json:"rule_version"`
}

// Classify derives a construct's zone. Pure function of its inputs and the
// rule version: no I/O, no shared state.
//
// Priority order, each step terminating when it fires: an explicit marker in
// the leading comment wins with confidence 1.0; then import, naming and body
// rules accumulate signed weights; directory hints apply only when no other
// rule matched. With no signals at all the construct lands in orchestration
// at confidence 0.5 with an explicit warning, never a silent default.
func Classify(c analyzer.Construct, file *analyzer.FileAnalysis, rules *ZoneRules) FPClassification {
	res := FPClassification{RuleVersion: rules.Version}

	if zone, marker, ok := markerZone(c.LeadingComment); ok {
		if marker == MarkerIgnore {
			res.Ignored = true
			res.Confidence = 1.0
			res.Signals = append(res.Signals, ClassificationSignal{
				Polarity: PolarityNegative, Name: "marker", Weight: 0, Detail: marker,
			})
			observability.ClassifiedConstructs.WithLabelValues("ignored").Inc()
			return res
		}
		res.Zone = zone
		res.Confidence = 1.0
		res.RecommendedPurity = purityForZone(zone)
		res.ShouldRefactor = zone != ZoneIOShell
		res.Signals = append(res.Signals, ClassificationSignal{
			Polarity: polarityForZone(zone), Name: "marker", Weight: 0, Detail: marker,
		})
		observability.ClassifiedConstructs.WithLabelValues(zone).Inc()
		return res
	}

	var positive, negative float64
	add := func(sig ClassificationSignal) {
		res.Signals = append(res.Signals, sig)
		if sig.Polarity == PolarityPositive {
			positive += sig.Weight
		} else {
			negative += sig.Weight
		}
	}

	if file != nil {
		for _, rule := range rules.ImportRules {
			for _, imp := range file.Imports {
				if imp.IsTypeOnly {
					continue
				}
				if rule.matcher.Match(imp.SourceModule) {
					add(ClassificationSignal{
						Polarity: rule.Polarity, Name: rule.Name, Weight: rule.Weight,
						Detail: fmt.Sprintf("imports %q", imp.SourceModule),
					})
					break
				}
			}
		}
	}

	for _, rule := range rules.NamingRules {
		if rule.matcher.Match(c.Name) {
			add(ClassificationSignal{
				Polarity: rule.Polarity, Name: rule.Name, Weight: rule.Weight,
				Detail: fmt.Sprintf("name %q", c.Name),
			})
		}
	}

	addBodySignals(c.Facts, rules.Body, add)

	// Directory hints are the weakest evidence: any heuristic signal above
	// overrides them entirely.
	if len(res.Signals) == 0 {
		for _, hint := range rules.DirectoryHints {
			if hint.matcher.Match(c.FilePath) {
				add(ClassificationSignal{
					Polarity: hint.Polarity, Name: hint.Name, Weight: hint.Weight,
					Detail: fmt.Sprintf("path %q", c.FilePath),
				})
			}
		}
	}

	total := positive + negative
	if total == 0 {
		res.Zone = ZoneOrchestration
		res.Confidence = 0.5
		res.RecommendedPurity = purityForZone(ZoneOrchestration)
		res.ShouldRefactor = true
		res.Warnings = append(res.Warnings, "no classification signal matched")
		observability.ClassifiedConstructs.WithLabelValues(res.Zone).Inc()
		return res
	}

	ratio := positive / total
	res.Zone = zoneForRatio(ratio)
	res.Confidence = confidenceFor(total, ratio)
	res.RecommendedPurity = int(math.Round(ratio * 100))
	res.ShouldRefactor = res.Zone != ZoneIOShell
	observability.ClassifiedConstructs.WithLabelValues(res.Zone).Inc()
	return res
}

func addBodySignals(facts analyzer.BodyFacts, weights BodyWeights, add func(ClassificationSignal)) {
	impure := false
	if facts.HasMutationCall && weights.MutationCall > 0 {
		impure = true
		add(ClassificationSignal{Polarity: PolarityNegative, Name: "mutation-call", Weight: weights.MutationCall, Detail: "body mutates a collection"})
	}
	if facts.HasReassignment && weights.Reassignment > 0 {
		impure = true
		add(ClassificationSignal{Polarity: PolarityNegative, Name: "reassignment", Weight: weights.Reassignment, Detail: "body reassigns a binding"})
	}
	if facts.UsesThis && weights.ThisUsage > 0 {
		impure = true
		add(ClassificationSignal{Polarity: PolarityNegative, Name: "this-usage", Weight: weights.ThisUsage, Detail: "body references this"})
	}
	if facts.HasLoop && weights.Loop > 0 {
		impure = true
		add(ClassificationSignal{Polarity: PolarityNegative, Name: "imperative-loop", Weight: weights.Loop, Detail: "body contains an imperative loop"})
	}
	if facts.UsesHooks {
		impure = true
		add(ClassificationSignal{Polarity: PolarityNegative, Name: "hook-call", Weight: 1, Detail: "body calls a hook"})
	}
	if !impure && weights.CleanBody > 0 {
		add(ClassificationSignal{Polarity: PolarityPositive, Name: "clean-body", Weight: weights.CleanBody, Detail: "no mutation, reassignment, this or loop"})
	}
}

func zoneForRatio(ratio float64) string {
	switch {
	case ratio >= 0.8:
		return ZonePureCore
	case ratio >= 0.6:
		return ZoneOrchestration
	case ratio >= 0.4:
		return ZoneEffectBoundary
	default:
		return ZoneIOShell
	}
}

// confidenceFor grows with the amount of matched evidence and with the
// ratio's distance from the zone boundaries' midpoint.
func confidenceFor(total, ratio float64) float64 {
	evidence := total / (total + 2)
	skew := math.Abs(ratio-0.5) * 2
	conf := 0.5 + 0.5*evidence*math.Max(skew, 0.2)
	if conf > 0.99 {
		conf = 0.99
	}
	return math.Round(conf*100) / 100
}

func purityForZone(zone string) int {
	switch zone {
	case ZonePureCore:
		return 95
	case ZoneOrchestration:
		return 70
	case ZoneEffectBoundary:
		return 45
	default:
		return 10
	}
}

func polarityForZone(zone string) string {
	if zone == ZonePureCore || zone == ZoneOrchestration {
		return PolarityPositive
	}
	return PolarityNegative
}

// markerZone scans a leading comment for an explicit zone marker. The ignore
// marker is checked first so "@fp-ignore" never matches a shorter marker.
func markerZone(comment string) (zone, marker string, ok bool) {
	if comment == "" {
		return "", "", false
	}
	if strings.Contains(comment, MarkerIgnore) {
		return "", MarkerIgnore, true
	}
	ordered := []struct {
		marker string
		zone   string
	}{
		{MarkerEffectBoundary, ZoneEffectBoundary},
		{MarkerOrchestration, ZoneOrchestration},
		{MarkerPure, ZonePureCore},
		{MarkerIO, ZoneIOShell},
	}
	for _, m := range ordered {
		if strings.Contains(comment, m.marker) {
			return m.zone, m.marker, true
		}
	}
	return "", "", false
}
