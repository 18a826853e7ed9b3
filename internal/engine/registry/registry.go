package registry

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"time"

	"reforge/internal/core/errors"
	"reforge/internal/shared/observability"
	"reforge/internal/shared/util"
)

const registryVersion = 1

// registryDocument is the on-disk shape.
type registryDocument struct {
	Version    int                        `json:"version"`
	UpdatedAt  time.Time                  `json:"updated_at"`
	Constructs map[string]*ConstructState `json:"constructs"`
}

// Registry is the idempotency core: the single place where skip/process
// decisions are made. Analysis and classification re-run unconditionally
// every invocation; the registry short-circuits processing only.
//
// It is a single-writer structure backed by one file. Concurrent runs
// against the same project must hold the advisory lock (see Lock) around a
// Load/ShouldProcess/Save cycle.
type Registry struct {
	path     string
	receipts *ReceiptStore
	logger   *slog.Logger

	states map[string]*ConstructState
	dirty  bool
}

func New(path string, receipts *ReceiptStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		path:     path,
		receipts: receipts,
		logger:   logger,
		states:   make(map[string]*ConstructState),
	}
}

// Load reads the persisted registry. A missing file yields an empty registry;
// any other read or decode failure is fatal, since silently starting fresh
// would corrupt every future idempotency decision.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.states = make(map[string]*ConstructState)
			return nil
		}
		return errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to read registry"),
			errors.CtxPath, r.path)
	}

	var doc registryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "registry file is corrupt"),
			errors.CtxPath, r.path)
	}
	if doc.Constructs == nil {
		doc.Constructs = make(map[string]*ConstructState)
	}
	r.states = doc.Constructs
	r.dirty = false
	return nil
}

// Save persists the registry atomically (write-temp-then-rename), so a crash
// mid-write can never leave a partial document behind.
func (r *Registry) Save() error {
	if !r.dirty {
		return nil
	}
	doc := registryDocument{
		Version:    registryVersion,
		UpdatedAt:  time.Now().UTC(),
		Constructs: r.states,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeStateIO, "failed to encode registry")
	}
	if err := util.AtomicWriteFile(r.path, data, 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to write registry"),
			errors.CtxPath, r.path)
	}
	r.dirty = false
	return nil
}

// State returns the tracked state for a construct id, if any.
func (r *Registry) State(id string) (*ConstructState, bool) {
	st, ok := r.states[id]
	return st, ok
}

// Len reports the number of tracked constructs.
func (r *Registry) Len() int {
	return len(r.states)
}

// ShouldProcess runs the per-construct state machine and records the
// resulting state. It returns whether the construct needs (re)processing and
// why.
//
// First sighting: io-shell constructs are skipped outright, clean constructs
// are skipped, constructs with findings become pending. On later sightings
// the decision keys on whether the hash moved and whether findings
// reappeared; a transformed construct whose hash changed and whose findings
// came back is a regression and lands in needs-review.
func (r *Registry) ShouldProcess(identity ConstructIdentity, contentHash, zone string, antiPatterns []string) Decision {
	id := identity.ID()
	now := time.Now().UTC()
	hasPatterns := len(antiPatterns) > 0

	st, exists := r.states[id]
	if exists && st.Identity.ConstructType != identity.ConstructType {
		// Same file and name, different kind of construct (a function and
		// a class can share a name). Fall back to the qualified key.
		id = identity.QualifiedID()
		st, exists = r.states[id]
	}

	var d Decision
	switch {
	case !exists:
		d = r.firstSighting(zone, hasPatterns)
		st = &ConstructState{Identity: identity}
		r.states[id] = st

	default:
		d = nextStatus(st.Status, st.ContentHash == contentHash, hasPatterns, zone)
	}

	st.ContentHash = contentHash
	st.FPZone = zone
	st.Status = d.Status
	st.LastProcessed = now
	st.AntiPatterns = append([]string(nil), antiPatterns...)
	r.dirty = true

	label := "skip"
	if d.Process {
		label = "process"
	}
	observability.RegistryDecisions.WithLabelValues(label).Inc()
	r.logger.Debug("registry decision",
		"construct", id, "status", d.Status, "process", d.Process, "reason", d.Reason)
	return d
}

func (r *Registry) firstSighting(zone string, hasPatterns bool) Decision {
	switch {
	case zone == zoneIOShell:
		return Decision{Process: false, Reason: "io-shell construct", Status: StatusSkippedIO}
	case !hasPatterns:
		return Decision{Process: false, Reason: "no anti-patterns found", Status: StatusSkippedClean}
	default:
		return Decision{Process: true, Reason: "first sighting with findings", Status: StatusPending}
	}
}

// nextStatus is the transition table for constructs seen before.
func nextStatus(current string, hashUnchanged, hasPatterns bool, zone string) Decision {
	switch current {
	case StatusTransformed:
		switch {
		case hashUnchanged:
			return Decision{Process: false, Reason: "unchanged since transformation", Status: StatusTransformed}
		case hasPatterns:
			return Decision{Process: true, Reason: "regression: transformed construct changed and findings reappeared", Status: StatusNeedsReview}
		default:
			return Decision{Process: false, Reason: "changed externally without findings", Status: StatusManuallyFixed}
		}

	case StatusSkippedClean:
		switch {
		case hashUnchanged:
			return Decision{Process: false, Reason: "unchanged clean construct", Status: StatusSkippedClean}
		case hasPatterns:
			return Decision{Process: true, Reason: "clean construct changed and findings appeared", Status: StatusPending}
		default:
			return Decision{Process: false, Reason: "still clean after change", Status: StatusSkippedClean}
		}

	case StatusSkippedIO:
		if zone == zoneIOShell {
			return Decision{Process: false, Reason: "io-shell construct", Status: StatusSkippedIO}
		}
		// Zone moved out of the shell: treat as a fresh sighting.
		if hasPatterns {
			return Decision{Process: true, Reason: "left io-shell with findings", Status: StatusPending}
		}
		return Decision{Process: false, Reason: "left io-shell clean", Status: StatusSkippedClean}

	case StatusManuallyFixed:
		switch {
		case hashUnchanged:
			return Decision{Process: false, Reason: "manually fixed", Status: StatusManuallyFixed}
		case hasPatterns:
			return Decision{Process: true, Reason: "findings reappeared after manual fix", Status: StatusPending}
		default:
			return Decision{Process: false, Reason: "still clean after manual fix", Status: StatusManuallyFixed}
		}

	case StatusNeedsReview:
		switch {
		case hashUnchanged:
			return Decision{Process: false, Reason: "awaiting manual review", Status: StatusNeedsReview}
		case hasPatterns:
			return Decision{Process: true, Reason: "changed while under review, findings remain", Status: StatusPending}
		default:
			return Decision{Process: false, Reason: "resolved during review", Status: StatusManuallyFixed}
		}

	default: // StatusPending
		if !hasPatterns {
			return Decision{Process: false, Reason: "findings cleared before transformation", Status: StatusSkippedClean}
		}
		return Decision{Process: true, Reason: "awaiting transformation", Status: StatusPending}
	}
}

// RecordTransformation marks a construct transformed and appends its receipt.
// The receipt write happens first: a transformation without an audit record
// must not be observable.
func (r *Registry) RecordTransformation(identity ConstructIdentity, transformType, beforeHash, afterHash, beforeSnippet, afterSnippet string, fixed []string) (*TransformationReceipt, error) {
	id := identity.ID()
	st, ok := r.states[id]
	if !ok {
		id = identity.QualifiedID()
		st, ok = r.states[id]
	}
	if !ok {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "construct not tracked"),
			errors.CtxConstruct, identity.ID())
	}

	receipt, err := r.receipts.Append(id, transformType, beforeHash, afterHash, beforeSnippet, afterSnippet, fixed)
	if err != nil {
		return nil, err
	}

	st.Status = StatusTransformed
	st.ContentHash = afterHash
	st.LastProcessed = time.Now().UTC()
	st.AppliedTransforms = append(st.AppliedTransforms, transformType)
	st.AntiPatterns = nil
	r.dirty = true
	return receipt, nil
}

// StaleConstructs lists tracked ids that were not seen in the current run.
// Entries are never pruned automatically; this surfaces them for explicit
// cleanup tooling.
func (r *Registry) StaleConstructs(seen map[string]bool) []string {
	var stale []string
	for id := range r.states {
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return stale
}
