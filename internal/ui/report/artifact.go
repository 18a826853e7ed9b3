package report

import (
	"encoding/json"
	"path/filepath"

	"reforge/internal/core/errors"
	"reforge/internal/engine/analyzer"
	"reforge/internal/engine/classifier"
	"reforge/internal/engine/planner"
	"reforge/internal/engine/registry"
	"reforge/internal/shared/util"
)

// WriteSemanticContext serializes the analysis artifact consumed by the
// authoring agent and by humans debugging a plan. Written atomically so a
// consumer never observes a half-written document.
func WriteSemanticContext(dir string, ctx *analyzer.SemanticContext) (string, error) {
	path := filepath.Join(dir, "semantic-context.json")
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to encode semantic context")
	}
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to write semantic context"),
			errors.CtxPath, path)
	}
	return path, nil
}

// ConstructRecord pairs one construct with its zone verdict and the
// registry's processing decision for this run.
type ConstructRecord struct {
	Construct      analyzer.Construct          `json:"construct"`
	Classification classifier.FPClassification `json:"classification"`
	AntiPatterns   []string                    `json:"anti_patterns,omitempty"`
	Decision       registry.Decision           `json:"decision"`
}

// WriteConstructs serializes the per-construct verdicts.
func WriteConstructs(dir string, records []ConstructRecord) (string, error) {
	path := filepath.Join(dir, "constructs.json")
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to encode constructs")
	}
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to write constructs"),
			errors.CtxPath, path)
	}
	return path, nil
}

// WritePlan serializes the ordered chunk list.
func WritePlan(dir string, plan []planner.ChunkData) (string, error) {
	path := filepath.Join(dir, "execution-plan.json")
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to encode plan")
	}
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to write plan"),
			errors.CtxPath, path)
	}
	return path, nil
}
