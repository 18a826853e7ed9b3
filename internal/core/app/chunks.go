package app

import (
	"encoding/json"
	"os"

	"reforge/internal/core/errors"
	"reforge/internal/engine/planner"
)

// chunkManifest is the on-disk shape of a chunk metadata file. A bare JSON
// array of chunks is accepted too.
type chunkManifest struct {
	Chunks []planner.ChunkData `json:"chunks"`
}

// LoadChunks reads chunk metadata produced by the authoring agent.
func LoadChunks(path string) ([]planner.ChunkData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to read chunk manifest"),
			errors.CtxPath, path)
	}

	var chunks []planner.ChunkData
	if err := json.Unmarshal(data, &chunks); err == nil {
		return chunks, nil
	}

	var manifest chunkManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "chunk manifest is not valid JSON"),
			errors.CtxPath, path)
	}
	return manifest.Chunks, nil
}
