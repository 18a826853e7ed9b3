package registry

import (
	"crypto/sha256"
	"encoding/hex"

	"reforge/internal/engine/analyzer"
)

// ConstructIdentity is the stable join key between classification, registry
// state and receipts. It keys on structure, never on position, so moving a
// construct within its file does not change its identity.
type ConstructIdentity struct {
	FilePath       string `json:"file_path"`
	ConstructType  string `json:"construct_type"`
	ConstructName  string `json:"construct_name"`
	StructuralPath string `json:"structural_path"`
}

// ID derives the registry key: file_path::construct_name, with the construct
// type appended when two same-named constructs in one file must be told
// apart.
func (ci ConstructIdentity) ID() string {
	return ci.FilePath + "::" + ci.ConstructName
}

// QualifiedID is the collision form of ID.
func (ci ConstructIdentity) QualifiedID() string {
	return ci.FilePath + "::" + ci.ConstructName + "::" + ci.ConstructType
}

// IdentityFor builds the identity of an analyzed construct.
func IdentityFor(c analyzer.Construct) ConstructIdentity {
	return ConstructIdentity{
		FilePath:       c.FilePath,
		ConstructType:  c.Type,
		ConstructName:  c.Name,
		StructuralPath: c.StructuralPath,
	}
}

// HashContent hashes a construct's exact source span.
func HashContent(span []byte) string {
	sum := sha256.Sum256(span)
	return hex.EncodeToString(sum[:])
}
