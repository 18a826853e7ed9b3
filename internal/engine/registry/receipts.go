package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"reforge/internal/core/errors"
	"reforge/internal/shared/observability"
	"reforge/internal/shared/util"

	"github.com/google/uuid"
)

const maxReceiptSnippet = 400

// TransformationReceipt is one immutable audit record of an applied
// transformation. Once written it is never rewritten; verification flips the
// flag and stamps the time, nothing else.
type TransformationReceipt struct {
	ID                string     `json:"id"`
	Timestamp         time.Time  `json:"timestamp"`
	ConstructID       string     `json:"construct_id"`
	TransformType     string     `json:"transform_type"`
	BeforeHash        string     `json:"before_hash"`
	AfterHash         string     `json:"after_hash"`
	BeforeSnippet     string     `json:"before_snippet"`
	AfterSnippet      string     `json:"after_snippet"`
	AntiPatternsFixed []string   `json:"anti_patterns_fixed,omitempty"`
	Verified          bool       `json:"verified"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
}

// ReceiptStore appends receipts as individual documents in one directory.
// One file per receipt keeps the log append-only without rewrite contention.
type ReceiptStore struct {
	dir string
}

func NewReceiptStore(dir string) *ReceiptStore {
	return &ReceiptStore{dir: dir}
}

// Append writes a new receipt. The file is created exclusively; an id
// collision is an error, never an overwrite.
func (s *ReceiptStore) Append(constructID, transformType, beforeHash, afterHash, beforeSnippet, afterSnippet string, fixed []string) (*TransformationReceipt, error) {
	receipt := &TransformationReceipt{
		ID:                uuid.NewString(),
		Timestamp:         time.Now().UTC(),
		ConstructID:       constructID,
		TransformType:     transformType,
		BeforeHash:        beforeHash,
		AfterHash:         afterHash,
		BeforeSnippet:     truncateSnippet(beforeSnippet),
		AfterSnippet:      truncateSnippet(afterSnippet),
		AntiPatternsFixed: fixed,
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to create receipt directory"),
			errors.CtxPath, s.dir)
	}
	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStateIO, "failed to encode receipt")
	}

	path := s.receiptPath(receipt)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to create receipt"),
			errors.CtxPath, path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to write receipt"),
			errors.CtxPath, path)
	}
	if err := f.Close(); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to close receipt"),
			errors.CtxPath, path)
	}

	observability.ReceiptsWritten.Inc()
	return receipt, nil
}

// Verify flips a receipt's verification flag and stamps the time. History is
// otherwise untouched.
func (s *ReceiptStore) Verify(receiptID string) error {
	path, receipt, err := s.find(receiptID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	receipt.Verified = true
	receipt.VerifiedAt = &now

	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeStateIO, "failed to encode receipt")
	}
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to update receipt"),
			errors.CtxPath, path)
	}
	return nil
}

// List loads all receipts, oldest first.
func (s *ReceiptStore) List() ([]*TransformationReceipt, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to read receipt directory"),
			errors.CtxPath, s.dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	receipts := make([]*TransformationReceipt, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to read receipt"),
				errors.CtxPath, path)
		}
		var receipt TransformationReceipt
		if err := json.Unmarshal(data, &receipt); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "receipt is corrupt"),
				errors.CtxPath, path)
		}
		receipts = append(receipts, &receipt)
	}
	return receipts, nil
}

// Count reports the number of stored receipts.
func (s *ReceiptStore) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to read receipt directory"),
			errors.CtxPath, s.dir)
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

func (s *ReceiptStore) find(receiptID string) (string, *TransformationReceipt, error) {
	receipts, err := s.List()
	if err != nil {
		return "", nil, err
	}
	for _, receipt := range receipts {
		if receipt.ID == receiptID {
			return s.receiptPath(receipt), receipt, nil
		}
	}
	return "", nil, errors.AddContext(errors.New(errors.CodeNotFound, "receipt not found"),
		errors.CtxOperation, "verify")
}

// receiptPath names files so lexicographic order is chronological order.
func (s *ReceiptStore) receiptPath(r *TransformationReceipt) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.json", r.Timestamp.Format("20060102T150405.000000000Z"), r.ID))
}

func truncateSnippet(snippet string) string {
	if len(snippet) <= maxReceiptSnippet {
		return snippet
	}
	// Back off to a rune boundary so the stored tail stays valid UTF-8.
	cut := maxReceiptSnippet
	for cut > 0 && !utf8.RuneStart(snippet[cut]) {
		cut--
	}
	return snippet[:cut]
}
