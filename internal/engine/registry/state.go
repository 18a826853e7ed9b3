package registry

import (
	"time"
)

// zoneIOShell mirrors the classifier's io-shell zone name. The registry only
// ever compares against this one zone, so it keys on the string rather than
// importing the classifier.
const zoneIOShell = "io-shell"

// Construct statuses.
const (
	StatusPending       = "pending"
	StatusTransformed   = "transformed"
	StatusSkippedClean  = "skipped-clean"
	StatusSkippedIO     = "skipped-io"
	StatusManuallyFixed = "manually-fixed"
	StatusNeedsReview   = "needs-review"
)

// ConstructState is the persisted record for one construct. It is created on
// first sighting and updated whenever the hash changes or a transformation is
// recorded; it is never deleted automatically, so removed constructs keep
// their audit trail.
type ConstructState struct {
	Identity          ConstructIdentity `json:"identity"`
	ContentHash       string            `json:"content_hash"`
	FPZone            string            `json:"fp_zone"`
	Status            string            `json:"status"`
	LastProcessed     time.Time         `json:"last_processed"`
	AppliedTransforms []string          `json:"applied_transforms,omitempty"`
	AntiPatterns      []string          `json:"anti_patterns,omitempty"`
}

// Decision is the outcome of a should-process check.
type Decision struct {
	Process bool   `json:"process"`
	Reason  string `json:"reason"`
	Status  string `json:"status"`
}
