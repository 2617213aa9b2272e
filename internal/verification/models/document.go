package models

import (
	"strings"
	"time"

	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
)

const (
	maxEvidenceRefLength = 2048
	MaxReviewNoteLength  = 1000
)

// Document is one verification submission. Documents are append-only audit
// records: a resubmission creates a new Document, it never rewrites an old one.
//
// Invariants:
//   - Category is a taxonomy member
//   - EvidenceRef is non-empty (an opaque reference, never dereferenced here)
//   - ReviewedAt and ReviewerID are set exactly when Status is terminal
//   - Status changes at most once (PENDING → VERIFIED | REJECTED)
type Document struct {
	ID             id.DocumentID `json:"id"`
	Category       Category      `json:"category"`
	OwnerAccountID id.AccountID  `json:"owner_account_id"`
	EvidenceRef    string        `json:"evidence_ref"`
	Status         Status        `json:"status"`
	SubmittedAt    time.Time     `json:"submitted_at"`
	ReviewedAt     *time.Time    `json:"reviewed_at,omitempty"`
	ReviewerID     *id.AccountID `json:"reviewer_id,omitempty"`
	ReviewNote     string        `json:"review_note,omitempty"`

	// Seq is the store-assigned submission order; it breaks SubmittedAt ties.
	Seq int64 `json:"-"`
}

// NewDocument builds a PENDING submission.
func NewDocument(documentID id.DocumentID, owner id.AccountID, category Category, evidenceRef string, now time.Time) (*Document, error) {
	if documentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document id is required")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner account id is required")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidCategory, "unknown verification category: "+string(category))
	}
	evidenceRef = strings.TrimSpace(evidenceRef)
	if evidenceRef == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence_ref is required")
	}
	if len(evidenceRef) > maxEvidenceRefLength {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence_ref must be 2048 characters or less")
	}
	return &Document{
		ID:             documentID,
		Category:       category,
		OwnerAccountID: owner,
		EvidenceRef:    evidenceRef,
		Status:         StatusPending,
		SubmittedAt:    now,
	}, nil
}

func (d *Document) IsPending() bool  { return d.Status == StatusPending }
func (d *Document) IsVerified() bool { return d.Status == StatusVerified }

// CanReview checks the document is still awaiting a decision.
func (d *Document) CanReview() error {
	if !d.Status.CanTransitionTo(StatusVerified) {
		return dErrors.New(dErrors.CodeAlreadyReviewed, "document already reviewed")
	}
	return nil
}

// ApplyReview records the decision. Call CanReview first; stores call this
// only while holding the compare-and-swap condition.
func (d *Document) ApplyReview(decision Decision, reviewerID id.AccountID, note string, now time.Time) {
	reviewedAt := now
	reviewer := reviewerID
	d.Status = decision.Status()
	d.ReviewedAt = &reviewedAt
	d.ReviewerID = &reviewer
	d.ReviewNote = note
}

// Clone returns a deep copy so callers never alias store-owned records.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.ReviewedAt != nil {
		t := *d.ReviewedAt
		c.ReviewedAt = &t
	}
	if d.ReviewerID != nil {
		r := *d.ReviewerID
		c.ReviewerID = &r
	}
	return &c
}

// SupersedesOrEqual reports whether d is at least as recent as other under
// latest-wins ordering: later SubmittedAt first, then higher Seq.
func (d *Document) SupersedesOrEqual(other *Document) bool {
	if other == nil {
		return true
	}
	if !d.SubmittedAt.Equal(other.SubmittedAt) {
		return d.SubmittedAt.After(other.SubmittedAt)
	}
	return d.Seq >= other.Seq
}

// NormalizeReviewNote trims and bounds a reviewer note.
func NormalizeReviewNote(note string) (string, error) {
	note = strings.TrimSpace(note)
	if len(note) > MaxReviewNoteLength {
		return "", dErrors.New(dErrors.CodeValidation, "note must be 1000 characters or less")
	}
	return note, nil
}
